package authkit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prepdeck/authkit"
	"github.com/prepdeck/authkit/devprovider"
)

func newTestBridge(t *testing.T, p *devprovider.Provider) (*authkit.HTTPBridge, *httptest.Server) {
	t.Helper()
	m := authkit.NewSessionManager(p)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(m.Close)

	b := authkit.NewHTTPBridge(m)
	b.JWTSecretKey = "test-secret"
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s response: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHTTPBridge_Session(t *testing.T) {
	p := newTestProvider(t)
	_, srv := newTestBridge(t, p)

	var snap authkit.SessionSnapshot
	if status := getJSON(t, srv.URL+"/session", &snap); status != http.StatusOK {
		t.Fatalf("GET /session status = %d", status)
	}
	if snap.Authenticated() || snap.Resolving {
		t.Errorf("initial session = %+v, want resolved anonymous", snap)
	}
}

func TestHTTPBridge_SignInSuccess(t *testing.T) {
	p := newTestProvider(t)
	p.Prompt = func(ctx context.Context) (string, string, error) {
		return "student@prepdeck.dev", "letmein", nil
	}
	_, srv := newTestBridge(t, p)

	var body struct {
		Status  string                  `json:"status"`
		Session authkit.SessionSnapshot `json:"session"`
	}
	if status := postJSON(t, srv.URL+"/signin", nil, &body); status != http.StatusOK {
		t.Fatalf("POST /signin status = %d", status)
	}
	if body.Status != "signed_in" {
		t.Errorf("status = %q, want signed_in", body.Status)
	}
	if !body.Session.Authenticated() {
		t.Errorf("session = %+v, want authenticated", body.Session)
	}
}

func TestHTTPBridge_SignInRedirectStarted(t *testing.T) {
	p := newTestProvider(t) // no prompt: redirect fallback engages
	_, srv := newTestBridge(t, p)

	var body struct {
		Status string `json:"status"`
	}
	if status := postJSON(t, srv.URL+"/signin", nil, &body); status != http.StatusAccepted {
		t.Fatalf("POST /signin status = %d, want 202", status)
	}
	if body.Status != "redirect_started" {
		t.Errorf("status = %q, want redirect_started", body.Status)
	}
}

func TestHTTPBridge_SignInCancelledIsNotAnError(t *testing.T) {
	p := newTestProvider(t)
	p.Prompt = func(ctx context.Context) (string, string, error) {
		return "", "", context.Canceled
	}
	_, srv := newTestBridge(t, p)

	var body struct {
		Status string `json:"status"`
	}
	if status := postJSON(t, srv.URL+"/signin", nil, &body); status != http.StatusOK {
		t.Fatalf("POST /signin status = %d, want 200 for a cancelled attempt", status)
	}
	if body.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", body.Status)
	}
}

func TestHTTPBridge_SignOut(t *testing.T) {
	p := newTestProvider(t)
	p.Prompt = func(ctx context.Context) (string, string, error) {
		return "student@prepdeck.dev", "letmein", nil
	}
	_, srv := newTestBridge(t, p)

	if status := postJSON(t, srv.URL+"/signin", nil, nil); status != http.StatusOK {
		t.Fatalf("POST /signin status = %d", status)
	}

	var body struct {
		Status  string                  `json:"status"`
		Session authkit.SessionSnapshot `json:"session"`
	}
	if status := postJSON(t, srv.URL+"/signout", nil, &body); status != http.StatusOK {
		t.Fatalf("POST /signout status = %d", status)
	}
	if body.Status != "signed_out" || body.Session.Authenticated() {
		t.Errorf("response = %+v, want an anonymous signed_out", body)
	}
}

func TestHTTPBridge_Profile(t *testing.T) {
	p := newTestProvider(t)
	p.Prompt = func(ctx context.Context) (string, string, error) {
		return "student@prepdeck.dev", "letmein", nil
	}
	_, srv := newTestBridge(t, p)

	if status := postJSON(t, srv.URL+"/signin", nil, nil); status != http.StatusOK {
		t.Fatalf("POST /signin status = %d", status)
	}

	var snap authkit.SessionSnapshot
	status := postJSON(t, srv.URL+"/profile", map[string]any{"name": "Renamed"}, &snap)
	if status != http.StatusOK {
		t.Fatalf("POST /profile status = %d", status)
	}
	if snap.Identity == nil || snap.Identity.DisplayName != "Renamed" {
		t.Errorf("session = %+v, want the merged display name", snap)
	}
}

func TestHTTPBridge_ProfileRejectsBadBody(t *testing.T) {
	p := newTestProvider(t)
	_, srv := newTestBridge(t, p)

	resp, err := http.Post(srv.URL+"/profile", "application/json", bytes.NewBufferString("not json"))
	if err != nil {
		t.Fatalf("POST /profile error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHTTPBridge_VerifyToken(t *testing.T) {
	p := newTestProvider(t)
	b, _ := newTestBridge(t, p)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "dev:student@prepdeck.dev",
		"iss": b.JwtIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(b.JWTSecretKey))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	userId, err := b.VerifyToken(signed)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if userId != "dev:student@prepdeck.dev" {
		t.Errorf("userId = %q, want the token subject", userId)
	}

	badSigned, err := token.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	if _, err := b.VerifyToken(badSigned); err == nil {
		t.Error("a token signed with the wrong key must not verify")
	}
}
