// Package oauth2 implements the authkit Provider boundary over standard
// OAuth2/OIDC identity providers.
//
// The popup strategy is the loopback authorization-code flow with PKCE: a
// short-lived listener on 127.0.0.1 receives the callback while the process
// awaits it, the closest thing a native client has to a popup window.
//
// The redirect strategy is the RFC 8628 device-authorization flow: the user
// finishes sign-in on an external surface and the resulting grant is only
// observable on a later process start, through the one-shot
// PendingRedirectResult check backed by a FlowStore.
package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/prepdeck/authkit"
)

// DefaultPollWindow bounds the one-shot device-flow poll performed at start.
const DefaultPollWindow = 10 * time.Second

// Adapter implements authkit.Provider for one OAuth2/OIDC provider.
type Adapter struct {
	// Name keys pending flows in the FlowStore ("google", "github", ...).
	Name string

	// Config carries the client credentials and endpoints. RedirectURL is
	// overwritten per popup attempt with the loopback callback address.
	Config oauth2.Config

	// Issuer enables OIDC ID-token verification when set. Without it the
	// identity is built from the UserInfoURL response.
	Issuer string

	// UserInfoURL is the profile endpoint queried with the bearer token.
	UserInfoURL string

	// Flows persists pending redirect flows across process restarts.
	// Required for the redirect strategy.
	Flows authkit.FlowStore

	// OpenBrowser presents the authorization URL to the user. The default
	// just logs it. A failure to present is a blocked popup.
	OpenBrowser func(url string) error

	// ListenAddr for the loopback callback. Defaults to "127.0.0.1:0".
	ListenAddr string

	// PollWindow bounds how long PendingRedirectResult polls the token
	// endpoint before failing open. Defaults to DefaultPollWindow.
	PollWindow time.Duration

	Logger *slog.Logger

	feed authkit.IdentityFeed

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
	checked  bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFlowStore sets the pending-flow store backing the redirect strategy.
func WithFlowStore(flows authkit.FlowStore) Option {
	return func(a *Adapter) { a.Flows = flows }
}

// WithBrowser sets the function that presents the authorization URL.
func WithBrowser(open func(url string) error) Option {
	return func(a *Adapter) { a.OpenBrowser = open }
}

// WithListenAddr pins the loopback callback address (useful when the
// provider requires a registered redirect port).
func WithListenAddr(addr string) Option {
	return func(a *Adapter) { a.ListenAddr = addr }
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.Logger = logger }
}

// New creates an adapter for the given provider name and OAuth2 config.
func New(name string, config oauth2.Config, opts ...Option) *Adapter {
	a := &Adapter{Name: name, Config: config}
	for _, opt := range opts {
		opt(a)
	}
	a.ensureDefaults()
	return a
}

func (a *Adapter) ensureDefaults() {
	if a.ListenAddr == "" {
		a.ListenAddr = "127.0.0.1:0"
	}
	if a.PollWindow <= 0 {
		a.PollWindow = DefaultPollWindow
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.OpenBrowser == nil {
		a.OpenBrowser = func(url string) error {
			log.Println("Open this URL to sign in: ", url)
			return nil
		}
	}
}

// SignInPopup implements authkit.Provider with the loopback PKCE flow.
func (a *Adapter) SignInPopup(ctx context.Context) (*authkit.Identity, error) {
	a.ensureDefaults()

	ln, err := net.Listen("tcp", a.ListenAddr)
	if err != nil {
		// no loopback surface available: the environment cannot host the
		// popup strategy at all
		return nil, authkit.NewProviderError("operation-not-supported-in-this-environment", err.Error())
	}
	defer ln.Close()

	state, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}
	pkce := oauth2.GenerateVerifier()

	cfg := a.Config
	cfg.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	type callbackResult struct {
		code string
		err  error
	}
	results := make(chan callbackResult, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callbackResult{err: authkit.NewProviderError("unauthorized-origin", "oauth state mismatch")}
			return
		}
		if errCode := q.Get("error"); errCode != "" {
			fmt.Fprintln(w, "Sign-in failed. You can close this window.")
			results <- callbackResult{err: translateOAuthCode(errCode, q.Get("error_description"))}
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this window.")
		results <- callbackResult{code: q.Get("code")}
	})}
	go srv.Serve(ln)
	defer srv.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(pkce))
	if err := a.OpenBrowser(authURL); err != nil {
		return nil, authkit.NewProviderError("popup-blocked", err.Error())
	}

	select {
	case <-ctx.Done():
		// the user abandoned the window (or the app tore down)
		return nil, authkit.NewProviderError("popup-closed-by-user", ctx.Err().Error())
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}
		token, err := cfg.Exchange(ctx, cb.code, oauth2.VerifierOption(pkce))
		if err != nil {
			return nil, translateTokenError(err)
		}
		identity, err := a.identityFromToken(ctx, token)
		if err != nil {
			return nil, err
		}
		// publish before returning so the session store observes the
		// sign-in through its subscription
		a.feed.Set(identity)
		return identity.Clone(), nil
	}
}

// BeginRedirect implements authkit.Provider by starting a device-
// authorization flow and persisting its handle. The grant itself lives with
// the provider; only the polling handle is stored locally.
func (a *Adapter) BeginRedirect(ctx context.Context) error {
	a.ensureDefaults()
	if a.Config.Endpoint.DeviceAuthURL == "" || a.Flows == nil {
		return authkit.NewProviderError("operation-not-supported-in-this-environment",
			"redirect sign-in is not configured for this provider")
	}

	da, err := a.Config.DeviceAuth(ctx)
	if err != nil {
		return translateTokenError(err)
	}

	now := time.Now()
	flow := &authkit.PendingFlow{
		Provider:        a.Name,
		DeviceCode:      da.DeviceCode,
		UserCode:        da.UserCode,
		VerificationURI: da.VerificationURI,
		Interval:        da.Interval,
		CreatedAt:       now,
		ExpiresAt:       da.Expiry,
	}
	if err := a.Flows.SetFlow(a.Name, flow); err != nil {
		return fmt.Errorf("storing pending flow: %w", err)
	}
	if err := a.Flows.Save(); err != nil {
		return fmt.Errorf("saving pending flow: %w", err)
	}

	log.Printf("To finish signing in, visit %s and enter code %s", da.VerificationURI, da.UserCode)
	return nil
}

// PendingRedirectResult implements authkit.Provider: a one-shot, bounded
// poll for the outcome of an earlier redirect flow. A flow that has not been
// completed yet stays stored; an expired or denied one is dropped. Either
// way a missing result is reported as nil, nil so startup never blocks on
// an abandoned sign-in.
func (a *Adapter) PendingRedirectResult(ctx context.Context) (*authkit.Identity, error) {
	a.ensureDefaults()

	a.mu.Lock()
	if a.checked {
		a.mu.Unlock()
		return nil, nil
	}
	a.checked = true
	a.mu.Unlock()

	if a.Flows == nil {
		return nil, nil
	}
	flow, err := a.Flows.GetFlow(a.Name)
	if err != nil {
		return nil, fmt.Errorf("loading pending flow: %w", err)
	}
	if flow == nil {
		return nil, nil
	}
	if flow.IsExpired() {
		a.dropFlow()
		return nil, nil
	}

	// bound the poll: this runs on the startup path
	da := &oauth2.DeviceAuthResponse{
		DeviceCode: flow.DeviceCode,
		Interval:   flow.Interval,
		Expiry:     time.Now().Add(a.PollWindow),
	}
	pollCtx, cancel := context.WithTimeout(ctx, a.PollWindow)
	defer cancel()

	token, err := a.Config.DeviceAccessToken(pollCtx, da)
	if err != nil {
		var re *oauth2.RetrieveError
		switch {
		case errors.As(err, &re) && re.ErrorCode == "access_denied":
			a.dropFlow()
			return nil, authkit.NewProviderError("user-cancelled", "device flow denied")
		case errors.As(err, &re) && re.ErrorCode == "expired_token":
			a.dropFlow()
			return nil, nil
		default:
			// still pending, or transiently unreachable: keep the flow for
			// the next start
			a.Logger.Warn("device flow not resolved yet", "provider", a.Name, "err", err)
			return nil, nil
		}
	}

	a.dropFlow()
	identity, err := a.identityFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	a.feed.Set(identity)
	return identity.Clone(), nil
}

// SubscribeIdentityChanges implements authkit.Provider.
func (a *Adapter) SubscribeIdentityChanges(fn func(*authkit.Identity)) (unsubscribe func()) {
	return a.feed.Subscribe(fn)
}

// SignOut implements authkit.Provider. The local notion of the current user
// is cleared and broadcast; token revocation is the provider's business.
func (a *Adapter) SignOut(ctx context.Context) error {
	a.feed.Set(nil)
	return nil
}

func (a *Adapter) dropFlow() {
	if err := a.Flows.RemoveFlow(a.Name); err != nil {
		a.Logger.Warn("removing pending flow", "provider", a.Name, "err", err)
		return
	}
	if err := a.Flows.Save(); err != nil {
		a.Logger.Warn("saving flow store", "provider", a.Name, "err", err)
	}
}

// identityFromToken builds an Identity from the token: a verified ID token
// when the adapter is OIDC-configured, the userinfo endpoint otherwise.
func (a *Adapter) identityFromToken(ctx context.Context, token *oauth2.Token) (*authkit.Identity, error) {
	if a.Issuer != "" {
		if raw, ok := token.Extra("id_token").(string); ok && raw != "" {
			return a.identityFromIDToken(ctx, raw)
		}
	}
	if a.UserInfoURL == "" {
		return nil, authkit.NewProviderError("operation-not-allowed",
			"provider returned no id_token and no userinfo endpoint is configured")
	}
	userInfo, err := a.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return authkit.IdentityFromUserInfo(userInfo), nil
}

func (a *Adapter) identityFromIDToken(ctx context.Context, raw string) (*authkit.Identity, error) {
	verifier, err := a.idTokenVerifier(ctx)
	if err != nil {
		return nil, authkit.NewProviderError("network-request-failed", err.Error())
	}
	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, authkit.NewProviderError("unauthorized-origin", err.Error())
	}
	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding id token claims: %w", err)
	}
	return &authkit.Identity{
		ID:          idToken.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
	}, nil
}

func (a *Adapter) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.verifier == nil {
		provider, err := oidc.NewProvider(ctx, a.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discovering issuer %s: %w", a.Issuer, err)
		}
		a.verifier = provider.Verifier(&oidc.Config{ClientID: a.Config.ClientID})
	}
	return a.verifier, nil
}

func (a *Adapter) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, authkit.NewProviderError("network-request-failed", err.Error())
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, authkit.NewProviderError("network-request-failed", err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, authkit.NewProviderError("unauthorized-origin",
			fmt.Sprintf("userinfo returned HTTP %d", resp.StatusCode))
	}
	var userInfo map[string]any
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("invalid userinfo response: %w", err)
	}
	return userInfo, nil
}

// translateOAuthCode maps OAuth2 protocol error codes onto the provider
// error vocabulary the classifier understands.
func translateOAuthCode(code, description string) *authkit.ProviderError {
	switch code {
	case "access_denied":
		return authkit.NewProviderError("user-cancelled", description)
	case "unauthorized_client", "invalid_client":
		return authkit.NewProviderError("unauthorized-origin", description)
	case "unsupported_response_type", "invalid_scope":
		return authkit.NewProviderError("operation-not-allowed", description)
	}
	return authkit.NewProviderError(code, description)
}

func translateTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return translateOAuthCode(re.ErrorCode, re.ErrorDescription)
	}
	// no HTTP-level response at all: connectivity
	return authkit.NewProviderError("network-request-failed", err.Error())
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
