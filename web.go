package authkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// HTTPBridge exposes the session manager to a host application over HTTP.
// It is the concrete form of the boundary the session core presents to UI
// code: a reactive snapshot plus signIn/signOut/updateProfile operations.
//
// Routes (relative to wherever the handler is mounted):
//
//	POST /signin   - run one interactive sign-in attempt
//	POST /signout  - optimistic local sign-out, then provider sign-out
//	GET  /session  - current {identity, resolving} snapshot as JSON
//	POST /profile  - merge local display fields into the identity
type HTTPBridge struct {
	Manager *SessionManager
	Session *scs.SessionManager

	// Optional name used as a prefix for defaults
	AppName string

	// Name of the session variable where the auth token is stored
	AuthTokenSessionVar string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	// How long a session cookie is valid for. Defaults to 1 day.
	SessionTimeoutInSeconds int
}

// NewHTTPBridge wraps a manager with HTTP glue and reasonable defaults.
func NewHTTPBridge(manager *SessionManager) *HTTPBridge {
	return (&HTTPBridge{Manager: manager}).EnsureDefaults()
}

func (b *HTTPBridge) EnsureDefaults() *HTTPBridge {
	if b.AppName == "" {
		b.AppName = "PrepDeck"
	}
	if b.SessionTimeoutInSeconds <= 0 {
		b.SessionTimeoutInSeconds = 86400
	}
	if b.JwtIssuer == "" {
		b.JwtIssuer = fmt.Sprintf("%s-Issuer", b.AppName)
	}
	if b.AuthTokenSessionVar == "" {
		b.AuthTokenSessionVar = fmt.Sprintf("%sAuthToken", b.AppName)
	}
	if b.JWTSecretKey == "" {
		b.JWTSecretKey = strings.TrimSpace(os.Getenv("PREPDECK_JWT_SECRET_KEY"))
	}
	if b.Session == nil {
		b.Session = scs.New()
		b.Session.Lifetime = time.Duration(b.SessionTimeoutInSeconds) * time.Second
	}
	return b
}

// Handler returns the routed handler, wrapped in the scs session middleware.
func (b *HTTPBridge) Handler() http.Handler {
	b.EnsureDefaults()
	r := mux.NewRouter()
	r.HandleFunc("/signin", b.onSignIn).Methods(http.MethodPost)
	r.HandleFunc("/signout", b.onSignOut).Methods(http.MethodPost)
	r.HandleFunc("/session", b.onSession).Methods(http.MethodGet)
	r.HandleFunc("/profile", b.onProfile).Methods(http.MethodPost)
	return b.Session.LoadAndSave(r)
}

func (b *HTTPBridge) onSignIn(w http.ResponseWriter, r *http.Request) {
	err := b.Manager.SignIn(r.Context())
	switch {
	case err == nil:
		snap := b.Manager.Session()
		b.setLoggedInUser(snap.Identity, r)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "signed_in",
			"session": snap,
		})
	case errors.Is(err, ErrRedirectStarted):
		// flow continues on an external surface; nothing more to report now
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "redirect_started",
		})
	default:
		ae := ClassifyError(err)
		if ae.Kind == KindUserCancelled {
			// expected path: no error banner
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "cancelled",
			})
			return
		}
		status := http.StatusBadGateway
		if ae.Configuration() {
			status = http.StatusInternalServerError
		} else if ae == ErrSignInPending {
			status = http.StatusConflict
		}
		slog.Warn("sign-in failed", "kind", ae.Kind, "code", ae.Code)
		writeJSON(w, status, map[string]any{
			"status": "failed",
			"kind":   ae.Kind,
			"error":  ae.Message,
		})
	}
}

func (b *HTTPBridge) onSignOut(w http.ResponseWriter, r *http.Request) {
	log.Println("Logging out user...")
	if err := b.Manager.SignOut(r.Context()); err != nil {
		// local state is already cleared; nothing for the UI to react to
		slog.Warn("provider sign-out failed", "err", err)
	}
	b.setLoggedInUser(nil, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "signed_out",
		"session": b.Manager.Session(),
	})
}

func (b *HTTPBridge) onSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Manager.Session())
}

func (b *HTTPBridge) onProfile(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil || partial == nil {
		http.Error(w, `{"error": "invalid post body"}`, http.StatusBadRequest)
		return
	}
	b.Manager.UpdateProfile(partial)
	writeJSON(w, http.StatusOK, b.Manager.Session())
}

// setLoggedInUser records the signed-in user in the host session and mints
// the auth token the host app's own middleware verifies. Passing nil clears
// everything ("logout").
func (b *HTTPBridge) setLoggedInUser(identity *Identity, r *http.Request) string {
	b.EnsureDefaults()
	if identity == nil {
		if err := b.Session.Clear(r.Context()); err != nil {
			slog.Warn("error clearing session", "err", err)
		}
		return ""
	}

	b.Session.Put(r.Context(), "loggedInUserId", identity.ID)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": identity.ID,
		"iss": b.JwtIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(b.JWTSecretKey))
	if err != nil {
		slog.Info("error signing token", "err", err)
		return ""
	}
	b.Session.Put(r.Context(), b.AuthTokenSessionVar, tokenString)
	return tokenString
}

// VerifyToken checks a bridge-minted JWT and returns the user id it names.
func (b *HTTPBridge) VerifyToken(tokenString string) (loggedInUserId string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(b.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Println("error encoding response: ", err)
	}
}
