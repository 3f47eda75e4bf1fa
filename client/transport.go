// Package client provides HTTP plumbing for calling the PrepDeck backend
// with the current session attached.
package client

import (
	"net/http"

	"github.com/prepdeck/authkit"
)

// Default header names for session context.
const (
	DefaultHeaderUserID    = "X-PrepDeck-User-Id"
	DefaultHeaderUserEmail = "X-PrepDeck-User-Email"
)

// SessionSource yields the current session snapshot. SessionManager
// satisfies it.
type SessionSource interface {
	Session() authkit.SessionSnapshot
}

// SessionTransport wraps an http.RoundTripper to add session headers.
// The snapshot is taken per request, so sign-in and sign-out between
// requests is reflected immediately.
type SessionTransport struct {
	Base   http.RoundTripper
	Source SessionSource

	// HeaderUserID is the header carrying the signed-in user ID.
	// Defaults to "X-PrepDeck-User-Id".
	HeaderUserID string

	// HeaderUserEmail is the header carrying the signed-in user's email.
	// Defaults to "X-PrepDeck-User-Email".
	HeaderUserEmail string
}

// EnsureDefaults fills in default values for any unset fields.
func (t *SessionTransport) EnsureDefaults() {
	if t.HeaderUserID == "" {
		t.HeaderUserID = DefaultHeaderUserID
	}
	if t.HeaderUserEmail == "" {
		t.HeaderUserEmail = DefaultHeaderUserEmail
	}
}

// RoundTrip implements http.RoundTripper
func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.EnsureDefaults()

	if t.Source != nil {
		if snap := t.Source.Session(); snap.Identity != nil {
			// Clone the request to avoid mutating the original
			req2 := req.Clone(req.Context())
			req2.Header.Set(t.HeaderUserID, snap.Identity.ID)
			if snap.Identity.Email != "" {
				req2.Header.Set(t.HeaderUserEmail, snap.Identity.Email)
			}
			req = req2
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewSessionTransport creates a SessionTransport over http.DefaultTransport
func NewSessionTransport(source SessionSource) *SessionTransport {
	return &SessionTransport{
		Base:   http.DefaultTransport,
		Source: source,
	}
}

// NewSessionTransportWithBase creates a SessionTransport with a custom base transport
func NewSessionTransportWithBase(base http.RoundTripper, source SessionSource) *SessionTransport {
	return &SessionTransport{
		Base:   base,
		Source: source,
	}
}

// HTTPClient returns an http.Client whose requests carry the current session
func HTTPClient(source SessionSource) *http.Client {
	return &http.Client{Transport: NewSessionTransport(source)}
}
