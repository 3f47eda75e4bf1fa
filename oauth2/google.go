package oauth2

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewGoogle creates a Google adapter. Empty credentials fall back to the
// PREPDECK_GOOGLE_CLIENT_ID / PREPDECK_GOOGLE_CLIENT_SECRET env vars.
// Identities come from the verified OIDC ID token.
func NewGoogle(clientID, clientSecret string, opts ...Option) *Adapter {
	if clientID == "" {
		clientID = os.Getenv("PREPDECK_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("PREPDECK_GOOGLE_CLIENT_SECRET")
	}
	a := New("google", oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
	}, opts...)
	a.Issuer = "https://accounts.google.com"
	a.UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	return a
}
