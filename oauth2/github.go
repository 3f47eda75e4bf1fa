package oauth2

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// NewGitHub creates a GitHub adapter. Empty credentials fall back to the
// PREPDECK_GITHUB_CLIENT_ID / PREPDECK_GITHUB_CLIENT_SECRET env vars.
// GitHub issues no ID tokens, so identities come from the user endpoint.
func NewGitHub(clientID, clientSecret string, opts ...Option) *Adapter {
	if clientID == "" {
		clientID = os.Getenv("PREPDECK_GITHUB_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("PREPDECK_GITHUB_CLIENT_SECRET")
	}
	a := New("github", oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     github.Endpoint,
		Scopes:       []string{"read:user", "user:email"},
	}, opts...)
	a.UserInfoURL = "https://api.github.com/user"
	return a
}
