package authkit

import "strconv"

// Identity describes the currently signed-in user as reported by the
// identity provider. It carries only the display fields the provider's
// event stream supplies; it is not an account record.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Clone returns a copy of the identity, or nil for a nil receiver.
// Snapshots hand out clones so watchers can never mutate store state.
func (id *Identity) Clone() *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// merge applies a partial profile update to the identity. Recognized keys
// follow the provider userInfo vocabulary: "email", "name" and "picture".
// Unknown keys are ignored. The ID is never touched.
func (id *Identity) merge(partial map[string]any) {
	if v, ok := partial["email"].(string); ok && v != "" {
		id.Email = v
	}
	if v, ok := partial["name"].(string); ok && v != "" {
		id.DisplayName = v
	}
	if v, ok := partial["picture"].(string); ok && v != "" {
		id.AvatarURL = v
	}
	if v, ok := partial["avatar_url"].(string); ok && v != "" {
		id.AvatarURL = v
	}
}

// IdentityFromUserInfo builds an Identity from a provider userInfo payload.
// The id is taken from "id" or "sub", whichever is present; GitHub-style
// numeric ids are stringified.
func IdentityFromUserInfo(userInfo map[string]any) *Identity {
	out := &Identity{}
	switch v := userInfo["id"].(type) {
	case string:
		out.ID = v
	case float64:
		out.ID = strconv.FormatInt(int64(v), 10)
	}
	if out.ID == "" {
		if v, ok := userInfo["sub"].(string); ok {
			out.ID = v
		}
	}
	out.merge(userInfo)
	if out.DisplayName == "" {
		if v, ok := userInfo["login"].(string); ok {
			out.DisplayName = v
		}
	}
	return out
}

// SessionSnapshot is the authoritative description of the authentication
// state at an instant. Identity is nil while no user is signed in.
// Resolving is true only during the window between startup and the first
// definitive signal from the provider.
type SessionSnapshot struct {
	Identity  *Identity `json:"identity"`
	Resolving bool      `json:"resolving"`
}

// Authenticated returns true if a user is signed in.
func (s SessionSnapshot) Authenticated() bool {
	return s.Identity != nil
}
