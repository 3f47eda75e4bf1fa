package authkit

import "time"

// PendingFlow records a redirect-strategy sign-in that will complete outside
// the current process lifetime. It is owned by the provider adapter, not by
// the session layer: the application's own session state never tracks an
// in-flight redirect. An abandoned flow simply expires and the next start's
// one-shot check reports nothing.
type PendingFlow struct {
	Provider        string    `json:"provider"`
	DeviceCode      string    `json:"device_code"`
	UserCode        string    `json:"user_code,omitempty"`
	VerificationURI string    `json:"verification_uri,omitempty"`
	Interval        int64     `json:"interval,omitempty"` // polling interval, seconds
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// IsExpired returns true if the flow has an expiry set and it has passed.
func (f *PendingFlow) IsExpired() bool {
	if f.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(f.ExpiresAt)
}

// FlowStore persists pending redirect flows across process restarts on the
// adapter's behalf. Implementations live in stores/fs and stores/gorm; tests
// use in-memory stand-ins.
type FlowStore interface {
	// GetFlow retrieves the pending flow for a provider.
	// Returns nil, nil when none is stored.
	GetFlow(provider string) (*PendingFlow, error)

	// SetFlow stores the pending flow for a provider, replacing any
	// existing one.
	SetFlow(provider string, flow *PendingFlow) error

	// RemoveFlow deletes the pending flow for a provider.
	RemoveFlow(provider string) error

	// Save persists any pending changes (for stores that batch writes).
	Save() error
}
