package authkit

import (
	"context"
	"fmt"
)

// Provider is the boundary to the external identity provider. Adapters own
// credential handling entirely: nothing in this package ever sees a password
// or a token, only the resulting Identity.
//
// Adapters must publish a successful sign-in to their subscribers before
// SignInPopup returns, so the session store (which observes the provider
// through the subscription, never through the executor) is up to date by the
// time the caller regains control.
type Provider interface {
	// SignInPopup runs the low-friction interactive strategy: an auxiliary
	// browser surface the current process can await. Cancellation of ctx
	// means the user abandoned the flow.
	SignInPopup(ctx context.Context) (*Identity, error)

	// BeginRedirect starts the deferred strategy. On success, control leaves
	// this process lifetime: the flow completes on an external surface and
	// its outcome is only observable through PendingRedirectResult on a
	// later start. There is no way to cancel it once initiated.
	BeginRedirect(ctx context.Context) error

	// PendingRedirectResult reports whether this start is the continuation
	// of an earlier redirect sign-in. It is a one-shot check, safe to call
	// when nothing is pending (returns nil, nil).
	PendingRedirectResult(ctx context.Context) (*Identity, error)

	// SubscribeIdentityChanges registers a callback invoked whenever the
	// provider's notion of the current identity changes (initial state,
	// sign-in, sign-out, invalidation). The current state is delivered
	// synchronously at subscribe time. Callbacks arrive in emission order.
	SubscribeIdentityChanges(fn func(*Identity)) (unsubscribe func())

	// SignOut terminates the provider-side session.
	SignOut(ctx context.Context) error
}

// ProviderError is the open, code-carrying error shape adapters report.
// It exists only to cross the boundary into ClassifyError; callers outside
// adapters should never inspect it directly.
type ProviderError struct {
	Code        string
	Description string
}

func NewProviderError(code, description string) *ProviderError {
	return &ProviderError{Code: code, Description: description}
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider error: %s", e.Code)
	}
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Description)
}
