package authkit

import (
	"context"
	"log/slog"
	"sync"
)

// SignInExecutor performs one user-initiated sign-in: the popup strategy
// first, with a fallback to the redirect strategy only when the failure is
// specifically attributable to the popup mechanism. It never writes session
// state; the store observes provider side effects through the subscription.
type SignInExecutor struct {
	provider Provider
	logger   *slog.Logger

	mu      sync.Mutex
	pending *SignInAttempt
	last    *SignInAttempt
}

func NewSignInExecutor(provider Provider, logger *slog.Logger) *SignInExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignInExecutor{provider: provider, logger: logger}
}

// popupRecoverable reports whether a popup failure of this kind may be
// recovered by falling back to the redirect strategy. Credential and policy
// failures are terminal: retrying them through a different surface would
// just fail again, or worse, mask a configuration problem.
func popupRecoverable(kind ErrorKind) bool {
	return kind == KindPopupBlocked || kind == KindUnsupportedEnvironment
}

// SignIn runs one interactive sign-in attempt.
//
// If another attempt is pending it fails fast with ErrSignInPending rather
// than opening a second interactive flow; concurrent popups or redirects are
// a correctness hazard, not just a UX one.
//
// A return of nil means the popup strategy succeeded. ErrRedirectStarted
// means the redirect strategy was initiated and the result will only be
// observable on the next process start. Any other error is a classified
// *AuthError; no raw provider error ever escapes.
func (e *SignInExecutor) SignIn(ctx context.Context) error {
	e.mu.Lock()
	if e.pending != nil {
		e.mu.Unlock()
		return ErrSignInPending
	}
	attempt := newSignInAttempt(StrategyPopup)
	e.pending = attempt
	e.mu.Unlock()

	_, err := e.provider.SignInPopup(ctx)
	if err == nil {
		e.finish(attempt, OutcomeSucceeded, nil)
		return nil
	}

	ae := ClassifyError(err)
	if ae.Kind == KindUserCancelled {
		// Expected path: surfaced, never retried automatically. The UI
		// decides whether to re-offer the action.
		e.finish(attempt, OutcomeCancelled, ae)
		return ae
	}
	if !popupRecoverable(ae.Kind) {
		e.finish(attempt, OutcomeFailed, ae)
		return ae
	}

	e.logger.Warn("popup sign-in failed, falling back to redirect",
		"kind", ae.Kind, "code", ae.Code)

	e.mu.Lock()
	attempt.Strategy = StrategyRedirect
	e.mu.Unlock()

	if rerr := e.provider.BeginRedirect(ctx); rerr != nil {
		rae := ClassifyError(rerr)
		e.finish(attempt, OutcomeFailed, rae)
		return rae
	}

	// Control now rests with the external flow. The attempt stays pending
	// for the rest of this process lifetime: once a redirect is initiated
	// it always runs to completion and cannot be cancelled locally.
	return ErrRedirectStarted
}

// Pending returns the currently pending attempt, or nil.
func (e *SignInExecutor) Pending() *SignInAttempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// LastAttempt returns the most recently completed attempt, or nil.
func (e *SignInExecutor) LastAttempt() *SignInAttempt {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *SignInExecutor) finish(attempt *SignInAttempt, outcome AttemptOutcome, ae *AuthError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	attempt.Outcome = outcome
	attempt.Err = ae
	e.last = attempt
	if e.pending == attempt {
		e.pending = nil
	}
}
