package authkit

import (
	"time"

	"github.com/google/uuid"
)

// SignInStrategy identifies the interactive flow used for an attempt.
type SignInStrategy string

const (
	StrategyPopup    SignInStrategy = "popup"
	StrategyRedirect SignInStrategy = "redirect"
)

// AttemptOutcome is the terminal (or pending) state of a sign-in attempt.
type AttemptOutcome string

const (
	OutcomePending   AttemptOutcome = "pending"
	OutcomeSucceeded AttemptOutcome = "succeeded"
	OutcomeFailed    AttemptOutcome = "failed"
	OutcomeCancelled AttemptOutcome = "cancelled"
)

// SignInAttempt describes one in-flight interactive sign-in. At most one
// attempt is pending per process; the executor enforces this. An attempt
// whose strategy ends up as redirect stays pending for the remainder of the
// process lifetime, since its resolution happens on a later start.
type SignInAttempt struct {
	ID        string
	Strategy  SignInStrategy
	StartedAt time.Time
	Outcome   AttemptOutcome

	// Err holds the classified failure when Outcome is failed or cancelled.
	Err *AuthError
}

func newSignInAttempt(strategy SignInStrategy) *SignInAttempt {
	return &SignInAttempt{
		ID:        uuid.NewString(),
		Strategy:  strategy,
		StartedAt: time.Now(),
		Outcome:   OutcomePending,
	}
}
