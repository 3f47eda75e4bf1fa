package authkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed classification of sign-in failures. Every provider
// failure is translated into exactly one kind at the boundary; the open-ended
// provider error vocabulary never leaks past this package.
type ErrorKind string

const (
	KindUnknown                ErrorKind = "unknown"
	KindUserCancelled          ErrorKind = "user_cancelled"
	KindPopupBlocked           ErrorKind = "popup_blocked"
	KindUnsupportedEnvironment ErrorKind = "unsupported_environment"
	KindUnauthorizedOrigin     ErrorKind = "unauthorized_origin"
	KindNetworkFailure         ErrorKind = "network_failure"
	KindProviderDisabled       ErrorKind = "provider_disabled"
)

// Message returns the human-readable text for a kind. UserCancelled returns
// an empty string: cancelling is an expected path and produces no banner.
// UnauthorizedOrigin and ProviderDisabled are worded as configuration
// problems so they are not mistaken for transient ones.
func (k ErrorKind) Message() string {
	switch k {
	case KindUserCancelled:
		return ""
	case KindPopupBlocked:
		return "The sign-in window was blocked by your browser"
	case KindUnsupportedEnvironment:
		return "Sign-in windows are not supported in this environment"
	case KindUnauthorizedOrigin:
		return "This application is not authorized for sign-in; check the provider configuration"
	case KindNetworkFailure:
		return "Could not reach the sign-in service; check your connection and try again"
	case KindProviderDisabled:
		return "This sign-in method is disabled; check the provider configuration"
	}
	return "Sign-in failed; please try again"
}

// Classify maps a provider error code to an ErrorKind. It is total:
// unrecognized codes map to KindUnknown, never an error. A leading "auth/"
// namespace prefix is tolerated.
func Classify(code string) ErrorKind {
	code = strings.TrimPrefix(strings.TrimSpace(code), "auth/")
	switch code {
	case "popup-closed-by-user", "user-cancelled":
		return KindUserCancelled
	case "popup-blocked":
		return KindPopupBlocked
	case "operation-not-supported-in-this-environment":
		return KindUnsupportedEnvironment
	case "unauthorized-origin", "unauthorized-domain":
		return KindUnauthorizedOrigin
	case "network-request-failed":
		return KindNetworkFailure
	case "operation-not-allowed", "provider-disabled":
		return KindProviderDisabled
	}
	return KindUnknown
}

// AuthError is the classified failure surfaced to callers. Code preserves the
// original provider code for logging; Message is safe to show to users.
type AuthError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func NewAuthError(kind ErrorKind, code string, message string) *AuthError {
	if message == "" {
		message = kind.Message()
	}
	return &AuthError{Kind: kind, Code: code, Message: message}
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Configuration reports whether the failure points at application or provider
// configuration rather than a transient condition.
func (e *AuthError) Configuration() bool {
	return e.Kind == KindUnauthorizedOrigin || e.Kind == KindProviderDisabled
}

// ClassifyError translates any failure from the provider boundary into an
// AuthError. Already-classified errors pass through unchanged. Context
// cancellation counts as the user abandoning the flow.
func ClassifyError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return NewAuthError(Classify(pe.Code), pe.Code, "")
	}
	if errors.Is(err, context.Canceled) {
		return NewAuthError(KindUserCancelled, "user-cancelled", "")
	}
	return &AuthError{Kind: KindUnknown, Message: KindUnknown.Message() + ": " + err.Error()}
}

// Sentinel errors returned by the executor.
var (
	// ErrSignInPending is returned when SignIn is called while another
	// attempt is still pending. A second interactive flow is never started.
	ErrSignInPending = &AuthError{
		Kind:    KindUnknown,
		Code:    "sign-in-already-in-progress",
		Message: "A sign-in attempt is already in progress",
	}

	// ErrRedirectStarted reports that the redirect strategy was initiated.
	// It is a handoff marker, not a failure: the attempt resolves outside
	// this process lifetime and its result is observed on the next start.
	ErrRedirectStarted = errors.New("authkit: redirect sign-in started; result arrives on next start")
)
