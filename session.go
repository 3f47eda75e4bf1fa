package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrAlreadyStarted is returned by Start when the manager already holds a
// live subscription. Close first; each manager holds at most one.
var ErrAlreadyStarted = errors.New("authkit: session manager already started")

// SessionManager is the sole authority translating provider-pushed events
// into session state. It owns the store, the single provider subscription and
// the one-shot redirect-result check. Construct one per application
// lifecycle; Start at mount, Close at teardown.
type SessionManager struct {
	provider Provider
	logger   *slog.Logger
	store    *SessionStore
	executor *SignInExecutor

	mu          sync.Mutex
	unsubscribe func()
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewSessionManager creates a manager over the given provider. The manager
// is inert until Start is called.
func NewSessionManager(provider Provider, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		provider: provider,
		logger:   slog.Default(),
		store:    NewSessionStore(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.executor = NewSignInExecutor(provider, m.logger)
	return m
}

// Start services the two provider event sources in the required order:
//
//  1. The one-shot redirect-result check runs first, so a load that is the
//     continuation of a redirect sign-in applies its identity before any
//     subscription callback is treated as authoritative. Without this
//     ordering the subscription's initial "no user" callback could race the
//     redirect result and the application would briefly believe the user is
//     signed out right after a successful sign-in.
//  2. The continuous identity-change subscription is then registered;
//     every callback fully replaces the store's identity in emission order.
//
// A redirect-check failure is logged and treated as "no redirect in
// progress": an auth subsystem that cannot tell slow from broken must not
// block the initial render.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.unsubscribe != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.mu.Unlock()

	identity, err := m.provider.PendingRedirectResult(ctx)
	if err != nil {
		m.logger.Warn("redirect result check failed, continuing unauthenticated", "err", err)
	} else if identity != nil {
		m.store.apply(identity)
	}

	unsub := m.provider.SubscribeIdentityChanges(func(id *Identity) {
		m.store.apply(id)
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		// lost a Start race; release ours
		unsub()
		return ErrAlreadyStarted
	}
	m.unsubscribe = unsub
	return nil
}

// Close releases the provider subscription. Idempotent; safe to call
// concurrently with in-flight callbacks. After Close the manager may be
// started again, releasing before re-acquiring is exactly the point.
func (m *SessionManager) Close() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// SignIn runs one interactive sign-in attempt. See SignInExecutor.SignIn for
// the contract; session state is only ever updated through the subscription.
func (m *SessionManager) SignIn(ctx context.Context) error {
	return m.executor.SignIn(ctx)
}

// SignOut clears the local session immediately, then tells the provider.
// Sign-out is not expected to fail in ways the UI must react to, so the
// local clear is optimistic; the provider's subsequent callback confirms the
// already-applied state. The provider error, if any, is still returned for
// callers that log it.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.store.clearLocal()
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign-out failed after local clear", "err", err)
		return fmt.Errorf("provider sign-out: %w", err)
	}
	return nil
}

// UpdateProfile merges locally cached display fields ("email", "name",
// "picture") into the current identity without contacting the provider.
// Not to be confused with re-authentication.
func (m *SessionManager) UpdateProfile(partial map[string]any) {
	m.store.updateProfile(partial)
}

// Session returns the current snapshot.
func (m *SessionManager) Session() SessionSnapshot {
	return m.store.Snapshot()
}

// Watch registers a snapshot watcher; see SessionStore.Watch.
func (m *SessionManager) Watch(fn func(SessionSnapshot)) (unwatch func()) {
	return m.store.Watch(fn)
}

// Executor exposes the sign-in executor, mainly for attempt inspection.
func (m *SessionManager) Executor() *SignInExecutor {
	return m.executor
}
