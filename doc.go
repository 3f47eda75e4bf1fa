// Package authkit is the client-side authentication session layer of the
// PrepDeck exam-preparation platform. It reconciles a locally held session
// view with an external identity provider's asynchronous, multi-strategy
// interactive sign-in and exposes a single consistent, race-free current-user
// value to the rest of the application.
//
// # Architecture
//
// Provider: the boundary to the external identity service. Adapters (see the
// oauth2 and devprovider packages) own credentials and tokens entirely; the
// session layer only ever sees Identity values.
//
// SessionStore: the authoritative {identity, resolving} snapshot with exactly
// one writer. UI code reads snapshots and registers watchers; it never
// mutates session state.
//
// SignInExecutor: runs one interactive attempt, popup strategy first, falling
// back to the redirect strategy only for popup-specific failures. It never
// writes session state; sign-in side effects reach the store through the
// provider subscription, which eliminates races between "sign-in returned"
// and "subscription fired".
//
// SessionManager: owns the store, the single provider subscription and the
// one-shot redirect-result check that must run first on every start.
//
// # Basic Usage
//
// Create a provider adapter and a manager, start it at application mount and
// close it at teardown:
//
//	provider := oauth2.NewGoogle(clientID, clientSecret, oauth2.WithFlowStore(flows))
//	manager := authkit.NewSessionManager(provider)
//	if err := manager.Start(ctx); err != nil { ... }
//	defer manager.Close()
//
//	unwatch := manager.Watch(func(s authkit.SessionSnapshot) {
//	    render(s)
//	})
//	defer unwatch()
//
//	if err := manager.SignIn(ctx); errors.Is(err, authkit.ErrRedirectStarted) {
//	    // flow completes on an external surface; result arrives next start
//	}
//
// # Error Handling
//
// Every provider failure is classified at the boundary into a closed
// ErrorKind set; raw provider codes never escape. User cancellation is an
// expected path and carries no user-facing message.
//
// # The Redirect Asymmetry
//
// The redirect strategy cannot be awaited: once initiated, control leaves
// the current process lifetime and the outcome is only observable through
// Provider.PendingRedirectResult on the next start. SessionManager.Start
// issues that one-shot check before registering the steady-state
// subscription, so a start immediately following a successful redirect
// sign-in reaches the authenticated state without ever transiently reporting
// an anonymous one.
package authkit
