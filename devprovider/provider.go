// Package devprovider is an in-process identity provider for development,
// demos and tests. Accounts are local with bcrypt-hashed passwords; the
// interactive surfaces are simulated through callbacks and out-of-band
// completion helpers, so every sign-in path of the session layer can be
// exercised without a real identity service.
package devprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/prepdeck/authkit"
)

// PopupPrompt plays the role of the provider-owned sign-in window: it is
// asked for credentials and may block until the user responds or ctx is
// cancelled (the user "closing the popup").
type PopupPrompt func(ctx context.Context) (email, password string, err error)

type account struct {
	identity     authkit.Identity
	passwordHash []byte
}

// Provider implements authkit.Provider against local accounts.
type Provider struct {
	// Prompt supplies credentials for the popup strategy. Without one the
	// popup strategy reports an unsupported environment, which is also a
	// handy way to force the redirect fallback.
	Prompt PopupPrompt

	// RedirectTTL bounds how long a begun redirect flow stays resolvable.
	// Defaults to 10 minutes.
	RedirectTTL time.Duration

	feed authkit.IdentityFeed

	mu              sync.Mutex
	accounts        map[string]*account
	nextPopupErr    error
	nextRedirectErr error
	pendingRedirect *pendingRedirect
	redirectChecked bool
}

type pendingRedirect struct {
	expiresAt time.Time
	result    *authkit.Identity
}

func New() *Provider {
	return &Provider{
		RedirectTTL: 10 * time.Minute,
		accounts:    make(map[string]*account),
	}
}

// AddAccount registers a local account. The password is stored bcrypt-hashed.
func (p *Provider) AddAccount(email, password, name, avatarURL string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return fmt.Errorf("email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[email] = &account{
		identity: authkit.Identity{
			ID:          "dev:" + email,
			Email:       email,
			DisplayName: name,
			AvatarURL:   avatarURL,
		},
		passwordHash: hash,
	}
	return nil
}

// Authenticate validates credentials against the local accounts.
func (p *Provider) Authenticate(email, password string) (*authkit.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p.mu.Lock()
	acct := p.accounts[email]
	p.mu.Unlock()
	// Credential failures are deliberately not popup-specific codes: a wrong
	// password must never trigger the redirect fallback.
	if acct == nil {
		return nil, authkit.NewProviderError("invalid-credentials", "unknown account")
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, authkit.NewProviderError("invalid-credentials", "invalid credentials")
	}
	return acct.identity.Clone(), nil
}

// FailNextPopup scripts the next popup attempt to fail with the given
// provider code ("popup-blocked", "network-request-failed", ...).
func (p *Provider) FailNextPopup(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextPopupErr = authkit.NewProviderError(code, "scripted failure")
}

// FailNextRedirect scripts the next redirect initiation to fail.
func (p *Provider) FailNextRedirect(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextRedirectErr = authkit.NewProviderError(code, "scripted failure")
}

// SignInPopup implements authkit.Provider.
func (p *Provider) SignInPopup(ctx context.Context) (*authkit.Identity, error) {
	p.mu.Lock()
	if err := p.nextPopupErr; err != nil {
		p.nextPopupErr = nil
		p.mu.Unlock()
		return nil, err
	}
	prompt := p.Prompt
	p.mu.Unlock()

	if prompt == nil {
		return nil, authkit.NewProviderError("operation-not-supported-in-this-environment",
			"no popup prompt configured")
	}

	email, password, err := prompt(ctx)
	if err != nil {
		return nil, authkit.NewProviderError("popup-closed-by-user", err.Error())
	}
	if ctx.Err() != nil {
		return nil, authkit.NewProviderError("popup-closed-by-user", ctx.Err().Error())
	}
	identity, err := p.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	// publish before returning so the session store observes the sign-in
	// through its subscription, never through the executor
	p.feed.Set(identity)
	return identity.Clone(), nil
}

// BeginRedirect implements authkit.Provider. The flow resolves only when
// CompleteRedirect is called, which stands in for the user finishing sign-in
// on the provider's own page.
func (p *Provider) BeginRedirect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.nextRedirectErr; err != nil {
		p.nextRedirectErr = nil
		return err
	}
	p.pendingRedirect = &pendingRedirect{expiresAt: time.Now().Add(p.RedirectTTL)}
	p.redirectChecked = false
	return nil
}

// CompleteRedirect resolves the pending redirect flow out of band. The
// result becomes visible through the next PendingRedirectResult call.
func (p *Provider) CompleteRedirect(email, password string) error {
	identity, err := p.Authenticate(email, password)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingRedirect == nil {
		return fmt.Errorf("no redirect flow pending")
	}
	p.pendingRedirect.result = identity
	return nil
}

// PendingRedirectResult implements authkit.Provider. One-shot per "load";
// NextLoad re-arms it. An abandoned or expired flow yields nil, nil.
func (p *Provider) PendingRedirectResult(ctx context.Context) (*authkit.Identity, error) {
	p.mu.Lock()
	if p.redirectChecked {
		p.mu.Unlock()
		return nil, nil
	}
	p.redirectChecked = true
	pending := p.pendingRedirect
	p.pendingRedirect = nil
	p.mu.Unlock()

	if pending == nil || pending.result == nil || time.Now().After(pending.expiresAt) {
		return nil, nil
	}
	p.feed.Set(pending.result)
	return pending.result.Clone(), nil
}

// NextLoad simulates a fresh process start: the one-shot redirect check is
// re-armed. Accounts, the current identity and any pending redirect flow
// survive, just as provider-held state would.
func (p *Provider) NextLoad() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirectChecked = false
}

// SubscribeIdentityChanges implements authkit.Provider.
func (p *Provider) SubscribeIdentityChanges(fn func(*authkit.Identity)) (unsubscribe func()) {
	return p.feed.Subscribe(fn)
}

// SignOut implements authkit.Provider.
func (p *Provider) SignOut(ctx context.Context) error {
	p.feed.Set(nil)
	return nil
}

// EmitIdentity pushes an identity change as if the provider originated it
// (token invalidation, another surface signing in, ...).
func (p *Provider) EmitIdentity(identity *authkit.Identity) {
	p.feed.Set(identity)
}
