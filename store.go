package authkit

import "sync"

// SessionStore holds the process-wide authoritative SessionSnapshot. It has
// exactly one writer (the SessionManager applying provider events, plus the
// special-cased local sign-out and profile merge) and any number of
// side-effect-free readers.
//
// Updates are delivered to watchers strictly in apply order and are never
// coalesced: collapsing [A, nil, B] could resurrect a stale identity after a
// legitimate sign-out.
type SessionStore struct {
	// applyMu serializes apply-and-notify so watcher deliveries keep the
	// total order of applies even if two writers ever race.
	applyMu sync.Mutex

	mu          sync.Mutex
	snapshot    SessionSnapshot
	watchers    map[int]func(SessionSnapshot)
	nextWatcher int
}

// NewSessionStore returns a store in the initial state: no identity,
// resolving until the first definitive provider signal arrives.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		snapshot: SessionSnapshot{Resolving: true},
		watchers: make(map[int]func(SessionSnapshot)),
	}
}

// Snapshot returns a copy of the current state. The identity is cloned so
// callers cannot mutate store state through it.
func (s *SessionStore) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		Identity:  s.snapshot.Identity.Clone(),
		Resolving: s.snapshot.Resolving,
	}
}

// Watch registers a callback invoked with every snapshot change, in order.
// The returned function removes the watcher; it is safe to call more than
// once. Watchers are not invoked with the state current at registration
// time; read Snapshot first if that matters.
func (s *SessionStore) Watch(fn func(SessionSnapshot)) (unwatch func()) {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// apply replaces the identity with the provider-reported value and clears the
// resolving flag. Every invocation fully replaces the identity field; there
// is no merging with previous state.
func (s *SessionStore) apply(identity *Identity) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	s.snapshot = SessionSnapshot{Identity: identity.Clone(), Resolving: false}
	snap, fns := s.snapshotAndWatchersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// clearLocal optimistically signs the user out before the provider confirms.
// The provider's subsequent callback re-applies the same anonymous state.
func (s *SessionStore) clearLocal() {
	s.apply(nil)
}

// updateProfile merges locally cached display fields into the held identity.
// This is a local projection update, not a credential change; it never
// contacts the provider. With no identity present it is a no-op.
func (s *SessionStore) updateProfile(partial map[string]any) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if s.snapshot.Identity == nil {
		s.mu.Unlock()
		return
	}
	merged := s.snapshot.Identity.Clone()
	merged.merge(partial)
	s.snapshot.Identity = merged
	snap, fns := s.snapshotAndWatchersLocked()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// snapshotAndWatchersLocked copies the state and the watcher list for
// delivery outside s.mu. Caller must hold s.mu. Watchers are delivered in
// registration order.
func (s *SessionStore) snapshotAndWatchersLocked() (SessionSnapshot, []func(SessionSnapshot)) {
	snap := SessionSnapshot{
		Identity:  s.snapshot.Identity.Clone(),
		Resolving: s.snapshot.Resolving,
	}
	ids := make([]int, 0, len(s.watchers))
	for id := range s.watchers {
		ids = append(ids, id)
	}
	// map iteration order is random; restore registration order
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	fns := make([]func(SessionSnapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.watchers[id])
	}
	return snap, fns
}
