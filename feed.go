package authkit

import "sync"

// IdentityFeed implements the subscription half of the Provider boundary:
// one producer (the adapter), ordered delivery, synchronous initial state.
// Adapters embed one so the session layer sees identical subscription
// semantics regardless of the backing identity service.
type IdentityFeed struct {
	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
}

// Current returns the identity most recently set on the feed.
func (f *IdentityFeed) Current() *Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Clone()
}

// Set replaces the current identity and notifies subscribers in
// registration order. Each subscriber receives its own clone.
func (f *IdentityFeed) Set(identity *Identity) {
	f.mu.Lock()
	f.current = identity.Clone()
	fns := f.subscribersLocked()
	f.mu.Unlock()

	for _, fn := range fns {
		fn(identity.Clone())
	}
}

// Subscribe registers fn and delivers the current state synchronously before
// returning, matching the Provider contract.
func (f *IdentityFeed) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[int]func(*Identity))
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	current := f.current.Clone()
	f.mu.Unlock()

	fn(current)

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *IdentityFeed) subscribersLocked() []func(*Identity) {
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	// map iteration order is random; restore registration order
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	fns := make([]func(*Identity), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.subs[id])
	}
	return fns
}
