package authkit

import (
	"testing"
)

func TestSessionStore_InitialState(t *testing.T) {
	s := NewSessionStore()
	snap := s.Snapshot()
	if snap.Identity != nil {
		t.Errorf("initial identity = %+v, want nil", snap.Identity)
	}
	if !snap.Resolving {
		t.Error("initial state must be resolving")
	}
	if snap.Authenticated() {
		t.Error("initial state must not be authenticated")
	}
}

func TestSessionStore_ApplyReplacesFully(t *testing.T) {
	s := NewSessionStore()
	s.apply(&Identity{ID: "u1", Email: "a@example.com", DisplayName: "A"})
	s.apply(&Identity{ID: "u2"})

	snap := s.Snapshot()
	if snap.Resolving {
		t.Error("resolving must clear after the first apply")
	}
	if snap.Identity.ID != "u2" {
		t.Errorf("ID = %q, want u2", snap.Identity.ID)
	}
	// full replacement: no fields carried over from u1
	if snap.Identity.Email != "" || snap.Identity.DisplayName != "" {
		t.Errorf("identity = %+v, apply must replace, not merge", snap.Identity)
	}
}

func TestSessionStore_SnapshotIsolation(t *testing.T) {
	s := NewSessionStore()
	s.apply(&Identity{ID: "u1", DisplayName: "A"})

	snap := s.Snapshot()
	snap.Identity.DisplayName = "mutated"

	if got := s.Snapshot().Identity.DisplayName; got != "A" {
		t.Errorf("DisplayName = %q, snapshots must not alias store state", got)
	}
}

// A sign-in, sign-out, sign-in sequence must reach watchers as three
// distinct updates. Coalescing [A, nil, B] into [B] would hide the sign-out
// and could resurrect a stale identity.
func TestSessionStore_NoCoalescing(t *testing.T) {
	s := NewSessionStore()

	var seen []*Identity
	s.Watch(func(snap SessionSnapshot) {
		seen = append(seen, snap.Identity)
	})

	s.apply(&Identity{ID: "a"})
	s.apply(nil)
	s.apply(&Identity{ID: "b"})

	if len(seen) != 3 {
		t.Fatalf("watcher saw %d updates, want 3", len(seen))
	}
	if seen[0].ID != "a" {
		t.Errorf("update 0 = %+v, want identity a", seen[0])
	}
	if seen[1] != nil {
		t.Errorf("update 1 = %+v, want nil (signed out)", seen[1])
	}
	if seen[2].ID != "b" {
		t.Errorf("update 2 = %+v, want identity b", seen[2])
	}
}

func TestSessionStore_WatchersInRegistrationOrder(t *testing.T) {
	s := NewSessionStore()

	var order []string
	s.Watch(func(SessionSnapshot) { order = append(order, "first") })
	s.Watch(func(SessionSnapshot) { order = append(order, "second") })
	s.Watch(func(SessionSnapshot) { order = append(order, "third") })

	s.apply(&Identity{ID: "u1"})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestSessionStore_Unwatch(t *testing.T) {
	s := NewSessionStore()

	calls := 0
	unwatch := s.Watch(func(SessionSnapshot) { calls++ })

	s.apply(&Identity{ID: "u1"})
	unwatch()
	s.apply(nil)
	unwatch() // second call is a no-op

	if calls != 1 {
		t.Errorf("watcher called %d times, want 1", calls)
	}
}

func TestSessionStore_ClearLocal(t *testing.T) {
	s := NewSessionStore()
	s.apply(&Identity{ID: "u1"})
	s.clearLocal()

	snap := s.Snapshot()
	if snap.Identity != nil {
		t.Errorf("identity = %+v, want nil after clear", snap.Identity)
	}
	if snap.Resolving {
		t.Error("clear must not re-enter the resolving state")
	}
}

func TestSessionStore_UpdateProfile(t *testing.T) {
	s := NewSessionStore()

	// no identity: a no-op, including for watchers
	notified := 0
	s.Watch(func(SessionSnapshot) { notified++ })
	s.updateProfile(map[string]any{"name": "Ghost"})
	if notified != 0 {
		t.Errorf("anonymous profile update notified %d watchers, want 0", notified)
	}

	s.apply(&Identity{ID: "u1", DisplayName: "Old"})
	s.updateProfile(map[string]any{"name": "New", "picture": "https://example.com/p.png"})

	snap := s.Snapshot()
	if snap.Identity.DisplayName != "New" {
		t.Errorf("DisplayName = %q, want New", snap.Identity.DisplayName)
	}
	if snap.Identity.AvatarURL != "https://example.com/p.png" {
		t.Errorf("AvatarURL = %q, want the merged picture", snap.Identity.AvatarURL)
	}
	if snap.Identity.ID != "u1" {
		t.Errorf("ID = %q, profile updates must not change the id", snap.Identity.ID)
	}
	if notified != 2 {
		t.Errorf("watcher notified %d times, want 2 (apply + profile)", notified)
	}
}
