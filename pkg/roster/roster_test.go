package roster

import (
	"testing"
	"time"

	"github.com/asrayaos/presence-go/pkg/wire"
)

func meta(id, name string) wire.PresenceMeta {
	return wire.PresenceMeta{Kind: wire.KindUser, ID: id, Name: name, RoomID: "room-1"}
}

// fixedClock pins the roster clock to a settable instant.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRoster() (*Roster, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	r := New()
	r.now = clock.Now
	return r, clock
}

func TestApplySyncReplaces(t *testing.T) {
	r, _ := newTestRoster()

	r.ApplySync(map[string]wire.PresenceMeta{
		"u1": meta("u1", "Ada"),
		"u2": meta("u2", "Brin"),
	})
	if r.Count() != 2 {
		t.Fatalf("Count() = %d after first sync, want 2", r.Count())
	}

	// A smaller snapshot drops the missing key immediately, no timer
	// involved.
	r.ApplySync(map[string]wire.PresenceMeta{
		"u1": meta("u1", "Ada"),
	})
	if r.Count() != 1 {
		t.Fatalf("Count() = %d after replace, want 1", r.Count())
	}
	if _, ok := r.Entity("u2"); ok {
		t.Error("u2 still present after a snapshot without it")
	}
	if _, ok := r.Entity("u1"); !ok {
		t.Error("u1 missing after a snapshot containing it")
	}
}

func TestApplySyncStampsLastActive(t *testing.T) {
	r, clock := newTestRoster()

	r.ApplySync(map[string]wire.PresenceMeta{"u1": meta("u1", "Ada")})
	first, _ := r.Entity("u1")

	clock.Advance(10 * time.Second)
	r.ApplySync(map[string]wire.PresenceMeta{"u1": meta("u1", "Ada")})
	second, _ := r.Entity("u1")

	if !second.LastActive.After(first.LastActive) {
		t.Errorf("LastActive did not advance: first=%v second=%v", first.LastActive, second.LastActive)
	}
}

func TestApplyTypingUpsertAndDelete(t *testing.T) {
	r, _ := newTestRoster()

	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-1", IsTyping: true})
	if r.TypingCount() != 1 {
		t.Fatalf("TypingCount() = %d, want 1", r.TypingCount())
	}

	// Same user, different room is an independent entry
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-2", IsTyping: true})
	if r.TypingCount() != 2 {
		t.Fatalf("TypingCount() = %d, want 2", r.TypingCount())
	}

	// False deletes, it is never stored
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-1", IsTyping: false})
	if r.TypingCount() != 1 {
		t.Fatalf("TypingCount() = %d after stop, want 1", r.TypingCount())
	}
	for _, ts := range r.TypingStates() {
		if ts.RoomID == "room-1" {
			t.Errorf("typing state for room-1 survived a false signal: %+v", ts)
		}
	}
}

func TestApplyTypingFalseWithoutEntry(t *testing.T) {
	r, _ := newTestRoster()

	changes := 0
	r.OnChange(func() { changes++ })

	r.ApplyTyping(wire.TypingSignal{UserID: "u9", RoomID: "room-1", IsTyping: false})
	if r.TypingCount() != 0 {
		t.Fatalf("TypingCount() = %d, want 0", r.TypingCount())
	}
	if changes != 0 {
		t.Errorf("change callback fired %d times for a no-op delete, want 0", changes)
	}
}

func TestEvictStaleTypingBoundary(t *testing.T) {
	const stale = 5 * time.Second

	r, clock := newTestRoster()
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-1", IsTyping: true})

	// Just inside the window: retained
	clock.Advance(stale - time.Millisecond)
	if removed := r.EvictStaleTyping(stale); removed != 0 {
		t.Fatalf("EvictStaleTyping at expiry-1ms removed %d, want 0", removed)
	}
	if r.TypingCount() != 1 {
		t.Fatalf("TypingCount() = %d just inside window, want 1", r.TypingCount())
	}

	// Just past the window: evicted
	clock.Advance(2 * time.Millisecond)
	if removed := r.EvictStaleTyping(stale); removed != 1 {
		t.Fatalf("EvictStaleTyping at expiry+1ms removed %d, want 1", removed)
	}
	if r.TypingCount() != 0 {
		t.Fatalf("TypingCount() = %d after eviction, want 0", r.TypingCount())
	}
}

func TestEvictStalePresence(t *testing.T) {
	const expiry = 90 * time.Second

	r, clock := newTestRoster()
	r.ApplySync(map[string]wire.PresenceMeta{
		"u1": meta("u1", "Ada"),
		"u2": meta("u2", "Brin"),
	})

	// No sync arrives. Just short of the expiry nothing is evicted.
	clock.Advance(expiry - time.Second)
	if removed := r.EvictStalePresence(expiry); removed != 0 {
		t.Fatalf("EvictStalePresence inside window removed %d, want 0", removed)
	}

	clock.Advance(2 * time.Second)
	if removed := r.EvictStalePresence(expiry); removed != 2 {
		t.Fatalf("EvictStalePresence past window removed %d, want 2", removed)
	}
	if r.Count() != 0 {
		t.Fatalf("Count() = %d after eviction, want 0", r.Count())
	}
}

func TestOnChangeFires(t *testing.T) {
	r, clock := newTestRoster()

	changes := 0
	r.OnChange(func() { changes++ })

	r.ApplySync(map[string]wire.PresenceMeta{"u1": meta("u1", "Ada")}) // 1
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", IsTyping: true})     // 2

	clock.Advance(time.Hour)
	r.EvictStaleTyping(5 * time.Second)    // 3
	r.EvictStalePresence(90 * time.Second) // 4
	r.EvictStaleTyping(5 * time.Second)    // nothing left, no fire
	r.EvictStalePresence(90 * time.Second) // nothing left, no fire

	if changes != 4 {
		t.Errorf("change callback fired %d times, want 4", changes)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	r, _ := newTestRoster()
	r.ApplySync(map[string]wire.PresenceMeta{
		"u2": meta("u2", "Brin"),
		"u1": meta("u1", "Ada"),
	})

	ents := r.Entities()
	if len(ents) != 2 || ents[0].ID != "u1" || ents[1].ID != "u2" {
		t.Fatalf("Entities() not sorted by id: %+v", ents)
	}

	// Mutating the returned slice must not affect the roster
	ents[0].Name = "Mallory"
	got, _ := r.Entity("u1")
	if got.Name != "Ada" {
		t.Errorf("roster entity mutated through snapshot copy: %+v", got)
	}
}

func TestTypingIn(t *testing.T) {
	r, _ := newTestRoster()
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-1", IsTyping: true})
	r.ApplyTyping(wire.TypingSignal{UserID: "u1", RoomID: "room-1", IsTyping: true})
	r.ApplyTyping(wire.TypingSignal{UserID: "u3", RoomID: "room-2", IsTyping: true})

	in1 := r.TypingIn("room-1")
	if len(in1) != 2 || in1[0].UserID != "u1" || in1[1].UserID != "u2" {
		t.Errorf("TypingIn(room-1) = %+v, want u1,u2", in1)
	}
	if len(r.TypingIn("room-3")) != 0 {
		t.Error("TypingIn(room-3) returned entries for an empty room")
	}
}

func TestClear(t *testing.T) {
	r, _ := newTestRoster()
	r.ApplySync(map[string]wire.PresenceMeta{"u1": meta("u1", "Ada")})
	r.ApplyTyping(wire.TypingSignal{UserID: "u2", RoomID: "room-1", IsTyping: true})

	changes := 0
	r.OnChange(func() { changes++ })

	r.Clear()
	if r.Count() != 0 || r.TypingCount() != 0 {
		t.Fatalf("Clear left entries: %d entities, %d typing", r.Count(), r.TypingCount())
	}
	if changes != 1 {
		t.Errorf("Clear fired %d changes, want 1", changes)
	}

	// Clearing an empty roster is silent
	r.Clear()
	if changes != 1 {
		t.Errorf("empty Clear fired change callback, total %d", changes)
	}
}
