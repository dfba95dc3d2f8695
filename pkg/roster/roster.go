package roster

import (
	"sort"
	"sync"
	"time"

	"github.com/asrayaos/presence-go/pkg/wire"
)

// Entity is one online participant as currently known to the roster.
type Entity struct {
	Kind   wire.ParticipantKind
	ID     string
	Name   string
	Image  string
	RoomID string

	// LastActive is the local receive time of the most recent snapshot
	// containing this entity. It never moves backwards while the entity
	// stays present.
	LastActive time.Time
}

// TypingState records that a user is typing in a room.
type TypingState struct {
	UserID string
	RoomID string

	// LastSignal is the local receive time of the most recent typing
	// broadcast for this (user, room).
	LastSignal time.Time
}

// typingKey is the composite map key for typing states.
type typingKey struct {
	userID string
	roomID string
}

// Roster is the single source of truth for who is online and who is
// typing on one joined channel. All methods are safe for concurrent use.
type Roster struct {
	mu sync.RWMutex

	entities map[string]Entity
	typing   map[typingKey]TypingState

	// Change notification, fired outside the lock after every mutation
	// that altered state
	onChange func()

	// Clock, replaceable in tests
	now func() time.Time
}

// New creates an empty roster.
func New() *Roster {
	return &Roster{
		entities: make(map[string]Entity),
		typing:   make(map[typingKey]TypingState),
		now:      time.Now,
	}
}

// ApplySync replaces the entity map wholesale with the snapshot's keys.
// Every retained key is stamped with the current clock; keys absent
// from the snapshot are dropped immediately. This is a replace, not a
// merge: the transport's sync already carries the full authoritative
// set, so merging would let ghost entries survive disconnects.
func (r *Roster) ApplySync(metas map[string]wire.PresenceMeta) {
	r.mu.Lock()

	stamp := r.now()
	next := make(map[string]Entity, len(metas))
	for key, meta := range metas {
		next[key] = Entity{
			Kind:       meta.Kind,
			ID:         meta.ID,
			Name:       meta.Name,
			Image:      meta.Image,
			RoomID:     meta.RoomID,
			LastActive: stamp,
		}
	}
	r.entities = next

	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// ApplyTyping upserts the typing state for the signal's (user, room).
// A false signal deletes the entry rather than storing a false record.
func (r *Roster) ApplyTyping(sig wire.TypingSignal) {
	r.mu.Lock()

	key := typingKey{userID: sig.UserID, roomID: sig.RoomID}
	changed := false

	if sig.IsTyping {
		r.typing[key] = TypingState{
			UserID:     sig.UserID,
			RoomID:     sig.RoomID,
			LastSignal: r.now(),
		}
		changed = true
	} else if _, exists := r.typing[key]; exists {
		delete(r.typing, key)
		changed = true
	}

	fn := r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}

// EvictStalePresence removes entities whose LastActive is older than
// expiry and returns how many were removed. Entities within the window
// are never touched, even if a sync was missed.
func (r *Roster) EvictStalePresence(expiry time.Duration) int {
	r.mu.Lock()

	cutoff := r.now().Add(-expiry)
	removed := 0
	for key, ent := range r.entities {
		if ent.LastActive.Before(cutoff) {
			delete(r.entities, key)
			removed++
		}
	}

	fn := r.onChange
	r.mu.Unlock()

	if removed > 0 && fn != nil {
		fn()
	}
	return removed
}

// EvictStaleTyping removes typing states whose LastSignal is older than
// expiry and returns how many were removed.
func (r *Roster) EvictStaleTyping(expiry time.Duration) int {
	r.mu.Lock()

	cutoff := r.now().Add(-expiry)
	removed := 0
	for key, ts := range r.typing {
		if ts.LastSignal.Before(cutoff) {
			delete(r.typing, key)
			removed++
		}
	}

	fn := r.onChange
	r.mu.Unlock()

	if removed > 0 && fn != nil {
		fn()
	}
	return removed
}

// Entities returns a copy of all online entities, sorted by id.
func (r *Roster) Entities() []Entity {
	r.mu.RLock()
	out := make([]Entity, 0, len(r.entities))
	for _, ent := range r.entities {
		out = append(out, ent)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Entity returns the entity for the given id, if present.
func (r *Roster) Entity(id string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entities[id]
	return ent, ok
}

// TypingStates returns a copy of all typing states, sorted by user then
// room.
func (r *Roster) TypingStates() []TypingState {
	r.mu.RLock()
	out := make([]TypingState, 0, len(r.typing))
	for _, ts := range r.typing {
		out = append(out, ts)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out
}

// TypingIn returns the typing states for one room, sorted by user.
func (r *Roster) TypingIn(roomID string) []TypingState {
	r.mu.RLock()
	var out []TypingState
	for _, ts := range r.typing {
		if ts.RoomID == roomID {
			out = append(out, ts)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Count returns the number of online entities.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// TypingCount returns the number of active typing states.
func (r *Roster) TypingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.typing)
}

// OnChange sets the callback fired after every mutation that changed
// state. The callback runs outside the roster lock, so it may call back
// into the roster.
func (r *Roster) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Clear empties both maps (e.g. on channel leave).
func (r *Roster) Clear() {
	r.mu.Lock()

	changed := len(r.entities) > 0 || len(r.typing) > 0
	r.entities = make(map[string]Entity)
	r.typing = make(map[typingKey]TypingState)

	fn := r.onChange
	r.mu.Unlock()

	if changed && fn != nil {
		fn()
	}
}
