package wire

import "fmt"

// ParticipantKind categorizes a presence entity.
type ParticipantKind string

const (
	// KindUser is a human participant.
	KindUser ParticipantKind = "user"

	// KindAgent is an automated participant (assistant, bot, worker).
	KindAgent ParticipantKind = "agent"
)

// IsValid returns true if the kind is a known category.
func (k ParticipantKind) IsValid() bool {
	switch k {
	case KindUser, KindAgent:
		return true
	default:
		return false
	}
}

// String returns the kind name.
func (k ParticipantKind) String() string {
	if k == "" {
		return "unknown"
	}
	return string(k)
}

// PresenceMeta is the liveness record one session publishes about itself.
//
// JSON encoding:
//
//	{
//	  "kind": "user",          // "user" or "agent"
//	  "id": "u-42",            // stable key, unique per entity
//	  "name": "Ada",           // display name
//	  "image": "https://...",  // avatar reference, omitted when empty
//	  "room_id": "room-1"      // sub-scope within the channel, optional
//	}
//
// There is no timestamp field. Receivers stamp their own clock when a
// snapshot containing this record arrives.
type PresenceMeta struct {
	Kind   ParticipantKind `json:"kind"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Image  string          `json:"image,omitempty"`
	RoomID string          `json:"room_id,omitempty"`
}

// Validate checks that the meta carries the required identity fields.
func (m *PresenceMeta) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("presence meta missing id")
	}
	if m.Name == "" {
		return fmt.Errorf("presence meta missing name")
	}
	if !m.Kind.IsValid() {
		return fmt.Errorf("invalid participant kind: %q", string(m.Kind))
	}
	return nil
}
