package wire

import "fmt"

// TypingSignal is a fire-and-forget broadcast announcing that a user
// started or stopped typing in a room.
//
// JSON encoding:
//
//	{
//	  "user_id": "u-42",
//	  "room_id": "room-1",
//	  "is_typing": true
//	}
//
// A false signal means "stopped typing" and removes the remote entry;
// it is never stored as a false record.
type TypingSignal struct {
	UserID   string `json:"user_id"`
	RoomID   string `json:"room_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// Validate checks that the signal carries the required fields.
func (s *TypingSignal) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("typing signal missing user_id")
	}
	return nil
}
