package log

import (
	"time"
)

// Event represents one captured presence channel event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the session instance (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates event flow relative to the session.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Channel is the joined channel name.
	Channel string `cbor:"6,keyasint,omitempty"`

	// Key is the local presence key.
	Key string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Sync        *SyncEvent        `cbor:"10,keyasint,omitempty"`
	Broadcast   *BroadcastEvent   `cbor:"11,keyasint,omitempty"`
	Publish     *PublishEvent     `cbor:"12,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"`
	Eviction    *EvictionEvent    `cbor:"14,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"15,keyasint,omitempty"`
}

// Direction indicates the direction of event flow.
type Direction uint8

const (
	// DirectionIn indicates an event received from the channel.
	DirectionIn Direction = 0
	// DirectionOut indicates an event sent to the channel.
	DirectionOut Direction = 1
	// DirectionLocal indicates a purely local event (state, eviction).
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the socket/hub layer.
	LayerTransport Layer = 0
	// LayerChannel is the joined channel layer.
	LayerChannel Layer = 1
	// LayerSession is the session lifecycle layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerChannel:
		return "CHANNEL"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategorySync indicates a full presence snapshot was applied.
	CategorySync Category = 0
	// CategoryBroadcast indicates an inbound broadcast message.
	CategoryBroadcast Category = 1
	// CategoryPublish indicates an outgoing publish attempt.
	CategoryPublish Category = 2
	// CategoryState indicates a lifecycle state change.
	CategoryState Category = 3
	// CategoryEviction indicates an eviction sweep removed entries.
	CategoryEviction Category = 4
	// CategoryError indicates an error event.
	CategoryError Category = 5
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySync:
		return "SYNC"
	case CategoryBroadcast:
		return "BROADCAST"
	case CategoryPublish:
		return "PUBLISH"
	case CategoryState:
		return "STATE"
	case CategoryEviction:
		return "EVICTION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SyncEvent captures an applied presence snapshot.
type SyncEvent struct {
	// Keys is the number of tracked keys in the snapshot.
	Keys int `cbor:"1,keyasint"`

	// Metas is the total number of metas across all keys.
	Metas int `cbor:"2,keyasint"`

	// Dropped is the number of metas discarded as malformed.
	Dropped int `cbor:"3,keyasint,omitempty"`
}

// BroadcastEvent captures an inbound broadcast.
type BroadcastEvent struct {
	// Event is the broadcast event name.
	Event string `cbor:"1,keyasint"`

	// Size is the payload size in bytes.
	Size int `cbor:"2,keyasint"`
}

// PublishEvent captures an outgoing publish attempt.
type PublishEvent struct {
	// Event is the published event name.
	Event string `cbor:"1,keyasint"`

	// Forced indicates the publish bypassed the throttle gate.
	Forced bool `cbor:"2,keyasint,omitempty"`

	// Throttled indicates the gate suppressed the publish; nothing
	// was sent.
	Throttled bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a lifecycle state change.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySocket indicates a socket state change.
	StateEntitySocket StateEntity = 0
	// StateEntityChannel indicates a channel subscription change.
	StateEntityChannel StateEntity = 1
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySocket:
		return "SOCKET"
	case StateEntityChannel:
		return "CHANNEL"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// EvictionEvent captures the result of an eviction sweep.
type EvictionEvent struct {
	// Kind of entries swept.
	Kind EvictionKind `cbor:"1,keyasint"`

	// Removed is the number of entries evicted.
	Removed int `cbor:"2,keyasint"`
}

// EvictionKind indicates what an eviction sweep targets.
type EvictionKind uint8

const (
	// EvictPresence targets stale online entities.
	EvictPresence EvictionKind = 0
	// EvictTyping targets stale typing states.
	EvictTyping EvictionKind = 1
)

// String returns the eviction kind name.
func (k EvictionKind) String() string {
	switch k {
	case EvictPresence:
		return "PRESENCE"
	case EvictTyping:
		return "TYPING"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
