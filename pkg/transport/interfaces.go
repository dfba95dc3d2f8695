package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// Transport errors.
var (
	ErrClosed         = errors.New("transport closed")
	ErrChannelClosed  = errors.New("channel closed")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Status represents the subscription state of a joined channel.
type Status uint8

const (
	// StatusSubscribed indicates the join completed and events flow.
	StatusSubscribed Status = iota

	// StatusClosed indicates the channel was left or shut down.
	StatusClosed

	// StatusError indicates the join or the subscription failed.
	StatusError

	// StatusTimedOut indicates the join did not complete in time.
	StatusTimedOut
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSubscribed:
		return "SUBSCRIBED"
	case StatusClosed:
		return "CLOSED"
	case StatusError:
		return "ERROR"
	case StatusTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// Snapshot is the full authoritative presence state of a channel:
// tracked key to the raw metas published under that key. Multiple metas
// per key occur when several sessions track the same key (e.g. two tabs
// of one user).
type Snapshot map[string][]json.RawMessage

// Transport joins named pub/sub channels.
// Implemented by Hub (in-memory) and realtime.Client (WebSocket).
type Transport interface {
	// Join subscribes to a named channel, tracking presence under key.
	// The returned Channel is live but not yet subscribed; the outcome
	// arrives via the status callback.
	Join(ctx context.Context, channel, key string) (Channel, error)
}

// Channel is one joined pub/sub channel.
type Channel interface {
	// Publish sends a payload under an event name. The presence event
	// updates this channel's tracked record and is reflected back to
	// all members as a sync; any other event fans out as a broadcast
	// to the other members.
	Publish(ctx context.Context, event string, payload any) error

	// OnSync registers the handler for full presence snapshots.
	// Registering replays the latest undelivered snapshot, if any.
	OnSync(fn func(Snapshot))

	// OnBroadcast registers the handler for one broadcast event name.
	OnBroadcast(event string, fn func(json.RawMessage))

	// OnStatus registers the handler for subscription lifecycle
	// changes. Registering replays any undelivered statuses in order.
	OnStatus(fn func(Status, error))

	// Leave unsubscribes from the channel and stops delivery.
	Leave(ctx context.Context) error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport = (*Hub)(nil)
	_ Channel   = (*memoryChannel)(nil)
)
