package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/asrayaos/presence-go/pkg/wire"
)

// Phoenix channel protocol events. Reserved events are owned by the
// protocol itself; everything else is application traffic.
const (
	eventJoin      = "phx_join"
	eventReply     = "phx_reply"
	eventLeave     = "phx_leave"
	eventClose     = "phx_close"
	eventError     = "phx_error"
	eventHeartbeat = "heartbeat"

	eventPresenceState = "presence_state"
	eventPresenceDiff  = "presence_diff"
	eventBroadcast     = "broadcast"
	eventPresence      = "presence"
	eventAccessToken   = "access_token"
)

// controlTopic is the pseudo-topic heartbeats are exchanged on.
const controlTopic = "phoenix"

// topicPrefix namespaces application channels, matching the Supabase
// Realtime convention.
const topicPrefix = "realtime:"

// replyStatusOK and replyStatusError are the status values a phx_reply
// payload may carry. Anything else is treated as an error.
const (
	replyStatusOK    = "ok"
	replyStatusError = "error"
)

// Message is one Phoenix frame. Payload stays raw until the receiving
// channel knows which shape to decode it into.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// replyPayload is the body of a phx_reply frame.
type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// broadcastPayload wraps application broadcasts in both directions.
type broadcastPayload struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// trackPayload is the client -> server presence envelope.
type trackPayload struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// presenceEntry is one key's metas inside a presence_state or
// presence_diff frame. Each meta carries a server-assigned phx_ref
// used to correlate joins with leaves.
type presenceEntry struct {
	Metas []json.RawMessage `json:"metas"`
}

// presenceDiff is the body of a presence_diff frame.
type presenceDiff struct {
	Joins  map[string]presenceEntry `json:"joins"`
	Leaves map[string]presenceEntry `json:"leaves"`
}

// metaRef extracts the phx_ref from a raw presence meta. Metas without
// a ref return the empty string and never match on removal.
func metaRef(meta json.RawMessage) string {
	var probe struct {
		PhxRef string `json:"phx_ref"`
	}
	if err := wire.Unmarshal(meta, &probe); err != nil {
		return ""
	}
	return probe.PhxRef
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := wire.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding frame: %w", err)
	}
	if msg.Event == "" {
		return Message{}, fmt.Errorf("frame missing event")
	}
	return msg, nil
}
