package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// joinConfig is the channel configuration sent with phx_join. Self
// broadcasts stay off: publishers do not hear their own broadcasts.
type joinConfig struct {
	Broadcast broadcastConfig `json:"broadcast"`
	Presence  presenceConfig  `json:"presence"`
}

type broadcastConfig struct {
	Self bool `json:"self"`
}

type presenceConfig struct {
	Key string `json:"key"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type accessTokenPayload struct {
	AccessToken string `json:"access_token"`
}

// channel is one joined topic on a Client. It accumulates presence
// frames into a full snapshot and routes broadcasts by event name.
type channel struct {
	client *Client
	topic  string
	key    string

	mu        sync.Mutex
	joinRef   string
	joined    bool
	left      bool
	joinTimer *time.Timer
	presence  map[string][]json.RawMessage

	onSync      func(transport.Snapshot)
	onBroadcast map[string]func(json.RawMessage)
	onStatus    func(transport.Status, error)

	// Replay buffers for events that arrived before registration
	pendingSync     *transport.Snapshot
	pendingStatuses []pendingStatus
}

type pendingStatus struct {
	status transport.Status
	err    error
}

var _ transport.Channel = (*channel)(nil)

func newChannel(client *Client, topic, key string) *channel {
	return &channel{
		client:   client,
		topic:    topic,
		key:      key,
		presence: make(map[string][]json.RawMessage),
	}
}

// join sends phx_join and arms the join timeout. Called on the initial
// join and again after every socket reconnect.
func (ch *channel) join() {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	ref := ch.client.makeRef()
	ch.joinRef = ref
	ch.joined = false
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
	}
	ch.joinTimer = time.AfterFunc(ch.client.cfg.JoinTimeout, ch.joinTimedOut)
	ch.mu.Unlock()

	payload := joinPayload{
		Config: joinConfig{
			Broadcast: broadcastConfig{Self: false},
			Presence:  presenceConfig{Key: ch.key},
		},
		AccessToken: ch.client.currentToken(),
	}
	raw, err := wire.Marshal(payload)
	if err != nil {
		ch.client.logger.Warn("encoding join payload", "topic", ch.topic, "error", err)
		return
	}

	msg := Message{Topic: ch.topic, Event: eventJoin, Payload: raw, Ref: ref, JoinRef: ref}
	if err := ch.client.send(msg); err != nil {
		// The join timer still runs; a reconnect rejoin or the timeout
		// status resolves the subscription either way.
		ch.client.logger.Warn("join send failed", "topic", ch.topic, "error", err)
	}
}

func (ch *channel) joinTimedOut() {
	ch.mu.Lock()
	if ch.joined || ch.left {
		ch.mu.Unlock()
		return
	}
	ch.joinTimer = nil
	ch.mu.Unlock()

	ch.deliverStatus(transport.StatusTimedOut, ErrJoinTimeout)
}

// handleMessage dispatches one inbound frame for this topic.
func (ch *channel) handleMessage(msg Message) {
	switch msg.Event {
	case eventReply:
		ch.handleReply(msg)
	case eventPresenceState:
		ch.handlePresenceState(msg)
	case eventPresenceDiff:
		ch.handlePresenceDiff(msg)
	case eventBroadcast:
		ch.handleBroadcast(msg)
	case eventClose:
		ch.handleServerClose()
	case eventError:
		ch.handleServerError()
	default:
		ch.client.logger.Debug("unhandled channel event", "topic", ch.topic, "event", msg.Event)
	}
}

// handleReply resolves the pending join. Replies to other pushes carry
// no state the client needs and are ignored.
func (ch *channel) handleReply(msg Message) {
	var reply replyPayload
	if err := wire.Unmarshal(msg.Payload, &reply); err != nil {
		ch.client.logger.Warn("malformed reply payload", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	if msg.Ref != ch.joinRef || ch.joined || ch.left {
		ch.mu.Unlock()
		return
	}
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	ok := reply.Status == replyStatusOK
	if ok {
		ch.joined = true
	}
	ch.mu.Unlock()

	if ok {
		ch.deliverStatus(transport.StatusSubscribed, nil)
		return
	}
	ch.deliverStatus(transport.StatusError,
		fmt.Errorf("%w: %s", ErrJoinRejected, string(reply.Response)))
}

// handlePresenceState replaces the accumulated presence with the
// server's authoritative full state.
func (ch *channel) handlePresenceState(msg Message) {
	var state map[string]presenceEntry
	if err := wire.Unmarshal(msg.Payload, &state); err != nil {
		ch.client.logger.Warn("malformed presence_state payload", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	ch.presence = make(map[string][]json.RawMessage, len(state))
	for key, entry := range state {
		ch.presence[key] = append([]json.RawMessage(nil), entry.Metas...)
	}
	snap := ch.snapshotLocked()
	ch.mu.Unlock()

	ch.deliverSync(snap)
}

// handlePresenceDiff folds joins and leaves into the accumulated state
// and emits the resulting full snapshot. Subscribers never see diffs.
func (ch *channel) handlePresenceDiff(msg Message) {
	var diff presenceDiff
	if err := wire.Unmarshal(msg.Payload, &diff); err != nil {
		ch.client.logger.Warn("malformed presence_diff payload", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	for key, entry := range diff.Joins {
		ch.presence[key] = append(ch.presence[key], entry.Metas...)
	}
	for key, entry := range diff.Leaves {
		refs := make(map[string]struct{}, len(entry.Metas))
		for _, meta := range entry.Metas {
			if r := metaRef(meta); r != "" {
				refs[r] = struct{}{}
			}
		}
		var kept []json.RawMessage
		for _, meta := range ch.presence[key] {
			if _, gone := refs[metaRef(meta)]; !gone {
				kept = append(kept, meta)
			}
		}
		if len(kept) == 0 {
			delete(ch.presence, key)
		} else {
			ch.presence[key] = kept
		}
	}
	snap := ch.snapshotLocked()
	ch.mu.Unlock()

	ch.deliverSync(snap)
}

func (ch *channel) handleBroadcast(msg Message) {
	var bc broadcastPayload
	if err := wire.Unmarshal(msg.Payload, &bc); err != nil {
		ch.client.logger.Warn("malformed broadcast payload", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	fn := ch.onBroadcast[bc.Event]
	ch.mu.Unlock()

	if fn != nil {
		fn(bc.Payload)
	}
}

// handleServerClose handles phx_close, the server's confirmation that
// the channel is gone. A close the client did not ask for still ends
// the subscription.
func (ch *channel) handleServerClose() {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	ch.left = true
	ch.joined = false
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	ch.mu.Unlock()

	ch.client.removeChannel(ch.topic, ch)
	ch.deliverStatus(transport.StatusClosed, nil)
}

// handleServerError handles phx_error, a server-side channel crash.
// The channel stays registered so a later socket reconnect rejoins it.
func (ch *channel) handleServerError() {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	ch.joined = false
	ch.mu.Unlock()

	ch.deliverStatus(transport.StatusError, errors.New("channel crashed"))
}

// socketDown marks the channel unsubscribed after a connection loss.
func (ch *channel) socketDown(cause error) {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	wasActive := ch.joined || ch.joinRef != ""
	ch.joined = false
	ch.mu.Unlock()

	if wasActive {
		ch.deliverStatus(transport.StatusError, cause)
	}
}

// socketClosed ends the channel when the client is closed.
func (ch *channel) socketClosed() {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	ch.left = true
	ch.joined = false
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	ch.mu.Unlock()

	ch.deliverStatus(transport.StatusClosed, nil)
}

// pushAccessToken forwards a rotated token to the server.
func (ch *channel) pushAccessToken(token string) {
	ch.mu.Lock()
	if ch.left || !ch.joined {
		ch.mu.Unlock()
		return
	}
	joinRef := ch.joinRef
	ch.mu.Unlock()

	raw, err := wire.Marshal(accessTokenPayload{AccessToken: token})
	if err != nil {
		return
	}
	msg := Message{Topic: ch.topic, Event: eventAccessToken, Payload: raw, Ref: ch.client.makeRef(), JoinRef: joinRef}
	if err := ch.client.send(msg); err != nil {
		ch.client.logger.Debug("access token push failed", "topic", ch.topic, "error", err)
	}
}

// Publish sends a payload under an event name. The presence event
// tracks this client's record on the server, which folds it into the
// next presence sync; other events broadcast to the rest of the
// channel.
func (ch *channel) Publish(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return transport.ErrChannelClosed
	}
	joinRef := ch.joinRef
	ch.mu.Unlock()

	raw, err := wire.Marshal(payload)
	if err != nil {
		return transport.ErrInvalidPayload
	}

	var frameEvent string
	var body any
	if event == wire.EventPresence {
		frameEvent = eventPresence
		body = trackPayload{Type: "presence", Event: "track", Payload: raw}
	} else {
		frameEvent = eventBroadcast
		body = broadcastPayload{Type: "broadcast", Event: event, Payload: raw}
	}
	frameRaw, err := wire.Marshal(body)
	if err != nil {
		return transport.ErrInvalidPayload
	}

	msg := Message{
		Topic:   ch.topic,
		Event:   frameEvent,
		Payload: frameRaw,
		Ref:     ch.client.makeRef(),
		JoinRef: joinRef,
	}
	return ch.client.send(msg)
}

// OnSync registers the sync handler and replays the latest undelivered
// snapshot.
func (ch *channel) OnSync(fn func(transport.Snapshot)) {
	ch.mu.Lock()
	ch.onSync = fn
	var replay *transport.Snapshot
	if ch.pendingSync != nil {
		replay = ch.pendingSync
		ch.pendingSync = nil
	}
	ch.mu.Unlock()

	if fn != nil && replay != nil {
		fn(*replay)
	}
}

// OnBroadcast registers the handler for one broadcast event name.
func (ch *channel) OnBroadcast(event string, fn func(json.RawMessage)) {
	ch.mu.Lock()
	if ch.onBroadcast == nil {
		ch.onBroadcast = make(map[string]func(json.RawMessage))
	}
	ch.onBroadcast[event] = fn
	ch.mu.Unlock()
}

// OnStatus registers the status handler and replays undelivered
// statuses in order.
func (ch *channel) OnStatus(fn func(transport.Status, error)) {
	ch.mu.Lock()
	ch.onStatus = fn
	replay := ch.pendingStatuses
	ch.pendingStatuses = nil
	ch.mu.Unlock()

	if fn == nil {
		return
	}
	for _, ps := range replay {
		fn(ps.status, ps.err)
	}
}

// Leave unsubscribes from the topic with phx_leave. Idempotent; safe
// to call on a channel whose socket is already gone.
func (ch *channel) Leave(ctx context.Context) error {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return nil
	}
	ch.left = true
	wasJoined := ch.joined
	ch.joined = false
	joinRef := ch.joinRef
	if ch.joinTimer != nil {
		ch.joinTimer.Stop()
		ch.joinTimer = nil
	}
	ch.mu.Unlock()

	ch.client.removeChannel(ch.topic, ch)

	if wasJoined {
		msg := Message{
			Topic:   ch.topic,
			Event:   eventLeave,
			Payload: json.RawMessage("{}"),
			Ref:     ch.client.makeRef(),
			JoinRef: joinRef,
		}
		if err := ch.client.send(msg); err != nil && !errors.Is(err, ErrNotConnected) {
			ch.client.logger.Debug("leave send failed", "topic", ch.topic, "error", err)
		}
	}

	ch.deliverStatus(transport.StatusClosed, nil)
	return nil
}

func (ch *channel) snapshotLocked() transport.Snapshot {
	snap := make(transport.Snapshot, len(ch.presence))
	for key, metas := range ch.presence {
		snap[key] = append([]json.RawMessage(nil), metas...)
	}
	return snap
}

func (ch *channel) deliverSync(snap transport.Snapshot) {
	ch.mu.Lock()
	if ch.left {
		ch.mu.Unlock()
		return
	}
	fn := ch.onSync
	if fn == nil {
		ch.pendingSync = &snap
		ch.mu.Unlock()
		return
	}
	ch.mu.Unlock()

	fn(snap)
}

func (ch *channel) deliverStatus(status transport.Status, err error) {
	ch.mu.Lock()
	fn := ch.onStatus
	if fn == nil {
		ch.pendingStatuses = append(ch.pendingStatuses, pendingStatus{status: status, err: err})
		ch.mu.Unlock()
		return
	}
	ch.mu.Unlock()

	fn(status, err)
}
