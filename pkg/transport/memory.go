package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/asrayaos/presence-go/pkg/wire"
)

// roomQueueSize bounds each room's dispatch queue. A full queue drops
// events rather than stalling publishers; the contract is best-effort.
const roomQueueSize = 256

// Hub is an in-process Transport. Every joined channel ("room") fans
// events out to its members through a single dispatch goroutine, which
// preserves per-channel delivery order.
//
// The hub runs no liveness probes: members only disappear by leaving.
// Layers above that want probe-driven expiry behavior get it from their
// own configuration, not from the hub.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]*hubRoom
	logger *slog.Logger
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*hubRoom)}
}

// SetLogger sets an optional logger for dropped-event warnings.
func (h *Hub) SetLogger(logger *slog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = logger
}

// Join subscribes to a named channel, tracking presence under key.
// In-memory joins cannot time out; the subscribed status is delivered
// through the channel's status callback.
func (h *Hub) Join(ctx context.Context, channel, key string) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	room, ok := h.rooms[channel]
	if !ok {
		room = newHubRoom(h, channel)
		h.rooms[channel] = room
	}
	h.mu.Unlock()

	member := &memoryChannel{
		room: room,
		key:  key,
		id:   uuid.NewString(),
	}
	room.addMember(member)

	// Subscription outcome and priming snapshot, in order
	room.enqueue(hubEvent{kind: eventStatus, target: member, status: StatusSubscribed})
	room.enqueue(hubEvent{kind: eventSync, target: member, snapshot: room.buildSnapshot()})

	return member, nil
}

// Close shuts down all rooms. Members receive a closed status.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	rooms := make([]*hubRoom, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[string]*hubRoom)
	h.mu.Unlock()

	for _, room := range rooms {
		room.shutdown()
	}
}

// removeRoom drops an empty room from the registry.
func (h *Hub) removeRoom(room *hubRoom) {
	h.mu.Lock()
	if h.rooms[room.name] == room {
		delete(h.rooms, room.name)
	}
	h.mu.Unlock()
}

func (h *Hub) warn(msg string, args ...any) {
	h.mu.Lock()
	logger := h.logger
	h.mu.Unlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// eventKind discriminates queued room events.
type eventKind uint8

const (
	eventSync eventKind = iota
	eventBroadcast
	eventStatus
)

// hubEvent is one queued delivery.
type hubEvent struct {
	kind eventKind

	// target limits delivery to one member; nil fans out to the room.
	target *memoryChannel

	// exclude skips one member id on fan-out (the sender).
	exclude string

	name     string
	payload  json.RawMessage
	snapshot Snapshot
	status   Status
	err      error
}

// trackedMeta is one member's presence record.
type trackedMeta struct {
	key     string
	payload json.RawMessage
}

// hubRoom is one named channel inside the hub.
type hubRoom struct {
	hub  *Hub
	name string

	mu      sync.Mutex
	members map[string]*memoryChannel
	order   []string
	metas   map[string]trackedMeta

	queue chan hubEvent
	quit  chan struct{}
	once  sync.Once
}

func newHubRoom(hub *Hub, name string) *hubRoom {
	room := &hubRoom{
		hub:     hub,
		name:    name,
		members: make(map[string]*memoryChannel),
		metas:   make(map[string]trackedMeta),
		queue:   make(chan hubEvent, roomQueueSize),
		quit:    make(chan struct{}),
	}
	go room.dispatch()
	return room
}

func (r *hubRoom) addMember(m *memoryChannel) {
	r.mu.Lock()
	r.members[m.id] = m
	r.order = append(r.order, m.id)
	r.mu.Unlock()
}

// removeMember drops a member and reports whether it had a tracked
// presence record (which requires a sync fan-out to the rest).
func (r *hubRoom) removeMember(m *memoryChannel) bool {
	r.mu.Lock()
	if _, ok := r.members[m.id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.members, m.id)
	for i, id := range r.order {
		if id == m.id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	_, tracked := r.metas[m.id]
	delete(r.metas, m.id)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		r.hub.removeRoom(r)
		r.shutdown()
	}
	return tracked
}

// track records a member's presence payload.
func (r *hubRoom) track(m *memoryChannel, payload json.RawMessage) {
	r.mu.Lock()
	r.metas[m.id] = trackedMeta{key: m.key, payload: payload}
	r.mu.Unlock()
}

// buildSnapshot assembles the full presence state in join order.
func (r *hubRoom) buildSnapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := make(Snapshot, len(r.metas))
	for _, id := range r.order {
		meta, ok := r.metas[id]
		if !ok {
			continue
		}
		snap[meta.key] = append(snap[meta.key], meta.payload)
	}
	return snap
}

func (r *hubRoom) enqueue(ev hubEvent) {
	select {
	case r.queue <- ev:
	case <-r.quit:
	default:
		r.hub.warn("room queue full, dropping event",
			"channel", r.name,
			"kind", ev.kind)
	}
}

func (r *hubRoom) shutdown() {
	r.once.Do(func() {
		close(r.quit)
	})
}

// dispatch is the room's single delivery goroutine.
func (r *hubRoom) dispatch() {
	for {
		select {
		case <-r.quit:
			return
		case ev := <-r.queue:
			r.deliver(ev)
		}
	}
}

func (r *hubRoom) deliver(ev hubEvent) {
	var targets []*memoryChannel
	if ev.target != nil {
		targets = []*memoryChannel{ev.target}
	} else {
		r.mu.Lock()
		targets = make([]*memoryChannel, 0, len(r.members))
		for _, id := range r.order {
			if id == ev.exclude {
				continue
			}
			if m, ok := r.members[id]; ok {
				targets = append(targets, m)
			}
		}
		r.mu.Unlock()
	}

	for _, m := range targets {
		switch ev.kind {
		case eventSync:
			m.deliverSync(ev.snapshot)
		case eventBroadcast:
			m.deliverBroadcast(ev.name, ev.payload)
		case eventStatus:
			m.deliverStatus(ev.status, ev.err)
		}
	}
}

// memoryChannel is one member's handle on a hub room.
type memoryChannel struct {
	room *hubRoom
	key  string
	id   string

	mu          sync.Mutex
	onSync      func(Snapshot)
	onBroadcast map[string]func(json.RawMessage)
	onStatus    func(Status, error)
	left        bool

	// Replay buffers for events that arrived before registration
	pendingSync     *Snapshot
	pendingStatuses []pendingStatus
}

type pendingStatus struct {
	status Status
	err    error
}

// Publish sends a payload under an event name. The presence event
// updates this member's tracked record and syncs the room; other
// events broadcast to the rest of the room.
func (c *memoryChannel) Publish(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.mu.Unlock()

	data, err := wire.Marshal(payload)
	if err != nil {
		return ErrInvalidPayload
	}

	if event == wire.EventPresence {
		c.room.track(c, data)
		c.room.enqueue(hubEvent{kind: eventSync, snapshot: c.room.buildSnapshot()})
		return nil
	}

	c.room.enqueue(hubEvent{
		kind:    eventBroadcast,
		exclude: c.id,
		name:    event,
		payload: data,
	})
	return nil
}

// OnSync registers the sync handler and replays the latest undelivered
// snapshot.
func (c *memoryChannel) OnSync(fn func(Snapshot)) {
	c.mu.Lock()
	c.onSync = fn
	var replay *Snapshot
	if c.pendingSync != nil {
		replay = c.pendingSync
		c.pendingSync = nil
	}
	c.mu.Unlock()

	if fn != nil && replay != nil {
		fn(*replay)
	}
}

// OnBroadcast registers the handler for one broadcast event name.
func (c *memoryChannel) OnBroadcast(event string, fn func(json.RawMessage)) {
	c.mu.Lock()
	if c.onBroadcast == nil {
		c.onBroadcast = make(map[string]func(json.RawMessage))
	}
	c.onBroadcast[event] = fn
	c.mu.Unlock()
}

// OnStatus registers the status handler and replays undelivered
// statuses in order.
func (c *memoryChannel) OnStatus(fn func(Status, error)) {
	c.mu.Lock()
	c.onStatus = fn
	replay := c.pendingStatuses
	c.pendingStatuses = nil
	c.mu.Unlock()

	if fn == nil {
		return
	}
	for _, ps := range replay {
		fn(ps.status, ps.err)
	}
}

// Leave unsubscribes from the room. Remaining members see an updated
// sync if this member was tracked. Idempotent.
func (c *memoryChannel) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return nil
	}
	c.left = true
	c.mu.Unlock()

	tracked := c.room.removeMember(c)
	if tracked {
		c.room.enqueue(hubEvent{kind: eventSync, snapshot: c.room.buildSnapshot()})
	}

	c.deliverStatus(StatusClosed, nil)
	return nil
}

func (c *memoryChannel) deliverSync(snap Snapshot) {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return
	}
	fn := c.onSync
	if fn == nil {
		c.pendingSync = &snap
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	fn(snap)
}

func (c *memoryChannel) deliverBroadcast(event string, payload json.RawMessage) {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return
	}
	fn := c.onBroadcast[event]
	c.mu.Unlock()

	if fn != nil {
		fn(payload)
	}
}

func (c *memoryChannel) deliverStatus(status Status, err error) {
	c.mu.Lock()
	fn := c.onStatus
	if fn == nil {
		c.pendingStatuses = append(c.pendingStatuses, pendingStatus{status: status, err: err})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	fn(status, err)
}
