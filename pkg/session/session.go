package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asrayaos/presence-go/pkg/log"
	"github.com/asrayaos/presence-go/pkg/roster"
	"github.com/asrayaos/presence-go/pkg/throttle"
	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// Session errors.
var (
	ErrSessionClosed  = errors.New("session closed")
	ErrAlreadyStarted = errors.New("session already started")
	ErrMissingChannel = errors.New("channel name is required")
)

// State represents the session lifecycle state.
type State uint8

const (
	// StateIdle indicates the session has not joined yet.
	StateIdle State = iota

	// StateJoining indicates the channel join is in flight.
	StateJoining

	// StateSubscribed indicates the session is live: publishers active,
	// eviction sweeps running.
	StateSubscribed

	// StateBackgrounded indicates the session is hidden: sweeps paused,
	// publishers still active.
	StateBackgrounded

	// StateClosed indicates the session is torn down. Terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateJoining:
		return "JOINING"
	case StateSubscribed:
		return "SUBSCRIBED"
	case StateBackgrounded:
		return "BACKGROUNDED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session coordinates presence and typing for one participant on one
// channel. It owns the canonical roster, both throttled publishers, and
// the eviction sweeps. Construct with New, drive with Start, Background,
// Foreground and Stop.
type Session struct {
	cfg       Config
	transport transport.Transport
	logger    *slog.Logger
	capture   log.Logger
	id        string

	mu        sync.Mutex
	state     State
	closed    bool
	channel   transport.Channel
	sweepStop chan struct{}
	presence  *presencePublisher
	typing    *typingPublisher
	onState   func(old, next State)

	roster *roster.Roster
}

// New creates a session on the given transport. The channel is not
// joined until Start.
func New(t transport.Transport, cfg Config) (*Session, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.ChannelName == "" {
		return nil, ErrMissingChannel
	}
	cfg.applyDefaults()

	return &Session{
		cfg:       cfg,
		transport: t,
		logger:    cfg.Logger.With("channel", cfg.ChannelName),
		capture:   cfg.Capture,
		id:        uuid.NewString(),
		state:     StateIdle,
		roster:    roster.New(),
	}, nil
}

// ID returns the session instance id used in capture events.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Roster returns the canonical presence store. Snapshots returned by
// the roster are copies; consumers must not assume live views.
func (s *Session) Roster() *roster.Roster {
	return s.roster
}

// OnChange registers a callback fired after every roster mutation.
// Register before Start.
func (s *Session) OnChange(fn func()) {
	s.roster.OnChange(fn)
}

// OnStateChange registers a callback fired after every lifecycle
// transition. Register before Start.
func (s *Session) OnStateChange(fn func(old, next State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = fn
}

// Start joins the channel. A session whose identity is missing required
// fields stays Idle and returns nil: presence is advisory, so a client
// without an identity simply stays invisible. A join failure closes the
// session and is returned; construct a new session to retry.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if err := s.cfg.Identity.Validate(); err != nil {
		s.mu.Unlock()
		s.logger.Debug("identity incomplete, session stays idle", "error", err)
		return nil
	}
	s.state = StateJoining
	s.mu.Unlock()

	s.announceState(StateIdle, StateJoining, "start")

	if s.cfg.PresenceExpiry < 2*s.cfg.ProbeInterval {
		s.logger.Warn("presence expiry below twice the probe interval, entities may flicker",
			"presence_expiry", s.cfg.PresenceExpiry,
			"probe_interval", s.cfg.ProbeInterval)
	}

	ch, err := s.transport.Join(ctx, s.cfg.ChannelName, s.cfg.Identity.ID)
	if err != nil {
		s.mu.Lock()
		s.closed = true
		s.state = StateClosed
		s.mu.Unlock()

		s.captureError(log.LayerTransport, err, "join")
		s.announceState(StateJoining, StateClosed, "join failed")
		return fmt.Errorf("joining channel %q: %w", s.cfg.ChannelName, err)
	}

	s.mu.Lock()
	if s.closed {
		// Stop raced the join.
		s.mu.Unlock()
		_ = ch.Leave(context.Background())
		return ErrSessionClosed
	}
	s.channel = ch
	s.presence = newPresencePublisher(ch, s.cfg.Identity,
		throttle.NewGate(s.cfg.PresenceThrottle), s.logger, s.capturePublish)
	s.typing = newTypingPublisher(ch, s.cfg.Identity.ID, s.cfg.Identity.RoomID,
		throttle.NewGate(s.cfg.TypingThrottle), s.logger, s.capturePublish)
	s.mu.Unlock()

	ch.OnStatus(s.handleStatus)
	ch.OnSync(s.handleSync)
	ch.OnBroadcast(wire.EventTyping, s.handleTyping)
	return nil
}

// Stop tears down the session: leave the transport, stop the eviction
// sweeps, stop the throttle gates, clear the roster, in that order.
// Idempotent.
func (s *Session) Stop() {
	s.close("stop")
}

// Background pauses the eviction sweeps while the session is hidden.
// Publishers keep running so a reconnect-triggered publish is never
// missed. No-op outside Subscribed.
func (s *Session) Background() {
	s.mu.Lock()
	if s.closed || s.state != StateSubscribed {
		s.mu.Unlock()
		return
	}
	s.state = StateBackgrounded
	stop := s.sweepStop
	s.sweepStop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	s.announceState(StateSubscribed, StateBackgrounded, "visibility hidden")
}

// Foreground resumes a backgrounded session: one forced publish closes
// the staleness gap, then the sweeps restart. No-op outside
// Backgrounded.
func (s *Session) Foreground() {
	s.mu.Lock()
	if s.closed || s.state != StateBackgrounded {
		s.mu.Unlock()
		return
	}
	s.state = StateSubscribed
	s.startSweepsLocked()
	pub := s.presence
	s.mu.Unlock()

	s.announceState(StateBackgrounded, StateSubscribed, "visibility visible")
	pub.forcePublish()
}

// PublishPresence publishes the local record through the throttle gate.
// Bursts collapse into one send per window. Failures are logged, never
// returned: the next window self-heals.
func (s *Session) PublishPresence() {
	s.mu.Lock()
	if s.closed || s.presence == nil {
		s.mu.Unlock()
		return
	}
	pub := s.presence
	s.mu.Unlock()

	pub.publish()
}

// SetTyping broadcasts the local typing state through its own gate.
func (s *Session) SetTyping(isTyping bool) {
	s.mu.Lock()
	if s.closed || s.typing == nil {
		s.mu.Unlock()
		return
	}
	pub := s.typing
	s.mu.Unlock()

	pub.signal(isTyping)
}

// handleStatus reacts to subscription outcomes from the transport.
func (s *Session) handleStatus(status transport.Status, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	state := s.state

	switch status {
	case transport.StatusSubscribed:
		if state == StateJoining {
			s.state = StateSubscribed
			s.startSweepsLocked()
			pub := s.presence
			s.mu.Unlock()

			s.announceState(StateJoining, StateSubscribed, "subscribed")
			pub.forcePublish()
			return
		}
		// Resubscribed after a transport reconnect. The server rebuilt
		// the channel without our record, so close the gap now. Sweeps
		// are left alone: they follow visibility, not connectivity.
		pub := s.presence
		s.mu.Unlock()

		s.logger.Debug("resubscribed", "state", state)
		pub.forcePublish()

	case transport.StatusError, transport.StatusTimedOut:
		if state == StateJoining {
			s.mu.Unlock()
			reason := "join error"
			if status == transport.StatusTimedOut {
				reason = "join timed out"
			}
			s.captureError(log.LayerChannel, err, reason)
			s.close(reason)
			return
		}
		s.mu.Unlock()

		// Steady-state transport trouble is recoverable: the transport
		// reconnects on its own and resubscribes.
		s.logger.Warn("transport reported", "status", status.String(), "error", err)
		s.captureError(log.LayerChannel, err, "steady state")

	case transport.StatusClosed:
		s.mu.Unlock()
		// Stop sets the closed flag before leaving, so this only runs
		// for closes the session did not initiate. The channel is gone;
		// so is the session.
		s.close("channel closed")
	}
}

// handleSync decodes a full snapshot and replaces the roster wholesale.
// The first decodable meta per key wins; malformed metas are dropped
// with a warning.
func (s *Session) handleSync(snap transport.Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	metas := make(map[string]wire.PresenceMeta, len(snap))
	total := 0
	dropped := 0
	for key, raws := range snap {
		total += len(raws)
		for _, raw := range raws {
			meta, err := wire.DecodePresenceMeta(raw)
			if err != nil {
				dropped++
				s.logger.Warn("dropping malformed presence meta", "key", key, "error", err)
				continue
			}
			metas[key] = *meta
			break
		}
	}

	s.roster.ApplySync(metas)
	s.captureSync(len(metas), total, dropped)
}

// handleTyping decodes a typing broadcast and upserts the roster. A
// malformed payload is dropped without touching the store.
func (s *Session) handleTyping(payload json.RawMessage) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	sig, err := wire.DecodeTypingSignal(payload)
	if err != nil {
		s.logger.Warn("dropping malformed typing broadcast", "error", err)
		s.captureError(log.LayerSession, err, "typing broadcast")
		return
	}

	s.captureBroadcast(wire.EventTyping, len(payload))
	s.roster.ApplyTyping(*sig)
}

// startSweepsLocked starts both eviction sweeps unless they are already
// running. Callers hold s.mu.
func (s *Session) startSweepsLocked() {
	if s.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	s.sweepStop = stop
	go s.sweepLoop(stop)
}

// sweepLoop drives both eviction sweeps until stopped. Each sweep runs
// at a third of its expiry window, so no entry outlives its window by
// more than a third.
func (s *Session) sweepLoop(stop chan struct{}) {
	presenceTick := time.NewTicker(s.cfg.PresenceExpiry / sweepDivisor)
	defer presenceTick.Stop()
	typingTick := time.NewTicker(s.cfg.TypingStale / sweepDivisor)
	defer typingTick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-presenceTick.C:
			s.sweepPresence()
		case <-typingTick.C:
			s.sweepTyping()
		}
	}
}

func (s *Session) sweepPresence() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if removed := s.roster.EvictStalePresence(s.cfg.PresenceExpiry); removed > 0 {
		s.logger.Debug("evicted stale presence", "removed", removed)
		s.captureEviction(log.EvictPresence, removed)
	}
}

func (s *Session) sweepTyping() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if removed := s.roster.EvictStaleTyping(s.cfg.TypingStale); removed > 0 {
		s.logger.Debug("evicted stale typing", "removed", removed)
		s.captureEviction(log.EvictTyping, removed)
	}
}

// close is the single teardown path. The closed flag goes up first so
// every in-flight callback bails at its guard, then the channel is
// left, the sweeps stopped, the gates stopped, and the roster cleared,
// in that order.
func (s *Session) close(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	old := s.state
	s.state = StateClosed
	ch := s.channel
	s.channel = nil
	stop := s.sweepStop
	s.sweepStop = nil
	presence := s.presence
	typing := s.typing
	s.mu.Unlock()

	if ch != nil {
		_ = ch.Leave(context.Background())
	}
	if stop != nil {
		close(stop)
	}
	if presence != nil {
		presence.stop()
	}
	if typing != nil {
		typing.stop()
	}
	s.roster.Clear()

	s.announceState(old, StateClosed, reason)
}

// announceState logs, captures and fans out one lifecycle transition.
func (s *Session) announceState(old, next State, reason string) {
	s.logger.Info("session state", "old", old.String(), "new", next.String(), "reason", reason)
	s.captureState(old, next, reason)

	s.mu.Lock()
	fn := s.onState
	s.mu.Unlock()
	if fn != nil {
		fn(old, next)
	}
}
