package session

import (
	"context"
	"log/slog"

	"github.com/asrayaos/presence-go/pkg/throttle"
	"github.com/asrayaos/presence-go/pkg/transport"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// publishResult reports the outcome of each publish attempt to the
// capture log.
type publishResult func(event string, forced, throttled bool)

// presencePublisher emits the local presence record at most once per
// throttle window. Only the leading call in a window fires; bursts
// collapse into one send and no trailing call is queued.
type presencePublisher struct {
	channel transport.Channel
	meta    wire.PresenceMeta
	gate    *throttle.Gate
	logger  *slog.Logger
	result  publishResult
}

func newPresencePublisher(channel transport.Channel, meta wire.PresenceMeta, gate *throttle.Gate, logger *slog.Logger, result publishResult) *presencePublisher {
	return &presencePublisher{channel: channel, meta: meta, gate: gate, logger: logger, result: result}
}

// publish sends the presence record if the throttle window allows it.
func (p *presencePublisher) publish() {
	if !p.gate.Allow() {
		p.result(wire.EventPresence, false, true)
		return
	}
	p.send(false)
}

// forcePublish bypasses the throttle window without consuming it. Used
// on subscribe and on foreground, where a stale record is worse than an
// extra send.
func (p *presencePublisher) forcePublish() {
	p.send(true)
}

func (p *presencePublisher) send(forced bool) {
	if err := p.channel.Publish(context.Background(), wire.EventPresence, p.meta); err != nil {
		// Not retried: the next throttle window publishes again anyway.
		p.logger.Warn("presence publish failed", "error", err)
	}
	p.result(wire.EventPresence, forced, false)
}

func (p *presencePublisher) stop() {
	p.gate.Stop()
}

// typingPublisher emits typing signals on its own, much shorter window.
// Typing never shares a gate with presence.
type typingPublisher struct {
	channel transport.Channel
	userID  string
	roomID  string
	gate    *throttle.Gate
	logger  *slog.Logger
	result  publishResult
}

func newTypingPublisher(channel transport.Channel, userID, roomID string, gate *throttle.Gate, logger *slog.Logger, result publishResult) *typingPublisher {
	return &typingPublisher{channel: channel, userID: userID, roomID: roomID, gate: gate, logger: logger, result: result}
}

// signal broadcasts the typing state if the throttle window allows it.
func (p *typingPublisher) signal(isTyping bool) {
	if !p.gate.Allow() {
		p.result(wire.EventTyping, false, true)
		return
	}
	sig := wire.TypingSignal{UserID: p.userID, RoomID: p.roomID, IsTyping: isTyping}
	if err := p.channel.Publish(context.Background(), wire.EventTyping, sig); err != nil {
		p.logger.Warn("typing publish failed", "error", err)
	}
	p.result(wire.EventTyping, false, false)
}

func (p *typingPublisher) stop() {
	p.gate.Stop()
}
