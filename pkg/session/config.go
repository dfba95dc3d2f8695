package session

import (
	"io"
	"log/slog"
	"time"

	"github.com/asrayaos/presence-go/pkg/log"
	"github.com/asrayaos/presence-go/pkg/wire"
)

// Default timing configuration.
const (
	// DefaultPresenceThrottle is the minimum interval between two
	// presence publishes. Comfortably below the transport's probe
	// interval, so the local record never looks stale between probes.
	DefaultPresenceThrottle = 7 * time.Second

	// DefaultTypingThrottle is the minimum interval between two typing
	// broadcasts. Independent of the presence window.
	DefaultTypingThrottle = 1 * time.Second

	// DefaultPresenceExpiry is how long an entity survives without
	// appearing in a sync: three probe intervals, covering the two the
	// server tolerates plus margin.
	DefaultPresenceExpiry = 90 * time.Second

	// DefaultTypingStale is how long a typing state survives without a
	// fresh signal.
	DefaultTypingStale = 5 * time.Second

	// DefaultProbeInterval is the liveness cadence of the transport
	// this package was tuned against. Sessions on a transport with a
	// different cadence must set ProbeInterval accordingly.
	DefaultProbeInterval = 30 * time.Second
)

// sweepDivisor splits an expiry window into sweep intervals, so no
// entry outlives its expiry by more than a third of the window.
const sweepDivisor = 3

// Config configures one Session.
type Config struct {
	// ChannelName is the pub/sub channel to join. Required.
	ChannelName string

	// Identity is the local participant's presence record. When its
	// required fields are incomplete the session stays Idle on Start
	// and never joins.
	Identity wire.PresenceMeta

	// PresenceThrottle is the minimum interval between presence
	// publishes.
	PresenceThrottle time.Duration

	// TypingThrottle is the minimum interval between typing broadcasts.
	TypingThrottle time.Duration

	// PresenceExpiry is how long an entity survives without a sync.
	PresenceExpiry time.Duration

	// TypingStale is how long a typing state survives without a fresh
	// signal.
	TypingStale time.Duration

	// ProbeInterval is the transport's own liveness cadence. A
	// PresenceExpiry below twice this value draws a startup warning:
	// entities would flicker between probes.
	ProbeInterval time.Duration

	// Logger receives lifecycle logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Capture receives structured capture events for offline analysis.
	// Defaults to the no-op logger.
	Capture log.Logger
}

func (c *Config) applyDefaults() {
	if c.PresenceThrottle <= 0 {
		c.PresenceThrottle = DefaultPresenceThrottle
	}
	if c.TypingThrottle <= 0 {
		c.TypingThrottle = DefaultTypingThrottle
	}
	if c.PresenceExpiry <= 0 {
		c.PresenceExpiry = DefaultPresenceExpiry
	}
	if c.TypingStale <= 0 {
		c.TypingStale = DefaultTypingStale
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = DefaultProbeInterval
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.Capture == nil {
		c.Capture = log.NoopLogger{}
	}
}
