package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger. Useful for
// development when you want to watch channel traffic in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Channel != "" {
		attrs = append(attrs, slog.String("channel", event.Channel))
	}
	if event.Key != "" {
		attrs = append(attrs, slog.String("key", event.Key))
	}

	switch {
	case event.Sync != nil:
		attrs = append(attrs,
			slog.Int("keys", event.Sync.Keys),
			slog.Int("metas", event.Sync.Metas),
		)
		if event.Sync.Dropped > 0 {
			attrs = append(attrs, slog.Int("dropped", event.Sync.Dropped))
		}
	case event.Broadcast != nil:
		attrs = append(attrs,
			slog.String("event", event.Broadcast.Event),
			slog.Int("size", event.Broadcast.Size),
		)
	case event.Publish != nil:
		attrs = append(attrs, slog.String("event", event.Publish.Event))
		if event.Publish.Forced {
			attrs = append(attrs, slog.Bool("forced", true))
		}
		if event.Publish.Throttled {
			attrs = append(attrs, slog.Bool("throttled", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Eviction != nil:
		attrs = append(attrs,
			slog.String("kind", event.Eviction.Kind.String()),
			slog.Int("removed", event.Eviction.Removed),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
