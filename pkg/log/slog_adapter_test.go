package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newCaptureSlog() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), &buf
}

func TestSlogAdapterSync(t *testing.T) {
	logger, buf := newCaptureSlog()
	adapter := NewSlogAdapter(logger)

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-1",
		Direction: DirectionIn,
		Layer:     LayerChannel,
		Category:  CategorySync,
		Channel:   "room-lobby",
		Sync:      &SyncEvent{Keys: 2, Metas: 3},
	})

	out := buf.String()
	for _, want := range []string{"session_id=sess-1", "category=SYNC", "channel=room-lobby", "keys=2", "metas=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterPublish(t *testing.T) {
	logger, buf := newCaptureSlog()
	adapter := NewSlogAdapter(logger)

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-1",
		Direction: DirectionOut,
		Layer:     LayerSession,
		Category:  CategoryPublish,
		Publish:   &PublishEvent{Event: "presence", Forced: true},
	})

	out := buf.String()
	for _, want := range []string{"direction=OUT", "event=presence", "forced=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSlogAdapterError(t *testing.T) {
	logger, buf := newCaptureSlog()
	adapter := NewSlogAdapter(logger)

	adapter.Log(Event{
		Timestamp: time.Now(),
		SessionID: "sess-1",
		Direction: DirectionIn,
		Layer:     LayerChannel,
		Category:  CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerChannel,
			Message: "bad payload",
			Context: "typing decode",
		},
	})

	out := buf.String()
	for _, want := range []string{"category=ERROR", "error_msg=\"bad payload\"", "error_context=\"typing decode\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
