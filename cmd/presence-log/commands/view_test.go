package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/asrayaos/presence-go/pkg/log"
)

func TestFormatSyncEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionIn,
		Layer:     log.LayerChannel,
		Category:  log.CategorySync,
		Channel:   "lobby",
		Sync: &log.SyncEvent{
			Keys:    3,
			Metas:   4,
			Dropped: 1,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-01-28T10:15:32.123456Z") {
		t.Errorf("expected formatted timestamp, got: %s", output)
	}
	if !strings.Contains(output, "[sess:abc12345]") {
		t.Errorf("expected shortened session ID, got: %s", output)
	}
	if !strings.Contains(output, "IN") {
		t.Errorf("expected IN direction, got: %s", output)
	}
	if !strings.Contains(output, "CHANNEL Sync") {
		t.Errorf("expected layer and type label, got: %s", output)
	}
	if !strings.Contains(output, "Channel: lobby") {
		t.Errorf("expected channel line, got: %s", output)
	}
	if !strings.Contains(output, "Keys: 3") {
		t.Errorf("expected key count, got: %s", output)
	}
	if !strings.Contains(output, "Metas: 4") {
		t.Errorf("expected meta count, got: %s", output)
	}
	if !strings.Contains(output, "Dropped: 1 malformed") {
		t.Errorf("expected dropped count, got: %s", output)
	}
}

func TestFormatPublishEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345",
		Direction: log.DirectionOut,
		Layer:     log.LayerChannel,
		Category:  log.CategoryPublish,
		Channel:   "lobby",
		Publish: &log.PublishEvent{
			Event:  "presence",
			Forced: true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "OUT") {
		t.Errorf("expected OUT direction, got: %s", output)
	}
	if !strings.Contains(output, "Event: presence") {
		t.Errorf("expected event name, got: %s", output)
	}
	if !strings.Contains(output, "Forced: bypassed throttle gate") {
		t.Errorf("expected forced marker, got: %s", output)
	}
}

func TestFormatThrottledPublishEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Direction: log.DirectionOut,
		Layer:     log.LayerChannel,
		Category:  log.CategoryPublish,
		Publish: &log.PublishEvent{
			Event:     "presence",
			Throttled: true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)

	if !strings.Contains(buf.String(), "Throttled: nothing sent") {
		t.Errorf("expected throttled marker, got: %s", buf.String())
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Direction: log.DirectionLocal,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: "JOINING",
			NewState: "SUBSCRIBED",
			Reason:   "channel subscribed",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "LOCAL") {
		t.Errorf("expected LOCAL direction, got: %s", output)
	}
	if !strings.Contains(output, "Entity: SESSION") {
		t.Errorf("expected entity, got: %s", output)
	}
	if !strings.Contains(output, "JOINING -> SUBSCRIBED") {
		t.Errorf("expected transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: channel subscribed") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestFormatEvictionEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Direction: log.DirectionLocal,
		Layer:     log.LayerSession,
		Category:  log.CategoryEviction,
		Eviction: &log.EvictionEvent{
			Kind:    log.EvictPresence,
			Removed: 2,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Kind: PRESENCE") {
		t.Errorf("expected eviction kind, got: %s", output)
	}
	if !strings.Contains(output, "Removed: 2") {
		t.Errorf("expected removed count, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: "abc12345",
		Direction: log.DirectionLocal,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: "connection refused",
			Context: "joining channel",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Message: connection refused") {
		t.Errorf("expected message, got: %s", output)
	}
	if !strings.Contains(output, "Context: joining channel") {
		t.Errorf("expected context, got: %s", output)
	}
}

func TestRunViewFiltersByCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Category: log.CategorySync, Sync: &log.SyncEvent{Keys: 1, Metas: 1}},
		{Timestamp: ts, SessionID: "s1", Category: log.CategoryPublish, Publish: &log.PublishEvent{Event: "presence"}},
		{Timestamp: ts, SessionID: "s1", Category: log.CategorySync, Sync: &log.SyncEvent{Keys: 2, Metas: 2}},
	}

	path := createTestCaptureFile(t, events)

	var buf bytes.Buffer
	err := RunView(path, FilterOptions{Category: "publish"}, &buf)
	if err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Sync") {
		t.Errorf("expected sync events filtered out, got: %s", output)
	}
	if !strings.Contains(output, "Publish") {
		t.Errorf("expected publish event in output, got: %s", output)
	}
}

func TestRunViewRejectsBadCategory(t *testing.T) {
	path := createTestCaptureFile(t, []log.Event{
		{Timestamp: time.Now(), Category: log.CategorySync},
	})

	err := RunView(path, FilterOptions{Category: "bogus"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for invalid category")
	}
	if !strings.Contains(err.Error(), "invalid category") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseFlagHelpers(t *testing.T) {
	if d, err := ParseDirectionFlag("LOCAL"); err != nil || d != log.DirectionLocal {
		t.Errorf("ParseDirectionFlag(LOCAL) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for invalid direction")
	}

	if l, err := ParseLayerFlag("Session"); err != nil || l != log.LayerSession {
		t.Errorf("ParseLayerFlag(Session) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("kernel"); err == nil {
		t.Error("expected error for invalid layer")
	}

	if c, err := ParseCategoryFlag("eviction"); err != nil || c != log.CategoryEviction {
		t.Errorf("ParseCategoryFlag(eviction) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("metric"); err == nil {
		t.Error("expected error for invalid category")
	}
}
