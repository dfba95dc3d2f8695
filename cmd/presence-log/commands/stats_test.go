package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/asrayaos/presence-go/pkg/log"
)

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport, Category: log.CategoryState},
		{Timestamp: ts, Layer: log.LayerChannel, Category: log.CategorySync},
		{Timestamp: ts, Layer: log.LayerChannel, Category: log.CategorySync},
		{Timestamp: ts, Layer: log.LayerSession, Category: log.CategoryState},
	}

	path := createTestCaptureFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "TRANSPORT:") {
		t.Error("expected TRANSPORT layer in output")
	}
	if !strings.Contains(output, "CHANNEL:") {
		t.Error("expected CHANNEL layer in output")
	}
	if !strings.Contains(output, "SESSION:") {
		t.Error("expected SESSION layer in output")
	}
	if !strings.Contains(output, "Total Events: 4") {
		t.Errorf("expected total event count, got:\n%s", output)
	}
}

func TestStatsCountsByCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Category: log.CategorySync},
		{Timestamp: ts, Category: log.CategoryBroadcast},
		{Timestamp: ts, Category: log.CategoryPublish},
		{Timestamp: ts, Category: log.CategoryEviction},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "test"}},
	}

	path := createTestCaptureFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"SYNC:", "BROADCAST:", "PUBLISH:", "EVICTION:", "ERROR:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s category in output", want)
		}
	}
	if !strings.Contains(output, "Errors: 1") {
		t.Errorf("expected error count, got:\n%s", output)
	}
}

func TestStatsCountsSessions(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "sess-aaaa-bbbb", Channel: "lobby", Key: "u1", Category: log.CategorySync, Sync: &log.SyncEvent{Keys: 1, Metas: 1}},
		{Timestamp: ts.Add(time.Second), SessionID: "sess-aaaa-bbbb", Category: log.CategoryPublish, Publish: &log.PublishEvent{Event: "presence"}},
		{Timestamp: ts, SessionID: "sess-cccc-dddd", Category: log.CategorySync, Sync: &log.SyncEvent{Keys: 1, Metas: 1}},
	}

	path := createTestCaptureFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Sessions: 2") {
		t.Errorf("expected 2 sessions in output, got:\n%s", output)
	}
	if !strings.Contains(output, "[sess-aaa") {
		t.Error("expected sess-aaaa session details")
	}
	if !strings.Contains(output, "Channel: lobby") {
		t.Error("expected channel in session details")
	}
	if !strings.Contains(output, "Key: u1") {
		t.Error("expected key in session details")
	}
}

func TestStatsPublishBreakdown(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, SessionID: "s1", Category: log.CategoryPublish, Publish: &log.PublishEvent{Event: "presence"}},
		{Timestamp: ts, SessionID: "s1", Category: log.CategoryPublish, Publish: &log.PublishEvent{Event: "presence", Throttled: true}},
		{Timestamp: ts, SessionID: "s1", Category: log.CategoryPublish, Publish: &log.PublishEvent{Event: "presence", Throttled: true}},
		{Timestamp: ts, SessionID: "s1", Category: log.CategoryEviction, Eviction: &log.EvictionEvent{Kind: log.EvictTyping, Removed: 3}},
	}

	path := createTestCaptureFile(t, events)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Publishes: 1 sent, 2 throttled") {
		t.Errorf("expected publish breakdown, got:\n%s", output)
	}
	if !strings.Contains(output, "Evicted: 3 entries") {
		t.Errorf("expected eviction total, got:\n%s", output)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestCaptureFile(t, nil)

	var buf bytes.Buffer
	err := RunStats(path, &buf)
	if err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero total, got:\n%s", buf.String())
	}
}
