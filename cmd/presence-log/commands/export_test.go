package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/asrayaos/presence-go/pkg/log"
)

func createTestCaptureFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.plog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "abc12345",
			Direction: log.DirectionOut,
			Layer:     log.LayerChannel,
			Category:  log.CategoryPublish,
			Channel:   "lobby",
			Key:       "u1",
			Publish: &log.PublishEvent{
				Event:  "presence",
				Forced: true,
			},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: "abc12345",
			Direction: log.DirectionIn,
			Layer:     log.LayerChannel,
			Category:  log.CategorySync,
			Channel:   "lobby",
			Sync: &log.SyncEvent{
				Keys:  2,
				Metas: 2,
			},
		},
	}

	path := createTestCaptureFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.jsonl")
	err := RunExport(path, "jsonl", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}

	var event1 map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event1); err != nil {
		t.Errorf("failed to parse line 1: %v", err)
	}
	if event1["SessionID"] != "abc12345" {
		t.Errorf("expected SessionID abc12345, got %v", event1["SessionID"])
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "abc12345",
			Direction: log.DirectionIn,
			Layer:     log.LayerChannel,
			Category:  log.CategorySync,
			Channel:   "lobby",
			Key:       "u1",
			Sync: &log.SyncEvent{
				Keys:    3,
				Metas:   4,
				Dropped: 1,
			},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: "abc12345",
			Direction: log.DirectionLocal,
			Layer:     log.LayerSession,
			Category:  log.CategoryEviction,
			Eviction: &log.EvictionEvent{
				Kind:    log.EvictTyping,
				Removed: 2,
			},
		},
	}

	path := createTestCaptureFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	err := RunExport(path, "csv", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}

	if !strings.HasPrefix(lines[0], "timestamp,session_id,direction") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "keys=3 metas=4 dropped=1") {
		t.Errorf("expected sync detail in row, got: %s", lines[1])
	}
	if !strings.Contains(lines[2], "TYPING removed=2") {
		t.Errorf("expected eviction detail in row, got: %s", lines[2])
	}
}

func TestExportCSVPublishDetail(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: ts,
			SessionID: "abc12345",
			Direction: log.DirectionOut,
			Layer:     log.LayerChannel,
			Category:  log.CategoryPublish,
			Publish: &log.PublishEvent{
				Event:     "typing",
				Throttled: true,
			},
		},
	}

	path := createTestCaptureFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	if !strings.Contains(string(data), "typing throttled") {
		t.Errorf("expected throttled publish detail, got:\n%s", string(data))
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestCaptureFile(t, []log.Event{
		{Timestamp: time.Now(), Category: log.CategorySync},
	})

	err := RunExport(path, "xml", "")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("unexpected error: %v", err)
	}
}
