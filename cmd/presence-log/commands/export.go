package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/asrayaos/presence-go/pkg/log"
)

// RunExport exports the capture file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Write header
	header := []string{"timestamp", "session_id", "direction", "layer", "category", "channel", "key", "type", "detail"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.SessionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Channel,
			event.Key,
			eventTypeLabel(event),
			eventDetail(event),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// eventTypeLabel returns a short type string for the event payload.
func eventTypeLabel(event log.Event) string {
	switch {
	case event.Sync != nil:
		return "sync"
	case event.Broadcast != nil:
		return "broadcast"
	case event.Publish != nil:
		return "publish"
	case event.StateChange != nil:
		return "state"
	case event.Eviction != nil:
		return "eviction"
	case event.Error != nil:
		return "error"
	default:
		return "unknown"
	}
}

// eventDetail returns a one-line summary of the event payload.
func eventDetail(event log.Event) string {
	switch {
	case event.Sync != nil:
		return fmt.Sprintf("keys=%d metas=%d dropped=%d", event.Sync.Keys, event.Sync.Metas, event.Sync.Dropped)
	case event.Broadcast != nil:
		return fmt.Sprintf("%s size=%d", event.Broadcast.Event, event.Broadcast.Size)
	case event.Publish != nil:
		detail := event.Publish.Event
		if event.Publish.Forced {
			detail += " forced"
		}
		if event.Publish.Throttled {
			detail += " throttled"
		}
		return detail
	case event.StateChange != nil:
		if event.StateChange.OldState != "" {
			return fmt.Sprintf("%s %s->%s", event.StateChange.Entity, event.StateChange.OldState, event.StateChange.NewState)
		}
		return fmt.Sprintf("%s ->%s", event.StateChange.Entity, event.StateChange.NewState)
	case event.Eviction != nil:
		return fmt.Sprintf("%s removed=%d", event.Eviction.Kind, event.Eviction.Removed)
	case event.Error != nil:
		return event.Error.Message
	default:
		return ""
	}
}
