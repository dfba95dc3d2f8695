// Package commands implements the presence-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/asrayaos/presence-go/pkg/log"
)

// RunView executes the view command.
func RunView(path string, opts FilterOptions, output io.Writer) error {
	filter, err := opts.build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	sessID := shortenSessionID(event.SessionID)
	dir := event.Direction.String()

	// Determine event type label
	var typeLabel string
	switch {
	case event.Sync != nil:
		typeLabel = "Sync"
	case event.Broadcast != nil:
		typeLabel = "Broadcast"
	case event.Publish != nil:
		typeLabel = "Publish"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Eviction != nil:
		typeLabel = "Eviction"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [sess:%s] %-5s %s %s\n", ts, sessID, dir, event.Layer.String(), typeLabel)

	if event.Channel != "" {
		fmt.Fprintf(w, "  Channel: %s\n", event.Channel)
	}

	// Type-specific details
	switch {
	case event.Sync != nil:
		formatSyncDetails(w, event.Sync)
	case event.Broadcast != nil:
		formatBroadcastDetails(w, event.Broadcast)
	case event.Publish != nil:
		formatPublishDetails(w, event.Publish)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Eviction != nil:
		formatEvictionDetails(w, event.Eviction)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatSyncDetails writes snapshot-specific details.
func formatSyncDetails(w io.Writer, sync *log.SyncEvent) {
	fmt.Fprintf(w, "  Keys: %d\n", sync.Keys)
	fmt.Fprintf(w, "  Metas: %d\n", sync.Metas)
	if sync.Dropped > 0 {
		fmt.Fprintf(w, "  Dropped: %d malformed\n", sync.Dropped)
	}
}

// formatBroadcastDetails writes broadcast-specific details.
func formatBroadcastDetails(w io.Writer, bc *log.BroadcastEvent) {
	fmt.Fprintf(w, "  Event: %s\n", bc.Event)
	fmt.Fprintf(w, "  Size: %d bytes\n", bc.Size)
}

// formatPublishDetails writes publish-specific details.
func formatPublishDetails(w io.Writer, pub *log.PublishEvent) {
	fmt.Fprintf(w, "  Event: %s\n", pub.Event)
	if pub.Forced {
		fmt.Fprintln(w, "  Forced: bypassed throttle gate")
	}
	if pub.Throttled {
		fmt.Fprintln(w, "  Throttled: nothing sent")
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatEvictionDetails writes eviction sweep details.
func formatEvictionDetails(w io.Writer, ev *log.EvictionEvent) {
	fmt.Fprintf(w, "  Kind: %s\n", ev.Kind.String())
	fmt.Fprintf(w, "  Removed: %d\n", ev.Removed)
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "local":
		return log.DirectionLocal, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or local)", s)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "channel":
		return log.LayerChannel, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, channel, or session)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "sync":
		return log.CategorySync, nil
	case "broadcast":
		return log.CategoryBroadcast, nil
	case "publish":
		return log.CategoryPublish, nil
	case "state":
		return log.CategoryState, nil
	case "eviction":
		return log.CategoryEviction, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be sync, broadcast, publish, state, eviction, or error)", s)
	}
}
