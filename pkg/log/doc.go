// Package log provides structured capture of presence channel events.
//
// This package defines the Logger interface and Event types for
// recording what a session saw and sent: sync snapshots, broadcasts,
// outgoing publishes, lifecycle state changes, evictions, and errors.
// It is separate from operational logging (slog) - capture provides a
// complete machine-readable trace for debugging timing issues such as
// ghost entries, stuck typing indicators, and throttle misbehavior.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: events to console via slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// For analysis: write to binary file
//	cfg.Capture, _ = log.NewFileLogger("session.plog")
//
//	// Both: use MultiLogger
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Capture files use CBOR encoding with integer keys, conventionally
// with a .plog extension. The presence-log CLI tool provides viewing
// and filtering.
package log
