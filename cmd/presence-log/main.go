// Command presence-log is a tool for viewing and analyzing presence
// capture files.
//
// Capture files are created by running presence-room with the -capture
// flag.
//
// Usage:
//
//	presence-log <command> [flags] <file.plog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON or CSV format
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	presence-log view session.plog
//
//	# View only publish attempts
//	presence-log view -category publish session.plog
//
//	# View one session's events
//	presence-log view -session 7f3a session.plog
//
//	# Export to JSONL
//	presence-log export -format jsonl session.plog
//
//	# Keep only sync events in a new file
//	presence-log filter -category sync -o syncs.plog session.plog
//
//	# Show statistics
//	presence-log stats session.plog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/asrayaos/presence-go/cmd/presence-log/commands"
)

const usage = `presence-log - Presence Capture Analyzer

Usage:
  presence-log <command> [flags] <file.plog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSON or CSV format
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "presence-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// addFilterFlags registers the shared filter flags on fs and returns a
// builder that turns them into filter options.
func addFilterFlags(fs *flag.FlagSet) func() commands.FilterOptions {
	session := fs.String("session", "", "Filter by session ID")
	channel := fs.String("channel", "", "Filter by channel name")
	key := fs.String("key", "", "Filter by presence key")
	direction := fs.String("direction", "", "Filter by direction (in, out, local)")
	layer := fs.String("layer", "", "Filter by layer (transport, channel, session)")
	category := fs.String("category", "", "Filter by category (sync, broadcast, publish, state, eviction, error)")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")

	return func() commands.FilterOptions {
		return commands.FilterOptions{
			SessionID: *session,
			Channel:   *channel,
			Key:       *key,
			Direction: *direction,
			Layer:     *layer,
			Category:  *category,
			TimeStart: *timeStart,
			TimeEnd:   *timeEnd,
		}
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `presence-log view - View capture file in human-readable format

Usage:
  presence-log view [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}

	opts := addFilterFlags(fs)

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), opts(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `presence-log export - Export capture file to JSON or CSV format

Usage:
  presence-log export [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `presence-log filter - Filter capture file and write to new file

Usage:
  presence-log filter [flags] <file.plog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	opts := addFilterFlags(fs)

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(fs.Arg(0), *output, opts())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `presence-log stats - Show statistics about the capture file

Usage:
  presence-log stats <file.plog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
