// Command expire-log is a tool for viewing and analyzing expire event traces.
//
// Trace files are written by expire-daemon when it runs with -event-log (or
// log.event_log in its configuration).
//
// Usage:
//
//	expire-log <command> [flags] <file.cbor>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSONL, CSV, or YAML
//	filter   Filter trace and write to new file
//	stats    Show statistics about the trace
//
// Examples:
//
//	# View all events
//	expire-log view expire.cbor
//
//	# View only forced writes for one key
//	expire-log view -category write -key light.kitchen expire.cbor
//
//	# Export to YAML
//	expire-log export -format yaml expire.cbor
//
//	# Keep one session and save to new file
//	expire-log filter -session 5f0c... -o session.cbor expire.cbor
//
//	# Show statistics
//	expire-log stats expire.cbor
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/expire-adapter/expire-go/cmd/expire-log/commands"
	"github.com/expire-adapter/expire-go/pkg/version"
)

const usage = `expire-log - Expire Event Trace Analyzer

Usage:
  expire-log <command> [flags] <file.cbor>

Commands:
  view     View trace in human-readable format
  export   Export trace to JSONL, CSV, or YAML
  filter   Filter trace and write to new file
  stats    Show statistics about the trace
  version  Print version

Use "expire-log <command> -help" for more information about a command.
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
	case "-version", "--version", "version":
		fmt.Println(version.Summary())
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `expire-log view - View trace in human-readable format

Usage:
  expire-log view [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	key := fs.String("key", "", "Filter by watched key ID")
	category := fs.String("category", "", "Filter by category (lifecycle, check, write, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := commands.ViewFilter{KeyID: *key}
	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `expire-log export - Export trace to JSONL, CSV, or YAML

Usage:
  expire-log export [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv, yaml)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
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
		fmt.Fprintf(os.Stderr, `expire-log filter - Filter trace and write to new file

Usage:
  expire-log filter [flags] <file.cbor>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	session := fs.String("session", "", "Filter by engine session ID")
	key := fs.String("key", "", "Filter by watched key ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	category := fs.String("category", "", "Filter by category (lifecycle, check, write, error)")
	outcome := fs.String("outcome", "", "Keep check events with this outcome (scheduled, expired)")
	dueBefore := fs.String("due-before", "", "Keep check events whose deadline is before this time (RFC3339)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		SessionID: *session,
		KeyID:     *key,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Category:  *category,
		Outcome:   *outcome,
		DueBefore: *dueBefore,
	}

	count, err := commands.RunFilter(fs.Arg(0), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `expire-log stats - Show statistics about the trace

Usage:
  expire-log stats <file.cbor>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
