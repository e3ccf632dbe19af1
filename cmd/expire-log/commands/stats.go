package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/expire-adapter/expire-go/pkg/log"
)

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	summary, err := log.Summarize(reader)
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}

	printStats(w, summary)
	return nil
}

func printStats(w io.Writer, stats *log.Summary) {
	fmt.Fprintln(w, "=== Expire Event Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.Total > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.Start.Format(time.RFC3339),
			stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.End.Sub(stats.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.Total)
	fmt.Fprintf(w, "Sessions:     %d\n", len(stats.Sessions))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryLifecycle, log.CategoryCheck, log.CategoryWrite, log.CategoryError} {
		if count := stats.ByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Keys: %d\n", len(stats.Keys))
	if len(stats.Keys) > 0 {
		fmt.Fprintln(w)
		for _, id := range stats.KeyIDs() {
			ks := stats.Keys[id]
			fmt.Fprintf(w, "  %s\n", id)
			fmt.Fprintf(w, "    registered %d, scheduled %d, expired %d\n", ks.Registrations, ks.Scheduled, ks.Expired)
			fmt.Fprintf(w, "    forced %d, skipped %d, failed %d\n", ks.Forced, ks.Skipped, ks.FailedWrites)
			if ks.Rejections > 0 {
				fmt.Fprintf(w, "    rejected %d\n", ks.Rejections)
			}
			if !ks.LastDeadline.IsZero() {
				fmt.Fprintf(w, "    last check %s, deadline %s\n",
					ks.LastOutcome, ks.LastDeadline.UTC().Format(time.RFC3339))
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
