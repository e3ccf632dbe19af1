// Package commands implements the expire-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/expire-adapter/expire-go/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	KeyID    string
	Category *log.Category
}

// RunView reads the trace at path and writes matching events to w.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		KeyID:    filter.KeyID,
		Category: filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	err = reader.Each(func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read event: %w", err)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] CATEGORY key Label
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [%s] %-9s %s %s\n",
		ts, shortenSessionID(event.SessionID), event.Category.String(), keyLabel(event.KeyID), eventLabel(event))

	switch {
	case event.Lifecycle != nil:
		formatLifecycleDetails(w, event.Lifecycle)
	case event.Check != nil:
		formatCheckDetails(w, event.Check)
	case event.Write != nil:
		formatWriteDetails(w, event.Write)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func keyLabel(id string) string {
	if id == "" {
		return "-"
	}
	return id
}

// eventLabel names the payload of an event.
func eventLabel(event log.Event) string {
	switch {
	case event.Lifecycle != nil:
		return event.Lifecycle.Kind.String()
	case event.Check != nil:
		return event.Check.Outcome.String()
	case event.Write != nil:
		if event.Write.Skipped {
			return "SKIPPED"
		}
		if event.Write.Error != "" {
			return "FAILED"
		}
		return "FORCED"
	case event.Error != nil:
		return event.Error.Op
	default:
		return "Unknown"
	}
}

func formatLifecycleDetails(w io.Writer, lc *log.LifecycleEvent) {
	switch lc.Kind {
	case log.LifecycleRegistered:
		fmt.Fprintf(w, "  Interval: %s\n", lc.Interval)
		fmt.Fprintf(w, "  Expired value: %s (%s)\n", lc.ExpiredValue, lc.ValueType)
		fmt.Fprintf(w, "  Ack: %t\n", lc.Ack)
	case log.LifecycleRejected:
		fmt.Fprintf(w, "  Reason: %s\n", lc.Reason)
	}
}

func formatCheckDetails(w io.Writer, check *log.CheckEvent) {
	fmt.Fprintf(w, "  Trigger: %s\n", check.Trigger.String())
	fmt.Fprintf(w, "  Observed: %s\n", check.ObservedAt.UTC().Format(timestampLayout))
	fmt.Fprintf(w, "  Deadline: %s\n", check.Deadline.UTC().Format(timestampLayout))
	if check.Outcome == log.OutcomeScheduled {
		fmt.Fprintf(w, "  Delay: %s\n", formatDuration(check.Delay))
	}
}

func formatWriteDetails(w io.Writer, write *log.WriteEvent) {
	fmt.Fprintf(w, "  Value: %s\n", write.Value)
	fmt.Fprintf(w, "  Ack: %t\n", write.Ack)
	if write.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", write.Error)
	}
}

func formatErrorDetails(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Op: %s\n", e.Op)
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return d.Round(time.Millisecond).String()
	}
}
