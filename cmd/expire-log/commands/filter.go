package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/expire-adapter/expire-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	SessionID string
	KeyID     string
	TimeStart string
	TimeEnd   string
	Category  string
	Outcome   string
	DueBefore string
}

// ParseCategoryFlag parses a category name from the command line.
func ParseCategoryFlag(s string) (log.Category, error) {
	return log.ParseCategory(s)
}

// buildFilter converts command-line options to a reader filter.
func buildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{
		SessionID: opts.SessionID,
		KeyID:     opts.KeyID,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Category != "" {
		c, err := log.ParseCategory(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	if opts.Outcome != "" {
		o, err := parseOutcome(opts.Outcome)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Outcome = &o
	}

	if opts.DueBefore != "" {
		t, err := time.Parse(time.RFC3339, opts.DueBefore)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid due-before format: %w", err)
		}
		filter.DueBefore = &t
	}

	return filter, nil
}

func parseOutcome(s string) (log.Outcome, error) {
	switch strings.ToLower(s) {
	case "scheduled":
		return log.OutcomeScheduled, nil
	case "expired":
		return log.OutcomeExpired, nil
	default:
		return 0, fmt.Errorf("invalid outcome: %s (expected scheduled or expired)", s)
	}
}

// RunFilter copies the events matching opts to opts.Output and returns how
// many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := buildFilter(opts)
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	err = reader.Each(func(event log.Event) error {
		logger.Log(event)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to read event: %w", err)
	}

	if err := logger.Flush(); err != nil {
		return count, fmt.Errorf("failed to write output: %w", err)
	}
	return count, nil
}
