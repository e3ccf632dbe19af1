package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/expire-adapter/expire-go/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}

func TestFilterByKey(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	count, err := RunFilter(path, FilterOptions{Output: out, KeyID: "light.kitchen"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 events, got %d", count)
	}

	events := readAll(t, out)
	if len(events) != 3 {
		t.Fatalf("expected 3 events in output, got %d", len(events))
	}
	for _, e := range events {
		if e.KeyID != "light.kitchen" {
			t.Errorf("unexpected key %s", e.KeyID)
		}
	}
}

func TestFilterByCategoryAndTime(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	count, err := RunFilter(path, FilterOptions{
		Output:    out,
		Category:  "lifecycle",
		TimeStart: "2026-03-02T09:00:00Z",
		TimeEnd:   "2026-03-02T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, nil)
	out := filepath.Join(t.TempDir(), "filtered.cbor")

	if _, err := RunFilter(path, FilterOptions{Output: out, TimeStart: "yesterday"}); err == nil {
		t.Error("expected error for invalid time-start")
	}
	if _, err := RunFilter(path, FilterOptions{Output: out, Category: "bogus"}); err == nil {
		t.Error("expected error for invalid category")
	}
}

func TestFilterCheckQueries(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	tests := []struct {
		name string
		opts FilterOptions
		want int
	}{
		{"Scheduled", FilterOptions{Outcome: "scheduled"}, 1},
		{"Expired", FilterOptions{Outcome: "EXPIRED"}, 0},
		{"DueBeforeLater", FilterOptions{DueBefore: "2026-03-02T10:00:01Z"}, 1},
		{"DueBeforeEarlier", FilterOptions{DueBefore: "2026-03-02T10:00:00Z"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Output = filepath.Join(t.TempDir(), "filtered.cbor")
			count, err := RunFilter(path, tt.opts)
			if err != nil {
				t.Fatalf("RunFilter failed: %v", err)
			}
			if count != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, count)
			}
		})
	}

	out := filepath.Join(t.TempDir(), "filtered.cbor")
	if _, err := RunFilter(path, FilterOptions{Output: out, Outcome: "late"}); err == nil {
		t.Error("expected error for invalid outcome")
	}
	if _, err := RunFilter(path, FilterOptions{Output: out, DueBefore: "soon"}); err == nil {
		t.Error("expected error for invalid due-before")
	}
}
