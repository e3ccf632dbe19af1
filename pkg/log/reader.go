package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrTruncated is returned when a trace ends inside a record, which happens
// when the daemon is killed while flushing.
var ErrTruncated = errors.New("trace ends in a partial event")

// Filter selects trace events. Zero fields match everything.
type Filter struct {
	SessionID string
	KeyID     string
	Category  *Category

	// Outcome keeps only check events with this outcome.
	Outcome *Outcome

	// TimeStart and TimeEnd bound the event timestamp to [TimeStart, TimeEnd).
	TimeStart *time.Time
	TimeEnd   *time.Time

	// DueBefore keeps only check events whose deadline is before it.
	DueBefore *time.Time
}

// Matches reports whether event satisfies every criterion of f.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.KeyID != "" && event.KeyID != f.KeyID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.Outcome == nil && f.DueBefore == nil {
		return true
	}

	check := event.Check
	if check == nil {
		return false
	}
	if f.Outcome != nil && check.Outcome != *f.Outcome {
		return false
	}
	return f.DueBefore == nil || check.Deadline.Before(*f.DueBefore)
}

// Reader streams events from a trace file.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	filter Filter
	seq    int
}

// NewReader opens the trace at path for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens the trace at path, yielding only events that match
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, dec: newTraceDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the trace.
// Decode errors carry the 1-based position of the bad record.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("event %d: %w", r.seq+1, ErrTruncated)
		default:
			return Event{}, fmt.Errorf("event %d: %w", r.seq+1, err)
		}
		r.seq++

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Each calls fn for every remaining matching event. It stops at the first
// error from either the trace or fn.
func (r *Reader) Each(fn func(Event) error) error {
	for {
		event, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}

// Close closes the trace file.
func (r *Reader) Close() error {
	return r.file.Close()
}
