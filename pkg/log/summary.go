package log

import (
	"sort"
	"time"
)

// KeySummary aggregates the trace of one watched key.
type KeySummary struct {
	Registrations int
	Rejections    int
	Scheduled     int
	Expired       int
	Forced        int
	Skipped       int
	FailedWrites  int
	Errors        int

	// LastEvent is the newest timestamp seen for the key.
	LastEvent time.Time

	// LastDeadline is the deadline of the newest check, zero if none.
	LastDeadline time.Time
	LastOutcome  Outcome
}

// Summary aggregates a whole trace.
type Summary struct {
	Total      int
	ByCategory map[Category]int
	Sessions   map[string]int
	Keys       map[string]*KeySummary
	Errors     int
	Start      time.Time
	End        time.Time
}

// NewSummary returns an empty Summary.
func NewSummary() *Summary {
	return &Summary{
		ByCategory: make(map[Category]int),
		Sessions:   make(map[string]int),
		Keys:       make(map[string]*KeySummary),
	}
}

// Summarize reads every remaining event from r into a Summary.
func Summarize(r *Reader) (*Summary, error) {
	s := NewSummary()
	if err := r.Each(func(event Event) error {
		s.Add(event)
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// KeyIDs returns the summarized keys in lexical order.
func (s *Summary) KeyIDs() []string {
	ids := make([]string, 0, len(s.Keys))
	for id := range s.Keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Add folds event into the summary.
func (s *Summary) Add(event Event) {
	s.Total++
	s.ByCategory[event.Category]++
	s.Sessions[event.SessionID]++

	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}
	if event.Error != nil {
		s.Errors++
	}

	if event.KeyID == "" {
		return
	}
	ks, ok := s.Keys[event.KeyID]
	if !ok {
		ks = &KeySummary{}
		s.Keys[event.KeyID] = ks
	}
	newest := !event.Timestamp.Before(ks.LastEvent)
	if newest {
		ks.LastEvent = event.Timestamp
	}

	switch {
	case event.Lifecycle != nil:
		switch event.Lifecycle.Kind {
		case LifecycleRegistered:
			ks.Registrations++
		case LifecycleRejected:
			ks.Rejections++
		}
	case event.Check != nil:
		if event.Check.Outcome == OutcomeExpired {
			ks.Expired++
		} else {
			ks.Scheduled++
		}
		if newest {
			ks.LastDeadline = event.Check.Deadline
			ks.LastOutcome = event.Check.Outcome
		}
	case event.Write != nil:
		switch {
		case event.Write.Skipped:
			ks.Skipped++
		case event.Write.Error != "":
			ks.FailedWrites++
		default:
			ks.Forced++
		}
	case event.Error != nil:
		ks.Errors++
	}
}
