package model

import "time"

// State is one observation of a value in the external store.
type State struct {
	// Val is the observed value.
	Val any `json:"val" yaml:"val"`

	// Ack is true when the value was confirmed by its owner.
	Ack bool `json:"ack" yaml:"ack"`

	// TS is when the value was last written, in milliseconds since epoch.
	TS int64 `json:"ts" yaml:"ts"`

	// LC is when the value last changed, in milliseconds since epoch.
	LC int64 `json:"lc,omitempty" yaml:"lc,omitempty"`

	// From names the writer.
	From string `json:"from,omitempty" yaml:"from,omitempty"`
}

// Time returns TS as a time.Time.
func (s *State) Time() time.Time {
	return time.UnixMilli(s.TS)
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
