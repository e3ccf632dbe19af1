// Package duration implements interval parsing and per-key timer management
// for the expiration engine.
//
// # Interval Expressions
//
// An interval is a numeric magnitude followed by optional unit letters drawn
// from d, h, m and s. Every letter that occurs multiplies the magnitude by its
// unit factor, so "1d" is one day, "90s" is ninety seconds and "10" (no letter)
// is ten seconds. Suffixes compose rather than select: "1hm" is 3600*60
// seconds. A magnitude that is not a number, is negative or is not finite is
// rejected.
//
// # Timer Lifecycle
//
// Timers are tracked per key. Scheduling a timer for a key replaces any
// pending timer for the same key; there is no stacking. A timer fires exactly
// once and is removed from the manager before its callback runs.
//
// # Supersession
//
// Each scheduled timer carries a generation number. If a timer has already
// been released by the runtime when it is cancelled or replaced, its callback
// observes the stale generation and returns without doing anything. Once
// Cancel, Schedule or CancelAll has returned, a superseded callback never runs.
//
// # Accuracy
//
// Timers are backed by time.AfterFunc. No sub-millisecond precision is
// promised.
package duration
