// Package expire implements the expiration engine.
//
// The engine watches values in an external store and forces a configured
// "expired" value onto any watched value that is not refreshed within its
// interval.
//
// # Configuration
//
// An object is watched when its custom block for the engine's namespace has
// enabled set to true. The block also carries the interval expression (see
// package duration), the expired value (state) and the acknowledgement flag
// of forced writes (ack, default false). The expired value is coerced once,
// at registration, to the object's value type; objects whose type is not
// boolean, number or string are rejected.
//
// # Decision
//
// For an observation (value, ts) the deadline is ts plus the interval. Past
// the deadline the key is expired and the expired value is written unless the
// store already holds it. Before the deadline a timer is installed for
// deadline - now + 1ms; when it fires the current state is read again and the
// decision repeats.
//
// # Key States
//
//	Unwatched --register--> Scheduled --deadline--> Expired
//	               ^            |  ^                   |
//	               |            +--+ state change      | state change
//	               |                                   v
//	               +---------- deregister -------- Scheduled
//
// A key whose re-read fails at timer time is Stalled: it stays registered
// but has no timer until the next object or state change.
//
// # Concurrency
//
// Every operation and every timer firing runs under one engine mutex, so at
// most one decision executes at a time. Cancelling or replacing a timer under
// that mutex guarantees the superseded callback never runs.
package expire
