package log

import (
	"fmt"
	"strings"
	"time"
)

// Event represents one trace event emitted by the engine.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the engine instance (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"3,keyasint"`

	// Namespace is the adapter namespace the engine serves.
	Namespace string `cbor:"4,keyasint,omitempty"`

	// KeyID is the watched key the event concerns.
	KeyID string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Lifecycle *LifecycleEvent `cbor:"10,keyasint,omitempty"`
	Check     *CheckEvent     `cbor:"11,keyasint,omitempty"`
	Write     *WriteEvent     `cbor:"12,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"13,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLifecycle indicates a registration change.
	CategoryLifecycle Category = 0
	// CategoryCheck indicates an expiration decision.
	CategoryCheck Category = 1
	// CategoryWrite indicates a forced write.
	CategoryWrite Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryCheck:
		return "CHECK"
	case CategoryWrite:
		return "WRITE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "lifecycle":
		return CategoryLifecycle, nil
	case "check":
		return CategoryCheck, nil
	case "write":
		return CategoryWrite, nil
	case "error":
		return CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (expected lifecycle, check, write, or error)", s)
	}
}

// LifecycleEvent captures a change to the set of watched keys.
type LifecycleEvent struct {
	// Kind of change.
	Kind LifecycleKind `cbor:"1,keyasint"`

	// Interval is the configured expiration interval (registered only).
	Interval time.Duration `cbor:"2,keyasint,omitempty"`

	// ValueType is the value type tag (registered only).
	ValueType string `cbor:"3,keyasint,omitempty"`

	// ExpiredValue is the textual expired value (registered only).
	ExpiredValue string `cbor:"4,keyasint,omitempty"`

	// Ack is the acknowledgement flag of forced writes (registered only).
	Ack bool `cbor:"5,keyasint,omitempty"`

	// Reason explains a rejection.
	Reason string `cbor:"6,keyasint,omitempty"`
}

// LifecycleKind indicates what happened to a key.
type LifecycleKind uint8

const (
	// LifecycleRegistered indicates the key is now watched.
	LifecycleRegistered LifecycleKind = 0
	// LifecycleDeregistered indicates the key is no longer watched.
	LifecycleDeregistered LifecycleKind = 1
	// LifecycleRejected indicates a configuration was refused.
	LifecycleRejected LifecycleKind = 2
)

// String returns the lifecycle kind name.
func (k LifecycleKind) String() string {
	switch k {
	case LifecycleRegistered:
		return "REGISTERED"
	case LifecycleDeregistered:
		return "DEREGISTERED"
	case LifecycleRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// CheckEvent captures one expiration decision.
type CheckEvent struct {
	// Trigger is what caused the check.
	Trigger Trigger `cbor:"1,keyasint"`

	// Outcome of the decision.
	Outcome Outcome `cbor:"2,keyasint"`

	// ObservedAt is the timestamp of the observation the decision used.
	ObservedAt time.Time `cbor:"3,keyasint"`

	// Deadline is ObservedAt plus the configured interval.
	Deadline time.Time `cbor:"4,keyasint"`

	// Delay is the scheduled timer delay (scheduled only).
	Delay time.Duration `cbor:"5,keyasint,omitempty"`
}

// Trigger indicates what caused a check.
type Trigger uint8

const (
	// TriggerRegister indicates the check following registration.
	TriggerRegister Trigger = 0
	// TriggerStateChange indicates a fresh observation from the store.
	TriggerStateChange Trigger = 1
	// TriggerTimer indicates a timer firing.
	TriggerTimer Trigger = 2
)

// String returns the trigger name.
func (t Trigger) String() string {
	switch t {
	case TriggerRegister:
		return "REGISTER"
	case TriggerStateChange:
		return "STATE_CHANGE"
	case TriggerTimer:
		return "TIMER"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the result of an expiration decision.
type Outcome uint8

const (
	// OutcomeScheduled indicates the value is fresh and a timer was installed.
	OutcomeScheduled Outcome = 0
	// OutcomeExpired indicates the deadline has passed.
	OutcomeExpired Outcome = 1
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeScheduled:
		return "SCHEDULED"
	case OutcomeExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// WriteEvent captures a forced write of the expired value.
type WriteEvent struct {
	// Value is the textual value written.
	Value string `cbor:"1,keyasint"`

	// Ack is the acknowledgement flag of the write.
	Ack bool `cbor:"2,keyasint,omitempty"`

	// Skipped is true when the stored value already equalled Value.
	Skipped bool `cbor:"3,keyasint,omitempty"`

	// Error is the store error, if the write failed.
	Error string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures a failed operation.
type ErrorEventData struct {
	// Op is the operation that failed (e.g. "get_state").
	Op string `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`
}
