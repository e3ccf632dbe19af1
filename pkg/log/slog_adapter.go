package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("category", event.Category.String()),
	}
	if event.KeyID != "" {
		attrs = append(attrs, slog.String("key", event.KeyID))
	}

	switch {
	case event.Lifecycle != nil:
		attrs = append(attrs, slog.String("kind", event.Lifecycle.Kind.String()))
		if event.Lifecycle.Kind == LifecycleRegistered {
			attrs = append(attrs,
				slog.Duration("interval", event.Lifecycle.Interval),
				slog.String("value_type", event.Lifecycle.ValueType),
				slog.String("expired_value", event.Lifecycle.ExpiredValue),
				slog.Bool("ack", event.Lifecycle.Ack),
			)
		}
		if event.Lifecycle.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Lifecycle.Reason))
		}
	case event.Check != nil:
		attrs = append(attrs,
			slog.String("trigger", event.Check.Trigger.String()),
			slog.String("outcome", event.Check.Outcome.String()),
			slog.Time("deadline", event.Check.Deadline),
		)
		if event.Check.Outcome == OutcomeScheduled {
			attrs = append(attrs, slog.Duration("delay", event.Check.Delay))
		}
	case event.Write != nil:
		attrs = append(attrs,
			slog.String("value", event.Write.Value),
			slog.Bool("ack", event.Write.Ack),
			slog.Bool("skipped", event.Write.Skipped),
		)
		if event.Write.Error != "" {
			attrs = append(attrs, slog.String("error", event.Write.Error))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("op", event.Error.Op),
			slog.String("error", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "expire event", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
