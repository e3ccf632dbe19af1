// Package log provides a structured event trace for the expiration engine.
//
// This package defines the Logger interface and Event types for capturing
// every registration, check and forced write the engine performs. It is
// separate from operational logging (slog): the trace is a complete
// machine-readable record for debugging and analysis.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: mirror events to slog
//	engine := expire.New(st, ns, expire.WithEventLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: write to binary file
//	fl, _ := log.NewFileLogger("/var/log/expire/events.elog")
//
//	// Both: use MultiLogger
//	log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events fall into four categories:
//   - Lifecycle: a key was registered, deregistered or rejected
//   - Check: a decision was taken (expired, scheduled, timer fired)
//   - Write: the expired value was forced into the store
//   - Error: a store read or other operation failed
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys. The
// expire-log CLI provides viewing, statistics and export.
//
// # Reading
//
// NewFilteredReader streams the events that match a Filter. Summarize folds a
// trace into per-key counts together with the last check deadline of each
// key:
//
//	r, _ := log.NewReader("events.elog")
//	defer r.Close()
//	s, _ := log.Summarize(r)
//	for _, id := range s.KeyIDs() { ... }
package log
