package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/expire-adapter/expire-go/pkg/log"
)

// Record is the flat export form of an event.
type Record struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	SessionID string `json:"session_id" yaml:"session_id"`
	Category  string `json:"category" yaml:"category"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	KeyID     string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	Type      string `json:"type" yaml:"type"`

	Interval     string `json:"interval,omitempty" yaml:"interval,omitempty"`
	ValueType    string `json:"value_type,omitempty" yaml:"value_type,omitempty"`
	ExpiredValue string `json:"expired_value,omitempty" yaml:"expired_value,omitempty"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`

	Trigger  string `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Observed string `json:"observed,omitempty" yaml:"observed,omitempty"`
	Deadline string `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Delay    string `json:"delay,omitempty" yaml:"delay,omitempty"`

	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Ack   bool   `json:"ack,omitempty" yaml:"ack,omitempty"`

	Op    string `json:"op,omitempty" yaml:"op,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRecord flattens event.
func NewRecord(event log.Event) Record {
	r := Record{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		SessionID: event.SessionID,
		Category:  event.Category.String(),
		Namespace: event.Namespace,
		KeyID:     event.KeyID,
		Type:      eventLabel(event),
	}

	switch {
	case event.Lifecycle != nil:
		lc := event.Lifecycle
		if lc.Kind == log.LifecycleRegistered {
			r.Interval = lc.Interval.String()
			r.ValueType = lc.ValueType
			r.ExpiredValue = lc.ExpiredValue
			r.Ack = lc.Ack
		}
		r.Reason = lc.Reason
	case event.Check != nil:
		r.Trigger = event.Check.Trigger.String()
		r.Observed = event.Check.ObservedAt.UTC().Format(time.RFC3339Nano)
		r.Deadline = event.Check.Deadline.UTC().Format(time.RFC3339Nano)
		if event.Check.Delay > 0 {
			r.Delay = event.Check.Delay.String()
		}
	case event.Write != nil:
		r.Value = event.Write.Value
		r.Ack = event.Write.Ack
		r.Error = event.Write.Error
	case event.Error != nil:
		r.Op = event.Error.Op
		r.Error = event.Error.Message
	}
	return r
}

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	case "yaml":
		return exportYAML(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv, yaml)", format)
	}
}

// eachRecord calls fn for every event in reader.
func eachRecord(reader *log.Reader, fn func(Record) error) error {
	return reader.Each(func(event log.Event) error {
		return fn(NewRecord(event))
	})
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return eachRecord(reader, func(r Record) error {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

func exportYAML(reader *log.Reader, w io.Writer) error {
	var records []Record
	if err := eachRecord(reader, func(r Record) error {
		records = append(records, r)
		return nil
	}); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	return encoder.Close()
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "category", "key_id", "type", "trigger", "deadline", "value", "ack", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return eachRecord(reader, func(r Record) error {
		row := []string{
			r.Timestamp,
			r.SessionID,
			r.Category,
			r.KeyID,
			r.Type,
			r.Trigger,
			r.Deadline,
			r.Value,
			strconv.FormatBool(r.Ack),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
}
