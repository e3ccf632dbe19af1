package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/expire-adapter/expire-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.cbor")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func sampleEvents(ts time.Time) []log.Event {
	return []log.Event{
		{
			Timestamp: ts,
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Category:  log.CategoryLifecycle,
			Namespace: "expire.0",
			KeyID:     "light.kitchen",
			Lifecycle: &log.LifecycleEvent{
				Kind:         log.LifecycleRegistered,
				Interval:     5 * time.Second,
				ValueType:    "boolean",
				ExpiredValue: "false",
			},
		},
		{
			Timestamp: ts.Add(time.Millisecond),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Category:  log.CategoryCheck,
			Namespace: "expire.0",
			KeyID:     "light.kitchen",
			Check: &log.CheckEvent{
				Trigger:    log.TriggerRegister,
				Outcome:    log.OutcomeScheduled,
				ObservedAt: ts.Add(-4950 * time.Millisecond),
				Deadline:   ts.Add(50 * time.Millisecond),
				Delay:      51 * time.Millisecond,
			},
		},
		{
			Timestamp: ts.Add(52 * time.Millisecond),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Category:  log.CategoryWrite,
			Namespace: "expire.0",
			KeyID:     "light.kitchen",
			Write:     &log.WriteEvent{Value: "false"},
		},
		{
			Timestamp: ts.Add(time.Second),
			SessionID: "5f0c1d2e-aaaa-bbbb-cccc-000000000001",
			Category:  log.CategoryError,
			Namespace: "expire.0",
			KeyID:     "sensor.door",
			Error:     &log.ErrorEventData{Op: "get_state", Message: "state sensor.door: not found"},
		},
	}
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456000, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	out := filepath.Join(t.TempDir(), "out.jsonl")
	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	var first Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first.KeyID != "light.kitchen" || first.Type != "REGISTERED" || first.Interval != "5s" {
		t.Errorf("unexpected first record: %+v", first)
	}

	var check Record
	if err := json.Unmarshal([]byte(lines[1]), &check); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if check.Trigger != "REGISTER" || check.Delay != "51ms" {
		t.Errorf("unexpected check record: %+v", check)
	}
}

func TestExportToYAML(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	out := filepath.Join(t.TempDir(), "out.yaml")
	if err := RunExport(path, "yaml", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var records []Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[2].Type != "FORCED" || records[2].Value != "false" {
		t.Errorf("unexpected write record: %+v", records[2])
	}
	if records[3].Op != "get_state" || records[3].Error == "" {
		t.Errorf("unexpected error record: %+v", records[3])
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 0, time.UTC)
	path := createTestLogFile(t, sampleEvents(ts))

	out := filepath.Join(t.TempDir(), "out.csv")
	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id,category") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[3], "WRITE,light.kitchen,FORCED") {
		t.Errorf("unexpected write row: %s", lines[3])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, nil)
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out"))
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestNewRecordRejected(t *testing.T) {
	r := NewRecord(log.Event{
		Category:  log.CategoryLifecycle,
		KeyID:     "x",
		Lifecycle: &log.LifecycleEvent{Kind: log.LifecycleRejected, Reason: "unsupported value type: json"},
	})
	if r.Type != "REJECTED" || r.Reason == "" || r.Interval != "" {
		t.Errorf("unexpected record: %+v", r)
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(r); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "interval") {
		t.Errorf("empty fields should be omitted: %s", buf.String())
	}
}
