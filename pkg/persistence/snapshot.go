package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/expire-adapter/expire-go/pkg/model"
	"github.com/expire-adapter/expire-go/pkg/version"
)

// ErrUnsupportedVersion is returned when a snapshot's format version cannot
// be read by this build.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

var currentFormat = version.MustParse(version.SnapshotFormat)

// Snapshot contains the objects and states of a store.
type Snapshot struct {
	// Version is the snapshot format version ("major.minor").
	Version string `json:"version"`

	// SavedAt is when the snapshot was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Objects are the object definitions, ordered by ID.
	Objects []*model.Object `json:"objects,omitempty"`

	// States maps object IDs to their last observation.
	States map[string]*model.State `json:"states,omitempty"`
}

// SnapshotFile manages a snapshot stored as a JSON file.
type SnapshotFile struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotFile creates a snapshot file handle for path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

// Path returns the file path.
func (f *SnapshotFile) Path() string {
	return f.path
}

// Save writes the snapshot to disk. The file is replaced atomically.
func (f *SnapshotFile) Save(snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	snap.Version = version.SnapshotFormat
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Load reads the snapshot from disk.
// Returns nil, nil if the file doesn't exist (empty store).
func (f *SnapshotFile) Load() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	v, err := version.Parse(snap.Version)
	if err != nil || !currentFormat.Compatible(v) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, snap.Version)
	}

	return snap, nil
}

// Clear removes the snapshot file.
func (f *SnapshotFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
