package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/expire-adapter/expire-go/pkg/model"
)

// SQLiteStore is a Store persisted in a SQLite database.
// Notifications are published for writes made through this instance only.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	closed     bool
	opts       options
	dispatcher *Dispatcher
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		opts:       o,
		dispatcher: NewDispatcher(),
	}

	if err := s.migrate(); err != nil {
		s.dispatcher.Close()
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS objects (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL DEFAULT 'state',
		common_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS states (
		id TEXT PRIMARY KEY,
		val_json TEXT,
		ack INTEGER NOT NULL DEFAULT 0,
		ts INTEGER NOT NULL,
		lc INTEGER NOT NULL,
		from_name TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetObject returns the object definition for id.
func (s *SQLiteStore) GetObject(ctx context.Context, id string) (*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var objType, commonJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT type, common_json FROM objects WHERE id = ?`, id,
	).Scan(&objType, &commonJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return decodeObject(id, objType, commonJSON)
}

// GetState returns the current observation for id.
func (s *SQLiteStore) GetState(ctx context.Context, id string) (*model.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var valJSON, from sql.NullString
	st := &model.State{}
	err := s.db.QueryRowContext(ctx,
		`SELECT val_json, ack, ts, lc, from_name FROM states WHERE id = ?`, id,
	).Scan(&valJSON, &st.Ack, &st.TS, &st.LC, &from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if valJSON.Valid {
		if err := json.Unmarshal([]byte(valJSON.String), &st.Val); err != nil {
			return nil, fmt.Errorf("state %s: decode value: %w", id, err)
		}
	}
	if from.Valid {
		st.From = from.String
	}
	return st, nil
}

// SetState writes val, stamping ts with the store clock. lc only moves when
// the value changes.
func (s *SQLiteStore) SetState(ctx context.Context, id string, val any, ack bool) error {
	valJSON, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("state %s: encode value: %w", id, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	now := s.opts.now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO states (id, val_json, ack, ts, lc, from_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lc = CASE WHEN states.val_json IS excluded.val_json THEN states.lc ELSE excluded.lc END,
			val_json = excluded.val_json,
			ack = excluded.ack,
			ts = excluded.ts,
			from_name = excluded.from_name
	`, id, string(valJSON), ack, now, now, s.opts.from)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	st, err := s.GetState(ctx, id)
	if err != nil {
		return err
	}
	s.dispatcher.PublishState(id, st)
	return nil
}

// PutState stores a complete observation as given, including its timestamps.
func (s *SQLiteStore) PutState(ctx context.Context, id string, st *model.State) error {
	valJSON, err := json.Marshal(st.Val)
	if err != nil {
		return fmt.Errorf("state %s: encode value: %w", id, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO states (id, val_json, ack, ts, lc, from_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, string(valJSON), st.Ack, st.TS, st.LC, st.From)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.dispatcher.PublishState(id, st.Clone())
	return nil
}

// SetObject creates or replaces an object definition.
func (s *SQLiteStore) SetObject(ctx context.Context, obj *model.Object) error {
	if obj == nil || obj.ID == "" {
		return ErrInvalidObject
	}
	commonJSON, err := json.Marshal(obj.Common)
	if err != nil {
		return fmt.Errorf("object %s: encode: %w", obj.ID, err)
	}
	objType := obj.Type
	if objType == "" {
		objType = model.ObjectTypeState
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO objects (id, type, common_json) VALUES (?, ?, ?)
	`, obj.ID, objType, string(commonJSON))
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.dispatcher.PublishObject(obj.ID, obj.Clone())
	return nil
}

// DeleteObject removes an object definition. Its state is kept.
func (s *SQLiteStore) DeleteObject(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	s.dispatcher.PublishObject(id, nil)
	return nil
}

// EnumerateWatchable returns the objects enabled for namespace.
func (s *SQLiteStore) EnumerateWatchable(ctx context.Context, namespace string) ([]*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	return s.queryObjects(ctx, namespace)
}

// queryObjects loads objects ordered by ID, keeping only those enabled for
// namespace unless namespace is empty. s.mu must be held.
func (s *SQLiteStore) queryObjects(ctx context.Context, namespace string) ([]*model.Object, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, common_json FROM objects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Object
	for rows.Next() {
		var id, objType, commonJSON string
		if err := rows.Scan(&id, &objType, &commonJSON); err != nil {
			return nil, err
		}
		obj, err := decodeObject(id, objType, commonJSON)
		if err != nil {
			return nil, err
		}
		if namespace == "" || obj.EnabledFor(namespace) {
			out = append(out, obj)
		}
	}
	return out, rows.Err()
}

// Objects returns all object definitions ordered by ID.
func (s *SQLiteStore) Objects(ctx context.Context) ([]*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.queryObjects(ctx, "")
}

// SubscribeObjects registers h for object changes.
func (s *SQLiteStore) SubscribeObjects(h ObjectHandler) func() {
	return s.dispatcher.SubscribeObjects(h)
}

// SubscribeStates registers h for state changes.
func (s *SQLiteStore) SubscribeStates(h StateHandler) func() {
	return s.dispatcher.SubscribeStates(h)
}

// Flush waits until all notifications published so far have been delivered.
func (s *SQLiteStore) Flush() {
	s.dispatcher.Flush()
}

// Close stops notification delivery and closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.dispatcher.Close()
	return s.db.Close()
}

func decodeObject(id, objType, commonJSON string) (*model.Object, error) {
	obj := &model.Object{ID: id, Type: objType}
	if err := json.Unmarshal([]byte(commonJSON), &obj.Common); err != nil {
		return nil, fmt.Errorf("object %s: decode: %w", id, err)
	}
	return obj, nil
}

// Compile-time interface satisfaction check.
var (
	_ Store = (*SQLiteStore)(nil)
	_ Admin = (*SQLiteStore)(nil)
)
