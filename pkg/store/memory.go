package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/expire-adapter/expire-go/pkg/model"
	"github.com/expire-adapter/expire-go/pkg/persistence"
)

// Option configures a store implementation.
type Option func(*options)

type options struct {
	now  func() time.Time
	from string
}

func defaultOptions() options {
	return options{now: time.Now, from: "system.adapter.expire"}
}

// WithClock overrides the clock used to stamp state writes.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithWriter sets the writer name recorded in State.From for SetState.
func WithWriter(from string) Option {
	return func(o *options) {
		o.from = from
	}
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*model.Object
	states  map[string]*model.State
	closed  bool

	opts       options
	dispatcher *Dispatcher
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		objects:    make(map[string]*model.Object),
		states:     make(map[string]*model.State),
		opts:       o,
		dispatcher: NewDispatcher(),
	}
}

// GetObject returns a copy of the object for id.
func (s *MemoryStore) GetObject(_ context.Context, id string) (*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	obj, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	return obj.Clone(), nil
}

// GetState returns a copy of the state for id.
func (s *MemoryStore) GetState(_ context.Context, id string) (*model.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	st, ok := s.states[id]
	if !ok {
		return nil, fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	return st.Clone(), nil
}

// SetState writes val, stamping ts with the store clock. lc only moves when
// the value changes.
func (s *MemoryStore) SetState(_ context.Context, id string, val any, ack bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	now := s.opts.now().UnixMilli()
	st := &model.State{Val: val, Ack: ack, TS: now, LC: now, From: s.opts.from}
	if prev, ok := s.states[id]; ok && reflect.DeepEqual(prev.Val, val) {
		st.LC = prev.LC
	}
	s.states[id] = st
	published := st.Clone()
	s.mu.Unlock()

	s.dispatcher.PublishState(id, published)
	return nil
}

// PutState stores a complete observation as given, including its timestamps.
func (s *MemoryStore) PutState(_ context.Context, id string, st *model.State) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.states[id] = st.Clone()
	s.mu.Unlock()

	s.dispatcher.PublishState(id, st.Clone())
	return nil
}

// SetObject creates or replaces an object definition.
func (s *MemoryStore) SetObject(_ context.Context, obj *model.Object) error {
	if obj == nil || obj.ID == "" {
		return ErrInvalidObject
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.objects[obj.ID] = obj.Clone()
	s.mu.Unlock()

	s.dispatcher.PublishObject(obj.ID, obj.Clone())
	return nil
}

// DeleteObject removes an object definition. Its state is kept.
func (s *MemoryStore) DeleteObject(_ context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	_, ok := s.objects[id]
	delete(s.objects, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("object %s: %w", id, ErrNotFound)
	}
	s.dispatcher.PublishObject(id, nil)
	return nil
}

// EnumerateWatchable returns the objects enabled for namespace.
func (s *MemoryStore) EnumerateWatchable(_ context.Context, namespace string) ([]*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var out []*model.Object
	for _, obj := range s.objects {
		if obj.EnabledFor(namespace) {
			out = append(out, obj.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Objects returns copies of all objects ordered by ID.
func (s *MemoryStore) Objects(_ context.Context) ([]*model.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]*model.Object, 0, len(s.objects))
	for _, obj := range s.objects {
		out = append(out, obj.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubscribeObjects registers h for object changes.
func (s *MemoryStore) SubscribeObjects(h ObjectHandler) func() {
	return s.dispatcher.SubscribeObjects(h)
}

// SubscribeStates registers h for state changes.
func (s *MemoryStore) SubscribeStates(h StateHandler) func() {
	return s.dispatcher.SubscribeStates(h)
}

// Flush waits until all notifications published so far have been delivered.
func (s *MemoryStore) Flush() {
	s.dispatcher.Flush()
}

// Snapshot captures objects and states for persistence.
func (s *MemoryStore) Snapshot() *persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &persistence.Snapshot{
		States: make(map[string]*model.State, len(s.states)),
	}
	for _, obj := range s.objects {
		snap.Objects = append(snap.Objects, obj.Clone())
	}
	sort.Slice(snap.Objects, func(i, j int) bool { return snap.Objects[i].ID < snap.Objects[j].ID })
	for id, st := range s.states {
		snap.States[id] = st.Clone()
	}
	return snap
}

// Restore replaces the store contents with snap without publishing
// notifications. Call it before anyone subscribes.
func (s *MemoryStore) Restore(snap *persistence.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects = make(map[string]*model.Object)
	s.states = make(map[string]*model.State)
	if snap == nil {
		return
	}
	for _, obj := range snap.Objects {
		if obj != nil && obj.ID != "" {
			s.objects[obj.ID] = obj.Clone()
		}
	}
	for id, st := range snap.States {
		if st != nil {
			s.states[id] = st.Clone()
		}
	}
}

// Close stops notification delivery. Later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.dispatcher.Close()
	return nil
}

// Compile-time interface satisfaction check.
var (
	_ Store = (*MemoryStore)(nil)
	_ Admin = (*MemoryStore)(nil)
)
