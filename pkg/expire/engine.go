package expire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expire-adapter/expire-go/pkg/duration"
	"github.com/expire-adapter/expire-go/pkg/log"
	"github.com/expire-adapter/expire-go/pkg/model"
	"github.com/expire-adapter/expire-go/pkg/store"
)

// Engine errors.
var (
	ErrNotWatched    = errors.New("key not watched")
	ErrEngineStopped = errors.New("engine stopped")
)

// timerMargin is added to every scheduled delay so the timer fires strictly
// after the deadline.
const timerMargin = time.Millisecond

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventLogger sets the event trace logger. Defaults to log.NoopLogger.
func WithEventLogger(events log.Logger) Option {
	return func(e *Engine) {
		e.events = events
	}
}

// WithClock sets the clock used for expiration decisions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSessionID overrides the generated event session ID.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// KeyStatus is a point-in-time view of a watched key.
type KeyStatus struct {
	ID           string
	Config       MonitorConfig
	State        KeyState
	Deadline     time.Time
	RegisteredAt time.Time

	// TimerPending is true when a timer is installed for the key.
	TimerPending bool

	// Remaining is the time until the pending timer fires.
	Remaining time.Duration
}

// Engine forces expired values onto watched keys.
type Engine struct {
	mu sync.Mutex

	store     store.Store
	namespace string
	registry  *Registry
	timers    *duration.Manager

	logger    *slog.Logger
	events    log.Logger
	now       func() time.Time
	sessionID string

	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe []func()
	started     bool
	stopped     bool
}

// New creates an engine serving namespace on top of st.
func New(st store.Store, namespace string, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		namespace: namespace,
		registry:  NewRegistry(),
		logger:    slog.Default(),
		events:    log.NoopLogger{},
		now:       time.Now,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.events == nil {
		e.events = log.NoopLogger{}
	}
	e.timers = duration.NewManager(duration.WithLocker(&e.mu))
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Namespace returns the namespace the engine serves.
func (e *Engine) Namespace() string {
	return e.namespace
}

// SessionID returns the ID stamped on trace events.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Start subscribes to store notifications and registers every object that
// already carries an enabled configuration. Calling Start twice is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	if e.started {
		return nil
	}
	e.started = true

	// Subscribe before enumerating so nothing between the two is missed.
	// Notifications queue up behind e.mu until seeding is done.
	e.unsubscribe = append(e.unsubscribe,
		e.store.SubscribeObjects(e.OnObjectChange),
		e.store.SubscribeStates(e.OnStateChange),
	)

	objs, err := e.store.EnumerateWatchable(ctx, e.namespace)
	if err != nil {
		e.logger.Error("Failed to enumerate watchable objects", "namespace", e.namespace, "error", err)
		e.logError("", "enumerate", err)
		return nil
	}
	for _, obj := range objs {
		_ = e.registerLocked(obj.ID, obj)
	}

	e.logger.Info("Expire engine started", "namespace", e.namespace, "watched", e.registry.Len())
	return nil
}

// Stop unsubscribes from the store and deregisters every key, cancelling all
// timers. No callback runs and no write is issued once Stop returns.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	e.stopped = true

	for _, unsub := range e.unsubscribe {
		unsub()
	}
	e.unsubscribe = nil

	for _, id := range e.registry.IDs() {
		e.deregisterLocked(id)
	}
	if n := e.timers.CancelAll(); n > 0 {
		e.debugLog("Stop: cancelled stray timers", "count", n)
	}
	e.cancel()

	e.logger.Info("Expire engine stopped", "namespace", e.namespace)
	return nil
}

// OnObjectChange handles a changed or deleted (nil) object. An enabled
// configuration is registered afresh; anything else deregisters the key.
func (e *Engine) OnObjectChange(id string, obj *model.Object) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	if obj != nil && obj.EnabledFor(e.namespace) {
		e.deregisterLocked(id)
		_ = e.registerLocked(id, obj)
		return
	}
	e.deregisterLocked(id)
}

// OnStateChange handles a fresh observation. Only watched keys whose new
// value differs from the expired value are rechecked.
func (e *Engine) OnStateChange(id string, st *model.State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped || st == nil {
		return
	}
	key := e.registry.get(id)
	if key == nil {
		return
	}
	if key.Config.ExpiredValue.Equal(st.Val) {
		e.debugLog("OnStateChange: value equals expired value", "id", id)
		return
	}
	e.processLocked(key, st, log.TriggerStateChange)
}

// Register watches id using the configuration carried by obj. It returns the
// reason when the configuration is rejected.
func (e *Engine) Register(id string, obj *model.Object) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	return e.registerLocked(id, obj)
}

// Deregister stops watching id. It is a no-op if id is not watched.
func (e *Engine) Deregister(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return ErrEngineStopped
	}
	e.deregisterLocked(id)
	return nil
}

// Lookup returns the configuration of a watched key.
func (e *Engine) Lookup(id string) (MonitorConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Lookup(id)
}

// Status returns the current view of a watched key.
func (e *Engine) Status(id string) (KeyStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := e.registry.get(id)
	if key == nil {
		return KeyStatus{}, fmt.Errorf("%s: %w", id, ErrNotWatched)
	}
	return e.statusLocked(key), nil
}

// Watched returns the status of every watched key, sorted by ID.
func (e *Engine) Watched() []KeyStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.registry.IDs()
	out := make([]KeyStatus, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.statusLocked(e.registry.get(id)))
	}
	return out
}

// PendingTimers returns the number of installed timers.
func (e *Engine) PendingTimers() int {
	return e.timers.Count()
}

func (e *Engine) statusLocked(key *WatchedKey) KeyStatus {
	status := KeyStatus{
		ID:           key.ID,
		Config:       key.Config,
		State:        key.State,
		Deadline:     key.Deadline,
		RegisteredAt: key.RegisteredAt,
	}
	if t := e.timers.Get(key.ID); t != nil {
		status.TimerPending = true
		status.Remaining = t.RemainingTime()
	}
	return status
}

// registerLocked parses the configuration, inserts the key and runs the
// initial check on a fresh read. e.mu must be held.
func (e *Engine) registerLocked(id string, obj *model.Object) error {
	cfg, err := ParseMonitorConfig(e.namespace, obj)
	if err != nil {
		e.logger.Warn("Cannot register expire for id", "id", id, "error", err)
		e.logEvent(id, log.Event{
			Category:  log.CategoryLifecycle,
			Lifecycle: &log.LifecycleEvent{Kind: log.LifecycleRejected, Reason: err.Error()},
		})
		return fmt.Errorf("register %s: %w", id, err)
	}

	// A stale timer from a previous registration must not survive.
	_ = e.timers.Cancel(id)
	key := e.registry.Put(id, cfg, e.now())

	e.logger.Info("Register expire for id", "id", id, "interval", cfg.Interval, "state", cfg.ExpiredValue.String(), "ack", cfg.Ack)
	e.logEvent(id, log.Event{
		Category: log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{
			Kind:         log.LifecycleRegistered,
			Interval:     cfg.Interval,
			ValueType:    cfg.ValueType().String(),
			ExpiredValue: cfg.ExpiredValue.String(),
			Ack:          cfg.Ack,
		},
	})

	st, err := e.store.GetState(e.ctx, id)
	if err != nil {
		e.logger.Error("Failed to get state for id", "id", id, "error", err)
		e.logError(id, "get_state", err)
		key.State = KeyStalled
		return nil
	}
	e.processLocked(key, st, log.TriggerRegister)
	return nil
}

// deregisterLocked removes id and cancels its timer. e.mu must be held.
func (e *Engine) deregisterLocked(id string) {
	_ = e.timers.Cancel(id)
	if !e.registry.Remove(id) {
		return
	}
	e.logger.Info("Deregister expire for id", "id", id)
	e.logEvent(id, log.Event{
		Category:  log.CategoryLifecycle,
		Lifecycle: &log.LifecycleEvent{Kind: log.LifecycleDeregistered},
	})
}

// processLocked runs the expiration decision for one observation.
// e.mu must be held.
func (e *Engine) processLocked(key *WatchedKey, st *model.State, trigger log.Trigger) {
	cfg := key.Config
	observed := st.Time()
	deadline := observed.Add(cfg.Interval)
	now := e.now()
	key.Deadline = deadline

	if now.After(deadline) {
		key.State = KeyExpired
		_ = e.timers.Cancel(key.ID)
		e.debugLog("processLocked: expired", "id", key.ID, "trigger", trigger, "deadline", deadline)
		e.logEvent(key.ID, log.Event{
			Category: log.CategoryCheck,
			Check: &log.CheckEvent{
				Trigger:    trigger,
				Outcome:    log.OutcomeExpired,
				ObservedAt: observed,
				Deadline:   deadline,
			},
		})
		e.setExpiredLocked(key, st)
		return
	}

	delay := deadline.Sub(now) + timerMargin
	key.State = KeyScheduled
	id := key.ID
	e.timers.Schedule(id, delay, func() { e.fire(id) })

	e.debugLog("processLocked: scheduled", "id", id, "trigger", trigger, "delay", delay)
	e.logEvent(id, log.Event{
		Category: log.CategoryCheck,
		Check: &log.CheckEvent{
			Trigger:    trigger,
			Outcome:    log.OutcomeScheduled,
			ObservedAt: observed,
			Deadline:   deadline,
			Delay:      delay,
		},
	})
}

// setExpiredLocked writes the expired value unless it is already present.
func (e *Engine) setExpiredLocked(key *WatchedKey, st *model.State) {
	cfg := key.Config
	text := cfg.ExpiredValue.String()

	if cfg.ExpiredValue.Equal(st.Val) {
		e.debugLog("setExpiredLocked: already expired", "id", key.ID, "value", text)
		e.logEvent(key.ID, log.Event{
			Category: log.CategoryWrite,
			Write:    &log.WriteEvent{Value: text, Ack: cfg.Ack, Skipped: true},
		})
		return
	}

	e.logger.Info("Set id to expired", "id", key.ID, "value", text, "ack", cfg.Ack)
	write := &log.WriteEvent{Value: text, Ack: cfg.Ack}
	if err := e.store.SetState(e.ctx, key.ID, cfg.ExpiredValue.Any(), cfg.Ack); err != nil {
		e.logger.Error("Failed to set expired value", "id", key.ID, "error", err)
		write.Error = err.Error()
	}
	e.logEvent(key.ID, log.Event{Category: log.CategoryWrite, Write: write})
}

// fire is the timer callback. The timer manager holds e.mu around it.
func (e *Engine) fire(id string) {
	if e.stopped {
		return
	}
	key := e.registry.get(id)
	if key == nil {
		return
	}

	st, err := e.store.GetState(e.ctx, id)
	if err != nil {
		// No retry: the key waits for the next object or state change.
		e.logger.Error("Failed to get state for id", "id", id, "error", err)
		e.logError(id, "get_state", err)
		key.State = KeyStalled
		return
	}
	e.processLocked(key, st, log.TriggerTimer)
}

func (e *Engine) logEvent(id string, event log.Event) {
	event.Timestamp = time.Now()
	event.SessionID = e.sessionID
	event.Namespace = e.namespace
	event.KeyID = id
	e.events.Log(event)
}

func (e *Engine) logError(id, op string, err error) {
	e.logEvent(id, log.Event{
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Op: op, Message: err.Error()},
	})
}

// debugLog logs a debug message.
func (e *Engine) debugLog(msg string, args ...any) {
	e.logger.Debug(msg, args...)
}
