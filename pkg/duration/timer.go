package duration

import (
	"errors"
	"sync"
	"time"
)

// Duration errors.
var (
	ErrTimerNotFound   = errors.New("timer not found")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Timer represents a pending delayed callback for one key.
type Timer struct {
	// Key identifies this timer
	Key string

	// StartTime is when the timer was scheduled
	StartTime time.Time

	// Delay is how long after StartTime the timer fires
	Delay time.Duration

	// generation distinguishes this timer from earlier ones for the same key
	generation uint64

	// timer is the Go timer driving the callback
	timer *time.Timer
}

// ExpiresAt returns when the timer will fire.
func (t *Timer) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Delay)
}

// RemainingTime returns time until the timer fires.
func (t *Timer) RemainingTime() time.Duration {
	remaining := t.Delay - time.Since(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker makes every timer firing hold l while its callback runs.
// Pass the lock that guards the caller's own state so that firings are
// serialized with everything else the caller does.
func WithLocker(l sync.Locker) Option {
	return func(m *Manager) {
		m.locker = l
	}
}

// Manager keeps at most one pending timer per key.
type Manager struct {
	mu sync.Mutex

	// Pending timers by key
	timers map[string]*Timer

	// Monotonic generation counter
	generation uint64

	// Held around callbacks (optional)
	locker sync.Locker
}

// NewManager creates a new timer manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		timers: make(map[string]*Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schedule installs a timer that calls fn after delay.
// Any pending timer for the same key is cancelled first.
func (m *Manager) Schedule(key string, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked(key)

	m.generation++
	gen := m.generation

	timer := &Timer{
		Key:        key,
		StartTime:  time.Now(),
		Delay:      delay,
		generation: gen,
	}
	timer.timer = time.AfterFunc(delay, func() {
		m.fire(key, gen, fn)
	})

	m.timers[key] = timer
}

// Cancel stops the pending timer for key without running its callback.
func (m *Manager) Cancel(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.stopLocked(key) {
		return ErrTimerNotFound
	}
	return nil
}

// CancelAll stops every pending timer and returns how many were cancelled.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.timers)
	for key := range m.timers {
		m.stopLocked(key)
	}
	return n
}

// Get returns a copy of the pending timer for key, or nil if none.
func (m *Manager) Get(key string) *Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	timer, exists := m.timers[key]
	if !exists {
		return nil
	}
	return &Timer{
		Key:       timer.Key,
		StartTime: timer.StartTime,
		Delay:     timer.Delay,
	}
}

// Count returns the number of pending timers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// stopLocked stops and forgets the timer for key. m.mu must be held.
func (m *Manager) stopLocked(key string) bool {
	timer, exists := m.timers[key]
	if !exists {
		return false
	}
	if timer.timer != nil {
		timer.timer.Stop()
	}
	delete(m.timers, key)
	return true
}

// fire runs fn if the timer identified by (key, gen) is still current.
func (m *Manager) fire(key string, gen uint64, fn func()) {
	if m.locker != nil {
		m.locker.Lock()
		defer m.locker.Unlock()
	}

	m.mu.Lock()
	timer, exists := m.timers[key]
	if !exists || timer.generation != gen {
		m.mu.Unlock()
		return
	}
	delete(m.timers, key)
	m.mu.Unlock()

	// Call outside m.mu so fn may schedule again
	fn()
}
