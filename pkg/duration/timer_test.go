package duration

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerRemaining(t *testing.T) {
	timer := &Timer{
		Key:       "light.kitchen",
		StartTime: time.Now(),
		Delay:     60 * time.Second,
	}

	remaining := timer.RemainingTime()
	if remaining < 59*time.Second || remaining > 60*time.Second {
		t.Errorf("RemainingTime() = %v, expected ~60s", remaining)
	}
	if timer.ExpiresAt() != timer.StartTime.Add(timer.Delay) {
		t.Errorf("ExpiresAt() = %v", timer.ExpiresAt())
	}

	past := &Timer{StartTime: time.Now().Add(-2 * time.Second), Delay: time.Second}
	if past.RemainingTime() != 0 {
		t.Errorf("RemainingTime() = %v, want 0 for elapsed timer", past.RemainingTime())
	}
}

func TestManagerSchedule(t *testing.T) {
	m := NewManager()

	m.Schedule("a", 5*time.Second, func() {})

	assert.Equal(t, 1, m.Count())
	timer := m.Get("a")
	require.NotNil(t, timer)
	assert.Equal(t, "a", timer.Key)
	assert.Equal(t, 5*time.Second, timer.Delay)
	assert.Nil(t, m.Get("b"))

	m.CancelAll()
}

func TestManagerFiresOnce(t *testing.T) {
	m := NewManager()

	var calls atomic.Int32
	m.Schedule("a", 10*time.Millisecond, func() { calls.Add(1) })

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, m.Count(), "fired timer must be removed")
}

func TestManagerReplacement(t *testing.T) {
	m := NewManager()

	var first, second atomic.Int32
	m.Schedule("a", 20*time.Millisecond, func() { first.Add(1) })
	m.Schedule("a", 40*time.Millisecond, func() { second.Add(1) })

	assert.Equal(t, 1, m.Count())

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced timer must not fire")
}

func TestManagerCancel(t *testing.T) {
	m := NewManager()

	var calls atomic.Int32
	m.Schedule("a", 20*time.Millisecond, func() { calls.Add(1) })

	require.NoError(t, m.Cancel("a"))
	assert.Equal(t, 0, m.Count())
	assert.ErrorIs(t, m.Cancel("a"), ErrTimerNotFound)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestManagerCancelAll(t *testing.T) {
	m := NewManager()

	var calls atomic.Int32
	for _, key := range []string{"a", "b", "c"} {
		m.Schedule(key, 20*time.Millisecond, func() { calls.Add(1) })
	}

	assert.Equal(t, 3, m.CancelAll())
	assert.Equal(t, 0, m.Count())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestManagerKeysIndependent(t *testing.T) {
	m := NewManager()

	var mu sync.Mutex
	var fired []string
	record := func(key string) func() {
		return func() {
			mu.Lock()
			fired = append(fired, key)
			mu.Unlock()
		}
	}

	m.Schedule("a", 10*time.Millisecond, record("a"))
	m.Schedule("b", 60*time.Millisecond, record("b"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.Count())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"a", "b"}, fired)
	mu.Unlock()
}

// A timer released by the runtime while the locker is held must not run once
// it has been cancelled under that same lock.
func TestManagerStaleFiringSuppressed(t *testing.T) {
	var lock sync.Mutex
	m := NewManager(WithLocker(&lock))

	var calls atomic.Int32
	lock.Lock()
	m.Schedule("a", time.Millisecond, func() { calls.Add(1) })
	time.Sleep(20 * time.Millisecond) // callback is now blocked on lock
	require.NoError(t, m.Cancel("a"))
	lock.Unlock()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestManagerRescheduleFromCallback(t *testing.T) {
	var lock sync.Mutex
	m := NewManager(WithLocker(&lock))

	var calls atomic.Int32
	var fn func()
	fn = func() {
		if calls.Add(1) < 3 {
			m.Schedule("a", 5*time.Millisecond, fn)
		}
	}
	m.Schedule("a", 5*time.Millisecond, fn)

	assert.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)
}
