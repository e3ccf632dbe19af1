package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	path := writeEvents(t,
		Event{Timestamp: base, SessionID: "s1", Category: CategoryLifecycle, KeyID: "light.kitchen",
			Lifecycle: &LifecycleEvent{Kind: LifecycleRegistered}},
		Event{Timestamp: base.Add(time.Second), SessionID: "s1", Category: CategoryCheck, KeyID: "light.kitchen",
			Check: &CheckEvent{Outcome: OutcomeScheduled, Deadline: base.Add(5 * time.Second)}},
		Event{Timestamp: base.Add(6 * time.Second), SessionID: "s1", Category: CategoryCheck, KeyID: "light.kitchen",
			Check: &CheckEvent{Outcome: OutcomeExpired, Deadline: base.Add(5 * time.Second)}},
		Event{Timestamp: base.Add(6 * time.Second), SessionID: "s1", Category: CategoryWrite, KeyID: "light.kitchen",
			Write: &WriteEvent{Value: "false"}},
		Event{Timestamp: base.Add(7 * time.Second), SessionID: "s2", Category: CategoryError, KeyID: "door",
			Error: &ErrorEventData{Op: "get_state", Message: "boom"}},
		Event{Timestamp: base.Add(8 * time.Second), SessionID: "s2", Category: CategoryLifecycle, KeyID: "bad",
			Lifecycle: &LifecycleEvent{Kind: LifecycleRejected, Reason: "unsupported"}},
	)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	s, err := Summarize(r)
	require.NoError(t, err)

	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.ByCategory[CategoryCheck])
	assert.Len(t, s.Sessions, 2)
	assert.Equal(t, 1, s.Errors)
	assert.True(t, base.Equal(s.Start))
	assert.True(t, base.Add(8*time.Second).Equal(s.End))
	assert.Equal(t, []string{"bad", "door", "light.kitchen"}, s.KeyIDs())

	kitchen := s.Keys["light.kitchen"]
	require.NotNil(t, kitchen)
	assert.Equal(t, 1, kitchen.Registrations)
	assert.Equal(t, 1, kitchen.Scheduled)
	assert.Equal(t, 1, kitchen.Expired)
	assert.Equal(t, 1, kitchen.Forced)
	assert.Equal(t, OutcomeExpired, kitchen.LastOutcome)
	assert.True(t, base.Add(5*time.Second).Equal(kitchen.LastDeadline))

	assert.Equal(t, 1, s.Keys["door"].Errors)
	assert.Equal(t, 1, s.Keys["bad"].Rejections)
}

func TestSummarizeEmpty(t *testing.T) {
	r, err := NewReader(writeEvents(t))
	require.NoError(t, err)
	defer r.Close()

	s, err := Summarize(r)
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.KeyIDs())
	assert.True(t, s.Start.IsZero())
}
