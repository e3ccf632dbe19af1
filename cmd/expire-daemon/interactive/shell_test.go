package interactive

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expire-adapter/expire-go/pkg/expire"
	"github.com/expire-adapter/expire-go/pkg/model"
	"github.com/expire-adapter/expire-go/pkg/store"
)

const testNamespace = "expire.0"

func newTestShell(t *testing.T) (*Shell, *store.MemoryStore, *expire.Engine, *bytes.Buffer) {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	e := expire.New(s, testNamespace, expire.WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })

	var out bytes.Buffer
	sh := newShell(s, testNamespace, &out)
	sh.SetEngine(e)
	return sh, s, e, &out
}

func TestShellWatchAndExpire(t *testing.T) {
	ctx := context.Background()
	sh, s, e, out := newTestShell(t)

	require.NoError(t, s.PutState(ctx, "light.kitchen", &model.State{
		Val: true,
		TS:  time.Now().Add(-time.Hour).UnixMilli(),
	}))
	s.Flush()

	assert.False(t, sh.Execute(ctx, "watch light.kitchen boolean 5s false ack"))
	assert.Contains(t, out.String(), "Watching light.kitchen")

	cfg, ok := e.Lookup("light.kitchen")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.True(t, cfg.Ack)

	st, err := s.GetState(ctx, "light.kitchen")
	require.NoError(t, err)
	assert.Equal(t, false, st.Val)
	assert.True(t, st.Ack)
}

func TestShellSetRearms(t *testing.T) {
	ctx := context.Background()
	sh, _, e, out := newTestShell(t)

	sh.Execute(ctx, "set sensor.temp 21.5")
	assert.Contains(t, out.String(), "sensor.temp = 21.5")

	sh.Execute(ctx, "watch sensor.temp number 1h -1")
	status, err := e.Status("sensor.temp")
	require.NoError(t, err)
	assert.Equal(t, expire.KeyScheduled, status.State)
	assert.Equal(t, float64(-1), status.Config.ExpiredValue.Any())

	out.Reset()
	sh.Execute(ctx, "status")
	assert.Contains(t, out.String(), "sensor.temp")
	assert.Contains(t, out.String(), "SCHEDULED")
	assert.Contains(t, out.String(), "fires in")
}

func TestShellUnwatchAndDelete(t *testing.T) {
	ctx := context.Background()
	sh, _, e, out := newTestShell(t)

	sh.Execute(ctx, "set door open")
	sh.Execute(ctx, "watch door string 1m closed")
	_, ok := e.Lookup("door")
	require.True(t, ok)

	sh.Execute(ctx, "unwatch door")
	_, ok = e.Lookup("door")
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Stopped watching door")

	out.Reset()
	sh.Execute(ctx, "list")
	assert.Contains(t, out.String(), "enabled=false")

	sh.Execute(ctx, "watch door string 1m closed")
	sh.Execute(ctx, "delete door")
	_, ok = e.Lookup("door")
	assert.False(t, ok)

	out.Reset()
	sh.Execute(ctx, "delete door")
	assert.Contains(t, out.String(), "Error:")
}

func TestShellRejectedWatch(t *testing.T) {
	ctx := context.Background()
	sh, _, e, out := newTestShell(t)

	sh.Execute(ctx, "watch blob json 5s x")
	assert.Contains(t, out.String(), "was not accepted")
	_, ok := e.Lookup("blob")
	assert.False(t, ok)
}

func TestShellGet(t *testing.T) {
	ctx := context.Background()
	sh, _, _, out := newTestShell(t)

	sh.Execute(ctx, "get missing")
	assert.Contains(t, out.String(), "Error:")

	out.Reset()
	sh.Execute(ctx, "set greeting hello world")
	sh.Execute(ctx, "get greeting")
	assert.Contains(t, out.String(), "greeting = hello world")
	assert.Contains(t, out.String(), "ack:  true")
}

func TestShellUsageAndQuit(t *testing.T) {
	ctx := context.Background()
	sh, _, _, out := newTestShell(t)

	assert.False(t, sh.Execute(ctx, "   "))
	assert.False(t, sh.Execute(ctx, "watch only-id"))
	assert.Contains(t, out.String(), "Usage: watch")

	assert.False(t, sh.Execute(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, sh.Execute(ctx, "quit"))
	assert.True(t, sh.Execute(ctx, "EXIT"))
}

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, true, parseLiteral("true"))
	assert.Equal(t, false, parseLiteral("false"))
	assert.Equal(t, float64(42), parseLiteral("42"))
	assert.Equal(t, "on", parseLiteral("on"))
	assert.True(t, isTruthy("ack"))
	assert.False(t, isTruthy("nope"))
}
