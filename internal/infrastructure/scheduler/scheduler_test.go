package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdv/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(config.SchedulerConfig{Timezone: "America/Sao_Paulo", JobTimeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func TestNew_InvalidTimezone(t *testing.T) {
	_, err := New(config.SchedulerConfig{Timezone: "Mars/Olympus"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAdd_Validation(t *testing.T) {
	s := newTestScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add("fiscal-sync", "*/5 * * * *", noop))
	assert.ErrorIs(t, s.Add("fiscal-sync", "@every 1m", noop), ErrDuplicateJob)
	assert.ErrorIs(t, s.Add("broken", "not a schedule", noop), ErrInvalidConfig)
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler(t)

	var calls atomic.Int32
	require.NoError(t, s.Add("bill-reminders", "0 8 * * *", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.RunNow("bill-reminders"))
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, s.RunNow("missing"), ErrJobNotFound)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "bill-reminders", status[0].Name)
	assert.Equal(t, int64(1), status[0].Runs)
	assert.NotNil(t, status[0].LastRun)
	assert.Empty(t, status[0].LastError)
}

func TestRunNow_RecordsErrorsAndPanics(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Add("failing", "@every 1h", func(context.Context) error {
		return errors.New("gateway down")
	}))
	require.NoError(t, s.Add("panicking", "@every 1h", func(context.Context) error {
		panic("nil map")
	}))

	assert.EqualError(t, s.RunNow("failing"), "gateway down")
	err := s.RunNow("panicking")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "gateway down", status[0].LastError)
	assert.Contains(t, status[1].LastError, "nil map")
}

func TestRunNow_SkipsWhileRunning(t *testing.T) {
	s := newTestScheduler(t)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Add("slow", "@every 1h", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow("slow"), ErrJobRunning)
	close(release)
	assert.NoError(t, <-done)
}

func TestStart_RunsScheduledJobs(t *testing.T) {
	s := newTestScheduler(t)

	var calls atomic.Int32
	require.NoError(t, s.Add("janitor", "@every 1s", func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	assert.NotNil(t, s.Status()[0].NextRun)
}

func TestStop_CancelsRunningJobs(t *testing.T) {
	s := newTestScheduler(t)

	cancelled := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Add("long", "@every 1h", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	require.NoError(t, s.Start(context.Background()))

	go func() { _ = s.RunNow("long") }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running job was not cancelled")
	}
}
