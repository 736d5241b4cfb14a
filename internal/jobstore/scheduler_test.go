package jobstore

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

// inlineDispatcher runs dispatched jobs synchronously, no pool involved.
type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(id string, run func(context.Context) error) {
	_ = run(context.Background())
}

// asyncDispatcher runs dispatched jobs on their own goroutine, like the pool.
type asyncDispatcher struct{}

func (asyncDispatcher) Dispatch(id string, run func(context.Context) error) {
	go func() { _ = run(context.Background()) }()
}

func TestScheduler_FiresDueJob(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	created, err := store.Create(ctx, "reminder", map[string]string{"user_id": "u1"}, time.Now().Add(-time.Second))
	require.NoError(t, err)

	fired := make(chan Job, 1)

	s := NewScheduler(store, testLogger(t), inlineDispatcher{}, SchedulerOptions{PollInterval: 10 * time.Millisecond})
	s.Define("reminder", func(ctx context.Context, job Job) error {
		fired <- job
		return store.Delete(ctx, job.ID)
	})

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	select {
	case job := <-fired:
		assert.Equal(t, created.ID, job.ID)
		require.NotNil(t, job.LastRunAt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}
}

func TestScheduler_UnknownKindLeftInStore(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	created, err := store.Create(ctx, "mystery", map[string]string{}, time.Now().Add(-time.Second))
	require.NoError(t, err)

	s := NewScheduler(store, testLogger(t), inlineDispatcher{}, SchedulerOptions{PollInterval: 10 * time.Millisecond})
	require.NoError(t, s.Start(ctx))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StateScheduled, got.State)
}

func TestScheduler_NoRefireWithinLease(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	created, err := store.Create(ctx, "reminder", map[string]string{"user_id": "u1"}, time.Now().Add(-time.Second))
	require.NoError(t, err)

	// Handler slower than several poll ticks
	var invocations atomic.Int32
	s := NewScheduler(store, testLogger(t), asyncDispatcher{}, SchedulerOptions{
		PollInterval: 20 * time.Millisecond,
		FiringLease:  time.Minute,
	})
	s.Define("reminder", func(ctx context.Context, job Job) error {
		invocations.Add(1)
		time.Sleep(150 * time.Millisecond)
		return store.Delete(ctx, job.ID)
	})

	require.NoError(t, s.Start(ctx))
	time.Sleep(400 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(1), invocations.Load())

	_, err = store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduler_StopWaitsForInFlightPoll(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Create(ctx, "reminder", map[string]string{"user_id": "u1"}, time.Now().Add(-time.Second))
	require.NoError(t, err)

	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})

	// Inline dispatcher, so the handler runs inside the poll goroutine
	s := NewScheduler(store, testLogger(t), inlineDispatcher{}, SchedulerOptions{PollInterval: 10 * time.Millisecond})
	s.Define("reminder", func(ctx context.Context, job Job) error {
		once.Do(func() { close(entered) })
		<-release
		return store.Delete(ctx, job.ID)
	})

	require.NoError(t, s.Start(ctx))
	<-entered

	stopped := make(chan struct{})
	go func() {
		assert.NoError(t, s.Stop())
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a fired job was still being handled")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never settled")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer store.Close()

	s := NewScheduler(store, testLogger(t), inlineDispatcher{}, SchedulerOptions{PollInterval: time.Minute})

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
}
