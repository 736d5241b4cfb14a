package jobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	UserID      string `json:"user_id"`
	GuildID     string `json:"guild_id"`
	Description string `json:"description"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CreateAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	// Insert out of fire-time order
	later, err := store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, now.Add(2*time.Hour))
	require.NoError(t, err)
	sooner, err := store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, now.Add(time.Hour))
	require.NoError(t, err)

	jobs, err := store.Query(ctx, Filter{Kind: "reminder"})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// Ordered by fire time ascending
	assert.Equal(t, sooner.ID, jobs[0].ID)
	assert.Equal(t, later.ID, jobs[1].ID)

	assert.Equal(t, StateScheduled, jobs[0].State)
	require.NotNil(t, jobs[0].NextRunAt)
	assert.Nil(t, jobs[0].LastRunAt)
	assert.JSONEq(t, `{"user_id":"u1","guild_id":"g1","description":""}`, string(jobs[0].Payload))
}

func TestStore_QueryScoping(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	runAt := time.Now().Add(time.Hour)

	_, err := store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, runAt)
	require.NoError(t, err)
	_, err = store.Create(ctx, "reminder", testPayload{UserID: "u2", GuildID: "g1"}, runAt)
	require.NoError(t, err)
	_, err = store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g2"}, runAt)
	require.NoError(t, err)
	_, err = store.Create(ctx, "other", testPayload{UserID: "u1", GuildID: "g1"}, runAt)
	require.NoError(t, err)

	jobs, err := store.Query(ctx, Filter{Kind: "reminder", UserID: "u1", GuildID: "g1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = store.Query(ctx, Filter{Kind: "reminder", UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = store.Query(ctx, Filter{Kind: "reminder", UserID: "u3", GuildID: "g1"})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestStore_CancelByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "reminder", testPayload{UserID: "u1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	n, err := store.CancelByID(ctx, job.ID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Cancelling again is not an error, just reports zero
	n, err = store.CancelByID(ctx, job.ID, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = store.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CancelByID_ScopedToOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// A valid id under someone else's identity deletes nothing
	n, err := store.CancelByID(ctx, job.ID, Filter{Kind: "reminder", UserID: "u2", GuildID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = store.GetByID(ctx, job.ID)
	require.NoError(t, err)

	n, err = store.CancelByID(ctx, job.ID, Filter{Kind: "reminder", UserID: "u1", GuildID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_CancelByFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	runAt := time.Now().Add(time.Hour)

	_, err := store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, runAt)
	require.NoError(t, err)
	_, err = store.Create(ctx, "reminder", testPayload{UserID: "u1", GuildID: "g1"}, runAt)
	require.NoError(t, err)
	keep, err := store.Create(ctx, "reminder", testPayload{UserID: "u2", GuildID: "g1"}, runAt)
	require.NoError(t, err)

	n, err := store.CancelByFilter(ctx, Filter{Kind: "reminder", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	jobs, err := store.Query(ctx, Filter{Kind: "reminder"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, keep.ID, jobs[0].ID)
}

func TestStore_MarkFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "reminder", testPayload{UserID: "u1"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, job.ID, "delivery blew up"))

	// Failed jobs are invisible to Query
	jobs, err := store.Query(ctx, Filter{Kind: "reminder"})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// But still inspectable by id
	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, "delivery blew up", got.FailReason)

	assert.ErrorIs(t, store.MarkFailed(ctx, uuid.New(), "nope"), ErrNotFound)
}

func TestStore_ClaimDue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	due, err := store.Create(ctx, "reminder", testPayload{UserID: "u1"}, now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = store.Create(ctx, "reminder", testPayload{UserID: "u1"}, now.Add(time.Hour))
	require.NoError(t, err)

	lease := 5 * time.Minute

	claimed, err := store.ClaimDue(ctx, now, lease)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)
	require.NotNil(t, claimed[0].LastRunAt)

	// Within the lease the claimed job is left alone, even though it is
	// still scheduled.
	claimed, err = store.ClaimDue(ctx, now.Add(time.Minute), lease)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	// Once the lease expires an unsettled job fires again
	claimed, err = store.ClaimDue(ctx, now.Add(lease+time.Second), lease)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, due.ID, claimed[0].ID)

	require.NoError(t, store.Delete(ctx, due.ID))
	claimed, err = store.ClaimDue(ctx, now.Add(2*lease), lease)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestStore_PurgeFailed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old, err := store.Create(ctx, "reminder", testPayload{UserID: "u1"}, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = store.ClaimDue(ctx, now.Add(-time.Hour), time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, old.ID, "boom"))

	live, err := store.Create(ctx, "reminder", testPayload{UserID: "u1"}, now.Add(time.Hour))
	require.NoError(t, err)

	n, err := store.PurgeFailed(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetByID(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Scheduled jobs are untouched
	_, err = store.GetByID(ctx, live.ID)
	assert.NoError(t, err)
}

func TestRegistry_SharesStorePerPath(t *testing.T) {
	log := testLogger(t)
	registry := NewRegistry(log)
	path := filepath.Join(t.TempDir(), "jobs.db")

	first, err := registry.Open(path)
	require.NoError(t, err)
	second, err := registry.Open(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.NoError(t, registry.CloseAll())
}
