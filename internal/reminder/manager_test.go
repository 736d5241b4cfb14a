package reminder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remindbot/internal/jobstore"
	"remindbot/internal/logger"
	"remindbot/internal/timeparse"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func newTestManager(t *testing.T) (*Manager, *jobstore.Store) {
	t.Helper()

	store, err := jobstore.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := NewManager(store, timeparse.New(time.UTC), testLogger(t))
	m.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
	return m, store
}

func testRecord(desc string) Record {
	return Record{
		UserID:      "u1",
		ChannelID:   "c1",
		GuildID:     "g1",
		Description: desc,
	}
}

func TestManager_Create(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	doc := m.Create(ctx, testRecord("water the plants"), "4 hours")

	assert.Equal(t, TitleCreated, doc.Title)
	assert.Equal(t, ColorCreated, doc.Color)
	assert.True(t, doc.Ephemeral)
	require.NotEmpty(t, doc.Fields)
	assert.Equal(t, "water the plants", doc.Fields[0].Value)

	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].NextRunAt)
	assert.True(t, jobs[0].NextRunAt.Equal(time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)))
}

func TestManager_Create_UnparseableTimeLeavesStoreEmpty(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	doc := m.Create(ctx, testRecord("water the plants"), "whenever you feel like it maybe")

	assert.Equal(t, TitleCreateFailed, doc.Title)
	assert.Equal(t, ColorError, doc.Color)
	assert.Empty(t, doc.Controls)

	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestManager_Create_RejectsBadRecord(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	doc := m.Create(ctx, testRecord("   "), "4 hours")
	assert.Equal(t, TitleCreateFailed, doc.Title)

	long := make([]rune, MaxDescriptionLength+1)
	for i := range long {
		long[i] = 'x'
	}
	doc = m.Create(ctx, testRecord(string(long)), "4 hours")
	assert.Equal(t, TitleCreateFailed, doc.Title)

	rec := testRecord("ok")
	rec.GuildID = ""
	doc = m.Create(ctx, rec, "4 hours")
	assert.Equal(t, TitleCreateFailed, doc.Title)

	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestManager_List_Empty(t *testing.T) {
	m, _ := newTestManager(t)

	doc, err := m.List(context.Background(), "u1", "g1", 0)
	require.NoError(t, err)

	assert.Equal(t, TitleListFailed, doc.Title)
	assert.Equal(t, ColorError, doc.Color)
	assert.Empty(t, doc.Controls)
}

func TestManager_List_Wraparound(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	m.Create(ctx, testRecord("first"), "1 hour")
	m.Create(ctx, testRecord("second"), "2 hours")

	doc, err := m.List(ctx, "u1", "g1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Reminder 1 of 2", doc.Title)
	assert.Equal(t, "first", doc.Fields[0].Value)
	assert.Equal(t, ColorListing, doc.Color)
	require.Len(t, doc.Controls, 2)

	// Next past the end wraps to the first
	doc, err = m.List(ctx, "u1", "g1", 2)
	require.NoError(t, err)
	assert.Equal(t, "Reminder 1 of 2", doc.Title)

	// Previous from the first wraps to the last
	doc, err = m.List(ctx, "u1", "g1", -1)
	require.NoError(t, err)
	assert.Equal(t, "Reminder 2 of 2", doc.Title)
	assert.Equal(t, "second", doc.Fields[0].Value)
}

func TestManager_List_ScopedToCaller(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	m.Create(ctx, testRecord("mine"), "1 hour")

	other := testRecord("theirs")
	other.UserID = "u2"
	m.Create(ctx, other, "1 hour")

	doc, err := m.List(ctx, "u1", "g1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Reminder 1 of 1", doc.Title)
	assert.Equal(t, "mine", doc.Fields[0].Value)
}

func TestManager_Delete(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	m.Create(ctx, testRecord("first"), "1 hour")
	m.Create(ctx, testRecord("second"), "2 hours")

	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	list, notice, err := m.Delete(ctx, "u1", "g1", jobs[1].ID, 0)
	require.NoError(t, err)

	require.NotNil(t, notice)
	assert.Equal(t, TitleDeleted, notice.Title)
	assert.Equal(t, ColorDeleted, notice.Color)

	require.NotNil(t, list)
	assert.Equal(t, "Reminder 1 of 1", list.Title)
	assert.Equal(t, "first", list.Fields[0].Value)
}

func TestManager_Delete_OtherUsersJobIsUntouched(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	other := testRecord("theirs")
	other.UserID = "u2"
	m.Create(ctx, other, "1 hour")

	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// A confirm control id naming someone else's job deletes nothing
	list, notice, err := m.Delete(ctx, "u1", "g1", jobs[0].ID, 0)
	require.NoError(t, err)

	assert.Nil(t, list)
	require.NotNil(t, notice)
	assert.Equal(t, TitleDeleteFailed, notice.Title)

	_, err = store.GetByID(ctx, jobs[0].ID)
	assert.NoError(t, err)
}

func TestManager_Delete_AlreadyGone(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	m.Create(ctx, testRecord("only"), "1 hour")
	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, _, err = m.Delete(ctx, "u1", "g1", jobs[0].ID, 0)
	require.NoError(t, err)

	// Second click on a stale Confirm button
	list, notice, err := m.Delete(ctx, "u1", "g1", jobs[0].ID, 0)
	require.NoError(t, err)

	assert.Nil(t, list)
	require.NotNil(t, notice)
	assert.Equal(t, TitleDeleteFailed, notice.Title)
	assert.Equal(t, ColorError, notice.Color)
}

func TestManager_Delete_LastReminder(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	m.Create(ctx, testRecord("only"), "1 hour")
	jobs, err := store.Query(ctx, jobstore.Filter{Kind: KindReminder})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	list, notice, err := m.Delete(ctx, "u1", "g1", jobs[0].ID, -1)
	require.NoError(t, err)

	require.NotNil(t, notice)
	assert.Equal(t, TitleDeleted, notice.Title)

	// The replacement listing is the empty-list document
	require.NotNil(t, list)
	assert.Equal(t, TitleListFailed, list.Title)
	assert.Empty(t, list.Controls)
}
