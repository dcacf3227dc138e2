package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelight/agent/internal/agent/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEvent(app, title string, ts time.Time) *models.StoredEvent {
	return &models.StoredEvent{
		ID:          uuid.NewString(),
		EventType:   models.EventTypeAppUsage,
		Timestamp:   ts,
		AppName:     app,
		WindowTitle: &title,
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	count, err := s.EventCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// The init migration seeds the idle threshold.
	v, err := s.GetSetting(ctx, "idle_threshold_seconds")
	require.NoError(t, err)
	assert.Equal(t, "300", v)
}

func TestInsertEvent_AndReadBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	e := testEvent("chrome.exe", "Google - Search", time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, s.InsertEvent(ctx, e))

	events, err := s.Events(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, models.EventTypeAppUsage, got.EventType)
	assert.Equal(t, "chrome.exe", got.AppName)
	require.NotNil(t, got.WindowTitle)
	assert.Equal(t, "Google - Search", *got.WindowTitle)
	assert.Equal(t, e.Timestamp, got.Timestamp)
	assert.False(t, got.Synced)
	assert.Zero(t, got.Duration)
}

func TestInsertEvent_NilWindowTitle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	e := &models.StoredEvent{
		ID:        uuid.NewString(),
		EventType: models.EventTypeAppUsage,
		Timestamp: time.Now().UTC(),
		AppName:   "background.exe",
	}
	require.NoError(t, s.InsertEvent(ctx, e))

	events, err := s.Events(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].WindowTitle)
}

func TestEvents_NewestFirstWithLimitOffset(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 10; i++ {
		e := testEvent(fmt.Sprintf("app%d", i), "w", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.InsertEvent(ctx, e))
	}

	events, err := s.Events(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "app9", events[0].AppName)
	assert.Equal(t, "app5", events[4].AppName)

	events, err = s.Events(ctx, 10, 8)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "app1", events[0].AppName)
	assert.Equal(t, "app0", events[1].AppName)
}

func TestUnsyncedEvents_OldestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 10; i++ {
		e := testEvent(fmt.Sprintf("app%d", i), "w", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.InsertEvent(ctx, e))
	}

	unsynced, err := s.UnsyncedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 10)
	for i, e := range unsynced {
		assert.Equal(t, fmt.Sprintf("app%d", i), e.AppName)
	}

	count, err := s.UnsyncedCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, count)
}

func TestMarkSynced(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	var ids []string
	for i := 0; i < 3; i++ {
		e := testEvent(fmt.Sprintf("app%d", i), "w", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.InsertEvent(ctx, e))
		ids = append(ids, e.ID)
	}

	require.NoError(t, s.MarkSynced(ctx, ids[:2]))

	unsynced, err := s.UnsyncedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, ids[2], unsynced[0].ID)
}

func TestMarkSynced_IdempotentAndTolerant(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	e := testEvent("app", "w", time.Now().UTC())
	require.NoError(t, s.InsertEvent(ctx, e))

	// Empty input is a no-op.
	require.NoError(t, s.MarkSynced(ctx, nil))

	// Unknown ids never error and never touch other rows.
	require.NoError(t, s.MarkSynced(ctx, []string{"no-such-id"}))
	count, err := s.UnsyncedCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// Marking twice leaves the synced set unchanged beyond the first call.
	require.NoError(t, s.MarkSynced(ctx, []string{e.ID}))
	require.NoError(t, s.MarkSynced(ctx, []string{e.ID}))
	count, err = s.UnsyncedCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSettings_UpsertAndMissing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	v, err := s.GetSetting(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting(ctx, "k", "v1"))
	require.NoError(t, s.SetSetting(ctx, "k", "v2"))

	v, err = s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}

func TestSyncState_LastSyncTime(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ts, err := s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, ts)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.UpdateSyncState(ctx, "last_sync_at", fmt.Sprintf("%d", now.UnixMilli())))

	ts, err = s.LastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, now, *ts)

	// Upsert overwrites.
	later := now.Add(time.Minute)
	require.NoError(t, s.UpdateSyncState(ctx, "last_sync_at", fmt.Sprintf("%d", later.UnixMilli())))
	ts, err = s.LastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.Equal(t, later, *ts)
}

func TestSpecialCharactersSurviveStorage(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	title := "Test 🌍 日本語 ~!@#$%^&*()"
	e := testEvent("app", title, time.Now().UTC())
	require.NoError(t, s.InsertEvent(ctx, e))

	events, err := s.Events(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].WindowTitle)
	assert.Equal(t, title, *events[0].WindowTitle)
}
