package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postcardgo/pkg/db"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	return NewSQLiteStore(d)
}

func TestCache_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, hit := s.GetCache(ctx, "missing")
	assert.False(t, hit)

	require.NoError(t, s.SetCache(ctx, "tour:abc", []byte(`{"ready":true}`)))

	val, hit := s.GetCache(ctx, "tour:abc")
	require.True(t, hit)
	assert.Equal(t, []byte(`{"ready":true}`), val)

	// Upsert overwrites
	require.NoError(t, s.SetCache(ctx, "tour:abc", []byte(`{"ready":false}`)))
	val, hit = s.GetCache(ctx, "tour:abc")
	require.True(t, hit)
	assert.Equal(t, []byte(`{"ready":false}`), val)
}

func TestTourQueue_EnqueueListRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnqueueTour(ctx, &PendingTour{
		TourID:        "t1",
		Destination:   "Lisbon",
		Topic:         "old town",
		ExpectedStops: 4,
	}))
	// Duplicate enqueue is a no-op
	require.NoError(t, s.EnqueueTour(ctx, &PendingTour{TourID: "t1"}))

	tours, err := s.ListPendingTours(ctx)
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, "Lisbon", tours[0].Destination)
	assert.Equal(t, 4, tours[0].ExpectedStops)

	require.NoError(t, s.RemoveTour(ctx, "t1"))

	tours, err = s.ListPendingTours(ctx)
	require.NoError(t, err)
	assert.Empty(t, tours)
}

func TestRunStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, &RunRecord{
		ID:        "r1",
		TourID:    "t1",
		StopName:  "Old Town",
		Success:   true,
		VideoPath: "/tmp/out.mp4",
	}))
	require.NoError(t, s.SaveRun(ctx, &RunRecord{
		ID:       "r2",
		TourID:   "t1",
		StopName: "Harbor",
		Success:  false,
		Error:    "NoAssetsAvailable",
	}))

	runs, err := s.ListRunsByTour(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.True(t, runs[0].Success)
	assert.Equal(t, "/tmp/out.mp4", runs[0].VideoPath)
	assert.False(t, runs[1].Success)
	assert.Equal(t, "NoAssetsAvailable", runs[1].Error)
}
