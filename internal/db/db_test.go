package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tailgate.report/internal/monitoring"
	"github.com/banshee-data/tailgate.report/internal/tailgate"
	"github.com/banshee-data/tailgate.report/internal/timeutil"
)

var epoch = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) (*DB, *timeutil.MockClock) {
	t.Helper()
	monitoring.SetLogger(nil)
	clock := timeutil.NewMockClock(epoch)
	db, err := NewDBWithClock(filepath.Join(t.TempDir(), "tailgate.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func car(x, z float64) tailgate.Detection {
	return tailgate.Detection{
		Class:    tailgate.ClassVehicle,
		Dims:     tailgate.BoxDims{Height: 1.5, Width: 1.6, Length: 3.9},
		Position: tailgate.Vec3{X: x, Y: 1.6, Z: z},
	}
}

func analyse(t *testing.T) *tailgate.Analysis {
	t.Helper()
	d, err := tailgate.NewDetector(tailgate.Options{LaneThreshold: 1})
	require.NoError(t, err)
	a, err := d.Run(context.Background(), tailgate.Catalogue{
		"000001": {car(0, 30), car(0, 5), car(0, 15)},
		"000002": {car(0, 5), car(4, 15)},
		"000003": {car(0, 9)},
	})
	require.NoError(t, err)
	return a
}

func TestPragmasApplied(t *testing.T) {
	db, _ := newTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout, foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 5000, busyTimeout)
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrations(t *testing.T) {
	db, _ := newTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp(), "already at latest")

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'analysis_runs'`).Scan(&n))
	assert.Zero(t, n)
}

func TestRecordAnalysisRoundTrip(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	a := analyse(t)

	runID, err := db.RecordAnalysis(ctx, a)
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{
		ID:               runID,
		CreatedAt:        epoch,
		LaneThreshold:    1,
		AngularThreshold: tailgate.DefaultAngularThreshold,
		Policy:           "adjacent",
		Images:           3,
	}, runs[0])

	for _, key := range a.ImageKeys() {
		want, _ := a.Parameters(key)
		got, err := db.RunParameters(ctx, runID, key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}

	images, err := db.RunImages(ctx, runID)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, ImageRow{Image: "000001", Vehicles: 3, Candidates: 2, Retained: 2}, images[0])
	assert.Equal(t, ImageRow{Image: "000002", Vehicles: 2, Candidates: 1, Retained: 0}, images[1])
	assert.True(t, images[2].Degenerate)
}

func TestRunParametersPartialRecord(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	runID, err := db.RecordAnalysis(ctx, analyse(t))
	require.NoError(t, err)

	params, err := db.RunParameters(ctx, runID, "000002")
	require.NoError(t, err)
	require.Len(t, params, 1)
	p := params[0]
	require.NotNil(t, p.Lane)
	assert.False(t, p.Lane.SameLane())
	assert.InDelta(t, 4, p.Lane.Distance, 1e-9)
	assert.Nil(t, p.Heading)
	assert.Nil(t, p.CurrentDistance)
	assert.Nil(t, p.MaxSpeedDifferenceKMH)

	empty, err := db.RunParameters(ctx, runID, "000003")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListRunsNewestFirst(t *testing.T) {
	db, clock := newTestDB(t)
	ctx := context.Background()
	a := analyse(t)

	first, err := db.RecordAnalysis(ctx, a)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := db.RecordAnalysis(ctx, a)
	require.NoError(t, err)

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
}

func TestUnknownRun(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.RunParameters(ctx, "missing", "000001")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = db.RunImages(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(db.DeleteRun(ctx, "missing"), ErrNotFound))
}

func TestDeleteRunCascades(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	runID, err := db.RecordAnalysis(ctx, analyse(t))
	require.NoError(t, err)

	require.NoError(t, db.DeleteRun(ctx, runID))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pair_parameters`).Scan(&n))
	assert.Zero(t, n)
	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
