package sqlite

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := OpenMemory(t)
	store := NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRecord(id int, hazardous bool, dates ...time.Time) domain.AsteroidRecord {
	rec := domain.AsteroidRecord{
		Asteroid: domain.Asteroid{
			ID:                     id,
			Name:                   "(2024 TEST)",
			AbsoluteMagnitudeH:     22.1,
			EstimatedDiameterMinKM: 0.05,
			EstimatedDiameterMaxKM: 0.12,
			IsPotentiallyHazardous: hazardous,
		},
	}
	for _, d := range dates {
		rec.Approaches = append(rec.Approaches, domain.ApproachEvent{
			ObjectID:             id,
			CloseApproachDate:    d,
			RelativeVelocityKMPH: 42000.5,
			MissDistanceAU:       0.1,
			MissDistanceKM:       14959787.07,
			MissDistanceLunar:    38.9,
			OrbitingBody:         "Earth",
		})
	}
	return rec
}

func testBatch(records ...domain.AsteroidRecord) *domain.Batch {
	b := domain.NewBatch()
	b.Append(records)
	return b
}

func countRows(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestStore_EnsureSchema_Idempotent(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()))
}

func TestStore_InsertBatch(t *testing.T) {
	store := testStore(t)

	batch := testBatch(
		testRecord(1, true, date(2024, time.January, 1), date(2024, time.January, 3)),
		testRecord(2, false, date(2024, time.January, 2)),
	)
	require.NoError(t, store.InsertBatch(context.Background(), batch))

	assert.Equal(t, 2, countRows(t, store, "objects"))
	assert.Equal(t, 3, countRows(t, store, "approach_events"))

	var name string
	var hazardous bool
	require.NoError(t, store.db.QueryRow(
		"SELECT name, is_potentially_hazardous_asteroid FROM objects WHERE id = ?", 1,
	).Scan(&name, &hazardous))
	assert.Equal(t, "(2024 TEST)", name)
	assert.True(t, hazardous)

	var storedDate string
	require.NoError(t, store.db.QueryRow(
		"SELECT close_approach_date FROM approach_events WHERE object_id = ? ORDER BY close_approach_date", 1,
	).Scan(&storedDate))
	assert.Equal(t, "2024-01-01", storedDate)
}

func TestStore_InsertBatch_RerunDuplicatesRows(t *testing.T) {
	store := testStore(t)
	batch := testBatch(testRecord(7, false, date(2024, time.February, 10)))

	require.NoError(t, store.InsertBatch(context.Background(), batch))
	require.NoError(t, store.InsertBatch(context.Background(), batch))

	// Append-only with no dedup: the second run doubles the row counts.
	assert.Equal(t, 2, countRows(t, store, "objects"))
	assert.Equal(t, 2, countRows(t, store, "approach_events"))
}

func TestStore_InsertBatch_Empty(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.InsertBatch(context.Background(), domain.NewBatch()))
	assert.Zero(t, countRows(t, store, "objects"))
}

func TestStore_InsertBatch_MissingSchema(t *testing.T) {
	db := OpenMemory(t)
	store := NewStore(db, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	err := store.InsertBatch(context.Background(), testBatch(testRecord(1, false)))
	require.Error(t, err)
}
