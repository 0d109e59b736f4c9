package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

// Table schemas. No primary or foreign keys are declared; referential
// integrity between the two tables is convention-only, maintained by the
// batch construction in the domain package. The store is append-only:
// re-running collection against an existing store produces duplicate rows.
const (
	schemaObjects = `
		CREATE TABLE IF NOT EXISTS objects (
			id INT,
			name TEXT,
			absolute_magnitude_h REAL,
			estimated_diameter_min_km REAL,
			estimated_diameter_max_km REAL,
			is_potentially_hazardous_asteroid BOOLEAN
		)`

	schemaApproachEvents = `
		CREATE TABLE IF NOT EXISTS approach_events (
			object_id INT,
			close_approach_date DATE,
			relative_velocity_kmph REAL,
			astronomical REAL,
			miss_distance_km REAL,
			miss_distance_lunar REAL,
			orbiting_body TEXT
		)`

	insertObject = `
		INSERT INTO objects (id, name, absolute_magnitude_h,
			estimated_diameter_min_km, estimated_diameter_max_km,
			is_potentially_hazardous_asteroid)
		VALUES (?, ?, ?, ?, ?, ?)`

	insertApproachEvent = `
		INSERT INTO approach_events (object_id, close_approach_date,
			relative_velocity_kmph, astronomical, miss_distance_km,
			miss_distance_lunar, orbiting_body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// Store writes collection batches and serves dashboard reads.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, logger: logger, metrics: metrics}
}

// Ping reports whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the two destination tables if absent. Idempotent;
// no migration of prior schema versions is attempted.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, schema := range []string{schemaObjects, schemaApproachEvents} {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	s.logger.Info("store schema ready")
	return nil
}

// InsertBatch flattens the batch and inserts every object row, then every
// approach-event row, each phase in its own committed transaction. A crash
// between phases leaves a partial batch; there is no all-or-nothing
// guarantee across the run, matching the collection model's append-only
// semantics. No upsert is attempted.
func (s *Store) InsertBatch(ctx context.Context, batch *domain.Batch) error {
	objects, events := batch.Flatten()
	began := time.Now()

	if err := s.insertObjects(ctx, objects); err != nil {
		return fmt.Errorf("insert objects: %w", err)
	}
	s.metrics.RowsInserted.WithLabelValues("objects").Add(float64(len(objects)))

	if err := s.insertEvents(ctx, events); err != nil {
		return fmt.Errorf("insert approach events: %w", err)
	}
	s.metrics.RowsInserted.WithLabelValues("approach_events").Add(float64(len(events)))

	s.metrics.InsertDuration.Observe(time.Since(began).Seconds())
	s.logger.Info("batch stored",
		"objects", len(objects),
		"approach_events", len(events),
		"collected_at", batch.CollectedAt,
	)
	return nil
}

func (s *Store) insertObjects(ctx context.Context, objects []domain.Asteroid) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertObject)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range objects {
		o := &objects[i]
		if _, err := stmt.ExecContext(ctx,
			o.ID, o.Name, o.AbsoluteMagnitudeH,
			o.EstimatedDiameterMinKM, o.EstimatedDiameterMaxKM,
			o.IsPotentiallyHazardous,
		); err != nil {
			return fmt.Errorf("object %d: %w", o.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) insertEvents(ctx context.Context, events []domain.ApproachEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertApproachEvent)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range events {
		e := &events[i]
		if _, err := stmt.ExecContext(ctx,
			e.ObjectID, e.CloseApproachDate.Format(time.DateOnly),
			e.RelativeVelocityKMPH, e.MissDistanceAU, e.MissDistanceKM,
			e.MissDistanceLunar, e.OrbitingBody,
		); err != nil {
			return fmt.Errorf("event for object %d: %w", e.ObjectID, err)
		}
	}
	return tx.Commit()
}
