package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/lunardrift/neo-tracker/internal/domain"
)

// FilterParams bounds the joined approach view. Every field is bound as a
// SQL parameter; filter values never reach the query text itself.
type FilterParams struct {
	StartDate time.Time
	EndDate   time.Time

	MagnitudeMin float64
	MagnitudeMax float64

	VelocityMin float64
	VelocityMax float64

	DiameterMinLow  float64
	DiameterMinHigh float64
	DiameterMaxLow  float64
	DiameterMaxHigh float64

	AUMin float64
	AUMax float64

	// Hazardous is a tri-state: nil means both, otherwise match the flag.
	Hazardous *bool

	Limit int
}

// ApproachRow is one row of the filtered join between objects and
// approach_events.
type ApproachRow struct {
	Asteroid          domain.Asteroid `json:"asteroid"`
	CloseApproachDate string          `json:"close_approach_date"`
	VelocityKMPH      float64         `json:"relative_velocity_kmph"`
	MissDistanceAU    float64         `json:"astronomical"`
	MissDistanceKM    float64         `json:"miss_distance_km"`
}

const filterQuery = `
	SELECT DISTINCT o.id, o.name, o.absolute_magnitude_h,
	       o.estimated_diameter_min_km, o.estimated_diameter_max_km,
	       o.is_potentially_hazardous_asteroid, e.close_approach_date,
	       e.relative_velocity_kmph, e.astronomical, e.miss_distance_km
	FROM objects o
	JOIN approach_events e ON o.id = e.object_id
	WHERE e.close_approach_date BETWEEN ? AND ?
	  AND o.absolute_magnitude_h BETWEEN ? AND ?
	  AND e.relative_velocity_kmph BETWEEN ? AND ?
	  AND o.estimated_diameter_min_km BETWEEN ? AND ?
	  AND o.estimated_diameter_max_km BETWEEN ? AND ?
	  AND e.astronomical BETWEEN ? AND ?
	  AND (? OR o.is_potentially_hazardous_asteroid = ?)
	ORDER BY e.close_approach_date DESC
	LIMIT ?`

// FilterApproaches runs the parameterized filter over the joined tables.
func (s *Store) FilterApproaches(ctx context.Context, p FilterParams) ([]ApproachRow, error) {
	anyHazard := p.Hazardous == nil
	hazardValue := p.Hazardous != nil && *p.Hazardous

	rows, err := s.db.QueryContext(ctx, filterQuery,
		p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly),
		p.MagnitudeMin, p.MagnitudeMax,
		p.VelocityMin, p.VelocityMax,
		p.DiameterMinLow, p.DiameterMinHigh,
		p.DiameterMaxLow, p.DiameterMaxHigh,
		p.AUMin, p.AUMax,
		anyHazard, hazardValue,
		p.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("filter approaches: %w", err)
	}
	defer rows.Close()

	var result []ApproachRow
	for rows.Next() {
		var r ApproachRow
		if err := rows.Scan(
			&r.Asteroid.ID, &r.Asteroid.Name, &r.Asteroid.AbsoluteMagnitudeH,
			&r.Asteroid.EstimatedDiameterMinKM, &r.Asteroid.EstimatedDiameterMaxKM,
			&r.Asteroid.IsPotentiallyHazardous, &r.CloseApproachDate,
			&r.VelocityKMPH, &r.MissDistanceAU, &r.MissDistanceKM,
		); err != nil {
			return nil, fmt.Errorf("scan approach row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// QueryResult holds the columns and rows of one analytical query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// RunQuery executes one of the fixed analytical queries verbatim and returns
// its result generically. Only catalog SQL reaches this method; user input
// never does.
func (s *Store) RunQuery(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	result := &QueryResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan query row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}
