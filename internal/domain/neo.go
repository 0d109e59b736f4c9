package domain

import (
	"time"
)

// Asteroid is one near-Earth object as stored in the objects table.
// IDs are assigned by the upstream catalog and are not unique across
// collection runs (the store is append-only, see [Batch]).
type Asteroid struct {
	ID                     int     `json:"id"`
	Name                   string  `json:"name"`
	AbsoluteMagnitudeH     float64 `json:"absolute_magnitude_h"`
	EstimatedDiameterMinKM float64 `json:"estimated_diameter_min_km"`
	EstimatedDiameterMaxKM float64 `json:"estimated_diameter_max_km"`
	IsPotentiallyHazardous bool    `json:"is_potentially_hazardous_asteroid"`
}

// ApproachEvent is one close-approach record as stored in the
// approach_events table. The three miss-distance fields are redundant
// encodings of the same physical quantity taken verbatim from the feed;
// no cross-unit validation is performed.
type ApproachEvent struct {
	ObjectID             int       `json:"object_id"`
	CloseApproachDate    time.Time `json:"close_approach_date"` // day granularity, UTC
	RelativeVelocityKMPH float64   `json:"relative_velocity_kmph"`
	MissDistanceAU       float64   `json:"astronomical"`
	MissDistanceKM       float64   `json:"miss_distance_km"`
	MissDistanceLunar    float64   `json:"miss_distance_lunar"`
	OrbitingBody         string    `json:"orbiting_body"`
}

// AsteroidRecord groups an asteroid with the approach events that came from
// the same feed record. Keeping events attached to their object means a batch
// truncated by object count stays referentially complete: dropping an object
// drops all of its events, never a positional slice of them.
type AsteroidRecord struct {
	Asteroid   Asteroid        `json:"asteroid"`
	Approaches []ApproachEvent `json:"approaches"`
}

// Batch is the output of one collection run. Records are ordered by feed date
// and then by the feed's own list order within each date.
type Batch struct {
	Records     []AsteroidRecord `json:"records"`
	CollectedAt time.Time        `json:"collected_at"`
}

// NewBatch stamps an empty batch with the current collection time.
func NewBatch() *Batch {
	return &Batch{CollectedAt: clock.Now().UTC()}
}

// Append adds records from one normalized feed page.
func (b *Batch) Append(records []AsteroidRecord) {
	b.Records = append(b.Records, records...)
}

// ObjectCount returns the number of object records accumulated so far.
func (b *Batch) ObjectCount() int { return len(b.Records) }

// EventCount returns the total number of approach events across all records.
func (b *Batch) EventCount() int {
	n := 0
	for i := range b.Records {
		n += len(b.Records[i].Approaches)
	}
	return n
}

// Truncate keeps the first n object records and every approach event they
// own. A no-op when the batch already holds n or fewer records.
func (b *Batch) Truncate(n int) {
	if n < 0 || n >= len(b.Records) {
		return
	}
	b.Records = b.Records[:n]
}

// Flatten splits the batch into the two flat relations the store writes.
// Every returned event references an asteroid in the returned object slice.
func (b *Batch) Flatten() ([]Asteroid, []ApproachEvent) {
	objects := make([]Asteroid, 0, len(b.Records))
	events := make([]ApproachEvent, 0, len(b.Records))
	for i := range b.Records {
		objects = append(objects, b.Records[i].Asteroid)
		events = append(events, b.Records[i].Approaches...)
	}
	return objects, events
}
