package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NormalizeFeedPage flattens one feed page into ordered asteroid records,
// coercing the feed's string-encoded numerics. Page dates are visited in
// ascending calendar order, and feed list order is preserved within each
// date, so insertion order into the store is deterministic.
//
// Any missing required field or failed coercion fails the whole page; there
// is no partial extraction of a malformed record. A fetch that produced such
// a page violated the feed's data-shape contract and the run should abort.
func NormalizeFeedPage(page *FeedPage) ([]AsteroidRecord, error) {
	if page == nil || page.NearEarthObjects == nil {
		return nil, fmt.Errorf("normalize feed page: missing near_earth_objects")
	}

	dates := make([]string, 0, len(page.NearEarthObjects))
	for d := range page.NearEarthObjects {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var records []AsteroidRecord
	for _, date := range dates {
		for i := range page.NearEarthObjects[date] {
			rec, err := normalizeObject(&page.NearEarthObjects[date][i])
			if err != nil {
				return nil, fmt.Errorf("normalize feed page: date %s: %w", date, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func normalizeObject(raw *RawNEORecord) (AsteroidRecord, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw.ID))
	if err != nil {
		return AsteroidRecord{}, fmt.Errorf("object id %q: %w", raw.ID, err)
	}
	if raw.EstimatedDiameter == nil {
		return AsteroidRecord{}, fmt.Errorf("object %d: missing estimated_diameter", id)
	}

	// absolute_magnitude_h is occasionally absent upstream; it defaults to 0.
	var magnitude float64
	if raw.AbsoluteMagnitudeH != nil {
		magnitude = *raw.AbsoluteMagnitudeH
	}

	rec := AsteroidRecord{
		Asteroid: Asteroid{
			ID:                     id,
			Name:                   raw.Name,
			AbsoluteMagnitudeH:     magnitude,
			EstimatedDiameterMinKM: raw.EstimatedDiameter.Kilometers.Min,
			EstimatedDiameterMaxKM: raw.EstimatedDiameter.Kilometers.Max,
			IsPotentiallyHazardous: raw.IsHazardous,
		},
	}

	for j := range raw.CloseApproachData {
		event, err := normalizeApproach(id, &raw.CloseApproachData[j])
		if err != nil {
			return AsteroidRecord{}, fmt.Errorf("object %d: approach %d: %w", id, j, err)
		}
		rec.Approaches = append(rec.Approaches, event)
	}
	return rec, nil
}

func normalizeApproach(objectID int, raw *RawCloseApproach) (ApproachEvent, error) {
	date, err := time.ParseInLocation(time.DateOnly, raw.CloseApproachDate, time.UTC)
	if err != nil {
		return ApproachEvent{}, fmt.Errorf("close_approach_date %q: %w", raw.CloseApproachDate, err)
	}
	velocity, err := parseFeedFloat("relative_velocity.kilometers_per_hour", raw.RelativeVelocity.KilometersPerHour)
	if err != nil {
		return ApproachEvent{}, err
	}
	au, err := parseFeedFloat("miss_distance.astronomical", raw.MissDistance.Astronomical)
	if err != nil {
		return ApproachEvent{}, err
	}
	km, err := parseFeedFloat("miss_distance.kilometers", raw.MissDistance.Kilometers)
	if err != nil {
		return ApproachEvent{}, err
	}
	lunar, err := parseFeedFloat("miss_distance.lunar", raw.MissDistance.Lunar)
	if err != nil {
		return ApproachEvent{}, err
	}

	return ApproachEvent{
		ObjectID:             objectID,
		CloseApproachDate:    date,
		RelativeVelocityKMPH: velocity,
		MissDistanceAU:       au,
		MissDistanceKM:       km,
		MissDistanceLunar:    lunar,
		OrbitingBody:         raw.OrbitingBody,
	}, nil
}

// parseFeedFloat coerces one of the feed's string-encoded numeric fields.
// An empty string is a missing required field, not a zero.
func parseFeedFloat(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return v, nil
}
