package domain

// Raw NeoWs feed types. Numeric-looking fields arrive as JSON strings
// (id, velocities, miss distances) and are coerced during normalization.

// FeedPage is one decoded response from the NeoWs feed endpoint.
type FeedPage struct {
	ElementCount     int                        `json:"element_count"`
	NearEarthObjects map[string][]RawNEORecord `json:"near_earth_objects"`
}

// RawNEORecord is one object entry inside a feed page.
type RawNEORecord struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	AbsoluteMagnitudeH *float64           `json:"absolute_magnitude_h"`
	EstimatedDiameter  *RawDiameter       `json:"estimated_diameter"`
	IsHazardous        bool               `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData  []RawCloseApproach `json:"close_approach_data"`
}

// RawDiameter holds the nested estimated_diameter block; only the
// kilometers bounds are extracted.
type RawDiameter struct {
	Kilometers RawDiameterBounds `json:"kilometers"`
}

// RawDiameterBounds is the min/max pair for one unit.
type RawDiameterBounds struct {
	Min float64 `json:"estimated_diameter_min"`
	Max float64 `json:"estimated_diameter_max"`
}

// RawCloseApproach is one close-approach entry of a feed object.
type RawCloseApproach struct {
	CloseApproachDate string          `json:"close_approach_date"`
	RelativeVelocity  RawVelocity     `json:"relative_velocity"`
	MissDistance      RawMissDistance `json:"miss_distance"`
	OrbitingBody      string          `json:"orbiting_body"`
}

// RawVelocity is the nested relative_velocity block.
type RawVelocity struct {
	KilometersPerHour string `json:"kilometers_per_hour"`
}

// RawMissDistance is the nested miss_distance block with three redundant
// encodings of the same distance.
type RawMissDistance struct {
	Astronomical string `json:"astronomical"`
	Kilometers   string `json:"kilometers"`
	Lunar        string `json:"lunar"`
}
