package dashboard

// CannedQuery is one entry of the fixed analytical catalog. The SQL is
// executed verbatim; nothing user-supplied is ever spliced into it.
type CannedQuery struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	SQL   string `json:"-"`
}

// cannedQueries is the dashboard's analytical catalog, ordered as presented.
var cannedQueries = []CannedQuery{
	{
		Name:  "approach-counts",
		Title: "Count of approaches per asteroid",
		SQL: `SELECT o.name, COUNT(*) AS approach_count
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			GROUP BY o.id, o.name
			ORDER BY approach_count DESC
			LIMIT 20`,
	},
	{
		Name:  "average-velocity",
		Title: "Average velocity per asteroid",
		SQL: `SELECT o.name, AVG(e.relative_velocity_kmph) AS avg_velocity
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			GROUP BY o.id, o.name
			ORDER BY avg_velocity DESC
			LIMIT 20`,
	},
	{
		Name:  "fastest-asteroids",
		Title: "Top 10 fastest asteroids",
		SQL: `SELECT o.name, MAX(e.relative_velocity_kmph) AS max_velocity
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			GROUP BY o.id, o.name
			ORDER BY max_velocity DESC
			LIMIT 10`,
	},
	{
		Name:  "hazardous-frequent",
		Title: "Hazardous asteroids with more than 3 approaches",
		SQL: `SELECT o.name, COUNT(*) AS approach_count
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			WHERE o.is_potentially_hazardous_asteroid = 1
			GROUP BY o.id, o.name
			HAVING COUNT(*) > 3
			ORDER BY approach_count DESC`,
	},
	{
		Name:  "busiest-months",
		Title: "Months with the most approaches",
		SQL: `SELECT strftime('%Y-%m', e.close_approach_date) AS month,
			COUNT(*) AS approach_count
			FROM approach_events e
			GROUP BY strftime('%Y-%m', e.close_approach_date)
			ORDER BY approach_count DESC
			LIMIT 10`,
	},
	{
		Name:  "fastest-approach",
		Title: "Fastest ever approach",
		SQL: `SELECT o.name, e.relative_velocity_kmph, e.close_approach_date
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			ORDER BY e.relative_velocity_kmph DESC
			LIMIT 1`,
	},
	{
		Name:  "largest-asteroids",
		Title: "Largest asteroids by estimated diameter",
		SQL: `SELECT name, estimated_diameter_max_km
			FROM objects
			ORDER BY estimated_diameter_max_km DESC
			LIMIT 20`,
	},
	{
		Name:  "most-approaches",
		Title: "Asteroid with the most approaches",
		SQL: `SELECT o.name, COUNT(*) AS approach_count
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			GROUP BY o.id, o.name
			ORDER BY approach_count DESC
			LIMIT 1`,
	},
	{
		Name:  "closest-approaches",
		Title: "Closest approach per asteroid",
		SQL: `SELECT o.name, e.close_approach_date,
			MIN(e.miss_distance_km) AS closest_distance
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			GROUP BY o.id, o.name
			ORDER BY closest_distance ASC
			LIMIT 20`,
	},
	{
		Name:  "high-velocity",
		Title: "Asteroids exceeding 50,000 km/h",
		SQL: `SELECT DISTINCT o.name
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			WHERE e.relative_velocity_kmph > 50000
			ORDER BY o.name`,
	},
	{
		Name:  "monthly-trend",
		Title: "Approaches per month",
		SQL: `SELECT strftime('%Y-%m', e.close_approach_date) AS month,
			COUNT(*) AS approach_count
			FROM approach_events e
			GROUP BY strftime('%Y-%m', e.close_approach_date)
			ORDER BY month`,
	},
	{
		Name:  "brightest-asteroids",
		Title: "Brightest asteroids (lowest absolute magnitude)",
		SQL: `SELECT name, absolute_magnitude_h
			FROM objects
			ORDER BY absolute_magnitude_h ASC
			LIMIT 10`,
	},
	{
		Name:  "hazard-breakdown",
		Title: "Hazardous vs non-hazardous count",
		SQL: `SELECT CASE
				WHEN is_potentially_hazardous_asteroid = 1 THEN 'Hazardous'
				ELSE 'Non-Hazardous'
			END AS hazard_status,
			COUNT(DISTINCT id) AS count
			FROM objects
			GROUP BY is_potentially_hazardous_asteroid`,
	},
	{
		Name:  "closer-than-moon",
		Title: "Approaches closer than the Moon (< 1 LD)",
		SQL: `SELECT o.name, e.close_approach_date, e.miss_distance_lunar
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			WHERE e.miss_distance_lunar < 1
			ORDER BY e.miss_distance_lunar ASC`,
	},
	{
		Name:  "within-au-threshold",
		Title: "Approaches within 0.05 AU",
		SQL: `SELECT o.name, e.close_approach_date, e.astronomical
			FROM objects o
			JOIN approach_events e ON o.id = e.object_id
			WHERE e.astronomical < 0.05
			ORDER BY e.astronomical ASC`,
	},
}

// queryByName indexes the catalog for handler lookups.
var queryByName = func() map[string]CannedQuery {
	m := make(map[string]CannedQuery, len(cannedQueries))
	for _, q := range cannedQueries {
		m[q.Name] = q
	}
	return m
}()
