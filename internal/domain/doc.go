// Package domain models near-Earth-object (NEO) close-approach data.
//
// # Data Source
//
// Records originate from the NASA NeoWs feed API
// (https://api.nasa.gov/neo/rest/v1/feed), queried in bounded date windows.
// A feed page groups objects under near_earth_objects by calendar date;
// each object carries catalog metadata plus a list of close-approach
// entries. The collector fetches pages, this package normalizes them, and
// the sqlite adapter persists the result.
//
// # Feed Conventions
//
// String-encoded numerics:
//
//	The feed serializes id, relative_velocity.kilometers_per_hour, and all
//	three miss_distance fields as JSON strings. Normalization coerces them
//	to int/float64 and treats an empty or unparseable value as a hard
//	failure for the whole page — a malformed page means the feed's
//	data-shape contract is broken, and partial extraction would hide it.
//
// Miss distance:
//
//	Reported three ways per event — astronomical units, kilometers, and
//	lunar distances (multiples of the mean Earth-Moon separation). They are
//	redundant encodings of the same quantity and are stored verbatim; no
//	cross-unit validation is performed.
//
// Absolute magnitude:
//
//	absolute_magnitude_h is occasionally absent upstream and defaults to 0.
//	All other object fields are required.
//
// Dates:
//
//	close_approach_date is day-granularity YYYY-MM-DD, parsed as UTC.
//	Page dates are visited in ascending calendar order during
//	normalization so store insertion order is deterministic.
//
// # Batch Semantics
//
// A collection run accumulates [AsteroidRecord] values — each asteroid
// grouped with its own approach events — into a [Batch]. Truncating a batch
// to the configured target count drops whole records, so the two flat
// relations produced by [Batch.Flatten] always remain referentially
// complete: every approach event references an object in the same batch.
// The store is append-only; re-running collection appends a fresh batch
// with no deduplication against prior runs.
package domain
