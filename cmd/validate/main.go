// Command validate performs integrity checks against a collected database:
// schema shape, object field sanity, approach event consistency, and the
// cross-table relationship between the two. Run it after a collection to
// confirm the stored data is analytically usable.
//
// Usage:
//
//	go run ./cmd/validate -db neo.db
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
)

const kmPerAU = 1.495978707e8

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dbPath := flag.String("db", "neo.db", "path to the collected SQLite database")
	maxErrors := flag.Int("max-errors", 20, "detailed errors printed per phase")
	flag.Parse()

	if code := run(*dbPath, *maxErrors); code != 0 {
		os.Exit(code)
	}
}

func run(dbPath string, maxErrors int) int {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open database: %v\n", err)
		return 1
	}
	defer db.Close() //nolint:errcheck

	fmt.Println("=== NEO Store Integrity Validation ===")
	fmt.Println()

	objects, err := loadObjects(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load objects: %v\n", err)
		return 1
	}
	events, err := loadEvents(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load approach events: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateObjects(objects),
		validateEvents(events),
		validateCrossTable(objects, events),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d objects, %d approach events\n", len(objects), len(events))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrors {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrors)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

type objectRow struct {
	ID          int
	Name        string
	Magnitude   float64
	DiameterMin float64
	DiameterMax float64
	Hazardous   bool
}

type eventRow struct {
	ObjectID     int
	Date         string
	VelocityKMPH float64
	AU           float64
	KM           float64
	Lunar        float64
	OrbitingBody string
}

func loadObjects(db *sql.DB) ([]objectRow, error) {
	rows, err := db.Query(`SELECT id, name, absolute_magnitude_h,
		estimated_diameter_min_km, estimated_diameter_max_km,
		is_potentially_hazardous_asteroid FROM objects`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []objectRow
	for rows.Next() {
		var o objectRow
		if err := rows.Scan(&o.ID, &o.Name, &o.Magnitude, &o.DiameterMin, &o.DiameterMax, &o.Hazardous); err != nil {
			return nil, err
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

func loadEvents(db *sql.DB) ([]eventRow, error) {
	rows, err := db.Query(`SELECT object_id, close_approach_date,
		relative_velocity_kmph, astronomical, miss_distance_km,
		miss_distance_lunar, orbiting_body FROM approach_events`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []eventRow
	for rows.Next() {
		var e eventRow
		if err := rows.Scan(&e.ObjectID, &e.Date, &e.VelocityKMPH, &e.AU, &e.KM, &e.Lunar, &e.OrbitingBody); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ── Validation phases ──

func validateObjects(objects []objectRow) *phase {
	p := &phase{name: "Object field sanity"}

	seen := make(map[int]int, len(objects))
	for _, o := range objects {
		seen[o.ID]++
		if o.Name == "" {
			p.errorf("object %d has an empty name", o.ID)
		}
		if o.DiameterMin < 0 || o.DiameterMax < 0 {
			p.errorf("object %d has a negative diameter bound", o.ID)
		}
		if o.DiameterMin > o.DiameterMax {
			p.errorf("object %d: diameter min %.4f exceeds max %.4f", o.ID, o.DiameterMin, o.DiameterMax)
		}
		if o.Magnitude < 0 || o.Magnitude > 40 {
			p.errorf("object %d has implausible magnitude %.2f", o.ID, o.Magnitude)
		}
	}
	for id, n := range seen {
		if n > 1 {
			p.errorf("object %d appears %d times; the database likely holds multiple collection runs", id, n)
		}
	}
	return p
}

func validateEvents(events []eventRow) *phase {
	p := &phase{name: "Approach event consistency"}

	for i, e := range events {
		if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
			p.errorf("event %d: unparseable close_approach_date %q", i, e.Date)
		}
		if e.VelocityKMPH <= 0 {
			p.errorf("event %d (object %d): non-positive velocity %.2f", i, e.ObjectID, e.VelocityKMPH)
		}
		if e.AU <= 0 {
			p.errorf("event %d (object %d): non-positive miss distance %.6f AU", i, e.ObjectID, e.AU)
		}
		// The three distance encodings must agree within rounding noise.
		if e.AU > 0 && math.Abs(e.KM/(e.AU*kmPerAU)-1) > 0.01 {
			p.errorf("event %d (object %d): km/AU mismatch (%.2f km vs %.6f AU)", i, e.ObjectID, e.KM, e.AU)
		}
		if e.OrbitingBody == "" {
			p.errorf("event %d (object %d): empty orbiting_body", i, e.ObjectID)
		}
	}
	return p
}

func validateCrossTable(objects []objectRow, events []eventRow) *phase {
	p := &phase{name: "Cross-table integrity"}

	if len(objects) == 0 {
		p.errorf("objects table is empty")
		return p
	}

	known := make(map[int]bool, len(objects))
	for _, o := range objects {
		known[o.ID] = true
	}

	orphans := 0
	for _, e := range events {
		if !known[e.ObjectID] {
			orphans++
			if orphans <= 5 {
				p.errorf("event references unknown object %d (date %s)", e.ObjectID, e.Date)
			}
		}
	}
	if orphans > 5 {
		p.errorf("... %d orphan events total", orphans)
	}
	return p
}
