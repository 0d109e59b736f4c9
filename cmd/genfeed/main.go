// Command genfeed generates deterministic mock NeoWs feed data for local
// development and test fixtures. It can write one feed page to a file or
// serve a feed endpoint compatible with the collector's client, so a full
// collection run works without touching the real NASA API.
//
// Usage:
//
//	go run ./cmd/genfeed -start 2024-01-01 -end 2024-01-07 -out testdata/feed_2024-01-01.json
//	go run ./cmd/genfeed -serve :9090
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/lunardrift/neo-tracker/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	start := flag.String("start", "2024-01-01", "window start date (YYYY-MM-DD)")
	end := flag.String("end", "2024-01-07", "window end date (YYYY-MM-DD)")
	out := flag.String("out", "", "output path for one feed page (JSON)")
	serve := flag.String("serve", "", "serve a mock feed endpoint on this address instead of writing a file")
	seed := flag.Int64("seed", 42, "random seed; the same seed always yields the same feed")
	perDay := flag.Int("per-day", 12, "objects generated per feed day")
	flag.Parse()

	if *serve != "" {
		return serveFeed(*serve, *seed, *perDay)
	}
	if *out == "" {
		flag.Usage()
		return fmt.Errorf("either -out or -serve is required")
	}

	startDate, endDate, err := parseWindow(*start, *end)
	if err != nil {
		return err
	}

	page := generatePage(startDate, endDate, *seed, *perDay)
	buf, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	if err := os.WriteFile(*out, buf, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	log.Printf("wrote %s: %d objects across %s..%s", *out, page.ElementCount, *start, *end)
	return nil
}

func parseWindow(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	endDate, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date precedes start date")
	}
	return startDate, endDate, nil
}

// serveFeed runs a minimal stand-in for the NeoWs feed endpoint. The page
// for a given window depends only on the seed and the window itself, so
// repeated fetches are consistent.
func serveFeed(addr string, seed int64, perDay int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /neo/rest/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		startDate, endDate, err := parseWindow(
			r.URL.Query().Get("start_date"),
			r.URL.Query().Get("end_date"),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		page := generatePage(startDate, endDate, seed, perDay)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page) //nolint:errcheck
	})

	log.Printf("serving mock feed on %s (seed=%d, per-day=%d)", addr, seed, perDay)
	log.Printf("point the collector at: NEO_FEED_URL=http://localhost%s/neo/rest/v1/feed", addr)
	return http.ListenAndServe(addr, mux)
}

func generatePage(start, end time.Time, seed int64, perDay int) *domain.FeedPage {
	page := &domain.FeedPage{NearEarthObjects: map[string][]domain.RawNEORecord{}}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		// Seed per day so a day's objects do not depend on the window shape.
		rng := rand.New(rand.NewSource(seed ^ day.Unix()))
		date := day.Format(time.DateOnly)

		records := make([]domain.RawNEORecord, 0, perDay)
		for i := 0; i < perDay; i++ {
			records = append(records, generateObject(rng, date))
		}
		page.NearEarthObjects[date] = records
		page.ElementCount += len(records)
	}
	return page
}

func generateObject(rng *rand.Rand, date string) domain.RawNEORecord {
	id := 2000000 + rng.Intn(2000000)
	year := 2000 + rng.Intn(26)
	designation := fmt.Sprintf("(%d %c%c%d)", year, 'A'+rune(rng.Intn(26)), 'A'+rune(rng.Intn(26)), rng.Intn(400))

	magnitude := 14 + rng.Float64()*18 // H 14..32, the observed feed range
	diameterMin := 0.001 + rng.Float64()*2
	diameterMax := diameterMin * (1.8 + rng.Float64()*0.6)
	hazardous := rng.Float64() < 0.1

	velocity := 1500 + rng.Float64()*170000 // km/h
	au := 0.0002 + rng.Float64()*0.499
	km := au * 1.495978707e8
	lunar := au * 389.17

	return domain.RawNEORecord{
		ID:                 strconv.Itoa(id),
		Name:               designation,
		AbsoluteMagnitudeH: &magnitude,
		EstimatedDiameter: &domain.RawDiameter{
			Kilometers: domain.RawDiameterBounds{Min: diameterMin, Max: diameterMax},
		},
		IsHazardous: hazardous,
		CloseApproachData: []domain.RawCloseApproach{{
			CloseApproachDate: date,
			RelativeVelocity: domain.RawVelocity{
				KilometersPerHour: strconv.FormatFloat(velocity, 'f', 10, 64),
			},
			MissDistance: domain.RawMissDistance{
				Astronomical: strconv.FormatFloat(au, 'f', 16, 64),
				Kilometers:   strconv.FormatFloat(km, 'f', 12, 64),
				Lunar:        strconv.FormatFloat(lunar, 'f', 13, 64),
			},
			OrbitingBody: "Earth",
		}},
	}
}
