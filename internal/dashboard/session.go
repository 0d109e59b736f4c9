package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
)

// Hazard filter values accepted by FilterState.
const (
	HazardAll = "all"
	HazardYes = "yes"
	HazardNo  = "no"
)

// FilterState is the explicit per-session filter context. Every field has a
// default covering the collected data's observed range, so a fresh session
// matches everything.
type FilterState struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	MagnitudeMin float64 `json:"magnitude_min"`
	MagnitudeMax float64 `json:"magnitude_max"`

	VelocityMin float64 `json:"velocity_min"`
	VelocityMax float64 `json:"velocity_max"`

	DiameterMinLow  float64 `json:"diameter_min_low"`
	DiameterMinHigh float64 `json:"diameter_min_high"`
	DiameterMaxLow  float64 `json:"diameter_max_low"`
	DiameterMaxHigh float64 `json:"diameter_max_high"`

	AUMin float64 `json:"au_min"`
	AUMax float64 `json:"au_max"`

	Hazardous string `json:"hazardous"` // all | yes | no
}

// DefaultFilters returns the initial filter state for a new session.
func DefaultFilters() FilterState {
	return FilterState{
		StartDate:       "2024-01-01",
		EndDate:         "2025-04-13",
		MagnitudeMin:    13.8,
		MagnitudeMax:    32.61,
		VelocityMin:     1418.21,
		VelocityMax:     173071.83,
		DiameterMinLow:  0,
		DiameterMinHigh: 4.62,
		DiameterMaxLow:  0,
		DiameterMaxHigh: 10.33,
		AUMin:           0,
		AUMax:           0.5,
		Hazardous:       HazardAll,
	}
}

// Validate checks dates and the hazard tri-state.
func (f *FilterState) Validate() error {
	if _, err := time.Parse(time.DateOnly, f.StartDate); err != nil {
		return fmt.Errorf("invalid start_date %q", f.StartDate)
	}
	if _, err := time.Parse(time.DateOnly, f.EndDate); err != nil {
		return fmt.Errorf("invalid end_date %q", f.EndDate)
	}
	switch f.Hazardous {
	case HazardAll, HazardYes, HazardNo:
	default:
		return fmt.Errorf("invalid hazardous value %q", f.Hazardous)
	}
	return nil
}

// Params converts the state into bound store parameters.
func (f *FilterState) Params(limit int) (sqlite.FilterParams, error) {
	if err := f.Validate(); err != nil {
		return sqlite.FilterParams{}, err
	}
	start, _ := time.Parse(time.DateOnly, f.StartDate)
	end, _ := time.Parse(time.DateOnly, f.EndDate)

	p := sqlite.FilterParams{
		StartDate:       start,
		EndDate:         end,
		MagnitudeMin:    f.MagnitudeMin,
		MagnitudeMax:    f.MagnitudeMax,
		VelocityMin:     f.VelocityMin,
		VelocityMax:     f.VelocityMax,
		DiameterMinLow:  f.DiameterMinLow,
		DiameterMinHigh: f.DiameterMinHigh,
		DiameterMaxLow:  f.DiameterMaxLow,
		DiameterMaxHigh: f.DiameterMaxHigh,
		AUMin:           f.AUMin,
		AUMax:           f.AUMax,
		Limit:           limit,
	}
	switch f.Hazardous {
	case HazardYes:
		v := true
		p.Hazardous = &v
	case HazardNo:
		v := false
		p.Hazardous = &v
	}
	return p, nil
}

// Session carries one client's dashboard state between requests.
type Session struct {
	ID        string      `json:"id"`
	Filters   FilterState `json:"filters"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps sessions in memory. Sessions exist for the lifetime of
// the dashboard process; there is no persistence requirement.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Create makes a new session seeded with default filters.
func (s *SessionStore) Create() *Session {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Filters:   DefaultFilters(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns a copy of the session with the given id.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *session, nil
}

// UpdateFilters replaces a session's filter state.
func (s *SessionStore) UpdateFilters(id string, filters FilterState) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	session.Filters = filters
	session.UpdatedAt = time.Now().UTC()
	return *session, nil
}
