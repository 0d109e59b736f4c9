// Package dashboard serves the interactive query surface over the collected
// store: session-scoped filters, a filtered approach view, and a fixed
// catalog of analytical queries.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunardrift/neo-tracker/internal/adapter/sqlite"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

const cacheTTL = time.Minute

// Server is the dashboard HTTP API.
type Server struct {
	store    *sqlite.Store
	sessions *SessionStore
	cache    *queryCache
	rowLimit int

	httpServer *http.Server
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer wires the dashboard routes over an open store.
func NewServer(addr string, store *sqlite.Store, rowLimit, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		store:    store,
		sessions: NewSessionStore(),
		cache:    newQueryCache(cacheSize, cacheTTL),
		rowLimit: rowLimit,
		logger:   logger,
		metrics:  metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/filters", s.handleGetFilters)
		r.Put("/sessions/{id}/filters", s.handleUpdateFilters)

		r.Get("/approaches", s.handleApproaches)
		r.Post("/approaches", s.handleApproaches)

		r.Get("/queries", s.handleListQueries)
		r.Get("/queries/{name}", s.handleRunQuery)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the router, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	session := s.sessions.Create()
	s.logger.Info("session created", "session_id", session.ID)
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleGetFilters(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Filters)
}

func (s *Server) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	var filters FilterState
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := filters.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, err := s.sessions.UpdateFilters(chi.URLParam(r, "id"), filters)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Summary aggregates the filtered rows for the dashboard header metrics.
type Summary struct {
	TotalRecords    int     `json:"total_records"`
	HazardousCount  int     `json:"hazardous_count"`
	AvgVelocityKMPH float64 `json:"avg_velocity_kmph"`
	ClosestMissKM   float64 `json:"closest_miss_km"`
}

// ApproachesResponse is the filtered view plus its summary.
type ApproachesResponse struct {
	Filters FilterState          `json:"filters"`
	Summary Summary              `json:"summary"`
	Rows    []sqlite.ApproachRow `json:"rows"`
}

// handleApproaches resolves the filter state (request body > session >
// defaults) and runs the parameterized filter query.
func (s *Server) handleApproaches(w http.ResponseWriter, r *http.Request) {
	filters, ok := s.resolveFilters(w, r)
	if !ok {
		return
	}

	params, err := filters.Params(s.rowLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	began := time.Now()
	rows, err := s.store.FilterApproaches(r.Context(), params)
	s.metrics.DashboardQueryDuration.WithLabelValues("filter").Observe(time.Since(began).Seconds())
	if err != nil {
		s.metrics.DashboardQueries.WithLabelValues("filter", "error").Inc()
		s.logger.Error("filter query failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.DashboardQueries.WithLabelValues("filter", "success").Inc()

	writeJSON(w, http.StatusOK, ApproachesResponse{
		Filters: filters,
		Summary: summarize(rows),
		Rows:    rows,
	})
}

// resolveFilters builds the effective filter state: a POST body wins
// outright; otherwise the session's state (or defaults) is the base and any
// explicit query params override individual fields.
func (s *Server) resolveFilters(w http.ResponseWriter, r *http.Request) (FilterState, bool) {
	if r.Method == http.MethodPost {
		var filters FilterState
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return FilterState{}, false
		}
		return filters, true
	}

	filters := DefaultFilters()
	if id := r.URL.Query().Get("session"); id != "" {
		session, err := s.sessions.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return FilterState{}, false
		}
		filters = session.Filters
	}

	if err := applyQueryOverrides(&filters, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return FilterState{}, false
	}
	return filters, true
}

// applyQueryOverrides copies any recognized query params over the base state.
func applyQueryOverrides(filters *FilterState, q url.Values) error {
	stringFields := map[string]*string{
		"start_date": &filters.StartDate,
		"end_date":   &filters.EndDate,
		"hazardous":  &filters.Hazardous,
	}
	for name, field := range stringFields {
		if v := q.Get(name); v != "" {
			*field = v
		}
	}

	floatFields := map[string]*float64{
		"magnitude_min":     &filters.MagnitudeMin,
		"magnitude_max":     &filters.MagnitudeMax,
		"velocity_min":      &filters.VelocityMin,
		"velocity_max":      &filters.VelocityMax,
		"diameter_min_low":  &filters.DiameterMinLow,
		"diameter_min_high": &filters.DiameterMinHigh,
		"diameter_max_low":  &filters.DiameterMaxLow,
		"diameter_max_high": &filters.DiameterMaxHigh,
		"au_min":            &filters.AUMin,
		"au_max":            &filters.AUMax,
	}
	for name, field := range floatFields {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q", name, v)
		}
		*field = f
	}
	return nil
}

func summarize(rows []sqlite.ApproachRow) Summary {
	summary := Summary{TotalRecords: len(rows)}
	if len(rows) == 0 {
		return summary
	}

	var velocitySum float64
	closest := rows[0].MissDistanceKM
	for _, row := range rows {
		if row.Asteroid.IsPotentiallyHazardous {
			summary.HazardousCount++
		}
		velocitySum += row.VelocityKMPH
		if row.MissDistanceKM < closest {
			closest = row.MissDistanceKM
		}
	}
	summary.AvgVelocityKMPH = velocitySum / float64(len(rows))
	summary.ClosestMissKM = closest
	return summary
}

func (s *Server) handleListQueries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cannedQueries)
}

func (s *Server) handleRunQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query, ok := queryByName[name]
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown query "+name))
		return
	}

	if result, ok := s.cache.get(name); ok {
		s.metrics.QueryCache.WithLabelValues("hit").Inc()
		writeQueryResult(w, query, result)
		return
	}
	s.metrics.QueryCache.WithLabelValues("miss").Inc()

	began := time.Now()
	result, err := s.store.RunQuery(r.Context(), query.SQL)
	s.metrics.DashboardQueryDuration.WithLabelValues("canned").Observe(time.Since(began).Seconds())
	if err != nil {
		s.metrics.DashboardQueries.WithLabelValues("canned", "error").Inc()
		s.logger.Error("canned query failed", "query", name, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.DashboardQueries.WithLabelValues("canned", "success").Inc()

	s.cache.put(name, result)
	writeQueryResult(w, query, result)
}

func writeQueryResult(w http.ResponseWriter, query CannedQuery, result *sqlite.QueryResult) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    query.Name,
		"title":   query.Title,
		"columns": result.Columns,
		"rows":    result.Rows,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
