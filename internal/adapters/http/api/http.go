// Package api serves the feature store over a read-only JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"

	repository "github.com/okian/grantfeat/internal/adapters/repository"
	"github.com/okian/grantfeat/internal/domain/model"
)

const defaultMaxLimit = 1000

// Dependencies required by HTTP handlers. repository.Store satisfies it.
type Dependencies interface {
	View(ctx context.Context, q repository.Query) (*model.FeatureTable, int, error)
	Lookup(ctx context.Context, applicationID string) (*model.FeatureTable, error)
	Count(ctx context.Context) int
}

// Server wires HTTP routes for the feature API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	applicationsHandler *ApplicationsHandler
}

// Option configures the Server.
type Option func(*Server)

// WithMaxLimit caps GET /applications?limit.
func WithMaxLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.applicationsHandler.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:       NewHealthHandler(deps),
		statsHandler:        NewStatsHandler(statsProvider),
		applicationsHandler: NewApplicationsHandler(deps, defaultMaxLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/applications", MetricsMiddleware(s.applicationsHandler.HandleList, "applications"))
	mux.HandleFunc("/applications/", MetricsMiddleware(s.applicationsHandler.HandleGet, "application"))
}

// applicationResponse is the JSON shape of one feature row. Features maps
// every numeric column to its value; NaN is null.
type applicationResponse struct {
	ApplicationID string              `json:"application_id"`
	Status        string              `json:"status,omitempty"`
	StartDate     string              `json:"start_date"`
	Features      map[string]*float64 `json:"features"`
}

type pageResponse struct {
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Items  []applicationResponse `json:"items"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toResponse(cols *model.FeatureTable, r model.ApplicationFeatureRow) applicationResponse {
	names := cols.NumericColumns()
	values := cols.Vector(r)
	features := make(map[string]*float64, len(names))
	for i, name := range names {
		if math.IsNaN(values[i]) {
			features[name] = nil
			continue
		}
		v := values[i]
		features[name] = &v
	}
	return applicationResponse{
		ApplicationID: r.ApplicationID,
		Status:        r.Status,
		StartDate:     r.StartDate,
		Features:      features,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound)
}
