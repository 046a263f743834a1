// Package service runs the grant feature pipeline: it reshapes the raw wide
// table, builds the feature table and publishes it to the feature store.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/grantfeat/internal/adapters/repository"
	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/features"
	"github.com/okian/grantfeat/internal/domain/model"
	"github.com/okian/grantfeat/internal/domain/reshape"
	"github.com/okian/grantfeat/internal/domain/schema"
	"github.com/okian/grantfeat/internal/domain/table"
	"github.com/okian/grantfeat/pkg/logger"
	"github.com/okian/grantfeat/pkg/metrics"
)

// Stage names used in logs and metrics.
const (
	StageUnpivot  = "unpivot"
	StageFeatures = "features"
	StageStore    = "store"
)

const component = "service"

// Result describes one pipeline run.
type Result struct {
	RunID    string
	Reshape  reshape.Stats
	Report   features.Report
	Features *model.FeatureTable
	Duration time.Duration
}

// Service orchestrates the pipeline stages.
type Service struct {
	mu sync.RWMutex

	layout   schema.Layout
	join     features.JoinPolicy
	codeOpts []aggregate.CodeOption
	store    repository.Store

	runs     int
	failures int
	last     *Result

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLayout overrides the wide table layout.
func WithLayout(l schema.Layout) Option {
	return func(s *Service) {
		if len(l.Shared) > 0 && len(l.Block) > 0 {
			s.layout = l
		}
	}
}

// WithJoinPolicy sets how applications missing from an aggregate are handled.
func WithJoinPolicy(p features.JoinPolicy) Option {
	return func(s *Service) {
		s.join = p
	}
}

// WithCodeOptions configures both RFCD and SEO aggregators.
func WithCodeOptions(opts ...aggregate.CodeOption) Option {
	return func(s *Service) {
		s.codeOpts = append(s.codeOpts, opts...)
	}
}

// WithStore sets the feature store that receives each run's table.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		layout: schema.DefaultLayout(),
		join:   features.JoinInner,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Store returns the feature store the service publishes to.
func (s *Service) Store() repository.Store {
	return s.store
}

// Run executes every stage over raw and replaces the store contents with the
// resulting feature table. The store is left untouched when any stage fails.
func (s *Service) Run(ctx context.Context, raw *table.Table) (Result, error) {
	if s.logger == nil {
		s.logger = logger.Get()
	}
	res := Result{RunID: uuid.NewString()}
	log := s.logger.Named("pipeline")
	start := time.Now()

	log.Info(ctx, "pipeline run started",
		logger.String("run_id", res.RunID),
		logger.Int("rows", raw.Len()),
		logger.Int("columns", raw.Width()),
	)
	metrics.UpdateRows("raw", raw.Len())

	fail := func(stage string, err error) (Result, error) {
		kind := errorType(err)
		metrics.RecordErrorByComponent(component, kind)
		metrics.RecordRun("failure")
		log.Error(ctx, "pipeline run failed",
			logger.String("run_id", res.RunID),
			logger.String("stage", stage),
			logger.String("error_type", kind),
			logger.Error(err),
		)
		s.mu.Lock()
		s.runs++
		s.failures++
		s.mu.Unlock()
		return res, fmt.Errorf("%s: %w", stage, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageUnpivot, err)
	}
	t0 := time.Now()
	researchers, stats, err := reshape.Unpivot(raw, s.layout)
	if err != nil {
		return fail(StageUnpivot, err)
	}
	observe(StageUnpivot, t0)
	res.Reshape = stats
	metrics.UpdateRows(StageUnpivot, researchers.Len())
	metrics.RecordDuplicateRows(stats.Duplicates)
	log.Debug(ctx, "unpivoted researcher blocks",
		logger.Int("blocks", stats.Blocks),
		logger.Int("stacked", stats.Stacked),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("researchers", stats.Researchers),
	)

	if err := ctx.Err(); err != nil {
		return fail(StageFeatures, err)
	}
	t0 = time.Now()
	ft, report, err := features.Build(researchers,
		features.WithLayout(s.layout),
		features.WithJoinPolicy(s.join),
		features.WithCodeOptions(s.codeOpts...),
	)
	if err != nil {
		return fail(StageFeatures, err)
	}
	observe(StageFeatures, t0)
	res.Features, res.Report = ft, report
	metrics.UpdateRows(StageFeatures, ft.Len())
	for name, ids := range report.Dropped {
		metrics.RecordJoinDropped(name, len(ids))
		log.Warn(ctx, "applications dropped by join",
			logger.String("aggregate", name),
			logger.Int("count", len(ids)),
			logger.Any("application_ids", ids),
		)
	}
	for column, n := range report.Filled {
		metrics.RecordImputed(column, n)
	}

	if err := ctx.Err(); err != nil {
		return fail(StageStore, err)
	}
	t0 = time.Now()
	if err := s.store.Replace(ctx, ft); err != nil {
		return fail(StageStore, err)
	}
	observe(StageStore, t0)

	res.Duration = time.Since(start)
	metrics.RecordRun("success")
	metrics.UpdateLastSuccess(float64(time.Now().Unix()))

	s.mu.Lock()
	s.runs++
	last := res
	s.last = &last
	s.mu.Unlock()

	log.Info(ctx, "pipeline run finished",
		logger.String("run_id", res.RunID),
		logger.Int("applications", ft.Len()),
		logger.Int("dropped", report.DroppedCount()),
		logger.Float64("duration_ms", float64(res.Duration.Microseconds())/1000),
	)
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"runs":         s.runs,
		"failures":     s.failures,
		"joinPolicy":   s.join.String(),
		"applications": s.store.Count(context.Background()),
	}
	if s.last != nil {
		stats["lastRunID"] = s.last.RunID
		stats["lastDurationMs"] = s.last.Duration.Milliseconds()
		stats["researchers"] = s.last.Reshape.Researchers
		stats["dropped"] = s.last.Report.DroppedCount()
	}
	return stats
}

func observe(stage string, start time.Time) {
	metrics.RecordStageDuration(stage, float64(time.Since(start).Microseconds())/1000)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, schema.ErrSchema):
		return "schema"
	case errors.Is(err, table.ErrParse):
		return "parse"
	case errors.Is(err, features.ErrUnmatchedKey):
		return "unmatched_key"
	case errors.Is(err, features.ErrMissingKey), errors.Is(err, features.ErrDuplicateKey):
		return "key"
	default:
		return "internal"
	}
}
