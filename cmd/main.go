package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/grantfeat/internal/adapters/export"
	"github.com/okian/grantfeat/internal/adapters/http/api"
	"github.com/okian/grantfeat/internal/adapters/source"
	app "github.com/okian/grantfeat/internal/app"
	"github.com/okian/grantfeat/internal/config"
	"github.com/okian/grantfeat/internal/domain/aggregate"
	"github.com/okian/grantfeat/internal/domain/features"
	"github.com/okian/grantfeat/pkg/logger"
	"github.com/okian/grantfeat/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(2)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := run(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "grant feature run failed", logger.Error(err))
		stop()
		os.Exit(1)
	}

	if cfg.ServeAddr == "" {
		return
	}
	if err := serve(ctx, cfg, svc, log); err != nil {
		log.Error(ctx, "HTTP server failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// serve exposes the feature store until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) error {
	mux := http.NewServeMux()
	api.NewServer(svc.Store(), svc, api.WithMaxLimit(cfg.MaxPageLimit)).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.ServeAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// run loads the raw table, builds the feature table and writes the
// configured outputs. The returned service holds the feature store.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	policy, err := features.ParseJoinPolicy(cfg.JoinPolicy)
	if err != nil {
		return nil, err
	}
	var writer export.Writer
	if cfg.OutputPath != "" {
		if writer, err = export.New(cfg.OutputFormat); err != nil {
			return nil, err
		}
	}

	// Metrics are written for failed runs too.
	defer func() {
		if cfg.MetricsPath == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.MetricsPath); err != nil {
			log.Warn(ctx, "failed to write metrics textfile", logger.String("path", cfg.MetricsPath), logger.Error(err))
		}
	}()

	raw, err := source.Load(ctx, cfg.InputPath)
	if err != nil {
		metrics.RecordErrorByComponent("source", "read")
		return nil, err
	}
	log.Info(ctx, "loaded raw table",
		logger.String("path", cfg.InputPath),
		logger.Int("rows", raw.Len()),
		logger.Int("columns", raw.Width()),
	)

	svc := app.New(
		app.WithLogger(log),
		app.WithJoinPolicy(policy),
		app.WithCodeOptions(
			aggregate.WithSlots(cfg.CodeSlots),
			aggregate.WithKeepZeroBucket(cfg.KeepZeroBucket),
		),
	)
	res, err := svc.Run(ctx, raw)
	if err != nil {
		return nil, err
	}

	if writer == nil {
		log.Info(ctx, "no output_path configured; skipping export", logger.String("run_id", res.RunID))
		return svc, nil
	}
	if err := export.WriteFile(ctx, cfg.OutputPath, writer, res.Features); err != nil {
		metrics.RecordErrorByComponent("export", writer.Format())
		return nil, fmt.Errorf("export: %w", err)
	}
	metrics.RecordExportedRows(writer.Format(), res.Features.Len())
	log.Info(ctx, "feature table exported",
		logger.String("run_id", res.RunID),
		logger.String("path", cfg.OutputPath),
		logger.String("format", writer.Format()),
		logger.Int("applications", res.Features.Len()),
		logger.Int("columns", len(res.Features.Header())),
	)
	return svc, nil
}
