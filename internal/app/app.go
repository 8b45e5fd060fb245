package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/api"
	"github.com/leozw/ssl-verifier/internal/batch"
	"github.com/leozw/ssl-verifier/internal/checker"
	"github.com/leozw/ssl-verifier/internal/config"
	"github.com/leozw/ssl-verifier/internal/credentials"
	"github.com/leozw/ssl-verifier/internal/metrics"
	"github.com/leozw/ssl-verifier/internal/storage/postgres"
	"github.com/leozw/ssl-verifier/internal/storage/redis"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

// App holds the wired components shared by the CLI and the API server.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Collector   *metrics.Collector
	Verifier    *checker.Verifier
	Writer      *tabular.Writer
	Processor   *batch.Processor
	Reports     api.Reports
	Credentials *credentials.Store

	closers []func() error
}

// New builds the verifier and its sinks. Postgres, Redis and remote write
// are wired only when their URL is configured. A Redis server that does not
// answer is skipped with a warning; a database that does not is an error.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Collector:   metrics.NewCollector(),
		Writer:      tabular.NewWriter(cfg.Output.Dir, logger),
		Credentials: credentials.NewStore(cfg.Credentials.CacheFile, cfg.Credentials.KeyFile),
	}

	a.Verifier = checker.NewVerifier(
		checker.NewHTTPProber(cfg.Verify.HTTPTimeout, logger),
		checker.NewSSLChecker(),
		logger,
		checker.WithTLSTimeout(cfg.Verify.TLSTimeout),
	)

	sinks := []batch.Sink{a.Writer}

	if cfg.Redis.URL != "" {
		client := redis.NewClient(cfg.Redis.URL)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, last batch will not be cached", zap.Error(err))
			_ = client.Close()
		} else {
			cache := redis.NewCache(client, cfg.Redis.TTL)
			sinks = append(sinks, cache)
			a.Reports = append(a.Reports, cache)
			a.closers = append(a.closers, client.Close)
		}
	}

	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(db, logger); err != nil {
			_ = a.Close()
			return nil, err
		}
		store := postgres.NewStore(db, logger)
		sinks = append(sinks, store)
		a.Reports = append(a.Reports, store)
	}

	a.Reports = append(a.Reports, a.Writer)

	if cfg.Metrics.RemoteWriteURL != "" {
		sinks = append(sinks, metrics.NewPusher(metrics.RemoteWriteConfig{
			URL:          cfg.Metrics.RemoteWriteURL,
			AuthToken:    cfg.Metrics.AuthToken,
			TenantHeader: cfg.Metrics.TenantHeader,
			Tenant:       cfg.Metrics.Tenant,
			Job:          cfg.Metrics.Job,
			BatchSize:    cfg.Metrics.BatchSize,
			Timeout:      cfg.Metrics.Timeout,
		}, a.Collector.Registry(), logger))
	}

	a.Processor = batch.NewProcessor(a.Verifier, logger,
		batch.WithWorkers(cfg.Verify.Workers),
		batch.WithRateLimit(cfg.Verify.RateLimit),
		batch.WithSinks(sinks...),
		batch.WithMetrics(a.Collector),
	)

	return a, nil
}

// Close releases the storage connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
