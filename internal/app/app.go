// Package app assembles the service and its collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"credit-coupling-api/internal/cache"
	"credit-coupling-api/internal/calendar"
	"credit-coupling-api/internal/catalog"
	"credit-coupling-api/internal/config"
	"credit-coupling-api/internal/database"
	"credit-coupling-api/internal/events"
	"credit-coupling-api/internal/features"
	"credit-coupling-api/internal/learner"
	"credit-coupling-api/internal/metrics"
	"credit-coupling-api/internal/notify"
	"credit-coupling-api/internal/service"
	"credit-coupling-api/internal/spend"
	"credit-coupling-api/internal/tracing"
)

// Version is reported to the tracing backend.
var Version = "dev"

// App owns the wired service and everything that must be closed with it.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Service  *service.Service
	Features *features.Manager
	Metrics  *metrics.Metrics
	Tracer   *tracing.Tracer

	events  *events.Manager
	closers []func() error
}

// New builds the application. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.build(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	a.Features = features.NewDefaultManager()
	if unknown := a.Features.Apply(cfg.Features); len(unknown) > 0 {
		a.Logger.Warn("ignoring unknown feature flags", "flags", unknown)
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		cat = loaded
	}
	a.Logger.Info("catalog loaded", "offers", cat.Len(), "path", cfg.Catalog.Path)

	var store learner.Store
	switch cfg.Feedback.Driver {
	case config.DriverSQLite:
		db, err := database.NewDB(cfg.Feedback.Path)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		store = db
	default:
		store = database.NewMemoryStore()
	}

	var c cache.Cache = cache.NewInMemoryCache()
	if cfg.Spend.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:      cfg.Spend.RedisAddr,
			Password:  cfg.Spend.RedisPassword,
			DB:        cfg.Spend.RedisDB,
			KeyPrefix: "credit-coupling:",
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rc.Close)
		c = rc
	}

	fallback, err := spend.NewStaticSource(spend.DefaultFallback())
	if err != nil {
		return err
	}
	var src spend.Source = fallback
	if cfg.Spend.File != "" {
		src = spend.NewFallbackSource(spend.NewFileSource(cfg.Spend.File), fallback, a.Logger)
	}

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: tracing.DefaultServiceName,
		Version:     Version,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.Tracer = tracer

	a.Metrics = metrics.NewMetrics()
	a.events = events.NewManager(true, a.Logger)

	svc, err := service.NewService(service.Dependencies{
		Catalog:    cat,
		Learner:    learner.New(store, learner.WithThresholds(cfg.Thresholds())),
		Spend:      src,
		Cache:      c,
		CacheTTL:   cfg.CacheTTL(),
		Calendar:   calendar.NewSimulatedSink(),
		Notifier:   notify.NewSimulatedNotifier(notify.DefaultDirectory(), a.Logger),
		Recipients: cfg.Notify.Recipients,
		Events:     a.events,
		Features:   a.Features,
		Metrics:    a.Metrics,
		Tracer:     tracer,
		Logger:     a.Logger,
	})
	if err != nil {
		return err
	}
	a.Service = svc
	return nil
}

// Close waits for event handlers, flushes traces and releases stores.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.events != nil {
		a.events.Shutdown()
	}
	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
