// Package bootstrap assembles the application service from configuration:
// store backend, dashboard cache and the optional AI intake assistant.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"repair-desk/internal/ai"
	"repair-desk/internal/app"
	"repair-desk/internal/cache"
	"repair-desk/internal/config"
	"repair-desk/internal/core"
	"repair-desk/internal/db"
	"repair-desk/internal/memstore"
)

// Services is the wired application plus the resources it holds open.
type Services struct {
	App     app.ApplicationService
	closers []func()
}

// Close releases the database pool and cache connection.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// New connects the configured backends. The cache and the assistant are
// optional: a Redis outage at startup only disables caching.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	s := &Services{}

	var store core.Store
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using the in-memory store; data is lost on exit")
		store = memstore.New()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		store = db.NewStore(pool)
	}

	var dashboard cache.DashboardCache = cache.Nop{}
	if cfg.RedisURL != "" && cfg.DashboardCacheTTL > 0 {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("dashboard cache disabled", "error", err)
		} else {
			s.closers = append(s.closers, func() { _ = rdb.Close() })
			dashboard = cache.NewRedis(rdb, cfg.DashboardCacheTTL)
			logger.Info("dashboard cache enabled", "ttl", cfg.DashboardCacheTTL)
		}
	}

	var assistant ai.IntakeAssistant
	if cfg.OpenAIKey != "" {
		assistant = ai.NewAgent(cfg.OpenAIKey)
	} else {
		logger.Info("OPENAI_API_KEY is not set; AI intake assistant disabled")
	}

	clock := core.SystemClock
	engine := core.NewWorkflowEngine(store, clock, logger)
	reporting := core.NewReportingService(store, clock)
	s.App = app.NewAppService(store, engine, reporting, assistant, dashboard, clock, logger)
	return s, nil
}
