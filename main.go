// Package main is the entry point for the scholarduel API server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"scholarduel/src/app/server"
	"scholarduel/src/core/ports"
	"scholarduel/src/infra/auth"
	"scholarduel/src/infra/config"
	"scholarduel/src/infra/db"
	"scholarduel/src/infra/judge"
	"scholarduel/src/infra/logger"
	"scholarduel/src/infra/metrics"
	"scholarduel/src/infra/ratelimit"
	"scholarduel/src/infra/realtime"
	"scholarduel/src/infra/repo"
	"scholarduel/src/infra/scoring"
)

// devSecret signs tokens in memory mode when no secret is configured.
const devSecret = "scholarduel-dev-secret"

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info("starting application",
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"store", cfg.Store.Mode,
		"scoring", cfg.Scoring.Mode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]ports.ExternalService{}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	health["storage"] = store

	j, err := buildJudge(ctx, cfg, log)
	if err != nil {
		return err
	}
	if g, ok := j.(*judge.Gemini); ok {
		defer g.Close()
		health["judge"] = g
	}
	scorer := buildScorer(cfg, j)

	limiter, closeLimiter, err := buildLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()
	if r, ok := limiter.(*ratelimit.Redis); ok {
		health["redis"] = r
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("APP_JWT_SECRET not set, using the development secret")
		cfg.Auth.JWTSecret = devSecret
	}
	tokens := auth.NewTokens(cfg.Auth)

	prom := metrics.NewPrometheus()

	// Change relay: use cases publish to the bus, the hub fans out to websockets.
	bus := realtime.NewBus(logger.WithComponent(log, "bus"))
	defer bus.Close()
	health["events"] = bus
	hub := realtime.NewHub(cfg.Realtime.SendBuffer, prom, logger.WithComponent(log, "hub"))
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx, bus) }()

	srv := server.New(cfg, log, server.Deps{
		Repo:      store,
		Scorer:    scorer,
		Judge:     j,
		Events:    bus,
		Hub:       hub,
		Tokens:    tokens,
		Limiter:   limiter,
		Metrics:   prom,
		MetricsUI: prom.Handler(),
		Health:    health,
	})

	// Run blocks until a shutdown signal is received
	err = srv.Run(ctx)
	stop()
	if hubErr := <-hubDone; hubErr != nil {
		err = errors.Join(err, hubErr)
	}
	return err
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.DuelRepository, func(), error) {
	if cfg.Store.Mode == config.StoreMemory {
		log.Warn("using the in-memory store, data is lost on restart")
		return repo.NewMemoryRepository(), func() {}, nil
	}

	pg, err := db.New(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pg.Pool, log); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return repo.NewPostgresRepository(pg, log), pg.Close, nil
}

func buildJudge(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.Judge, error) {
	if cfg.Gemini.APIKey == "" {
		log.Warn("APP_GEMINI_API_KEY not set, the judge is unavailable and local scoring stores zero scores")
		return judge.Unavailable{}, nil
	}
	return judge.NewGemini(ctx, cfg.Gemini, logger.WithComponent(log, "judge"))
}

func buildScorer(cfg *config.Config, j ports.Judge) ports.Scorer {
	if cfg.Scoring.Mode == config.ScoringRemote {
		return scoring.NewHTTPScorer(cfg.Scoring.URL, cfg.Scoring.Token, &http.Client{Timeout: cfg.Scoring.Timeout})
	}
	return scoring.NewLocalScorer(j)
}

func buildLimiter(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.RateLimiter, func(), error) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewLocal(), func() {}, nil
	}
	r, err := ratelimit.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	log.Info("rate limiting through redis", "addr", cfg.Redis.Addr)
	return r, func() { _ = r.Close() }, nil
}
