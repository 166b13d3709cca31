// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scholarduel/src/app/http/handler"
	"scholarduel/src/app/middleware"
	"scholarduel/src/core/ports"
	"scholarduel/src/core/usecase"
	"scholarduel/src/infra/config"
	"scholarduel/src/infra/realtime"
)

const analyzePath = "/api/duel/analyze"

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Repo      ports.DuelRepository
	Scorer    ports.Scorer
	Judge     ports.Judge
	Events    ports.EventPublisher
	Hub       *realtime.Hub
	Tokens    middleware.TokenVerifier
	Limiter   ports.RateLimiter
	Metrics   ports.Metrics
	MetricsUI http.Handler
	Health    map[string]ports.ExternalService
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg    *config.Config
	log    *slog.Logger
	deps   Deps
	router *gin.Engine
	http   *http.Server

	// Handlers
	healthHandler     *handler.HealthHandler
	sessionHandler    *handler.SessionHandler
	duelHandler       *handler.DuelHandler
	roundHandler      *handler.RoundHandler
	invitationHandler *handler.InvitationHandler
	analyzeHandler    *handler.AnalyzeHandler
	realtimeHandler   *handler.RealtimeHandler
}

// New creates a new Server with all dependencies wired up.
func New(cfg *config.Config, log *slog.Logger, deps Deps) *Server {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	router := gin.New()

	// Create services
	healthService := usecase.NewHealthService(log, deps.Health)
	duelService := usecase.NewDuelService(deps.Repo, deps.Events, deps.Metrics, log)
	roundService := usecase.NewRoundService(deps.Repo, deps.Scorer, deps.Events, deps.Metrics, cfg.Scoring.Timeout, log)
	invitationService := usecase.NewInvitationService(deps.Repo, log)
	analyzeService := usecase.NewAnalyzeService(deps.Judge, log)

	s := &Server{
		cfg:               cfg,
		log:               log,
		deps:              deps,
		router:            router,
		healthHandler:     handler.NewHealthHandler(healthService),
		sessionHandler:    handler.NewSessionHandler(),
		duelHandler:       handler.NewDuelHandler(duelService),
		roundHandler:      handler.NewRoundHandler(roundService),
		invitationHandler: handler.NewInvitationHandler(invitationService),
		analyzeHandler:    handler.NewAnalyzeHandler(analyzeService),
		realtimeHandler:   handler.NewRealtimeHandler(deps.Hub, cfg.Realtime, cfg.CORS, log),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	// Order matters: Recovery should be first to catch all panics
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORS(s.cfg.CORS))
	// BodyLimit wraps the body before Logging buffers it
	s.router.Use(middleware.BodyLimit(s.cfg.Server.MaxBodyBytes))
	s.router.Use(middleware.Logging(s.log, analyzePath))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check endpoints (no auth required)
	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/detailed", s.healthHandler.DetailedHealth)
	if s.deps.MetricsUI != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.MetricsUI))
	}

	authed := middleware.Auth(s.deps.Tokens)
	perMinute := func(scope string, limit int) gin.HandlerFunc {
		return middleware.RateLimit(s.deps.Limiter, scope, limit, time.Minute, s.deps.Metrics, s.log)
	}

	// API v1 routes
	v1 := s.router.Group("/v1", authed)
	{
		v1.GET("/session/me", s.sessionHandler.Me)

		// Duels
		v1.POST("/duels", s.duelHandler.Create)
		v1.GET("/duels", s.duelHandler.List)
		v1.GET("/duels/:duel_id", s.duelHandler.Get)
		v1.POST("/duels/:duel_id/accept", s.duelHandler.Accept)
		v1.POST("/duels/:duel_id/decline", s.duelHandler.Decline)
		v1.POST("/duels/:duel_id/cancel", s.duelHandler.Cancel)
		v1.DELETE("/duels/:duel_id", s.duelHandler.Delete)

		// Rounds
		v1.GET("/duels/:duel_id/rounds", s.roundHandler.List)
		v1.POST("/duels/:duel_id/rounds",
			perMinute("submit", s.cfg.RateLimit.SubmissionsPerMinute),
			s.roundHandler.Submit)

		// Invitations
		v1.GET("/invitations", s.invitationHandler.List)

		// Realtime
		v1.GET("/realtime", s.realtimeHandler.Connect)
	}

	// Judge passthrough, kept at the path existing clients call.
	s.router.POST(analyzePath, authed,
		perMinute("analyze", s.cfg.RateLimit.AnalyzePerMinute),
		s.analyzeHandler.Analyze)

	// Handle 404
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":       "NOT_FOUND",
				"message":    "The requested resource was not found",
				"request_id": middleware.GetRequestID(c),
			},
		})
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("starting HTTP server",
			"addr", s.cfg.Server.Addr(),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown requested")
	case err := <-errCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
