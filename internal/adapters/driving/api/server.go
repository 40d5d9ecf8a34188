// Package api provides the HTTP trigger and polling API.
//
// Routes:
//
//	POST /v1/validations               run a pending session (?async=true to run in background)
//	GET  /v1/validations/:id           session status and progress
//	GET  /v1/validations/:id/results   recorded results
//	GET  /health                       liveness and store readiness
//	GET  /metrics                      Prometheus metrics
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/compliance-engine/internal/core/ports/driving"
	"github.com/custodia-labs/compliance-engine/internal/logger"
)

// ErrMissingSessionService is returned when the session service is not provided.
var ErrMissingSessionService = errors.New("api: session service is required")

// shutdownTimeout bounds graceful shutdown of the listener.
const shutdownTimeout = 10 * time.Second

// Config wires the server to the engine.
type Config struct {
	// Orchestrator runs sessions. Optional; without it POST returns 503.
	Orchestrator driving.ValidationOrchestrator

	// Sessions serves status and results. Required.
	Sessions driving.SessionQuery

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	// Ready is consulted by /health. Optional.
	Ready func(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	cfg    Config
	router *gin.Engine

	// runs tracks background validations started with ?async=true.
	runs sync.WaitGroup
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, ErrMissingSessionService
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{cfg: cfg, router: router}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	v1.POST("/validations", s.handleTrigger)
	v1.GET("/validations/:id", s.handleStatus)
	v1.GET("/validations/:id/results", s.handleResults)

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then waits for background runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", addr)
	err := httpServer.ListenAndServe()
	s.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Wait blocks until background validations finish.
func (s *Server) Wait() {
	s.runs.Wait()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
