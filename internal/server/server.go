// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/analysis"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/model"
	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/service"
)

// WelcomeMessage is returned from the root route.
const WelcomeMessage = "欢迎使用 AI 财务顾问 API"

const shutdownTimeout = 10 * time.Second

// Analyzer is the part of the analysis engine the HTTP tier drives.
type Analyzer interface {
	Analyze(ctx context.Context, input model.FinancialInput, opts analysis.Options) (*analysis.Result, error)
	Start(ctx context.Context, jobs service.JobStore, input model.FinancialInput) (*model.Job, error)
}

// Config controls the HTTP listener.
type Config struct {
	Addr  string
	Token string
}

// DefaultConfig returns the default listener configuration.
func DefaultConfig() Config {
	return Config{Addr: ":8000"}
}

// Server routes report requests to the analysis engine.
type Server struct {
	analyzer Analyzer
	jobs     service.JobStore
	logger   *slog.Logger
	router   *gin.Engine
	config   Config
}

// New builds a server and its routes.
func New(analyzer Analyzer, jobs service.JobStore, config Config, logger *slog.Logger) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Addr == "" {
		config.Addr = DefaultConfig().Addr
	}

	s := &Server{
		analyzer: analyzer,
		jobs:     jobs,
		logger:   logger,
		config:   config,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/", s.handleRoot)
	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	if s.config.Token != "" {
		v1.Use(bearerAuth(s.config.Token))
	}
	v1.POST("/reports", s.handleCreateReport)
	v1.POST("/reports/start", s.handleStartReport)
	v1.GET("/reports/:id", s.handleGetReport)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
