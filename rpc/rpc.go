// Package rpc exposes the dashboard over HTTP: plain JSON endpoints for state
// queries and server-sent event streams for the long running operations.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rollupops/disputedash/config/types"
	"github.com/rollupops/disputedash/log"
)

// Config represents the configuration of the dashboard HTTP server.
type Config struct {
	// Host defines the network adapter that will be used to serve the HTTP requests
	Host string `mapstructure:"Host"`
	// Port defines the port to serve the endpoints via HTTP
	Port int `mapstructure:"Port"`
	// ReadTimeout is the HTTP server read timeout
	ReadTimeout types.Duration `mapstructure:"ReadTimeout"`
	// WriteTimeout is the HTTP server write timeout. Zero means no limit,
	// which the SSE endpoints need.
	WriteTimeout types.Duration `mapstructure:"WriteTimeout"`
	// StaticDir is the directory holding the dashboard frontend files
	StaticDir string `mapstructure:"StaticDir"`
}

// Server wraps the gin engine with lifecycle management.
type Server struct {
	logger *log.Logger
	cfg    Config
	http   *http.Server
}

// NewServer builds the HTTP server with the dashboard routes registered.
func NewServer(logger *log.Logger, cfg Config, endpoints *DashboardEndpoints) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	endpoints.RegisterRoutes(engine, cfg.StaticDir)

	return &Server{
		logger: logger,
		cfg:    cfg,
		http: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout.Duration,
			WriteTimeout: cfg.WriteTimeout.Duration,
		},
	}
}

// Start serves HTTP until Stop is called. It blocks.
func (s *Server) Start() error {
	s.logger.Infof("dashboard listening on http://%s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving dashboard: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight requests up to
// the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping dashboard server")
	return s.http.Shutdown(ctx)
}
