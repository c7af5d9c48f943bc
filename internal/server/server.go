// Package server exposes health and metrics endpoints for the worker.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/weiawesome/pdf-thumbnail/internal/metrics"
	pkglog "github.com/weiawesome/pdf-thumbnail/pkg/log"
)

// NewRouter builds the gin engine serving /healthz and /metrics.
func NewRouter(logger zerolog.Logger, m *metrics.Collector) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r
}

// Server runs the router until Shutdown.
type Server struct {
	srv *http.Server
}

// New creates a Server listening on addr.
func New(addr string, logger zerolog.Logger, m *metrics.Collector) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, m),
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in a background goroutine. Listen errors are logged.
func (s *Server) Start() {
	go func() {
		l := pkglog.L()
		l.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("http server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
