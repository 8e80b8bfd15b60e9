package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const serviceName = "geophoto-worker"

// StatusProvider exposes the poll loop position
type StatusProvider interface {
	State() domain.State
	Cursor() domain.Cursor
}

// NewRouter serves /health and /metrics
func NewRouter(status StatusProvider) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		state := status.State()
		code := http.StatusOK
		healthy := "healthy"
		if state == domain.StateFatal {
			code = http.StatusServiceUnavailable
			healthy = "unhealthy"
		}

		c.JSON(code, gin.H{
			"status":  healthy,
			"service": serviceName,
			"state":   state,
			"cursor":  status.Cursor().String(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Server runs the health router until its context ends
type Server struct {
	srv             *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a server listening on port
func NewServer(port int, status StatusProvider, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(status),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting health server", slog.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("health server shutdown: %w", err)
	}
	s.logger.Info("Health server stopped")
	return nil
}
