// Package server exposes the prediction proxy over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "retention-proxy/internal/common/errors"
	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/prediction"
)

// Predictor serves one prediction for a raw user identifier.
type Predictor interface {
	Predict(ctx context.Context, rawID string) (*prediction.Result, error)
}

// UserDirectory lists the users known to the feature store.
type UserDirectory interface {
	IDs() []int64
	Len() int
}

type Server struct {
	config    *Config
	router    *gin.Engine
	users     UserDirectory
	predictor Predictor
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func New(config *Config, users UserDirectory, predictor Predictor, log logger.Logger) *Server {
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	log = log.With(map[string]interface{}{"component": "http"})

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(log))
	if mw := corsMiddleware(config.CORSOrigins, log); mw != nil {
		router.Use(mw)
	}

	s := &Server{
		config:    config,
		router:    router,
		users:     users,
		predictor: predictor,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}

	// The front end calls the same routes under /api.
	s.registerRoutes(&router.RouterGroup)
	s.registerRoutes(router.Group("/api"))

	if config.MetricsEnabled {
		path := config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	return s
}

func (s *Server) registerRoutes(r gin.IRoutes) {
	r.GET("/users", s.listUsers)
	r.GET("/predict/:userId", s.predict)
	r.GET("/health", s.health)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run binds the listener and serves until ctx is cancelled, then drains
// in-flight requests for up to ShutdownTimeout. A bind failure is returned
// immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("HTTP server listening", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("HTTP server shutting down", nil)
		if err := srv.Shutdown(shCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
