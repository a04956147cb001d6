package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/tollgate-io/tollgate/internal/config"
	gatewayHTTP "github.com/tollgate-io/tollgate/internal/gateway/http"
	"github.com/tollgate-io/tollgate/internal/metrics"
)

// Server is the gateway HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
	done   chan struct{}
}

// NewServer creates the gateway server with its full middleware chain. The
// resource handler is mounted as the NoRoute fallback so every path not
// claimed by the probe endpoints is treated as a protected resource.
func NewServer(
	cfg *config.Config,
	gateway *gatewayHTTP.GatewayHandler,
	metricsProvider *metrics.Provider,
	logger *slog.Logger,
) *Server {
	gin.SetMode(cfg.GetGinMode())
	router := gin.New()

	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if cfg.RateLimitEnabled {
		router.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst))
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	done := make(chan struct{})
	router.GET("/health", HealthHandler)
	router.GET("/ready", ReadinessHandler(done))
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method_not_allowed"})
			return
		}
		gateway.ResourceHandler(c)
	})

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		done:   done,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server. Readiness flips to not
// ready first so load balancers drain before connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.server.Shutdown(ctx)
}
