package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	mw "github.com/blinkbus/blink-go/internal/api/middleware"
	"github.com/blinkbus/blink-go/internal/app"
	"github.com/blinkbus/blink-go/internal/geocode"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/observability"
)

// Geocoder resolves coordinates to an address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (geocode.Address, error)
}

// Server is the HTTP server for BLink.
type Server struct {
	echo    *echo.Echo
	config  *Config
	service *app.Service
	log     logger.Logger

	// optional dependencies
	geocoder Geocoder
	metrics  *observability.Metrics

	captureLimiter *rate.Limiter
	startTime      time.Time
	version        string

	// cancelled on shutdown so event streams end
	ctx    context.Context
	cancel context.CancelFunc
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithGeocoder enables reverse geocoding endpoints and address lookup for
// saved locations.
func WithGeocoder(g Geocoder) ServerOption {
	return func(s *Server) {
		s.geocoder = g
	}
}

// WithMetrics serves /metrics and records request metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// New creates a new HTTP server for service.
func New(config *Config, service *app.Service, opts ...ServerOption) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:            ctx,
		cancel:         cancel,
		config:         config,
		service:        service,
		log:            GetLogger(),
		captureLimiter: rate.NewLimiter(rate.Limit(config.CaptureRate), 1),
		startTime:      time.Now(),
		version:        "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.log.Info("HTTP server initialized", logger.String("address", config.Address()))
	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLogger(s.log))
	if s.metrics != nil {
		s.echo.Use(mw.NewMetrics(s.metrics.HTTP))
	}

	policy := mw.DefaultBrowserPolicy()
	if len(s.config.AllowedOrigins) > 0 {
		policy.Origins = s.config.AllowedOrigins
	}
	s.echo.Use(mw.NewCORS(policy))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit()))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(policy))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/health", s.healthCheck)

	v1.GET("/scan/status", s.scanStatus)
	v1.PUT("/scan/trip", s.setTrip)
	v1.POST("/scan/capture", s.captureImage)
	v1.GET("/scan/events", s.streamEvents)

	v1.GET("/buses/:plate", s.getBus)
	v1.POST("/buses/manual", s.submitManualPlate)

	v1.GET("/routes", s.searchRoutes)
	v1.GET("/routes/:code", s.getRoute)
	v1.GET("/routes/:code/itinerary", s.getItinerary)

	v1.GET("/history", s.getHistory)
	v1.GET("/history/scans", s.getScans)
	v1.GET("/history/journeys", s.getJourneys)

	v1.GET("/locations", s.listLocations)
	v1.POST("/locations", s.saveLocation)
	v1.DELETE("/locations/:id", s.deleteLocation)

	v1.GET("/geocode/reverse", s.reverseGeocode)
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.version,
		"scanner":        s.service.Scanner() != nil,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", s.config.Address()))
		err := s.echo.Start(s.config.Address())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("Server shutdown complete")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
