// Package api provides the BLink HTTP API on echo.
package api

import (
	"fmt"
	"time"

	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0 // event streams stay open
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultCaptureRate = 1.0 // capture uploads per second
	DefaultMaxUploadMB = 10
	DefaultHistorySize = 50
)

// Config holds the HTTP server configuration.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	// Security settings
	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration // Maximum duration for reading request
	WriteTimeout    time.Duration // Maximum duration for writing response, 0 for none
	IdleTimeout     time.Duration // Maximum time to wait for next request
	ShutdownTimeout time.Duration // Maximum time to wait for graceful shutdown

	// Limits
	MaxUploadMB int     // Maximum capture upload size
	CaptureRate float64 // Capture uploads per second

	// Heartbeat interval of the event stream
	Heartbeat time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            "8080",
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxUploadMB:     DefaultMaxUploadMB,
		CaptureRate:     DefaultCaptureRate,
		Heartbeat:       30 * time.Second,
	}
}

// ConfigFromSettings creates a Config from the web server settings.
func ConfigFromSettings(settings *conf.WebServerSettings) *Config {
	cfg := DefaultConfig()
	if settings.Port != "" {
		cfg.Port = settings.Port
	}
	if settings.CaptureRateLimit > 0 {
		cfg.CaptureRate = settings.CaptureRateLimit
	}
	if settings.MaxUploadMB > 0 {
		cfg.MaxUploadMB = settings.MaxUploadMB
	}
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout cannot be negative")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("upload limit must be positive")
	}
	if c.CaptureRate <= 0 {
		return fmt.Errorf("capture rate must be positive")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	if c.Host == "" {
		return ":" + c.Port
	}
	return c.Host + ":" + c.Port
}

// BodyLimit renders the upload limit for echo's body limit middleware.
func (c *Config) BodyLimit() string {
	return fmt.Sprintf("%dM", c.MaxUploadMB)
}
