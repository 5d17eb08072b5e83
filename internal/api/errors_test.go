package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/scanner"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	build := func(c errors.ErrorCategory) error {
		return errors.Newf("boom").Category(c).Build()
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", build(errors.CategoryValidation), http.StatusBadRequest},
		{"not found", build(errors.CategoryNotFound), http.StatusNotFound},
		{"conflict", build(errors.CategoryConflict), http.StatusConflict},
		{"capture busy", fmt.Errorf("capture: %w", scanner.ErrCaptureInProgress), http.StatusConflict},
		{"limit", build(errors.CategoryLimit), http.StatusTooManyRequests},
		{"camera", build(errors.CategoryCamera), http.StatusServiceUnavailable},
		{"geocoding", build(errors.CategoryGeocoding), http.StatusBadGateway},
		{"timeout", build(errors.CategoryTimeout), http.StatusGatewayTimeout},
		{"database", build(errors.CategoryDatabase), http.StatusInternalServerError},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no port", func(c *Config) { c.Port = "" }},
		{"no read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -1 }},
		{"no upload limit", func(c *Config) { c.MaxUploadMB = 0 }},
		{"no capture rate", func(c *Config) { c.CaptureRate = 0 }},
		{"no heartbeat", func(c *Config) { c.Heartbeat = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
