// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		func(s *Settings) []string { return validateScannerSettings(&s.Scanner) },
		func(s *Settings) []string { return validateOCRSettings(&s.OCR) },
		func(s *Settings) []string { return validateCatalogSettings(&s.Catalog) },
		func(s *Settings) []string { return validateGeocodeSettings(&s.Geocode) },
		func(s *Settings) []string { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) []string { return validateWebServerSettings(&s.WebServer) },
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry DSN is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

const (
	minThrottle = 50 * time.Millisecond
	maxThrottle = time.Second
)

func validateScannerSettings(s *ScannerSettings) []string {
	var errs []string

	if s.Throttle < minThrottle || s.Throttle > maxThrottle {
		errs = append(errs, fmt.Sprintf("scanner throttle must be between %v and %v, got %v", minThrottle, maxThrottle, s.Throttle))
	}
	if s.Threshold < 1 {
		errs = append(errs, "scanner threshold must be at least 1")
	}
	if s.CandidatesPerRegion < 1 || s.CandidatesPerRegion > 10 {
		errs = append(errs, "scanner candidates per region must be between 1 and 10")
	}
	if s.CaptureTimeout < 0 {
		errs = append(errs, "scanner capture timeout cannot be negative")
	}
	if s.SightingInterval < 0 {
		errs = append(errs, "scanner sighting interval cannot be negative")
	}

	roi := s.ROI
	switch {
	case roi.Width <= 0 || roi.Height <= 0:
		errs = append(errs, "scanner ROI must have positive width and height")
	case roi.X < 0 || roi.Y < 0 || roi.X+roi.Width > 1 || roi.Y+roi.Height > 1:
		errs = append(errs, "scanner ROI must lie within the unit square")
	}

	for _, word := range s.Denylist {
		if strings.TrimSpace(word) == "" {
			errs = append(errs, "scanner denylist contains an empty word")
			break
		}
	}
	return errs
}

func validateOCRSettings(s *OCRSettings) []string {
	var errs []string

	if !strings.EqualFold(s.Quality, "accurate") {
		errs = append(errs, fmt.Sprintf("ocr quality must be 'accurate', got %q", s.Quality))
	}
	if s.Language == "" {
		errs = append(errs, "ocr language is required")
	}
	if s.PoolSize < 1 {
		errs = append(errs, "ocr pool size must be at least 1")
	}
	if s.PageSegMode < 0 || s.PageSegMode > 13 {
		errs = append(errs, "ocr page segmentation mode must be between 0 and 13")
	}
	if s.Upscale < 1 || s.Upscale > 4 {
		errs = append(errs, "ocr upscale must be between 1 and 4")
	}
	return errs
}

func validateCatalogSettings(s *CatalogSettings) []string {
	var errs []string

	switch strings.ToLower(s.Driver) {
	case "sqlite":
		if s.Path == "" {
			errs = append(errs, "catalog sqlite path is required")
		}
	case "mysql":
		if s.MySQL.Host == "" || s.MySQL.Database == "" {
			errs = append(errs, "catalog mysql host and database are required")
		}
		if s.MySQL.Port <= 0 || s.MySQL.Port > 65535 {
			errs = append(errs, "catalog mysql port must be between 1 and 65535")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog driver must be sqlite or mysql, got %q", s.Driver))
	}
	if s.CacheTTL < 0 {
		errs = append(errs, "catalog cache TTL cannot be negative")
	}
	return errs
}

func validateGeocodeSettings(s *GeocodeSettings) []string {
	if !s.Enabled {
		return nil
	}

	var errs []string
	if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("geocode endpoint %q is not a valid URL", s.Endpoint))
	}
	if s.RateLimit <= 0 {
		errs = append(errs, "geocode rate limit must be positive")
	}
	if s.UserAgent == "" {
		errs = append(errs, "geocode user agent is required")
	}
	return errs
}

func validateMQTTSettings(s *MQTTSettings) []string {
	if !s.Enabled {
		return nil
	}

	var errs []string
	if s.Broker == "" {
		errs = append(errs, "mqtt broker is required when mqtt is enabled")
	}
	if s.Topic == "" {
		errs = append(errs, "mqtt topic is required when mqtt is enabled")
	}
	if s.QoS < 0 || s.QoS > 2 {
		errs = append(errs, "mqtt qos must be 0, 1 or 2")
	}
	return errs
}

func validateWebServerSettings(s *WebServerSettings) []string {
	if !s.Enabled {
		return nil
	}

	var errs []string
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("webserver port %q is invalid", s.Port))
	}
	if s.CaptureRateLimit <= 0 {
		errs = append(errs, "webserver capture rate limit must be positive")
	}
	if s.MaxUploadMB < 1 {
		errs = append(errs, "webserver max upload size must be at least 1 MB")
	}
	return errs
}
