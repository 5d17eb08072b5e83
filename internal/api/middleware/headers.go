package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// BrowserPolicy controls what browsers may do with the JSON API.
type BrowserPolicy struct {
	Origins    []string
	HSTSMaxAge int // seconds, sent on TLS connections only
}

// DefaultBrowserPolicy allows any origin. The API carries no cookies or
// credentials, so a wildcard exposes nothing extra.
func DefaultBrowserPolicy() BrowserPolicy {
	return BrowserPolicy{
		Origins:    []string{"*"},
		HSTSMaxAge: int((180 * 24 * time.Hour).Seconds()),
	}
}

// NewCORS lets the configured origins call the API and reconnect to the scan
// event stream.
func NewCORS(p BrowserPolicy) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: p.Origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAccept,
			"Last-Event-ID",
		},
		MaxAge: int((10 * time.Minute).Seconds()),
	})
}

// NewSecureHeaders marks every response as data that must not be framed or
// rendered as a page.
func NewSecureHeaders(p BrowserPolicy) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            p.HSTSMaxAge,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	})
}

// NewBodyLimit caps request bodies, which bounds capture uploads.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// NewGzip compresses responses except the event stream, which must reach the
// client unbuffered.
func NewGzip() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/events")
		},
	})
}
