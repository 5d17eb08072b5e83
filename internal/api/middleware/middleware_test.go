package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, path string
	status       int
}

type recordingObserver struct {
	mu  sync.Mutex
	got []observed
}

func (r *recordingObserver) ObserveRequest(method, path string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, observed{method, path, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	e := echo.New()
	e.Use(NewMetrics(obs))
	e.GET("/buses/:plate", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Param("plate"))
	})

	for _, target := range []string{"/buses/B7366JE", "/nowhere"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	}

	require.Len(t, obs.got, 2)
	assert.Equal(t, observed{http.MethodGet, "/buses/:plate", http.StatusOK}, obs.got[0])
	assert.Equal(t, http.StatusNotFound, obs.got[1].status)
}

func TestGzipSkipsEventStreams(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewGzip())
	body := strings.Repeat("bus ", 1024)
	handler := func(c echo.Context) error { return c.String(http.StatusOK, body) }
	e.GET("/api/v1/routes", handler)
	e.GET("/api/v1/scan/events", handler)

	tests := []struct {
		path     string
		encoding string
	}{
		{"/api/v1/routes", "gzip"},
		{"/api/v1/scan/events", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
		req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tt.encoding, rec.Header().Get(echo.HeaderContentEncoding), tt.path)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	cfg := DefaultBrowserPolicy()
	cfg.Origins = []string{"https://blink.example"}

	e := echo.New()
	e.Use(NewCORS(cfg))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://blink.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "https://blink.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSPreflightForEventStream(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewCORS(DefaultBrowserPolicy()))
	e.GET("/api/v1/scan/events", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scan/events", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://rider.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "Last-Event-ID")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "Last-Event-ID")
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewSecureHeaders(DefaultBrowserPolicy()))
	e.GET("/api/v1/health", func(c echo.Context) error { return c.JSON(http.StatusOK, map[string]string{"status": "ok"}) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody))

	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get(echo.HeaderContentSecurityPolicy))
	assert.Equal(t, "no-referrer", rec.Header().Get(echo.HeaderReferrerPolicy))
	// plain HTTP gets no HSTS
	assert.Empty(t, rec.Header().Get(echo.HeaderStrictTransportSecurity))
}
