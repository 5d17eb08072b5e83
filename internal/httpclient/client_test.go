package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(client.Close)
	return client
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		timeout time.Duration
		agent   string
	}{
		{"nil config", nil, DefaultTimeout, defaultUserAgent},
		{"zero values", &Config{}, DefaultTimeout, defaultUserAgent},
		{"custom", &Config{Timeout: 2 * time.Second, UserAgent: "blink-go/1.2"}, 2 * time.Second, "blink-go/1.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, tt.cfg)
			assert.Equal(t, tt.timeout, c.client.Timeout)
			assert.Equal(t, tt.agent, c.userAgent)
		})
	}
}

func TestDoInjectsUserAgent(t *testing.T) {
	t.Parallel()

	var got atomic.Value
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	})
	c := newTestClient(t, &Config{UserAgent: "blink-go/test"})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "blink-go/test", got.Load())
}

func TestDoKeepsCallerUserAgent(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://svc.test/ping",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "custom/1.0", req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, ""), nil
		})
	c := newTestClient(t, &Config{Transport: transport})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://svc.test/ping", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/1.0")
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestResponseHook(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://svc.test/busy", httpmock.NewStringResponder(http.StatusServiceUnavailable, "busy"))
	c := newTestClient(t, &Config{Transport: transport})

	var status int
	var calls int
	c.SetResponseHook(func(_ *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		calls++
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, time.Duration(0))
		status = resp.StatusCode
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://svc.test/busy", http.NoBody)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestResponseHookSeesTransportErrors(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	c := newTestClient(t, &Config{Transport: transport})

	var hookErr error
	c.SetResponseHook(func(_ *http.Request, resp *http.Response, err error, _ time.Duration) {
		assert.Nil(t, resp)
		hookErr = err
	})

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "https://svc.test/unregistered", http.NoBody)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.Error(t, err)
	assert.Error(t, hookErr)
}

func TestDoRejectsNilRequest(t *testing.T) {
	t.Parallel()

	_, err := newTestClient(t, nil).Do(nil)
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, &Config{Timeout: 50 * time.Millisecond})
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
}
