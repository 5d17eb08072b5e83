package bootstrap

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/buildinfo"
	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/vision"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	return &Context{
		Settings: &conf.Settings{
			Catalog: conf.CatalogSettings{
				Driver:   catalog.DriverSQLite,
				Path:     filepath.Join(t.TempDir(), "blink.db"),
				AutoSeed: true,
				CacheTTL: time.Minute,
			},
			Geocode: conf.GeocodeSettings{Endpoint: "https://geocode.test/reverse"},
		},
		Build: buildinfo.NewContext("1.0.0", "", "abcd1234"),
	}
}

func TestScannerConfig(t *testing.T) {
	t.Parallel()

	cfg := ScannerConfig(conf.ScannerSettings{
		Throttle:            time.Second,
		Threshold:           5,
		AllowPartialCapture: true,
		CaptureTimeout:      3 * time.Second,
	})
	assert.Equal(t, time.Second, cfg.Throttle)
	assert.Equal(t, 5, cfg.Threshold)
	assert.False(t, cfg.SeedPartial)
	assert.True(t, cfg.AllowPartialCapture)
	assert.Equal(t, 3*time.Second, cfg.CaptureTimeout)

	// zero values keep the defaults
	def := ScannerConfig(conf.ScannerSettings{})
	assert.Positive(t, def.Threshold)
	assert.Positive(t, def.CandidatesPerRegion)
}

func TestROI(t *testing.T) {
	t.Parallel()

	roi := ROI(conf.ROISettings{X: 0.1, Y: 0.35, Width: 0.8, Height: 0.3})
	require.NotNil(t, roi)
	assert.Equal(t, vision.NormalizedRect{X: 0.1, Y: 0.35, Width: 0.8, Height: 0.3}, *roi)

	assert.Nil(t, ROI(conf.ROISettings{}))
	assert.Nil(t, ROI(conf.ROISettings{X: 0.5, Width: 0.8, Height: 0.3}))
}

func TestOpenCatalogSeedsAndCaches(t *testing.T) {
	t.Parallel()

	c := testContext(t)
	m, err := c.EnsureMetrics()
	require.NoError(t, err)
	again, err := c.EnsureMetrics()
	require.NoError(t, err)
	assert.Same(t, m, again)

	store, err := c.OpenCatalog(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	routes, err := store.Routes(t.Context())
	require.NoError(t, err)
	assert.Len(t, routes, 2)

	for range 2 {
		bus, err := store.FindByPlate(t.Context(), "B 7366 JE")
		require.NoError(t, err)
		assert.Equal(t, "GS", bus.RouteCode())
	}
	assert.Equal(t, 2, mustCount(t, m.Registry(), "blink_catalog_lookups_total"))
}

func TestOpenCatalogWithoutAutoSeed(t *testing.T) {
	t.Parallel()

	c := testContext(t)
	c.Settings.Catalog.AutoSeed = false

	store, err := c.OpenCatalog(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	routes, err := store.Routes(t.Context())
	require.NoError(t, err)
	assert.Empty(t, routes)

	require.NoError(t, SeedCatalog(t.Context(), store, ""))
	routes, err = store.Routes(t.Context())
	require.NoError(t, err)
	assert.Len(t, routes, 2)
}

func TestGeocodeConfigUserAgent(t *testing.T) {
	t.Parallel()

	c := testContext(t)
	assert.Equal(t, "blink-go/1.0.0", c.GeocodeConfig().UserAgent)

	c.Settings.Geocode.UserAgent = "custom/2"
	assert.Equal(t, "custom/2", c.GeocodeConfig().UserAgent)
}

func TestDisabledIntegrations(t *testing.T) {
	t.Parallel()

	c := testContext(t)

	geo, err := c.NewGeocoder()
	require.NoError(t, err)
	assert.Nil(t, geo)

	pub, err := c.ConnectPublisher(t.Context())
	require.NoError(t, err)
	assert.Nil(t, pub)

	c.Settings.Geocode.Enabled = true
	geo, err = c.NewGeocoder()
	require.NoError(t, err)
	assert.NotNil(t, geo)
}

func mustCount(t *testing.T, g prometheus.Gatherer, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(g, name)
	require.NoError(t, err)
	return n
}
