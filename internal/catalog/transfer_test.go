package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/conf"
)

func openEmptyStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := Open(conf.CatalogSettings{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "target.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	src := newTestStore(t)
	_, err := src.RecordSighting(ctx, "B 7366 JE", "capture")
	require.NoError(t, err)
	require.NoError(t, src.SaveJourney(ctx, &Journey{Origin: "Greenwich", Destination: "Sektor", RouteCode: "GS"}))

	dst := openEmptyStore(t)
	stats, err := Transfer(ctx, src, dst, 2)
	require.NoError(t, err)
	require.Len(t, stats.Tables, 6)
	assert.Positive(t, stats.Copied())

	for _, ts := range stats.Tables {
		assert.Equal(t, ts.Source, ts.Copied, ts.Table)
		assert.Zero(t, ts.Skipped, ts.Table)
	}

	mismatched, err := VerifyTransfer(ctx, src, dst)
	require.NoError(t, err)
	assert.Empty(t, mismatched)

	bus, err := dst.FindByPlate(ctx, "b7366je")
	require.NoError(t, err)
	assert.Equal(t, "GS", bus.RouteCode())
	assert.Equal(t, 1, bus.Sightings)

	route, err := dst.Route(ctx, "GS")
	require.NoError(t, err)
	assert.NotEmpty(t, route.Stations)
}

func TestTransferIsRepeatable(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	src := newTestStore(t)
	dst := openEmptyStore(t)

	_, err := Transfer(ctx, src, dst, 0)
	require.NoError(t, err)

	again, err := Transfer(ctx, src, dst, 0)
	require.NoError(t, err)
	assert.Zero(t, again.Copied())
	for _, ts := range again.Tables {
		assert.Equal(t, ts.Source, ts.Skipped, ts.Table)
	}
}

func TestVerifyTransferReportsMismatch(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	mismatched, err := VerifyTransfer(ctx, newTestStore(t), openEmptyStore(t))
	require.NoError(t, err)
	assert.Contains(t, mismatched, "routes")
	assert.Contains(t, mismatched, "buses")
	assert.NotContains(t, mismatched, "journeys")
}
