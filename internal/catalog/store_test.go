package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/errors"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()

	store, err := Open(conf.CatalogSettings{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, store.Seed(t.Context(), seed))
	return store
}

// steppingClock returns a clock that moves one minute per call.
func steppingClock() func() time.Time {
	now := time.Date(2025, 3, 27, 7, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func TestDefaultSeedRoutes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	routes, err := store.Routes(t.Context())
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, "BC", routes[0].Code)
	assert.Equal(t, "GS", routes[1].Code)

	want := []string{"Greenwich Park", "CBD Barat", "CBD Timur", "Lobby AEON Mall", "Halte Sektor 1.3"}
	if diff := cmp.Diff(want, routes[1].StationNames()); diff != "" {
		t.Errorf("GS stations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 65, routes[1].DurationMinutes)
	assert.InDelta(t, 6.9, routes[1].DistanceKm, 1e-9)
	assert.Equal(t, "Greenwich Park", routes[1].StartPoint)

	route, err := store.Route(t.Context(), "bc")
	require.NoError(t, err)
	assert.Equal(t, []string{"The Breeze", "AEON", "ICE Loop Line", "Lobby AEON"}, route.StationNames())
}

func TestFindByPlate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	tests := []struct {
		name  string
		query string
		key   string
		route string
	}{
		{"canonical", "B 7366 JE", "B 7366 JE", "GS"},
		{"compact lowercase", "b7566paa", "B 7566 PAA", "GS"},
		{"cyrillic registration", "B 7366 PAA", "B 7366 PAA", "BC"},
		{"punctuated", "B-7002-PGX", "B 7002 PGX", "BC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, err := store.FindByPlate(t.Context(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.key, bus.PlateKey)
			assert.Equal(t, tt.route, bus.RouteCode())
			assert.NotEmpty(t, bus.Route.Stations)
		})
	}

	bus, err := store.FindByPlate(t.Context(), "B 7366 PAA")
	require.NoError(t, err)
	assert.Equal(t, "В 7366 PAA", bus.Plate, "registered text is kept")
}

func TestFindByPlateNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.FindByPlate(t.Context(), "D 1234 AB")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.FindByPlate(t.Context(), "  ")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = store.Route(t.Context(), "XX")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, store.Seed(t.Context(), seed))

	var routes, stations, buses, locations int64
	require.NoError(t, store.db.Model(&Route{}).Count(&routes).Error)
	require.NoError(t, store.db.Model(&Station{}).Count(&stations).Error)
	require.NoError(t, store.db.Model(&Bus{}).Count(&buses).Error)
	require.NoError(t, store.db.Model(&SavedLocation{}).Count(&locations).Error)

	assert.Equal(t, int64(2), routes)
	assert.Equal(t, int64(9), stations)
	assert.Equal(t, int64(4), buses)
	assert.Equal(t, int64(2), locations)

	empty, err := store.Empty(t.Context())
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestSeedMovesBusToNewRoute(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seed, err := ParseSeed([]byte(`
routes:
  - code: GS
    name: Greenwich Park - Halte Sektor 1.3
    stations: [Greenwich Park, Halte Sektor 1.3]
  - code: BC
    name: The Breeze - Lobby AEON
    stations: [The Breeze, Lobby AEON]
buses:
  - plate: B 7366 JE
    route: BC
`))
	require.NoError(t, err)
	require.NoError(t, store.Seed(t.Context(), seed))

	bus, err := store.FindByPlate(t.Context(), "B 7366 JE")
	require.NoError(t, err)
	assert.Equal(t, "BC", bus.RouteCode())
	assert.Equal(t, []string{"The Breeze", "Lobby AEON"}, bus.Route.StationNames())
}

func TestParseSeedRejectsInvalidData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown route", "routes: [{code: GS, stations: [A, B]}]\nbuses: [{plate: B 1 A, route: XX}]"},
		{"partial plate", "routes: [{code: GS, stations: [A, B]}]\nbuses: [{plate: B 1, route: GS}]"},
		{"duplicate route", "routes: [{code: GS, stations: [A, B]}, {code: gs, stations: [A, B]}]"},
		{"single station", "routes: [{code: GS, stations: [A]}]"},
		{"unnamed location", "locations: [{address: somewhere}]"},
		{"not yaml", "routes: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSeed([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestRecordSightingAndHistory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	store.now = steppingClock()
	ctx := t.Context()

	rec, err := store.RecordSighting(ctx, "b7366je", "continuous")
	require.NoError(t, err)
	assert.True(t, rec.Known())
	assert.Equal(t, "GS", rec.RouteCode)
	assert.Equal(t, "B 7366 JE", rec.Plate)
	assert.Len(t, rec.ID, 36)

	_, err = store.RecordSighting(ctx, "B 7002 PGX", "capture")
	require.NoError(t, err)
	_, err = store.RecordSighting(ctx, "B 7366 JE", "manual")
	require.NoError(t, err)

	unknown, err := store.RecordSighting(ctx, "D 1 X", "capture")
	require.NoError(t, err)
	assert.False(t, unknown.Known())

	history, err := store.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2, "unseen buses are left out")
	assert.Equal(t, "B 7366 JE", history[0].PlateKey)
	assert.Equal(t, 2, history[0].Sightings)
	assert.Equal(t, "B 7002 PGX", history[1].PlateKey)
	assert.Equal(t, "BC", history[1].RouteCode())

	limited, err := store.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	scans, err := store.Scans(ctx, 0)
	require.NoError(t, err)
	require.Len(t, scans, 4)
	assert.Equal(t, "D 1 X", scans[0].Plate)
	assert.Equal(t, "continuous", scans[3].Mode)
}

func TestJourneys(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	store.now = steppingClock()
	ctx := t.Context()

	first := &Journey{Origin: "Greenwich Park", Destination: "CBD Timur", RouteCode: "GS"}
	require.NoError(t, store.SaveJourney(ctx, first))
	assert.NotEmpty(t, first.ID)
	require.NoError(t, store.SaveJourney(ctx, &Journey{Origin: "The Breeze", Destination: "AEON"}))

	journeys, err := store.Journeys(ctx, 10)
	require.NoError(t, err)
	require.Len(t, journeys, 2)
	assert.Equal(t, "The Breeze", journeys[0].Origin)
	assert.Equal(t, first.ID, journeys[1].ID)
}

func TestSavedLocations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := t.Context()

	locations, err := store.SavedLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "Home", locations[0].Name)
	assert.True(t, locations[0].IsHome)
	assert.Equal(t, "Gedung Apel | Jl. GOP Indah No 9", locations[1].Address)

	lat, lon := -6.3015, 106.6527
	gym := &SavedLocation{Name: " Gym ", Address: "Gym | Jl. BSD Raya", Latitude: &lat, Longitude: &lon, IsHome: true}
	require.NoError(t, store.SaveLocation(ctx, gym))
	assert.NotZero(t, gym.ID)
	assert.Equal(t, "Gym", gym.Name)

	locations, err = store.SavedLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.Equal(t, "Gym", locations[0].Name)
	for _, l := range locations[1:] {
		assert.False(t, l.IsHome, l.Name)
	}

	require.NoError(t, store.DeleteLocation(ctx, gym.ID))
	err = store.DeleteLocation(ctx, gym.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.SaveLocation(ctx, &SavedLocation{Name: "   "})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(conf.CatalogSettings{Driver: "postgres"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEmptyCatalog(t *testing.T) {
	t.Parallel()

	store, err := Open(conf.CatalogSettings{Path: filepath.Join(t.TempDir(), "nested", "empty.db")})
	require.NoError(t, err)
	defer store.Close()

	empty, err := store.Empty(t.Context())
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := MySQLDSN(conf.MySQLSettings{
		Host:     "db.local",
		Port:     3307,
		Username: "blink",
		Password: "p@ss:word",
		Database: "catalog",
	})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "blink", cfg.User)
	assert.Equal(t, "p@ss:word", cfg.Passwd)
	assert.Equal(t, "db.local:3307", cfg.Addr)
	assert.Equal(t, "catalog", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, mysqlTimeout, cfg.Timeout)
}
