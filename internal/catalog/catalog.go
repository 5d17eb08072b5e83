// Package catalog stores bus routes, buses, saved locations and the rider's
// scan and journey history.
package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
)

// ErrNotFound is wrapped by lookups that match nothing.
var ErrNotFound = errors.NewStd("not found")

// Store is the catalog persistence interface.
type Store interface {
	// FindByPlate returns the bus with the plate, compared in normalized form.
	FindByPlate(ctx context.Context, plate string) (*Bus, error)

	Routes(ctx context.Context) ([]Route, error)
	Route(ctx context.Context, code string) (*Route, error)

	// RecordSighting stores a scan of plate and updates the bus last-seen
	// time when the plate is known.
	RecordSighting(ctx context.Context, plate, mode string) (*ScanRecord, error)
	// History returns buses by most recent sighting; never seen buses are
	// left out. limit <= 0 means no limit.
	History(ctx context.Context, limit int) ([]Bus, error)
	Scans(ctx context.Context, limit int) ([]ScanRecord, error)

	SaveJourney(ctx context.Context, j *Journey) error
	Journeys(ctx context.Context, limit int) ([]Journey, error)

	SavedLocations(ctx context.Context) ([]SavedLocation, error)
	SaveLocation(ctx context.Context, loc *SavedLocation) error
	DeleteLocation(ctx context.Context, id uint) error

	// Seed upserts routes, buses and locations. Running it twice leaves the
	// catalog unchanged.
	Seed(ctx context.Context, data *SeedData) error
	Empty(ctx context.Context) (bool, error)

	Close() error
}

// GetLogger returns the catalog module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("catalog")
}

func notFound(kind, key string) error {
	return errors.New(fmt.Errorf("%s %q: %w", kind, key, ErrNotFound)).
		Component("catalog").
		Category(errors.CategoryNotFound).
		Context(kind, key).
		Build()
}

func dbError(err error, operation string) error {
	category := errors.CategoryDatabase
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		category = errors.CategoryConflict
	}
	return errors.New(err).
		Component("catalog").
		Category(category).
		Context("operation", operation).
		Build()
}
