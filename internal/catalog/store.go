package catalog

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/plate"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	mysqlTimeout = 5 * time.Second
)

// GormStore implements Store on gorm.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
	log logger.Logger
}

// Open connects to the configured database and migrates the schema.
func Open(settings conf.CatalogSettings) (*GormStore, error) {
	dialector, err := dialectorFor(settings)
	if err != nil {
		return nil, err
	}

	log := GetLogger()
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.NewGormLoggerAdapter(log.Module("gorm"), settings.SlowQuery),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryDatabase).
			Context("driver", settings.Driver).
			Context("operation", "open").
			Build()
	}

	store, err := NewGormStore(db)
	if err != nil {
		return nil, err
	}
	log.Info("catalog opened", logger.String("driver", settings.Driver))
	return store, nil
}

// NewGormStore wraps an open database and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(models()...); err != nil {
		return nil, dbError(err, "auto_migrate")
	}
	return &GormStore{db: db, now: time.Now, log: GetLogger()}, nil
}

func dialectorFor(settings conf.CatalogSettings) (gorm.Dialector, error) {
	switch strings.ToLower(settings.Driver) {
	case "", DriverSQLite:
		if dir := filepath.Dir(settings.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("catalog").
					Category(errors.CategoryFileIO).
					Context("path", settings.Path).
					Build()
			}
		}
		return sqlite.Open(settings.Path + "?_foreign_keys=on&_busy_timeout=5000"), nil
	case DriverMySQL:
		return gormmysql.Open(MySQLDSN(settings.MySQL)), nil
	default:
		return nil, errors.Newf("unsupported catalog driver %q", settings.Driver).
			Component("catalog").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// MySQLDSN builds a DSN with escaped credentials and connection timeouts.
func MySQLDSN(s conf.MySQLSettings) string {
	cfg := mysql.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = mysqlTimeout
	cfg.ReadTimeout = mysqlTimeout
	cfg.WriteTimeout = mysqlTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func orderStations(db *gorm.DB) *gorm.DB {
	return db.Order("sequence")
}

// FindByPlate looks a bus up by normalized plate.
func (s *GormStore) FindByPlate(ctx context.Context, p string) (*Bus, error) {
	key := plate.Normalize(p)
	if key == "" {
		return nil, errors.ValidationError("empty plate")
	}

	var bus Bus
	err := s.db.WithContext(ctx).
		Preload("Route").
		Preload("Route.Stations", orderStations).
		Where("plate_key = ?", key).
		First(&bus).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("plate", key)
	}
	if err != nil {
		return nil, dbError(err, "find_by_plate")
	}
	return &bus, nil
}

// Routes returns all routes ordered by code.
func (s *GormStore) Routes(ctx context.Context) ([]Route, error) {
	var routes []Route
	if err := s.db.WithContext(ctx).Preload("Stations", orderStations).Order("code").Find(&routes).Error; err != nil {
		return nil, dbError(err, "routes")
	}
	return routes, nil
}

// Route returns one route by code, case-insensitively.
func (s *GormStore) Route(ctx context.Context, code string) (*Route, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var route Route
	err := s.db.WithContext(ctx).Preload("Stations", orderStations).Where("code = ?", code).First(&route).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("route", code)
	}
	if err != nil {
		return nil, dbError(err, "route")
	}
	return &route, nil
}

// RecordSighting stores a scan record. A known bus gets its last-seen time and
// sighting count updated in the same transaction.
func (s *GormStore) RecordSighting(ctx context.Context, p, mode string) (*ScanRecord, error) {
	key := plate.Normalize(p)
	if key == "" {
		return nil, errors.ValidationError("empty plate")
	}

	now := s.now()
	record := &ScanRecord{ID: uuid.NewString(), Plate: key, Mode: mode, CreatedAt: now}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bus Bus
		err := tx.Preload("Route").Where("plate_key = ?", key).First(&bus).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		default:
			record.RouteCode = bus.RouteCode()
			if err := tx.Model(&bus).Updates(map[string]any{
				"last_seen": now,
				"sightings": gorm.Expr("sightings + ?", 1),
			}).Error; err != nil {
				return err
			}
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, dbError(err, "record_sighting")
	}

	s.log.Debug("sighting recorded",
		logger.String("plate", key),
		logger.String("mode", mode),
		logger.Bool("known", record.Known()))
	return record, nil
}

// History returns buses that have been seen, most recent first.
func (s *GormStore) History(ctx context.Context, limit int) ([]Bus, error) {
	q := s.db.WithContext(ctx).
		Preload("Route").
		Where("last_seen IS NOT NULL").
		Order("last_seen DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var buses []Bus
	if err := q.Find(&buses).Error; err != nil {
		return nil, dbError(err, "history")
	}
	return buses, nil
}

// Scans returns scan records, most recent first.
func (s *GormStore) Scans(ctx context.Context, limit int) ([]ScanRecord, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []ScanRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, dbError(err, "scans")
	}
	return records, nil
}

// SaveJourney stores a route search, assigning an id when missing.
func (s *GormStore) SaveJourney(ctx context.Context, j *Journey) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return dbError(err, "save_journey")
	}
	return nil
}

// Journeys returns route searches, most recent first.
func (s *GormStore) Journeys(ctx context.Context, limit int) ([]Journey, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var journeys []Journey
	if err := q.Find(&journeys).Error; err != nil {
		return nil, dbError(err, "journeys")
	}
	return journeys, nil
}

// SavedLocations returns the home location first, then the rest by name.
func (s *GormStore) SavedLocations(ctx context.Context) ([]SavedLocation, error) {
	var locations []SavedLocation
	if err := s.db.WithContext(ctx).Order("is_home DESC").Order("name").Find(&locations).Error; err != nil {
		return nil, dbError(err, "saved_locations")
	}
	return locations, nil
}

// SaveLocation creates or updates a location. Only one location is home.
func (s *GormStore) SaveLocation(ctx context.Context, loc *SavedLocation) error {
	loc.Name = strings.TrimSpace(loc.Name)
	if loc.Name == "" {
		return errors.ValidationError("location name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if loc.IsHome {
			if err := tx.Model(&SavedLocation{}).
				Where("is_home = ? AND id <> ?", true, loc.ID).
				Update("is_home", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(loc).Error
	})
	if err != nil {
		return dbError(err, "save_location")
	}
	return nil
}

// DeleteLocation removes a location by id.
func (s *GormStore) DeleteLocation(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&SavedLocation{}, id)
	if res.Error != nil {
		return dbError(res.Error, "delete_location")
	}
	if res.RowsAffected == 0 {
		return notFound("location", strconv.FormatUint(uint64(id), 10))
	}
	return nil
}

// Empty reports whether the catalog holds no routes.
func (s *GormStore) Empty(ctx context.Context) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Route{}).Count(&n).Error; err != nil {
		return false, dbError(err, "count_routes")
	}
	return n == 0, nil
}

// Seed upserts routes by code, buses by plate key and locations by name.
// Stations of a seeded route are replaced.
func (s *GormStore) Seed(ctx context.Context, data *SeedData) error {
	if err := data.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		routeIDs := make(map[string]uint, len(data.Routes))
		for _, sr := range data.Routes {
			id, err := seedRoute(tx, sr)
			if err != nil {
				return err
			}
			routeIDs[strings.ToUpper(sr.Code)] = id
		}

		for _, sb := range data.Buses {
			p, _ := plate.Parse(sb.Plate)
			bus := Bus{PlateKey: p.String(), Plate: strings.TrimSpace(sb.Plate), RouteID: routeIDs[strings.ToUpper(sb.Route)]}
			if err := tx.Where(Bus{PlateKey: bus.PlateKey}).
				Assign(Bus{Plate: bus.Plate, RouteID: bus.RouteID}).
				FirstOrCreate(&bus).Error; err != nil {
				return err
			}
		}

		for _, sl := range data.Locations {
			loc := SavedLocation{Name: strings.TrimSpace(sl.Name)}
			if err := tx.Where(SavedLocation{Name: loc.Name}).
				Assign(map[string]any{
					"address":   sl.Address,
					"is_home":   sl.IsHome,
					"latitude":  sl.Latitude,
					"longitude": sl.Longitude,
				}).
				FirstOrCreate(&loc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "seed")
	}

	s.log.Info("catalog seeded",
		logger.Int("routes", len(data.Routes)),
		logger.Int("buses", len(data.Buses)),
		logger.Int("locations", len(data.Locations)))
	return nil
}

func seedRoute(tx *gorm.DB, sr SeedRoute) (uint, error) {
	route := Route{Code: strings.ToUpper(strings.TrimSpace(sr.Code))}
	fields := Route{
		Name:            sr.Name,
		StartPoint:      sr.StartPoint,
		EndPoint:        sr.EndPoint,
		Color:           sr.Color,
		DurationMinutes: sr.DurationMinutes,
		DistanceKm:      sr.DistanceKm,
	}
	if fields.StartPoint == "" && len(sr.Stations) > 0 {
		fields.StartPoint = sr.Stations[0]
	}
	if fields.EndPoint == "" && len(sr.Stations) > 0 {
		fields.EndPoint = sr.Stations[len(sr.Stations)-1]
	}

	if err := tx.Where(Route{Code: route.Code}).Assign(fields).FirstOrCreate(&route).Error; err != nil {
		return 0, err
	}
	if err := tx.Where("route_id = ?", route.ID).Delete(&Station{}).Error; err != nil {
		return 0, err
	}

	stations := make([]Station, len(sr.Stations))
	for i, name := range sr.Stations {
		stations[i] = Station{RouteID: route.ID, Sequence: i + 1, Name: name}
	}
	if len(stations) > 0 {
		if err := tx.Create(&stations).Error; err != nil {
			return 0, err
		}
	}
	return route.ID, nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}
