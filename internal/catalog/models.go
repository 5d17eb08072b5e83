package catalog

import "time"

// Route is a bus line with its ordered stations.
type Route struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	Code            string    `gorm:"uniqueIndex;size:16;not null" json:"code"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	StartPoint      string    `gorm:"size:200" json:"start_point"`
	EndPoint        string    `gorm:"size:200" json:"end_point"`
	Color           string    `gorm:"size:32" json:"color"`
	DurationMinutes int       `json:"duration_minutes"`
	DistanceKm      float64   `json:"distance_km"`
	Stations        []Station `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE" json:"stations"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// StationNames returns the station names in travel order.
func (r Route) StationNames() []string {
	names := make([]string, len(r.Stations))
	for i, s := range r.Stations {
		names[i] = s.Name
	}
	return names
}

// Station is a stop on a route. Sequence orders stations along the route.
type Station struct {
	ID        uint     `gorm:"primaryKey" json:"-"`
	RouteID   uint     `gorm:"index;not null" json:"-"`
	Sequence  int      `gorm:"not null" json:"sequence"`
	Name      string   `gorm:"size:200;not null" json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Bus is a vehicle known by its plate. PlateKey is the normalized plate used
// for lookups, Plate the text as registered.
type Bus struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	PlateKey  string     `gorm:"uniqueIndex;size:16;not null" json:"plate"`
	Plate     string     `gorm:"size:32;not null" json:"registered_plate"`
	RouteID   uint       `gorm:"index;not null" json:"-"`
	Route     *Route     `gorm:"foreignKey:RouteID" json:"route,omitempty"`
	LastSeen  *time.Time `gorm:"index" json:"last_seen,omitempty"`
	Sightings int        `gorm:"not null;default:0" json:"sightings"`
}

// RouteCode returns the code of the bus route, empty when not loaded.
func (b Bus) RouteCode() string {
	if b.Route == nil {
		return ""
	}
	return b.Route.Code
}

// SavedLocation is a named place the rider uses as start or destination.
// Address follows the "name | street" form of reverse geocoding.
type SavedLocation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Address   string    `gorm:"size:300" json:"address"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	IsHome    bool      `gorm:"not null;default:false" json:"is_home"`
	CreatedAt time.Time `json:"created_at"`
}

// Journey is a route search made by the rider.
type Journey struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Origin      string    `gorm:"size:200" json:"from"`
	Destination string    `gorm:"size:200" json:"to"`
	RouteCode   string    `gorm:"size:16" json:"route_code,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// ScanRecord is one plate reading reported by the scanner or entered manually.
type ScanRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Plate     string    `gorm:"index;size:16;not null" json:"plate"`
	RouteCode string    `gorm:"size:16" json:"route_code,omitempty"`
	Mode      string    `gorm:"size:16;not null" json:"mode"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Known reports whether the scanned plate belongs to a catalog bus.
func (r ScanRecord) Known() bool {
	return r.RouteCode != ""
}

func models() []any {
	return []any{&Route{}, &Station{}, &Bus{}, &SavedLocation{}, &Journey{}, &ScanRecord{}}
}
