// Package routing answers which routes connect two places and what a trip on a
// given bus looks like.
package routing

import (
	"strings"
	"time"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/errors"
)

// Marker tags a stop relative to where the rider boards.
type Marker string

const (
	MarkerNone        Marker = ""
	MarkerPrevious    Marker = "previous"
	MarkerCurrent     Marker = "current"
	MarkerNext        Marker = "next"
	MarkerDestination Marker = "destination"
)

// ErrNotServed is wrapped when a route does not run between two places.
var ErrNotServed = errors.NewStd("route does not serve this trip")

// Stop is one station of an itinerary.
type Stop struct {
	Name     string        `json:"name"`
	Sequence int           `json:"sequence"`
	Marker   Marker        `json:"marker,omitempty"`
	ETA      time.Duration `json:"eta"`
	Arrival  *time.Time    `json:"arrival,omitempty"`
}

// Verdict tells whether a detected bus takes the rider where they want to go.
type Verdict struct {
	Plate  string         `json:"plate"`
	Route  *catalog.Route `json:"route,omitempty"`
	Serves bool           `json:"serves"`
	Stops  []Stop         `json:"stops,omitempty"`
}

func matches(station, query string) bool {
	return strings.Contains(strings.ToLower(station), strings.ToLower(strings.TrimSpace(query)))
}

// span returns the index of the first station matching from and the first
// later station matching to. An empty query matches any station.
func span(stations []catalog.Station, from, to string) (int, int, bool) {
	for i, s := range stations {
		if !matches(s.Name, from) {
			continue
		}
		for j := i + 1; j < len(stations); j++ {
			if matches(stations[j].Name, to) {
				return i, j, true
			}
		}
		if strings.TrimSpace(to) == "" {
			return i, len(stations) - 1, i < len(stations)-1
		}
	}
	return 0, 0, false
}

// Serves reports whether the route stops at a place matching from and later at
// a place matching to. Matching is a case-insensitive substring test.
func Serves(route catalog.Route, from, to string) bool {
	if strings.TrimSpace(from) == "" && strings.TrimSpace(to) == "" {
		return true
	}
	if strings.TrimSpace(from) == "" {
		for _, s := range route.Stations {
			if matches(s.Name, to) {
				return true
			}
		}
		return false
	}
	_, _, ok := span(route.Stations, from, to)
	return ok
}

// Search returns the routes that serve the trip, keeping their order.
func Search(routes []catalog.Route, from, to string) []catalog.Route {
	found := make([]catalog.Route, 0, len(routes))
	for _, r := range routes {
		if Serves(r, from, to) {
			found = append(found, r)
		}
	}
	return found
}

// segment is the travel time between adjacent stations, the route duration
// spread evenly.
func segment(route catalog.Route) time.Duration {
	if len(route.Stations) < 2 || route.DurationMinutes <= 0 {
		return 0
	}
	return time.Duration(route.DurationMinutes) * time.Minute / time.Duration(len(route.Stations)-1)
}

// Itinerary lists the stops from the boarding station to the destination. The
// station before the boarding one is included as Previous when there is one.
// ETAs count from departure at the boarding station; when depart is set each
// stop also gets an arrival time.
func Itinerary(route catalog.Route, from, to string, depart time.Time) ([]Stop, error) {
	i, j, ok := span(route.Stations, from, to)
	if !ok {
		return nil, errors.New(ErrNotServed).
			Component("routing").
			Category(errors.CategoryNotFound).
			Context("route", route.Code).
			Context("from", from).
			Context("to", to).
			Build()
	}

	per := segment(route)
	first := max(i-1, 0)
	stops := make([]Stop, 0, j-first+1)
	for k := first; k <= j; k++ {
		st := route.Stations[k]
		stop := Stop{Name: st.Name, Sequence: st.Sequence}

		switch {
		case k == i-1:
			stop.Marker = MarkerPrevious
		case k == i:
			stop.Marker = MarkerCurrent
		case k == j:
			stop.Marker = MarkerDestination
		case k == i+1:
			stop.Marker = MarkerNext
		}
		if k > i {
			stop.ETA = time.Duration(k-i) * per
		}
		if !depart.IsZero() && k >= i {
			at := depart.Add(stop.ETA)
			stop.Arrival = &at
		}
		stops = append(stops, stop)
	}
	return stops, nil
}

// MatchBus checks a detected bus against the rider's trip. With no trip given
// the bus serves trivially and the whole route is listed.
func MatchBus(bus *catalog.Bus, from, to string, depart time.Time) Verdict {
	v := Verdict{Plate: bus.PlateKey, Route: bus.Route}
	if bus.Route == nil {
		return v
	}

	v.Serves = Serves(*bus.Route, from, to)
	if !v.Serves {
		return v
	}
	if stops, err := Itinerary(*bus.Route, from, to, depart); err == nil {
		v.Stops = stops
	}
	return v
}
