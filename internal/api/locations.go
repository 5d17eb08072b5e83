package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
)

// LocationRequest is the body of a save location request.
type LocationRequest struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	IsHome    bool     `json:"is_home"`
}

func (s *Server) listLocations(c echo.Context) error {
	locations, err := s.service.Store().SavedLocations(c.Request().Context())
	if err != nil {
		return s.handleError(c, err, "Failed to load locations")
	}
	return c.JSON(http.StatusOK, locations)
}

// saveLocation stores a location. Without an address the coordinates are
// reverse geocoded when a geocoder is configured.
func (s *Server) saveLocation(c echo.Context) error {
	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		return s.handleErrorCode(c, err, "Invalid request body", http.StatusBadRequest)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return s.handleError(c, errors.ValidationError("latitude and longitude go together"), "Invalid location")
	}

	loc := &catalog.SavedLocation{
		ID:        req.ID,
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IsHome:    req.IsHome,
	}

	ctx := c.Request().Context()
	if loc.Address == "" && loc.Latitude != nil && s.geocoder != nil {
		addr, err := s.geocoder.Reverse(ctx, *loc.Latitude, *loc.Longitude)
		if err != nil {
			// the location is still useful without an address
			s.log.Warn("reverse geocoding failed", logger.String("location", loc.Name), logger.Error(err))
		} else {
			loc.Address = addr.String()
		}
	}

	if err := s.service.Store().SaveLocation(ctx, loc); err != nil {
		return s.handleError(c, err, "Failed to save location")
	}

	status := http.StatusCreated
	if req.ID != 0 {
		status = http.StatusOK
	}
	return c.JSON(status, loc)
}

func (s *Server) deleteLocation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return s.handleError(c, errors.ValidationError("invalid location id"), "Invalid location id")
	}
	if err := s.service.Store().DeleteLocation(c.Request().Context(), uint(id)); err != nil {
		return s.handleError(c, err, "Failed to delete location")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) reverseGeocode(c echo.Context) error {
	if s.geocoder == nil {
		return s.handleErrorCode(c, nil, "Geocoding not configured", http.StatusServiceUnavailable)
	}

	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, err2 := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err1 != nil || err2 != nil {
		return s.handleError(c, errors.ValidationError("lat and lon are required numbers"), "Invalid coordinates")
	}

	addr, err := s.geocoder.Reverse(c.Request().Context(), lat, lon)
	if err != nil {
		return s.handleError(c, err, "Reverse geocoding failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"address":   addr.String(),
		"name":      addr.Name,
		"street":    addr.Street,
		"latitude":  addr.Latitude,
		"longitude": addr.Longitude,
	})
}
