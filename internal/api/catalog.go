package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/errors"
)

const maxHistoryLimit = 500

// RouteSearchResponse lists the routes serving a trip.
type RouteSearchResponse struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Count  int             `json:"count"`
	Routes []catalog.Route `json:"routes"`
}

// parseLimit reads the "limit" query parameter.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return DefaultHistorySize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.ValidationError("limit must be a positive integer")
	}
	return min(n, maxHistoryLimit), nil
}

func (s *Server) getBus(c echo.Context) error {
	bus, err := s.service.Lookup(c.Request().Context(), c.Param("plate"))
	if err != nil {
		return s.handleError(c, err, "Bus not found")
	}
	return c.JSON(http.StatusOK, bus)
}

func (s *Server) submitManualPlate(c echo.Context) error {
	var req struct {
		Plate string `json:"plate"`
	}
	if err := c.Bind(&req); err != nil {
		return s.handleErrorCode(c, err, "Invalid request body", http.StatusBadRequest)
	}

	d, err := s.service.SubmitManualPlate(c.Request().Context(), req.Plate)
	if err != nil {
		return s.handleError(c, err, "Invalid plate")
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) searchRoutes(c echo.Context) error {
	from, to := c.QueryParam("from"), c.QueryParam("to")
	routes, err := s.service.FindRoutes(c.Request().Context(), from, to)
	if err != nil {
		return s.handleError(c, err, "Failed to search routes")
	}
	return c.JSON(http.StatusOK, RouteSearchResponse{
		From:   from,
		To:     to,
		Count:  len(routes),
		Routes: routes,
	})
}

func (s *Server) getRoute(c echo.Context) error {
	route, err := s.service.Store().Route(c.Request().Context(), c.Param("code"))
	if err != nil {
		return s.handleError(c, err, "Route not found")
	}
	return c.JSON(http.StatusOK, route)
}

func (s *Server) getItinerary(c echo.Context) error {
	stops, err := s.service.Itinerary(c.Request().Context(), c.Param("code"), c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return s.handleError(c, err, "No itinerary for this trip")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"route": c.Param("code"),
		"stops": stops,
	})
}

func (s *Server) getHistory(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return s.handleError(c, err, "Invalid limit")
	}
	buses, err := s.service.Store().History(c.Request().Context(), limit)
	if err != nil {
		return s.handleError(c, err, "Failed to load history")
	}
	return c.JSON(http.StatusOK, buses)
}

func (s *Server) getScans(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return s.handleError(c, err, "Invalid limit")
	}
	scans, err := s.service.Store().Scans(c.Request().Context(), limit)
	if err != nil {
		return s.handleError(c, err, "Failed to load scans")
	}
	return c.JSON(http.StatusOK, scans)
}

func (s *Server) getJourneys(c echo.Context) error {
	limit, err := parseLimit(c)
	if err != nil {
		return s.handleError(c, err, "Invalid limit")
	}
	journeys, err := s.service.Store().Journeys(c.Request().Context(), limit)
	if err != nil {
		return s.handleError(c, err, "Failed to load journeys")
	}
	return c.JSON(http.StatusOK, journeys)
}
