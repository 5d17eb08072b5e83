package app

import (
	"context"
	"strings"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/routing"
)

// FindRoutes returns the routes serving the trip and keeps the search in the
// journey history. Searches without origin and destination are not kept.
func (s *Service) FindRoutes(ctx context.Context, from, to string) ([]catalog.Route, error) {
	routes, err := s.store.Routes(ctx)
	if err != nil {
		return nil, err
	}
	found := routing.Search(routes, from, to)

	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from != "" || to != "" {
		j := &catalog.Journey{Origin: from, Destination: to}
		if len(found) > 0 {
			j.RouteCode = found[0].Code
		}
		if err := s.store.SaveJourney(ctx, j); err != nil {
			s.log.Warn("failed to save journey", logger.Error(err))
		}
	}
	return found, nil
}

// Itinerary returns the stops of route code between from and to, with
// arrival times counted from now.
func (s *Service) Itinerary(ctx context.Context, code, from, to string) ([]routing.Stop, error) {
	route, err := s.store.Route(ctx, code)
	if err != nil {
		return nil, err
	}
	return routing.Itinerary(*route, from, to, s.now())
}
