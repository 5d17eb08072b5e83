package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/plate"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData is the YAML form of catalog content.
type SeedData struct {
	Routes    []SeedRoute    `yaml:"routes"`
	Buses     []SeedBus      `yaml:"buses"`
	Locations []SeedLocation `yaml:"locations"`
}

// SeedRoute describes a route and its stations in travel order.
type SeedRoute struct {
	Code            string   `yaml:"code"`
	Name            string   `yaml:"name"`
	StartPoint      string   `yaml:"start_point"`
	EndPoint        string   `yaml:"end_point"`
	Color           string   `yaml:"color"`
	DurationMinutes int      `yaml:"duration_minutes"`
	DistanceKm      float64  `yaml:"distance_km"`
	Stations        []string `yaml:"stations"`
}

// SeedBus assigns a plate to a route code.
type SeedBus struct {
	Plate string `yaml:"plate"`
	Route string `yaml:"route"`
}

// SeedLocation is a saved location.
type SeedLocation struct {
	Name      string   `yaml:"name"`
	Address   string   `yaml:"address"`
	IsHome    bool     `yaml:"is_home"`
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
}

// DefaultSeed returns the built-in catalog.
func DefaultSeed() (*SeedData, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a seed file, or the built-in catalog when path is empty.
func LoadSeed(path string) (*SeedData, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return ParseSeed(data)
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (*SeedData, error) {
	var seed SeedData
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.New(err).
			Component("catalog").
			Category(errors.CategoryValidation).
			Context("operation", "parse_seed").
			Build()
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate checks that route codes are unique and every bus plate parses and
// refers to a route in the seed.
func (s *SeedData) Validate() error {
	var problems []string

	codes := make(map[string]bool, len(s.Routes))
	for i, r := range s.Routes {
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		switch {
		case code == "":
			problems = append(problems, fmt.Sprintf("route %d has no code", i))
		case codes[code]:
			problems = append(problems, fmt.Sprintf("route code %s is duplicated", code))
		case len(r.Stations) < 2:
			problems = append(problems, fmt.Sprintf("route %s needs at least two stations", code))
		}
		codes[code] = true
	}

	plates := make(map[string]bool, len(s.Buses))
	for _, b := range s.Buses {
		p, ok := plate.Parse(b.Plate)
		switch {
		case !ok || p.Partial:
			problems = append(problems, fmt.Sprintf("bus plate %q is not a full plate", b.Plate))
		case plates[p.String()]:
			problems = append(problems, fmt.Sprintf("bus plate %s is duplicated", p))
		case !codes[strings.ToUpper(b.Route)]:
			problems = append(problems, fmt.Sprintf("bus %s refers to unknown route %q", p, b.Route))
		}
		plates[p.String()] = true
	}

	for i, l := range s.Locations {
		if strings.TrimSpace(l.Name) == "" {
			problems = append(problems, fmt.Sprintf("location %d has no name", i))
		}
	}

	if len(problems) > 0 {
		return errors.Newf("invalid seed data: %s", strings.Join(problems, "; ")).
			Component("catalog").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
