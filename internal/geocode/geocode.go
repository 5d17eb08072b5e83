// Package geocode turns coordinates into short place descriptions through a
// Nominatim-compatible reverse geocoding service.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/httpclient"
	"github.com/blinkbus/blink-go/internal/logger"
)

// Lookup outcomes passed to the observer.
const (
	OutcomeCached = "cached"
	OutcomeOK     = "ok"
	OutcomeError  = "error"
)

// ErrNoResult is wrapped when the service knows nothing at the coordinates.
var ErrNoResult = errors.NewStd("no address at location")

// Config configures the client.
type Config struct {
	Endpoint  string
	UserAgent string
	RateLimit float64 // requests per second, <= 0 disables limiting
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// Address is a reverse geocoding result.
type Address struct {
	Name      string  `json:"name"`
	Street    string  `json:"street,omitempty"`
	Display   string  `json:"display_name,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String renders the address as "name | street".
func (a Address) String() string {
	switch {
	case a.Street == "":
		return a.Name
	case a.Name == "":
		return a.Street
	default:
		return a.Name + " | " + a.Street
	}
}

// Doer sends HTTP requests. *http.Client and *httpclient.Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc Doer) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithObserver is called with the outcome of every lookup.
func WithObserver(fn func(outcome string)) Option {
	return func(c *Client) {
		if fn != nil {
			c.observe = fn
		}
	}
}

// Client performs rate limited, cached reverse lookups.
type Client struct {
	endpoint  *url.URL
	userAgent string
	http      Doer
	limiter   *rate.Limiter
	cache     *cache.Cache
	observe   func(string)
	log       logger.Logger
}

// New creates a client for cfg.Endpoint.
func New(cfg Config, opts ...Option) (*Client, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, errors.Newf("invalid geocode endpoint %q", cfg.Endpoint).
			Component("geocode").
			Category(errors.CategoryConfiguration).
			Build()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint:  endpoint,
		userAgent: cfg.UserAgent,
		http:      httpclient.New(&httpclient.Config{Timeout: timeout, UserAgent: cfg.UserAgent}),
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cache.New(ttl, 2*ttl),
		observe:   func(string) {},
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetLogger returns the geocode module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("geocode")
}

// cacheKey rounds to four decimals, roughly eleven metres.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Reverse returns the address at the coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Address, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Address{}, errors.ValidationError(fmt.Sprintf("coordinates out of range: %f,%f", lat, lon))
	}

	key := cacheKey(lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.observe(OutcomeCached)
		return v.(Address), nil
	}

	addr, err := c.fetch(ctx, lat, lon)
	if err != nil {
		c.observe(OutcomeError)
		return Address{}, err
	}
	c.observe(OutcomeOK)
	c.cache.SetDefault(key, addr)
	return addr, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (Address, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Address{}, c.wrap(err, "rate_limiter_wait")
	}

	u := *c.endpoint
	q := u.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Address{}, c.wrap(err, "build_request")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, c.wrap(err, "request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Address{}, errors.Newf("geocoding service returned %d", resp.StatusCode).
			Component("geocode").
			Category(errors.CategoryGeocoding).
			Context("status_code", resp.StatusCode).
			Context("body", strings.TrimSpace(string(body))).
			Build()
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return Address{}, c.wrap(err, "parse_response")
	}

	addr, err := parseAddress(obj)
	if err != nil {
		return Address{}, err
	}
	addr.Latitude, addr.Longitude = lat, lon

	c.log.Debug("reverse geocoded",
		logger.String("address", addr.String()),
		logger.Duration("elapsed", time.Since(start)))
	return addr, nil
}

// nameKeys are address detail fields tried, in order, when the result has no name.
var nameKeys = []string{"amenity", "building", "shop", "tourism", "leisure", "office", "house_number"}

// streetKeys are address detail fields tried, in order, for the street.
var streetKeys = []string{"road", "pedestrian", "footway", "residential", "neighbourhood", "suburb"}

func parseAddress(obj *jason.Object) (Address, error) {
	if msg, err := obj.GetString("error"); err == nil {
		return Address{}, errors.New(fmt.Errorf("%s: %w", msg, ErrNoResult)).
			Component("geocode").
			Category(errors.CategoryNotFound).
			Build()
	}

	var addr Address
	addr.Display, _ = obj.GetString("display_name")
	addr.Name, _ = obj.GetString("name")

	details, err := obj.GetObject("address")
	if err == nil {
		if addr.Name == "" {
			addr.Name = firstString(details, nameKeys)
		}
		addr.Street = firstString(details, streetKeys)
	}

	if addr.Name == "" && addr.Display != "" {
		addr.Name = strings.TrimSpace(strings.SplitN(addr.Display, ",", 2)[0])
	}
	if addr.Name == addr.Street {
		addr.Street = ""
	}
	if addr.Name == "" && addr.Street == "" {
		return Address{}, errors.New(ErrNoResult).
			Component("geocode").
			Category(errors.CategoryNotFound).
			Build()
	}
	return addr, nil
}

func firstString(obj *jason.Object, keys []string) string {
	for _, k := range keys {
		if v, err := obj.GetString(k); err == nil && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (c *Client) wrap(err error, operation string) error {
	return errors.New(err).
		Component("geocode").
		Category(errors.CategoryGeocoding).
		Context("operation", operation).
		Build()
}
