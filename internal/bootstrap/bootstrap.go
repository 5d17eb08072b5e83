// Package bootstrap builds the BLink components from settings. Commands use it
// so the CLI and the server wire the same way.
package bootstrap

import (
	"cmp"
	"context"
	"time"

	"github.com/blinkbus/blink-go/internal/app"
	"github.com/blinkbus/blink-go/internal/buildinfo"
	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/geocode"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/mqtt"
	"github.com/blinkbus/blink-go/internal/observability"
	"github.com/blinkbus/blink-go/internal/ocr"
	"github.com/blinkbus/blink-go/internal/plate"
	"github.com/blinkbus/blink-go/internal/scanner"
	"github.com/blinkbus/blink-go/internal/vision"
)

// Context is what commands share: settings, build metadata and, once created,
// the metrics registry.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics
}

// GetLogger returns the bootstrap module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("bootstrap")
}

// ScannerConfig maps scanner settings onto the controller policy.
func ScannerConfig(s conf.ScannerSettings) scanner.Config {
	cfg := scanner.DefaultConfig()
	if s.Throttle > 0 {
		cfg.Throttle = s.Throttle
	}
	if s.Threshold > 0 {
		cfg.Threshold = s.Threshold
	}
	if s.CandidatesPerRegion > 0 {
		cfg.CandidatesPerRegion = s.CandidatesPerRegion
	}
	cfg.SeedPartial = s.SeedPartial
	cfg.AllowPartialCapture = s.AllowPartialCapture
	cfg.CaptureTimeout = s.CaptureTimeout
	return cfg
}

// ROI returns the continuous-mode region, nil for the whole frame.
func ROI(s conf.ROISettings) *vision.NormalizedRect {
	r := vision.NormalizedRect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
	if !r.Valid() {
		return nil
	}
	return &r
}

// OCRConfig maps OCR settings onto the tesseract recognizer config.
func OCRConfig(s conf.OCRSettings) ocr.Config {
	return ocr.Config{
		Language:       s.Language,
		Quality:        s.Quality,
		Whitelist:      s.Whitelist,
		TessdataPrefix: s.TessdataPrefix,
		PageSegMode:    s.PageSegMode,
		PoolSize:       s.PoolSize,
		Upscale:        s.Upscale,
	}
}

// CameraConfig maps camera settings onto a device config.
func CameraConfig(s conf.CameraSettings) camera.DeviceConfig {
	return camera.DeviceConfig{Device: s.Device, Width: s.Width, Height: s.Height, FPS: s.FPS}
}

// GeocodeConfig maps geocode settings. The build user agent is used when none
// is configured.
func (c *Context) GeocodeConfig() geocode.Config {
	s := c.Settings.Geocode
	ua := s.UserAgent
	if ua == "" {
		ua = c.Build.UserAgent()
	}
	return geocode.Config{
		Endpoint:  s.Endpoint,
		UserAgent: ua,
		RateLimit: s.RateLimit,
		CacheTTL:  s.CacheTTL,
		Timeout:   s.Timeout,
	}
}

// EnsureMetrics creates the metrics registry on first use.
func (c *Context) EnsureMetrics() (*observability.Metrics, error) {
	if c.Metrics != nil {
		return c.Metrics, nil
	}
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_metrics").
			Build()
	}
	c.Metrics = m
	return m, nil
}

// OpenCatalog opens the catalog, seeds it when empty and auto seeding is on,
// and wraps it with the plate lookup cache.
func (c *Context) OpenCatalog(ctx context.Context) (catalog.Store, error) {
	settings := c.Settings.Catalog
	store, err := catalog.Open(settings)
	if err != nil {
		return nil, err
	}

	if settings.AutoSeed {
		empty, err := store.Empty(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if empty {
			if err := SeedCatalog(ctx, store, settings.SeedFile); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
	}

	var observer catalog.LookupObserver
	if c.Metrics != nil {
		observer = c.Metrics.Lookup.ObserveCatalogLookup
	}
	return catalog.NewCachedStore(store, settings.CacheTTL, observer), nil
}

// SeedCatalog loads the seed file, or the embedded data when path is empty,
// into store.
func SeedCatalog(ctx context.Context, store catalog.Store, path string) error {
	var (
		data *catalog.SeedData
		err  error
	)
	if path == "" {
		data, err = catalog.DefaultSeed()
	} else {
		data, err = catalog.LoadSeed(path)
	}
	if err != nil {
		return err
	}
	if err := store.Seed(ctx, data); err != nil {
		return err
	}
	GetLogger().Info("catalog seeded",
		logger.String("source", cmp.Or(path, "embedded")),
		logger.Int("routes", len(data.Routes)),
		logger.Int("buses", len(data.Buses)))
	return nil
}

// Scanner is a controller together with the resources it owns.
type Scanner struct {
	*scanner.Controller
	ROI        *vision.NormalizedRect
	source     camera.Source
	recognizer *ocr.Tesseract
}

// Close stops the controller and releases the camera and recognizer.
func (s *Scanner) Close() error {
	s.Controller.Close()
	var errs []error
	if closer, ok := s.source.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, s.recognizer.Close())
	return errors.Join(errs...)
}

// NewScanner creates a scanner reading from source with the tesseract
// recognizer. A nil source opens the configured camera device.
func (c *Context) NewScanner(source camera.Source) (*Scanner, error) {
	rec, err := ocr.NewTesseract(OCRConfig(c.Settings.OCR))
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = camera.NewDeviceSource(CameraConfig(c.Settings.Camera))
	}

	opts := []scanner.Option{}
	if c.Metrics != nil {
		opts = append(opts, scanner.WithRecorder(c.Metrics.Scanner))
	}
	ctrl := scanner.New(ScannerConfig(c.Settings.Scanner), source, rec,
		plate.NewExtractor(c.Settings.Scanner.Denylist), opts...)

	return &Scanner{
		Controller: ctrl,
		ROI:        ROI(c.Settings.Scanner.ROI),
		source:     source,
		recognizer: rec,
	}, nil
}

// NewGeocoder returns the reverse geocoder, nil when disabled.
func (c *Context) NewGeocoder() (*geocode.Client, error) {
	if !c.Settings.Geocode.Enabled {
		return nil, nil
	}
	var opts []geocode.Option
	if c.Metrics != nil {
		opts = append(opts, geocode.WithObserver(c.Metrics.Lookup.ObserveGeocode))
	}
	return geocode.New(c.GeocodeConfig(), opts...)
}

// Publisher is a connected MQTT publisher.
type Publisher struct {
	*mqtt.Publisher
	client  mqtt.Client
	metrics *observability.Metrics
}

// Publish sends msg and records the publish latency.
func (p *Publisher) Publish(ctx context.Context, msg mqtt.Message) error {
	start := time.Now()
	if err := p.Publisher.Publish(ctx, msg); err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.MQTT.ObservePublish(time.Since(start))
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

// ConnectPublisher connects to the broker, nil when MQTT is disabled. The
// client id falls back to one derived from the system id.
func (c *Context) ConnectPublisher(ctx context.Context) (*Publisher, error) {
	settings := c.Settings.MQTT
	if !settings.Enabled {
		return nil, nil
	}
	if settings.ClientID == "" {
		settings.ClientID = "blink-" + c.Build.GetSystemID()
	}

	cfg := mqtt.ConfigFromSettings(&settings)
	client, err := mqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	var onFailure func()
	if c.Metrics != nil {
		onFailure = c.Metrics.MQTT.IncrementErrors
	}

	start := time.Now()
	if err := client.Connect(ctx); err != nil {
		if c.Metrics != nil {
			c.Metrics.MQTT.UpdateConnectionStatus(false)
		}
		return nil, err
	}
	if c.Metrics != nil {
		c.Metrics.MQTT.UpdateConnectionStatus(true)
	}
	GetLogger().Info("connected to MQTT broker",
		logger.String("broker", cfg.Broker),
		logger.Duration("elapsed", time.Since(start)))

	return &Publisher{
		Publisher: mqtt.NewPublisher(client, cfg.Topic, onFailure),
		client:    client,
		metrics:   c.Metrics,
	}, nil
}

// NewService creates the app service around sc, which may be nil for
// commands that do not scan.
func (c *Context) NewService(sc *scanner.Controller, store catalog.Store, pub *Publisher) *app.Service {
	opts := []app.Option{app.WithSightingInterval(c.Settings.Scanner.SightingInterval)}
	if pub != nil {
		opts = append(opts, app.WithPublisher(pub))
	}
	if c.Metrics != nil {
		opts = append(opts, app.WithObserver(c.Metrics.Lookup.ObserveDetection))
	}
	return app.New(sc, store, opts...)
}
