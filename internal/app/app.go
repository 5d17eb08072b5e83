// Package app ties the scanner to the bus catalog: every plate the scanner
// settles on is looked up, matched against the rider's trip, recorded and
// published.
package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/plate"
	"github.com/blinkbus/blink-go/internal/routing"
	"github.com/blinkbus/blink-go/internal/scanner"
	"github.com/blinkbus/blink-go/internal/vision"
)

const subscriberBuffer = 16

// DetectionObserver is told about every detection.
type DetectionObserver func(mode string, known bool)

// Option configures a Service.
type Option func(*Service)

// WithPublisher publishes detections through p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithObserver reports every detection to fn.
func WithObserver(fn DetectionObserver) Option {
	return func(s *Service) {
		if fn != nil {
			s.observe = fn
		}
	}
}

// WithSightingInterval sets how long repeated detections of one plate are
// recorded and published only once.
func WithSightingInterval(d time.Duration) Option {
	return func(s *Service) {
		s.interval = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the application core used by the CLI and the HTTP API.
type Service struct {
	scanner   *scanner.Controller
	store     catalog.Store
	publisher Publisher
	observe   DetectionObserver
	interval  time.Duration
	now       func() time.Time
	log       logger.Logger
	actions   []Action

	events      <-chan scanner.Event
	unsubscribe func()

	mu   sync.RWMutex
	trip Trip
	last *Detection

	subsMu  sync.Mutex
	subs    map[int]chan Detection
	nextSub int
	closed  bool
}

// New creates a service. scanner may be nil for catalog-only use.
func New(sc *scanner.Controller, store catalog.Store, opts ...Option) *Service {
	s := &Service{
		scanner:  sc,
		store:    store,
		observe:  func(string, bool) {},
		interval: 30 * time.Second,
		now:      time.Now,
		log:      GetLogger(),
		subs:     make(map[int]chan Detection),
	}
	for _, opt := range opts {
		opt(s)
	}

	tracker := NewEventTracker(s.interval, s.now)
	s.actions = []Action{
		&LogAction{Log: s.log},
		&SightingAction{Store: store, EventTracker: tracker},
	}
	if s.publisher != nil {
		s.actions = append(s.actions, &MqttAction{Publisher: s.publisher, EventTracker: tracker})
	}
	s.actions = append(s.actions, &BroadcastAction{Broadcast: s.broadcast})

	// subscribe now so no stable plate is missed before Run starts
	if sc != nil {
		s.events, s.unsubscribe = sc.Subscribe()
	}
	return s
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// Scanner returns the scan controller, nil when the service runs without one.
func (s *Service) Scanner() *scanner.Controller {
	return s.scanner
}

// Store returns the catalog.
func (s *Service) Store() catalog.Store {
	return s.store
}

// SetTrip sets the trip detections are matched against.
func (s *Service) SetTrip(t Trip) {
	t.From = strings.TrimSpace(t.From)
	t.To = strings.TrimSpace(t.To)
	s.mu.Lock()
	s.trip = t
	s.mu.Unlock()
}

// Trip returns the current trip.
func (s *Service) Trip() Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trip
}

// Last returns the most recent detection.
func (s *Service) Last() (Detection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Detection{}, false
	}
	return *s.last, true
}

// Run handles stable plates from continuous scanning until ctx is done.
// Capture results are handled by Capture and CaptureFrame.
func (s *Service) Run(ctx context.Context) error {
	if s.scanner == nil {
		return errors.Newf("service has no scanner").
			Component("app").
			Category(errors.CategoryState).
			Build()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.events:
			if !ok {
				return nil
			}
			if ev.State != scanner.StateDetected || !ev.HasPlate() {
				continue
			}
			s.handle(ctx, ev.Plate, scanner.ModeContinuous)
		}
	}
}

// Capture runs capture mode on the camera and enriches a successful result.
func (s *Service) Capture(ctx context.Context) (CaptureOutcome, error) {
	if s.scanner == nil {
		return CaptureOutcome{}, errors.Newf("service has no scanner").
			Component("app").
			Category(errors.CategoryState).
			Build()
	}
	res, err := s.scanner.Capture(ctx)
	return s.captured(ctx, res, err)
}

// CaptureFrame runs capture mode on a still image.
func (s *Service) CaptureFrame(ctx context.Context, frame vision.Frame) (CaptureOutcome, error) {
	if s.scanner == nil {
		return CaptureOutcome{}, errors.Newf("service has no scanner").
			Component("app").
			Category(errors.CategoryState).
			Build()
	}
	res, err := s.scanner.CaptureFrame(ctx, frame)
	return s.captured(ctx, res, err)
}

func (s *Service) captured(ctx context.Context, res scanner.Result, err error) (CaptureOutcome, error) {
	if err != nil {
		return newCaptureOutcome(res), err
	}
	out := newCaptureOutcome(res)
	if res.OK() {
		d := s.handle(ctx, res.Plate, scanner.ModeCapture)
		out.Detection = &d
	}
	return out, nil
}

// SubmitManualPlate handles a plate typed in by the rider. The text must be a
// complete plate.
func (s *Service) SubmitManualPlate(ctx context.Context, text string) (Detection, error) {
	p, ok := plate.Parse(text)
	if !ok {
		return Detection{}, errors.ValidationError("not a license plate: " + strings.TrimSpace(text))
	}
	return s.handle(ctx, p, ModeManual), nil
}

// Lookup returns the catalog entry for a plate without recording anything.
func (s *Service) Lookup(ctx context.Context, text string) (*catalog.Bus, error) {
	return s.store.FindByPlate(ctx, text)
}

func (s *Service) handle(ctx context.Context, p plate.Plate, mode string) Detection {
	d := Detection{
		Plate:   p.String(),
		Partial: p.Partial,
		Mode:    mode,
		Time:    s.now(),
	}

	bus, err := s.store.FindByPlate(ctx, d.Plate)
	switch {
	case err == nil:
		d.Known = true
		d.Bus = bus
		trip := s.Trip()
		if !trip.IsZero() {
			v := routing.MatchBus(bus, trip.From, trip.To, d.Time)
			d.Verdict = &v
		}
	case errors.IsNotFound(err):
	default:
		s.log.Warn("bus lookup failed", logger.String("plate", d.Plate), logger.Error(err))
	}

	s.observe(mode, d.Known)
	for _, action := range s.actions {
		if err := action.Execute(ctx, &d); err != nil {
			s.log.Warn("detection action failed",
				logger.String("action", action.GetDescription()),
				logger.String("plate", d.Plate),
				logger.Error(err))
		}
	}

	s.mu.Lock()
	s.last = &d
	s.mu.Unlock()
	return d
}

// Subscribe returns a channel of detections. Slow subscribers miss detections
// rather than holding up the scanner.
func (s *Service) Subscribe() (<-chan Detection, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan Detection, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Service) broadcast(d Detection) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Close stops listening to the scanner and closes all subscriber channels.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
