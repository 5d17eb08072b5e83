// Package scanner runs plate recognition over a camera source.
//
// In continuous mode frames are throttled and recognized one at a time on a
// background goroutine, and each reading feeds a per-session confidence tracker
// until a plate is stable. Capture mode reads a single high resolution frame
// and returns the first valid plate in it.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/confidence"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/ocr"
	"github.com/blinkbus/blink-go/internal/plate"
	"github.com/blinkbus/blink-go/internal/vision"
)

const (
	DefaultThrottle            = 200 * time.Millisecond
	DefaultCandidatesPerRegion = 3

	subscriberBuffer = 16
)

// ErrCaptureInProgress is returned when a capture is requested while another
// one has not finished.
var ErrCaptureInProgress = errors.NewStd("capture already in progress")

// Config holds the scan policy.
type Config struct {
	Throttle            time.Duration
	Threshold           int
	CandidatesPerRegion int

	// SeedPartial lets plates without an identifier feed continuous confidence.
	SeedPartial bool
	// AllowPartialCapture lets a capture succeed with a plate without identifier.
	AllowPartialCapture bool

	// CaptureTimeout bounds a single capture; zero means no deadline.
	CaptureTimeout time.Duration
}

// DefaultConfig returns the default scan policy.
func DefaultConfig() Config {
	return Config{
		Throttle:            DefaultThrottle,
		Threshold:           confidence.DefaultThreshold,
		CandidatesPerRegion: DefaultCandidatesPerRegion,
		SeedPartial:         true,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.rec = r
		}
	}
}

// WithClock replaces time.Now for throttling and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller coordinates continuous scanning and capture for one camera source.
type Controller struct {
	cfg        Config
	source     camera.Source
	recognizer ocr.Recognizer
	extractor  *plate.Extractor
	rec        Recorder
	now        func() time.Time
	log        logger.Logger

	mu         sync.Mutex // guards the fields below
	state      State      // continuous or camera status
	inCapture  bool
	session    uint64
	tracker    *confidence.Tracker
	sessionCtx context.Context
	cancel     context.CancelFunc
	lastSubmit time.Time

	inFlight  atomic.Bool
	capturing atomic.Bool
	stable    atomic.Pointer[plate.Plate]
	workers   sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates an idle controller.
func New(cfg Config, source camera.Source, recognizer ocr.Recognizer, extractor *plate.Extractor, opts ...Option) *Controller {
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.Threshold < 1 {
		cfg.Threshold = confidence.DefaultThreshold
	}
	if cfg.CandidatesPerRegion < 1 {
		cfg.CandidatesPerRegion = 1
	}
	if extractor == nil {
		extractor = plate.NewExtractor(nil)
	}

	c := &Controller{
		cfg:        cfg,
		source:     source,
		recognizer: recognizer,
		extractor:  extractor,
		rec:        nopRecorder{},
		now:        time.Now,
		log:        GetLogger(),
		subs:       make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetLogger returns the scanner module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("scanner")
}

// Config returns the effective scan policy.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the current status. A capture in progress reports Capturing;
// otherwise the continuous session or camera status is returned.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inCapture {
		return StateCapturing
	}
	return c.state
}

// Stable returns the plate currently stable in continuous mode.
func (c *Controller) Stable() (plate.Plate, bool) {
	if p := c.stable.Load(); p != nil {
		return *p, true
	}
	return plate.Plate{}, false
}

// Scores returns the confidence scores of the running session.
func (c *Controller) Scores() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tracker == nil {
		return map[string]int{}
	}
	return c.tracker.Scores()
}

// Scanning reports whether a continuous session is running.
func (c *Controller) Scanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker != nil
}

// Start begins a continuous scanning session with a fresh tracker. When the
// camera is not authorized or not available the matching state is reported
// once and the camera error is returned; no recognition is attempted.
// Starting a running session is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	status := c.source.Authorization()
	if err := status.Err(); err != nil {
		c.reportCameraStatus(status, err)
		return errors.New(err).
			Component("scanner").
			Category(errors.CategoryCamera).
			Priority(errors.PriorityHigh).
			Context("status", status.String()).
			Build()
	}

	c.mu.Lock()
	if c.tracker != nil {
		c.mu.Unlock()
		return nil
	}
	c.session++
	c.tracker = confidence.New(c.cfg.Threshold)
	c.sessionCtx, c.cancel = context.WithCancel(ctx)
	c.lastSubmit = time.Time{}
	c.stable.Store(nil)
	c.state = StateScanning
	session := c.session
	c.mu.Unlock()

	c.log.Info("scanning started",
		logger.Uint64("session", session),
		logger.Int("threshold", c.cfg.Threshold),
		logger.Duration("throttle", c.cfg.Throttle))
	c.emit(Event{State: StateScanning, Mode: ModeContinuous})
	return nil
}

// Stop ends the running session. Its tracker is discarded and any result still
// in flight is ignored.
func (c *Controller) Stop() {
	c.end(StateIdle, nil)
}

// end tears down the running session and leaves the controller in next.
func (c *Controller) end(next State, err error) {
	c.mu.Lock()
	if c.tracker == nil {
		c.mu.Unlock()
		return
	}
	session := c.session
	c.session++
	c.tracker = nil
	c.cancel()
	c.stable.Store(nil)
	c.state = next
	c.mu.Unlock()

	c.workers.Wait()
	c.log.Info("scanning stopped",
		logger.Uint64("session", session),
		logger.String("state", next.String()))
	c.emit(Event{State: next, Mode: ModeContinuous, Err: err})
}

// Close stops scanning and closes all subscriber channels.
func (c *Controller) Close() {
	c.Stop()

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// Subscribe returns a channel of controller events and a function that
// unsubscribes. Events are dropped for subscribers that do not keep up.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subsMu.Unlock()

	return ch, func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = c.now()
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.log.Debug("subscriber lagging, event dropped", logger.String("state", ev.State.String()))
		}
	}
}

// reportCameraStatus moves to the unauthorized or unavailable state, emitting
// only on the first report.
func (c *Controller) reportCameraStatus(status camera.Status, err error) {
	next := cameraState(err)

	c.mu.Lock()
	changed := c.state != next
	c.state = next
	c.mu.Unlock()

	if !changed {
		return
	}
	c.log.Warn("camera not usable",
		logger.String("status", status.String()),
		logger.Error(err))
	c.emit(Event{State: next, Err: err})
}

func cameraState(err error) State {
	if errors.Is(err, camera.ErrUnauthorized) || errors.Is(err, camera.ErrRestricted) {
		return StateUnauthorized
	}
	return StateUnavailable
}

// Run scans frames from the source until ctx is done or the source runs dry.
// roi restricts recognition; nil means the whole frame.
func (c *Controller) Run(ctx context.Context, roi *vision.NormalizedRect) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	frames, err := c.source.Frames(ctx)
	if err != nil {
		// the camera status outlives the session
		c.log.Warn("camera not usable", logger.Error(err))
		c.end(cameraState(err), err)
		return errors.New(err).
			Component("scanner").
			Category(errors.CategoryCamera).
			Context("operation", "frames").
			Build()
	}
	defer c.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				// let the last accepted frame count
				c.workers.Wait()
				return nil
			}
			c.SubmitFrame(frame, roi)
		}
	}
}

// SubmitFrame hands a frame to the recognizer and returns immediately. The
// frame is dropped, and false returned, when no session is running, the
// throttle interval has not elapsed, a recognition is already in flight or roi
// is malformed.
func (c *Controller) SubmitFrame(frame vision.Frame, roi *vision.NormalizedRect) bool {
	now := c.now()
	c.mu.Lock()

	drop := ""
	switch {
	case c.tracker == nil:
		drop = DropNotScanning
	case roi != nil && !roi.Valid():
		drop = DropInvalidROI
	case !c.lastSubmit.IsZero() && now.Sub(c.lastSubmit) < c.cfg.Throttle:
		drop = DropThrottled
	case !c.inFlight.CompareAndSwap(false, true):
		drop = DropInFlight
	}
	if drop != "" {
		c.mu.Unlock()
		c.rec.RecordFrame(drop)
		if drop == DropInvalidROI {
			c.log.Debug("malformed region of interest, recognition skipped",
				logger.Any("roi", *roi))
		}
		return false
	}

	c.lastSubmit = now
	ctx := c.sessionCtx
	session := c.session
	c.workers.Add(1)
	c.mu.Unlock()

	c.rec.RecordFrame("")
	go c.recognizeFrame(ctx, session, frame, roi)
	return true
}

func (c *Controller) recognizeFrame(ctx context.Context, session uint64, frame vision.Frame, roi *vision.NormalizedRect) {
	defer c.workers.Done()
	defer c.inFlight.Store(false)

	start := c.now()
	candidates, err := c.recognizer.Recognize(ctx, frame, roi, c.cfg.CandidatesPerRegion)

	var found *plate.Plate
	outcome := OutcomeNoMatch
	switch {
	case err != nil:
		outcome = OutcomeError
		c.log.Debug("frame recognition failed",
			logger.Uint64("frame", frame.Seq),
			logger.Error(err))
	default:
		if p, ok := c.firstPlate(candidates, c.cfg.SeedPartial); ok {
			found = &p
			outcome = OutcomeMatch
		}
	}
	c.rec.RecordRecognition(ModeContinuous, outcome, c.now().Sub(start))

	c.apply(session, found)
}

// apply feeds one reading to the tracker of the given session.
func (c *Controller) apply(session uint64, found *plate.Plate) {
	c.mu.Lock()
	if session != c.session || c.tracker == nil {
		c.mu.Unlock()
		c.log.Trace("late result from a stopped session ignored", logger.Uint64("session", session))
		return
	}

	prev := c.stable.Load()
	prevState := c.state
	stable, ok := c.tracker.Update(found)

	var events []Event
	if ok {
		c.stable.Store(&stable)
		c.state = StateDetected
		if prev == nil || prev.String() != stable.String() {
			events = append(events, Event{State: StateDetected, Mode: ModeContinuous, Plate: stable})
		}
	} else {
		c.stable.Store(nil)
		c.state = StateNotDetected
		if prevState != StateNotDetected {
			events = append(events, Event{State: StateNotDetected, Mode: ModeContinuous})
		}
	}
	c.mu.Unlock()

	for _, ev := range events {
		if ev.State == StateDetected {
			c.rec.RecordStable()
			c.log.Info("plate stable", logger.String("plate", ev.Plate.String()))
		}
		c.emit(ev)
	}
}

// firstPlate returns the first candidate that yields a plate.
func (c *Controller) firstPlate(candidates []string, allowPartial bool) (plate.Plate, bool) {
	for _, candidate := range candidates {
		p, ok := c.extractor.Extract(candidate)
		if !ok || (p.Partial && !allowPartial) {
			continue
		}
		return p, true
	}
	return plate.Plate{}, false
}
