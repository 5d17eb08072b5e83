package scanner

import (
	"context"

	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// Capture reads one plate from a high resolution frame of the source. When
// continuous mode already holds a stable plate with an identifier that plate is
// returned without touching the camera.
//
// A capture requested while another is pending fails with ErrCaptureInProgress.
// Finding no plate is not an error: the result has StateFailure and
// ReasonNoDetection. An error is returned only when the camera cannot deliver
// a frame.
func (c *Controller) Capture(ctx context.Context) (Result, error) {
	if !c.capturing.CompareAndSwap(false, true) {
		return Result{}, ErrCaptureInProgress
	}
	defer c.capturing.Store(false)

	if p, ok := c.Stable(); ok && !p.Partial {
		res := Result{Status: StateSuccess, Plate: p, FromStable: true}
		c.finishCapture(res, nil)
		return res, nil
	}

	return c.capture(ctx, c.source.CaptureHighResolution)
}

// CaptureFrame runs capture recognition on a supplied still image.
func (c *Controller) CaptureFrame(ctx context.Context, frame vision.Frame) (Result, error) {
	if !c.capturing.CompareAndSwap(false, true) {
		return Result{}, ErrCaptureInProgress
	}
	defer c.capturing.Store(false)

	return c.capture(ctx, func(context.Context) (vision.Frame, error) {
		return frame, nil
	})
}

func (c *Controller) capture(ctx context.Context, grab func(context.Context) (vision.Frame, error)) (Result, error) {
	if c.cfg.CaptureTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CaptureTimeout)
		defer cancel()
	}

	c.mu.Lock()
	c.inCapture = true
	c.mu.Unlock()
	c.emit(Event{State: StateCapturing, Mode: ModeCapture})

	frame, err := grab(ctx)
	if err != nil {
		res := Result{Status: StateFailure, Reason: err.Error()}
		switch {
		case errors.Is(err, camera.ErrUnauthorized), errors.Is(err, camera.ErrRestricted):
			res.Status = StateUnauthorized
		case errors.Is(err, camera.ErrUnavailable), errors.Is(err, camera.ErrClosed):
			res.Status = StateUnavailable
		}
		c.finishCapture(res, err)
		return res, errors.New(err).
			Component("scanner").
			Category(errors.CategoryCapture).
			Context("operation", "capture_frame").
			Build()
	}

	start := c.now()
	candidates, err := c.recognizer.Recognize(ctx, frame, nil, c.cfg.CandidatesPerRegion)
	if err != nil {
		c.rec.RecordRecognition(ModeCapture, OutcomeError, c.now().Sub(start))
		c.log.Warn("capture recognition failed", logger.Error(err))
		res := Result{Status: StateFailure, Reason: ReasonNoDetection}
		c.finishCapture(res, nil)
		return res, nil
	}

	p, ok := c.firstPlate(candidates, c.cfg.AllowPartialCapture)
	if !ok {
		c.rec.RecordRecognition(ModeCapture, OutcomeNoMatch, c.now().Sub(start))
		res := Result{Status: StateFailure, Candidates: candidates, Reason: ReasonNoDetection}
		c.finishCapture(res, nil)
		return res, nil
	}

	c.rec.RecordRecognition(ModeCapture, OutcomeMatch, c.now().Sub(start))
	res := Result{Status: StateSuccess, Plate: p, Candidates: candidates}
	c.finishCapture(res, nil)
	return res, nil
}

// finishCapture reports the outcome. Without a running session the controller
// then returns to Idle, or keeps the camera status when the camera failed.
// A running session keeps its own state.
func (c *Controller) finishCapture(res Result, err error) {
	c.mu.Lock()
	c.inCapture = false
	scanning := c.tracker != nil
	if !scanning {
		switch res.Status {
		case StateUnauthorized, StateUnavailable:
			c.state = res.Status
		default:
			c.state = StateIdle
		}
	}
	c.mu.Unlock()
	c.rec.RecordCapture(res.Status.String())

	fields := []logger.Field{
		logger.String("status", res.Status.String()),
		logger.Bool("from_stable", res.FromStable),
		logger.Int("candidates", len(res.Candidates)),
	}
	if res.OK() {
		fields = append(fields, logger.String("plate", res.Plate.String()))
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	c.log.Info("capture finished", fields...)

	c.emit(Event{State: res.Status, Mode: ModeCapture, Plate: res.Plate, Err: err})
	if !scanning && (res.Status == StateSuccess || res.Status == StateFailure) {
		c.emit(Event{State: StateIdle, Mode: ModeCapture})
	}
}
