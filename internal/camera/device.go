package camera

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// DeviceConfig selects and sizes a capture device.
type DeviceConfig struct {
	Device int
	Width  int
	Height int
	FPS    float64
}

// DeviceSource reads frames from a V4L2/AVFoundation/DirectShow device via OpenCV.
// The device streams at its configured full resolution; continuous scanning
// restricts recognition to a region of interest instead of downscaling.
type DeviceSource struct {
	cfg DeviceConfig
	log logger.Logger

	mu      sync.Mutex // guards capture; gocv.VideoCapture is not goroutine safe
	capture *gocv.VideoCapture
	status  Status
	probed  bool
	seq     atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool
}

// NewDeviceSource returns a source for the given device. The device is opened lazily.
func NewDeviceSource(cfg DeviceConfig) *DeviceSource {
	return &DeviceSource{
		cfg: cfg,
		log: GetLogger().With(logger.Int("device", cfg.Device)),
	}
}

// Authorization opens the device on first call and reports the outcome.
func (d *DeviceSource) Authorization() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.probed {
		d.status = d.openLocked()
		d.probed = true
	}
	return d.status
}

func (d *DeviceSource) openLocked() Status {
	vc, err := gocv.OpenVideoCapture(d.cfg.Device)
	if err != nil {
		d.log.Warn("failed to open camera device", logger.Error(err))
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
			return StatusDenied
		}
		return StatusUnavailable
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return StatusUnavailable
	}

	if d.cfg.Width > 0 && d.cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(d.cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(d.cfg.Height))
	}
	if d.cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, d.cfg.FPS)
	}

	d.capture = vc
	d.log.Info("camera opened",
		logger.Float64("width", vc.Get(gocv.VideoCaptureFrameWidth)),
		logger.Float64("height", vc.Get(gocv.VideoCaptureFrameHeight)))
	return StatusAuthorized
}

// Frames streams frames until ctx is done. Only one frame is buffered.
func (d *DeviceSource) Frames(ctx context.Context) (<-chan vision.Frame, error) {
	if err := d.Authorization().Err(); err != nil {
		return nil, err
	}
	if d.closed.Load() {
		return nil, ErrClosed
	}

	ch := make(chan vision.Frame, 1)
	go func() {
		defer close(ch)

		mat := gocv.NewMat()
		defer mat.Close()

		failures := 0
		for ctx.Err() == nil {
			frame, err := d.read(&mat)
			if err != nil {
				failures++
				if failures == 1 || failures%100 == 0 {
					d.log.Warn("frame read failed", logger.Error(err), logger.Int("failures", failures))
				}
				if errors.Is(err, ErrClosed) {
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			failures = 0
			if offer(ch, frame) {
				d.dropped.Add(1)
			}
		}
	}()
	return ch, nil
}

// CaptureHighResolution reads one fresh frame from the device.
func (d *DeviceSource) CaptureHighResolution(ctx context.Context) (vision.Frame, error) {
	if err := d.Authorization().Err(); err != nil {
		return vision.Frame{}, err
	}
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}

	mat := gocv.NewMat()
	defer mat.Close()
	return d.read(&mat)
}

func (d *DeviceSource) read(mat *gocv.Mat) (vision.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.capture == nil || d.closed.Load() {
		return vision.Frame{}, ErrClosed
	}
	if ok := d.capture.Read(mat); !ok || mat.Empty() {
		return vision.Frame{}, ErrCannotAddOutput
	}

	img, err := mat.ToImage()
	if err != nil {
		return vision.Frame{}, errors.New(err).
			Component("camera").
			Category(errors.CategoryCamera).
			Context("operation", "mat_to_image").
			Build()
	}
	return vision.Frame{Image: img, Seq: d.seq.Add(1), Time: time.Now()}, nil
}

// Dropped returns how many frames were replaced before the consumer read them.
func (d *DeviceSource) Dropped() uint64 {
	return d.dropped.Load()
}

// Close releases the device.
func (d *DeviceSource) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}
