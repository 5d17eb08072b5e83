package scanner

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/ocr"
	"github.com/blinkbus/blink-go/internal/plate"
	"github.com/blinkbus/blink-go/internal/vision"
)

var testDenylist = []string{"BSD", "BSDCITY", "S11", "AEON", "ICE", "LOOP", "LINE"}

// fakeSource is a camera that hands out one fixed frame.
type fakeSource struct {
	status   camera.Status
	frame    vision.Frame
	captures atomic.Int32
	err      error

	framesErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		status: camera.StatusAuthorized,
		frame:  vision.Frame{Image: image.NewGray(image.Rect(0, 0, 64, 32)), Seq: 1},
	}
}

func (s *fakeSource) Authorization() camera.Status { return s.status }

func (s *fakeSource) Frames(ctx context.Context) (<-chan vision.Frame, error) {
	if s.framesErr != nil {
		return nil, s.framesErr
	}
	ch := make(chan vision.Frame)
	close(ch)
	return ch, s.status.Err()
}

func (s *fakeSource) CaptureHighResolution(ctx context.Context) (vision.Frame, error) {
	s.captures.Add(1)
	if s.err != nil {
		return vision.Frame{}, s.err
	}
	if err := s.status.Err(); err != nil {
		return vision.Frame{}, err
	}
	return s.frame, nil
}

func (s *fakeSource) Close() error { return nil }

// scriptedRecognizer returns readings from a script, one entry per call. The
// last entry repeats once the script is exhausted.
type scriptedRecognizer struct {
	mu     sync.Mutex
	script [][]string
	err    error
	calls  int
	rois   []*vision.NormalizedRect
}

func (r *scriptedRecognizer) Recognize(_ context.Context, _ vision.Frame, roi *vision.NormalizedRect, _ int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rois = append(r.rois, roi)
	i := min(r.calls, len(r.script)-1)
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if i < 0 {
		return nil, nil
	}
	return r.script[i], nil
}

func (r *scriptedRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// blockingRecognizer holds every call until release is closed or ctx is done.
func blockingRecognizer(release <-chan struct{}, started chan<- struct{}, reading string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(ctx context.Context, _ vision.Frame, _ *vision.NormalizedRect, _ int) ([]string, error) {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-release:
			return []string{reading}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRecorder struct {
	mu           sync.Mutex
	drops        map[string]int
	accepted     int
	recognitions map[string]int
	stable       int
	captures     []string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{drops: map[string]int{}, recognitions: map[string]int{}}
}

func (r *fakeRecorder) RecordFrame(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reason == "" {
		r.accepted++
		return
	}
	r.drops[reason]++
}

func (r *fakeRecorder) RecordRecognition(mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognitions[mode+"/"+outcome]++
}

func (r *fakeRecorder) RecordStable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stable++
}

func (r *fakeRecorder) RecordCapture(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, status)
}

func (r *fakeRecorder) Drops(reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drops[reason]
}

func newTestController(t *testing.T, cfg Config, src camera.Source, rec ocr.Recognizer, opts ...Option) (*Controller, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	c := New(cfg, src, rec, plate.NewExtractor(testDenylist), opts...)
	t.Cleanup(c.Close)
	return c, clock
}

// submit feeds one frame past the throttle and waits for its reading to land.
func submit(t *testing.T, c *Controller, clock *fakeClock, roi *vision.NormalizedRect) bool {
	t.Helper()

	clock.Advance(c.cfg.Throttle)
	ok := c.SubmitFrame(vision.Frame{Image: image.NewGray(image.Rect(0, 0, 8, 8))}, roi)
	c.workers.Wait()
	return ok
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func states(events []Event) []State {
	out := make([]State, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.State)
	}
	return out
}
