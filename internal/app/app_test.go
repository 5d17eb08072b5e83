package app

import (
	"context"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/camera"
	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/conf"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/mqtt"
	"github.com/blinkbus/blink-go/internal/ocr"
	"github.com/blinkbus/blink-go/internal/plate"
	"github.com/blinkbus/blink-go/internal/scanner"
	"github.com/blinkbus/blink-go/internal/vision"
)

var (
	testImage = image.NewGray(image.Rect(0, 0, 64, 32))
	fullROI   = &vision.NormalizedRect{Width: 1, Height: 1}
)

func newTestStore(t *testing.T) catalog.Store {
	t.Helper()

	store, err := catalog.Open(conf.CatalogSettings{
		Driver: catalog.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)
	require.NoError(t, store.Seed(t.Context(), seed))
	return store
}

// fixedRecognizer always reads the same text.
func fixedRecognizer(candidates ...string) ocr.Recognizer {
	return ocr.RecognizerFunc(func(context.Context, vision.Frame, *vision.NormalizedRect, int) ([]string, error) {
		return candidates, nil
	})
}

// stepClock advances a second on every call, so the scanner throttle never
// drops a frame.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 3, 27, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestScanner(t *testing.T, rec ocr.Recognizer) *scanner.Controller {
	t.Helper()

	src := camera.NewImageSource(0, testImage)
	sc := scanner.New(scanner.DefaultConfig(), src, rec, plate.NewExtractor(conf.DefaultDenylist), scanner.WithClock(stepClock()))
	t.Cleanup(sc.Close)
	return sc
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	messages []mqtt.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg mqtt.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) Messages() []mqtt.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mqtt.Message(nil), p.messages...)
}

func TestContinuousDetectionIsEnriched(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	sc := newTestScanner(t, fixedRecognizer("BSD CITY", "B 7366 JE"))
	pub := &fakePublisher{}
	svc := New(sc, store, WithPublisher(pub), WithClock(stepClock()))
	t.Cleanup(svc.Close)
	svc.SetTrip(Trip{From: "Greenwich", To: "Sektor"})

	detections, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	require.NoError(t, sc.Start(ctx))

	var got Detection
	require.Eventually(t, func() bool {
		sc.SubmitFrame(vision.Frame{Image: testImage}, fullROI)
		select {
		case got = <-detections:
			return true
		default:
			return false
		}
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, "B 7366 JE", got.Plate)
	assert.Equal(t, scanner.ModeContinuous, got.Mode)
	assert.True(t, got.Known)
	assert.Equal(t, "GS", got.RouteCode())
	require.NotNil(t, got.Verdict)
	assert.True(t, got.Verdict.Serves)

	history, err := store.History(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "B 7366 JE", history[0].PlateKey)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, mqtt.Message{Plate: "B 7366 JE", Route: "GS", Mode: "continuous", Timestamp: got.Time}, msgs[0])

	last, ok := svc.Last()
	require.True(t, ok)
	assert.Equal(t, got.Plate, last.Plate)
}

func TestCaptureFrame(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	sc := newTestScanner(t, fixedRecognizer("THE BREEZE", "AEON", "B 7366 PAA", "B 7002 PGX"))
	var observed []bool
	svc := New(sc, store, WithObserver(func(mode string, known bool) {
		assert.Equal(t, scanner.ModeCapture, mode)
		observed = append(observed, known)
	}))
	t.Cleanup(svc.Close)

	out, err := svc.CaptureFrame(t.Context(), vision.Frame{Image: testImage})
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	require.NotNil(t, out.Detection)
	assert.Equal(t, "B 7366 PAA", out.Detection.Plate)
	assert.Equal(t, "BC", out.Detection.RouteCode())
	assert.Nil(t, out.Detection.Verdict, "no trip set")
	assert.Equal(t, []bool{true}, observed)

	scans, err := store.Scans(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, scanner.ModeCapture, scans[0].Mode)
}

func TestCaptureWithoutPlate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	sc := newTestScanner(t, fixedRecognizer("THE BREEZE", "AEON"))
	svc := New(sc, store)
	t.Cleanup(svc.Close)

	out, err := svc.CaptureFrame(t.Context(), vision.Frame{Image: testImage})
	require.NoError(t, err)
	assert.Equal(t, "failure", out.Status)
	assert.Equal(t, scanner.ReasonNoDetection, out.Reason)
	assert.Nil(t, out.Detection)

	scans, err := store.Scans(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestSubmitManualPlate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	svc := New(nil, store)
	t.Cleanup(svc.Close)

	tests := []struct {
		name  string
		input string
		plate string
		known bool
		route string
	}{
		{"known bus", "b 7566 paa", "B 7566 PAA", true, "GS"},
		{"unknown bus", "D 1234 ABC", "D 1234 ABC", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := svc.SubmitManualPlate(t.Context(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.plate, d.Plate)
			assert.Equal(t, ModeManual, d.Mode)
			assert.Equal(t, tt.known, d.Known)
			assert.Equal(t, tt.route, d.RouteCode())
		})
	}

	_, err := svc.SubmitManualPlate(t.Context(), "THE BREEZE")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	scans, err := store.Scans(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, scans, 2)
}

func TestRepeatedDetectionsRecordedOnce(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	pub := &fakePublisher{}
	now := time.Date(2025, 3, 27, 9, 0, 0, 0, time.UTC)
	svc := New(nil, store,
		WithPublisher(pub),
		WithSightingInterval(time.Minute),
		WithClock(func() time.Time { return now }))
	t.Cleanup(svc.Close)

	detections, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	for range 3 {
		_, err := svc.SubmitManualPlate(t.Context(), "B 7002 PGX")
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)
	_, err := svc.SubmitManualPlate(t.Context(), "B 7002 PGX")
	require.NoError(t, err)

	assert.Len(t, detections, 4, "subscribers see every detection")
	assert.Len(t, pub.Messages(), 2)

	bus, err := store.FindByPlate(t.Context(), "B 7002 PGX")
	require.NoError(t, err)
	assert.Equal(t, 2, bus.Sightings)
}

func TestPublishFailureDoesNotStopDetection(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	pub := &fakePublisher{err: errors.NewStd("broker down")}
	svc := New(nil, store, WithPublisher(pub))
	t.Cleanup(svc.Close)

	d, err := svc.SubmitManualPlate(t.Context(), "B 7366 JE")
	require.NoError(t, err)
	assert.True(t, d.Known)

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()

	// the failed publish is retried on the next detection
	_, err = svc.SubmitManualPlate(t.Context(), "B 7366 JE")
	require.NoError(t, err)
	assert.Len(t, pub.Messages(), 1)
}

func TestServiceWithoutScanner(t *testing.T) {
	t.Parallel()

	svc := New(nil, newTestStore(t))
	t.Cleanup(svc.Close)

	assert.True(t, errors.IsCategory(svc.Run(t.Context()), errors.CategoryState))
	_, err := svc.Capture(t.Context())
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestSubscribeAfterClose(t *testing.T) {
	t.Parallel()

	svc := New(nil, newTestStore(t))
	svc.Close()

	ch, unsubscribe := svc.Subscribe()
	_, open := <-ch
	assert.False(t, open)
	unsubscribe()
}
