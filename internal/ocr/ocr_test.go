package ocr

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinkbus/blink-go/internal/vision"
)

func TestPreprocessCropsAndUpscales(t *testing.T) {
	t.Parallel()

	src := imaging.New(400, 200, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	roi := &vision.NormalizedRect{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.25}

	out, err := Preprocess(src, roi, 2)
	require.NoError(t, err)

	// 200x50 crop, shorter than minTextHeight, doubled
	assert.Equal(t, 400, out.Bounds().Dx())
	assert.Equal(t, 100, out.Bounds().Dy())

	c := out.NRGBAAt(10, 10)
	assert.Equal(t, c.R, c.G, "grayscale")
	assert.Equal(t, c.G, c.B, "grayscale")
}

func TestPreprocessWholeFrameKeepsTallImages(t *testing.T) {
	t.Parallel()

	out, err := Preprocess(image.NewGray(image.Rect(0, 0, 300, 200)), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 200), out.Bounds())
}

func TestPreprocessRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Preprocess(nil, nil, 1)
	require.Error(t, err)

	_, err = Preprocess(image.NewGray(image.Rect(0, 0, 10, 10)), &vision.NormalizedRect{X: 0.5, Width: 0.01, Height: 0.01}, 1)
	require.Error(t, err)
}

func TestLinesFromBoxes(t *testing.T) {
	t.Parallel()

	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(0, 50, 100, 80), Word: "B 7366  JE\n"},
		{Box: image.Rect(0, 0, 100, 30), Word: "BSD CITY"},
		{Box: image.Rect(0, 90, 100, 120), Word: "  "},
		{Box: image.Rect(0, 130, 100, 160), Word: "B 7366 JE"},
	}
	assert.Equal(t, []string{"BSD CITY", "B 7366 JE"}, linesFromBoxes(boxes))
}

func TestNewTesseractRejectsFastTier(t *testing.T) {
	t.Parallel()

	_, err := NewTesseract(Config{Quality: "fast", Language: "eng"})
	assert.ErrorIs(t, err, ErrUnsupportedQuality)
}

func TestRecognizerFunc(t *testing.T) {
	t.Parallel()

	var r Recognizer = RecognizerFunc(func(_ context.Context, f vision.Frame, roi *vision.NormalizedRect, n int) ([]string, error) {
		assert.Nil(t, roi)
		assert.Equal(t, 3, n)
		return []string{"B 7366 JE"}, nil
	})
	got, err := r.Recognize(context.Background(), vision.Frame{}, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"B 7366 JE"}, got)
}
