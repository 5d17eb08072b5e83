package vision

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertRect(t *testing.T, want, got NormalizedRect) {
	t.Helper()
	const delta = 1e-9
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Width, got.Width, delta, "width")
	assert.InDelta(t, want.Height, got.Height, delta, "height")
}

func TestMapROI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ui   Rect
		view Size
		img  Size
		want NormalizedRect
	}{
		{
			name: "same aspect flips vertical axis",
			ui:   Rect{X: 0, Y: 0, Width: 50, Height: 25},
			view: Size{Width: 100, Height: 100},
			img:  Size{Width: 1000, Height: 1000},
			want: NormalizedRect{X: 0, Y: 0.75, Width: 0.5, Height: 0.25},
		},
		{
			// 1920x1080 image filling a 390x844 portrait view: height drives the
			// scale and the sides are cropped
			name: "aspect fill crops horizontally",
			ui:   Rect{X: 0, Y: 422, Width: 390, Height: 211},
			view: Size{Width: 390, Height: 844},
			img:  Size{Width: 1920, Height: 1080},
			want: NormalizedRect{
				X:      ((1920*844.0/1080 - 390) / 2 / (844.0 / 1080)) / 1920,
				Y:      0.25,
				Width:  390 / (844.0 / 1080) / 1920,
				Height: 0.25,
			},
		},
		{
			name: "portion outside the image is clamped",
			ui:   Rect{X: -10, Y: -10, Width: 60, Height: 60},
			view: Size{Width: 100, Height: 100},
			img:  Size{Width: 100, Height: 100},
			want: NormalizedRect{X: 0, Y: 0.5, Width: 0.5, Height: 0.5},
		},
		{
			name: "zero sized",
			ui:   Rect{X: 10, Y: 10},
			view: Size{Width: 100, Height: 100},
			img:  Size{Width: 100, Height: 100},
			want: NormalizedRect{},
		},
		{
			name: "uninitialized view",
			ui:   Rect{Width: 10, Height: 10},
			want: NormalizedRect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertRect(t, tt.want, MapROI(tt.ui, tt.view, tt.img))
		})
	}
}

func TestNormalizedRectValid(t *testing.T) {
	t.Parallel()

	assert.True(t, NormalizedRect{X: 0.1, Y: 0.2, Width: 0.8, Height: 0.3}.Valid())
	assert.True(t, NormalizedRect{Width: 1, Height: 1}.Valid())
	assert.False(t, NormalizedRect{}.Valid())
	assert.False(t, NormalizedRect{X: 0.5, Width: 0.6, Height: 0.1}.Valid())
	assert.False(t, NormalizedRect{X: -0.1, Width: 0.5, Height: 0.1}.Valid())
	assert.False(t, NormalizedRect{Width: math.NaN(), Height: 0.5}.Valid())
}

func TestPixels(t *testing.T) {
	t.Parallel()

	img := Size{Width: 200, Height: 100}
	r := NormalizedRect{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.25}
	assert.Equal(t, image.Rect(50, 25, 150, 50), r.Pixels(img))
	assert.Equal(t, image.Rect(0, 0, 200, 100), NormalizedRect{Width: 1, Height: 1}.Pixels(img))
}

func TestFrameSize(t *testing.T) {
	t.Parallel()

	f := Frame{Image: image.NewGray(image.Rect(0, 0, 64, 32))}
	assert.Equal(t, Size{Width: 64, Height: 32}, f.Size())
	assert.True(t, Frame{}.Size().Empty())
}
