// Package vision holds the frame and region types shared by the camera,
// recognizer and scanner packages.
package vision

import (
	"image"
	"math"
	"time"
)

// Frame is one image delivered by a camera source.
type Frame struct {
	Image image.Image
	Seq   uint64
	Time  time.Time
}

// Size returns the pixel size of the frame image.
func (f Frame) Size() Size {
	if f.Image == nil {
		return Size{}
	}
	b := f.Image.Bounds()
	return Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Size is a width and height in points or pixels.
type Size struct {
	Width  float64
	Height float64
}

// Empty reports whether either dimension is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect is a rectangle in view coordinates with the origin at the top-left.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NormalizedRect is a rectangle in [0,1]x[0,1] image space with the origin at
// the bottom-left, the convention text recognizers use.
type NormalizedRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Valid reports whether r has a positive area inside the unit square.
func (r NormalizedRect) Valid() bool {
	const eps = 1e-9
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width > 0 && r.Height > 0 &&
		r.X >= -eps && r.Y >= -eps &&
		r.X+r.Width <= 1+eps && r.Y+r.Height <= 1+eps
}

// Pixels converts r to a top-left-origin pixel rectangle for an image of the
// given size.
func (r NormalizedRect) Pixels(img Size) image.Rectangle {
	x0 := int(math.Round(r.X * img.Width))
	x1 := int(math.Round((r.X + r.Width) * img.Width))
	y0 := int(math.Round((1 - r.Y - r.Height) * img.Height))
	y1 := int(math.Round((1 - r.Y) * img.Height))
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, int(img.Width), int(img.Height)))
}

// MapROI converts a rectangle drawn over a preview view into normalized image
// coordinates. The preview shows the image aspect-filled, so the image is scaled
// to cover the view and centred, and whatever falls outside the view is cropped.
// The result is clamped to the unit square; an empty or fully cropped rectangle
// yields a zero, invalid NormalizedRect.
func MapROI(ui Rect, view, img Size) NormalizedRect {
	if view.Empty() || img.Empty() || ui.Width <= 0 || ui.Height <= 0 {
		return NormalizedRect{}
	}

	scale := math.Max(view.Width/img.Width, view.Height/img.Height)
	offsetX := (img.Width*scale - view.Width) / 2
	offsetY := (img.Height*scale - view.Height) / 2

	// view points -> image pixels, top-left origin
	left := (ui.X + offsetX) / scale
	top := (ui.Y + offsetY) / scale
	right := (ui.X + ui.Width + offsetX) / scale
	bottom := (ui.Y + ui.Height + offsetY) / scale

	left = clamp(left/img.Width, 0, 1)
	right = clamp(right/img.Width, 0, 1)
	top = clamp(top/img.Height, 0, 1)
	bottom = clamp(bottom/img.Height, 0, 1)

	if right <= left || bottom <= top {
		return NormalizedRect{}
	}

	return NormalizedRect{
		X:      left,
		Y:      1 - bottom,
		Width:  right - left,
		Height: bottom - top,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
