package ocr

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/vision"
)

const (
	minTextHeight   = 96
	contrastPercent = 25
	sharpenSigma    = 0.8
)

// Preprocess crops img to roi (whole image when nil), converts it to grayscale,
// raises contrast and upscales crops shorter than minTextHeight.
func Preprocess(img image.Image, roi *vision.NormalizedRect, upscale float64) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.Newf("no image to preprocess").
			Component("ocr").
			Category(errors.CategoryValidation).
			Build()
	}

	bounds := img.Bounds()
	if roi != nil {
		size := vision.Size{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
		crop := roi.Pixels(size).Add(bounds.Min)
		if crop.Empty() {
			return nil, errors.Newf("region of interest %v is empty for image %v", *roi, bounds).
				Component("ocr").
				Category(errors.CategoryValidation).
				Build()
		}
		img = imaging.Crop(img, crop)
	}

	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, contrastPercent)
	out = imaging.Sharpen(out, sharpenSigma)

	if h := out.Bounds().Dy(); upscale > 1 && h < minTextHeight {
		width := int(float64(out.Bounds().Dx()) * upscale)
		out = imaging.Resize(out, width, 0, imaging.Lanczos)
	}
	return out, nil
}

// encodePNG serializes a preprocessed image for the recognizer.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.New(err).
			Component("ocr").
			Category(errors.CategoryRecognition).
			Context("operation", "encode_png").
			Build()
	}
	return buf.Bytes(), nil
}
