// Package ocr wraps text recognition of camera frames.
package ocr

import (
	"context"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// QualityAccurate is the only supported recognition tier.
const QualityAccurate = "accurate"

// ErrUnsupportedQuality is returned when a faster, less accurate tier is requested.
var ErrUnsupportedQuality = errors.NewStd("only the accurate recognition tier is supported")

// Recognizer returns candidate strings for the text found in a frame.
type Recognizer interface {
	// Recognize reads text inside roi, or the whole frame when roi is nil.
	// candidatesPerRegion bounds the alternative readings returned per text region.
	Recognize(ctx context.Context, frame vision.Frame, roi *vision.NormalizedRect, candidatesPerRegion int) ([]string, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, frame vision.Frame, roi *vision.NormalizedRect, candidatesPerRegion int) ([]string, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, frame vision.Frame, roi *vision.NormalizedRect, candidatesPerRegion int) ([]string, error) {
	return f(ctx, frame, roi, candidatesPerRegion)
}

// GetLogger returns the ocr module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("ocr")
}
