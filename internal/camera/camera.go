// Package camera provides frame sources for the scanner: a live capture device
// and still images from disk.
package camera

import (
	"context"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/vision"
)

// Status is the availability of a camera source.
type Status int

const (
	StatusAuthorized Status = iota
	StatusNotDetermined
	StatusDenied
	StatusRestricted
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusAuthorized:
		return "authorized"
	case StatusNotDetermined:
		return "not-determined"
	case StatusDenied:
		return "denied"
	case StatusRestricted:
		return "restricted"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Camera errors.
var (
	ErrUnauthorized    = errors.NewStd("camera access denied")
	ErrRestricted      = errors.NewStd("camera access restricted")
	ErrUnavailable     = errors.NewStd("camera unavailable")
	ErrCannotAddInput  = errors.NewStd("camera cannot open input")
	ErrCannotAddOutput = errors.NewStd("camera cannot produce frames")
	ErrClosed          = errors.NewStd("camera source closed")
)

// Err maps a non-authorized status to its error, nil otherwise.
func (s Status) Err() error {
	switch s {
	case StatusAuthorized:
		return nil
	case StatusDenied, StatusNotDetermined:
		return ErrUnauthorized
	case StatusRestricted:
		return ErrRestricted
	default:
		return ErrUnavailable
	}
}

// Source delivers frames to the scanner.
type Source interface {
	// Authorization reports whether frames can be delivered at all.
	Authorization() Status

	// Frames starts delivery. The channel is closed when ctx is done or the
	// source runs dry. Slow consumers lose frames rather than queue them.
	Frames(ctx context.Context) (<-chan vision.Frame, error)

	// CaptureHighResolution returns a single frame at the highest resolution
	// the source offers.
	CaptureHighResolution(ctx context.Context) (vision.Frame, error)

	Close() error
}

// GetLogger returns the camera module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("camera")
}

// offer sends f, replacing a frame the consumer has not picked up yet.
func offer(ch chan vision.Frame, f vision.Frame) (dropped bool) {
	select {
	case ch <- f:
		return false
	default:
	}
	select {
	case <-ch:
		dropped = true
	default:
	}
	select {
	case ch <- f:
	default:
		dropped = true
	}
	return dropped
}
