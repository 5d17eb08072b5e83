package scanner

import (
	"time"

	"github.com/blinkbus/blink-go/internal/plate"
)

// State is the externally visible status of the scan controller.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateDetected
	StateNotDetected
	StateCapturing
	StateSuccess
	StateFailure
	StateUnauthorized
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDetected:
		return "detected"
	case StateNotDetected:
		return "not-detected"
	case StateCapturing:
		return "capturing"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	case StateUnauthorized:
		return "unauthorized"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText lets states serialize by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Recognition modes.
const (
	ModeContinuous = "continuous"
	ModeCapture    = "capture"
)

// ReasonNoDetection is the failure reason when no valid plate was read.
const ReasonNoDetection = "no detection"

// Event is published to subscribers on every state change and whenever a new
// plate becomes stable.
type Event struct {
	State State
	Mode  string
	Plate plate.Plate
	Err   error
	Time  time.Time
}

// HasPlate reports whether the event carries a plate.
func (e Event) HasPlate() bool {
	return !e.Plate.IsZero()
}

// Result is the outcome of a single capture.
type Result struct {
	Status State
	Plate  plate.Plate

	// FromStable is set when the capture was answered by the plate already
	// stable in continuous mode.
	FromStable bool

	// Candidates are the raw recognizer readings, empty for FromStable results.
	Candidates []string
	Reason     string
}

// OK reports whether the capture produced a plate.
func (r Result) OK() bool {
	return r.Status == StateSuccess
}
