package scanner

import "time"

// Frame drop reasons.
const (
	DropNotScanning = "not_scanning"
	DropThrottled   = "throttled"
	DropInFlight    = "in_flight"
	DropInvalidROI  = "invalid_roi"
)

// Recognition outcomes.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// Recorder receives scan metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	// RecordFrame counts a submitted frame; dropReason is empty when the frame
	// was handed to the recognizer.
	RecordFrame(dropReason string)
	RecordRecognition(mode, outcome string, elapsed time.Duration)
	RecordStable()
	RecordCapture(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFrame(string)                              {}
func (nopRecorder) RecordRecognition(string, string, time.Duration) {}
func (nopRecorder) RecordStable()                                   {}
func (nopRecorder) RecordCapture(string)                            {}
