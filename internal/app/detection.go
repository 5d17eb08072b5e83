package app

import (
	"time"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/routing"
	"github.com/blinkbus/blink-go/internal/scanner"
)

// ModeManual marks plates typed in by the rider.
const ModeManual = "manual"

// Trip is the rider's current origin and destination. Empty fields match any
// station.
type Trip struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// IsZero reports whether no trip is set.
func (t Trip) IsZero() bool {
	return t.From == "" && t.To == ""
}

// Detection is a plate read by the scanner or typed in, enriched with what the
// catalog knows about the bus.
type Detection struct {
	Plate   string           `json:"plate"`
	Partial bool             `json:"partial,omitempty"`
	Mode    string           `json:"mode"`
	Known   bool             `json:"known"`
	Bus     *catalog.Bus     `json:"bus,omitempty"`
	Verdict *routing.Verdict `json:"verdict,omitempty"`
	Time    time.Time        `json:"time"`
}

// RouteCode returns the code of the bus route, empty for unknown buses.
func (d Detection) RouteCode() string {
	if d.Bus == nil {
		return ""
	}
	return d.Bus.RouteCode()
}

// CaptureOutcome is the result of a capture request.
type CaptureOutcome struct {
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	FromStable bool       `json:"from_stable,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	Detection  *Detection `json:"detection,omitempty"`
}

func newCaptureOutcome(res scanner.Result) CaptureOutcome {
	return CaptureOutcome{
		Status:     res.Status.String(),
		Reason:     res.Reason,
		FromStable: res.FromStable,
		Candidates: res.Candidates,
	}
}
