// Package confidence accumulates per-frame plate readings into a stable detection.
package confidence

import (
	"github.com/blinkbus/blink-go/internal/plate"
)

// DefaultThreshold is the score a plate needs before it is reported as stable.
const DefaultThreshold = 3

type entry struct {
	plate   plate.Plate
	score   int
	lastHit uint64 // update sequence of the most recent increment
}

// Tracker holds the confidence scores of one scanning session.
//
// Every Update increments the observed plate and decays all others by one,
// evicting entries that reach zero. The highest score at or above the threshold
// is stable; on a tie the most recently incremented plate wins.
//
// Tracker is not safe for concurrent use; callers serialize Update.
type Tracker struct {
	threshold int
	entries   map[string]*entry
	seq       uint64
}

// New returns an empty tracker. Thresholds below one are raised to one.
func New(threshold int) *Tracker {
	if threshold < 1 {
		threshold = 1
	}
	return &Tracker{
		threshold: threshold,
		entries:   make(map[string]*entry),
	}
}

// Threshold returns the stable threshold.
func (t *Tracker) Threshold() int {
	return t.threshold
}

// Update records the reading of one processed frame, nil when the frame held no
// plate, and returns the stable plate if there is one.
func (t *Tracker) Update(candidate *plate.Plate) (plate.Plate, bool) {
	t.seq++

	key := ""
	if candidate != nil {
		key = candidate.String()
		e, ok := t.entries[key]
		if !ok {
			e = &entry{plate: *candidate}
			t.entries[key] = e
		}
		e.score++
		e.lastHit = t.seq
	}

	for k, e := range t.entries {
		if k == key {
			continue
		}
		e.score--
		if e.score <= 0 {
			delete(t.entries, k)
		}
	}

	return t.Stable()
}

// Stable returns the current stable plate without changing any score.
func (t *Tracker) Stable() (plate.Plate, bool) {
	var best *entry
	for _, e := range t.entries {
		if best == nil || e.score > best.score || (e.score == best.score && e.lastHit > best.lastHit) {
			best = e
		}
	}
	if best == nil || best.score < t.threshold {
		return plate.Plate{}, false
	}
	return best.plate, true
}

// Score returns the current score of a canonical plate string.
func (t *Tracker) Score(key string) int {
	if e, ok := t.entries[key]; ok {
		return e.score
	}
	return 0
}

// Scores returns a copy of all scores keyed by canonical plate.
func (t *Tracker) Scores() map[string]int {
	out := make(map[string]int, len(t.entries))
	for k, e := range t.entries {
		out[k] = e.score
	}
	return out
}

// Len returns the number of tracked plates.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Reset clears all scores.
func (t *Tracker) Reset() {
	clear(t.entries)
	t.seq = 0
}
