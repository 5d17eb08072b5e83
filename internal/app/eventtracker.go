// eventtracker.go
package app

import (
	"sync"
	"time"
)

// EventType represents the side effects that are rate limited per plate.
type EventType int

const (
	SightingSave EventType = iota // storing a sighting in the catalog
	MQTTPublish                   // publishing the detection
)

// EventHandler remembers when each plate last triggered one event type.
type EventHandler struct {
	lastEventTime map[string]time.Time
	timeout       time.Duration
	mu            sync.Mutex
}

// NewEventHandler creates a new EventHandler with the specified timeout.
func NewEventHandler(timeout time.Duration) *EventHandler {
	return &EventHandler{
		lastEventTime: make(map[string]time.Time),
		timeout:       timeout,
	}
}

// ShouldHandleEvent reports whether the event for key is due at now and, if
// so, records it.
func (h *EventHandler) ShouldHandleEvent(key string, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	last, exists := h.lastEventTime[key]
	if exists && now.Sub(last) < h.timeout {
		return false
	}
	h.lastEventTime[key] = now

	// forget plates that have not been seen for a while
	for k, t := range h.lastEventTime {
		if now.Sub(t) >= h.timeout && k != key {
			delete(h.lastEventTime, k)
		}
	}
	return true
}

// ResetEvent clears the last event time for key.
func (h *EventHandler) ResetEvent(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastEventTime, key)
}

// EventTracker rate limits side effects of repeated detections of one plate:
// a bus idling in front of the camera goes stable, unstable and stable again
// and should count as a single sighting.
type EventTracker struct {
	handlers map[EventType]*EventHandler
	now      func() time.Time
}

// NewEventTracker returns a tracker with the same interval for every event
// type. A zero interval lets every event through.
func NewEventTracker(interval time.Duration, now func() time.Time) *EventTracker {
	if now == nil {
		now = time.Now
	}
	return &EventTracker{
		handlers: map[EventType]*EventHandler{
			SightingSave: NewEventHandler(interval),
			MQTTPublish:  NewEventHandler(interval),
		},
		now: now,
	}
}

// TrackEvent checks if the event for plate key should be processed.
func (et *EventTracker) TrackEvent(key string, eventType EventType) bool {
	handler, ok := et.handlers[eventType]
	if !ok {
		return false
	}
	return handler.ShouldHandleEvent(key, et.now())
}

// ResetEvent forgets key for one event type so the next event goes through.
func (et *EventTracker) ResetEvent(key string, eventType EventType) {
	if handler, ok := et.handlers[eventType]; ok {
		handler.ResetEvent(key)
	}
}
