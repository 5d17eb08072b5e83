// actions.go: side effects run for every detection.
package app

import (
	"context"

	"github.com/blinkbus/blink-go/internal/catalog"
	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/mqtt"
)

// Action is a side effect of a detection.
type Action interface {
	Execute(ctx context.Context, d *Detection) error
	GetDescription() string
}

// Publisher sends detections to a message broker.
type Publisher interface {
	Publish(ctx context.Context, msg mqtt.Message) error
}

// SightingAction stores the detection in the scan history.
type SightingAction struct {
	Store        catalog.Store
	EventTracker *EventTracker
}

// MqttAction publishes the detection.
type MqttAction struct {
	Publisher    Publisher
	EventTracker *EventTracker
}

// BroadcastAction hands the detection to subscribers.
type BroadcastAction struct {
	Broadcast func(Detection)
}

// LogAction writes the detection to the module log.
type LogAction struct {
	Log logger.Logger
}

func (a *SightingAction) GetDescription() string  { return "Record sighting" }
func (a *MqttAction) GetDescription() string      { return "Publish to MQTT" }
func (a *BroadcastAction) GetDescription() string { return "Notify subscribers" }
func (a *LogAction) GetDescription() string       { return "Log detection" }

// Execute records the sighting unless the plate was recorded recently.
func (a *SightingAction) Execute(ctx context.Context, d *Detection) error {
	if !a.EventTracker.TrackEvent(d.Plate, SightingSave) {
		return nil
	}
	if _, err := a.Store.RecordSighting(ctx, d.Plate, d.Mode); err != nil {
		// a failed save must not block the next attempt
		a.EventTracker.ResetEvent(d.Plate, SightingSave)
		return err
	}
	return nil
}

// Execute publishes the detection unless the plate was published recently.
func (a *MqttAction) Execute(ctx context.Context, d *Detection) error {
	if !a.EventTracker.TrackEvent(d.Plate, MQTTPublish) {
		return nil
	}
	err := a.Publisher.Publish(ctx, mqtt.Message{
		Plate:     d.Plate,
		Route:     d.RouteCode(),
		Mode:      d.Mode,
		Timestamp: d.Time,
	})
	if err != nil {
		a.EventTracker.ResetEvent(d.Plate, MQTTPublish)
		return errors.New(err).
			Component("app").
			Category(errors.CategoryMQTTPublish).
			Context("plate", d.Plate).
			Build()
	}
	return nil
}

// Execute calls the broadcast function.
func (a *BroadcastAction) Execute(_ context.Context, d *Detection) error {
	a.Broadcast(*d)
	return nil
}

// Execute logs the detection.
func (a *LogAction) Execute(_ context.Context, d *Detection) error {
	fields := []logger.Field{
		logger.String("plate", d.Plate),
		logger.String("mode", d.Mode),
		logger.Bool("known", d.Known),
	}
	if d.Known {
		fields = append(fields, logger.String("route", d.RouteCode()))
	}
	if d.Verdict != nil {
		fields = append(fields, logger.Bool("serves_trip", d.Verdict.Serves))
	}
	a.Log.Info("bus detected", fields...)
	return nil
}
