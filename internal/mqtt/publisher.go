// publisher.go: detection messages.
package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/blinkbus/blink-go/internal/errors"
	"github.com/blinkbus/blink-go/internal/logger"
)

// DetectionsTopic is appended to the base topic.
const DetectionsTopic = "detections"

// Message is the JSON payload published for each detection. Field names are
// read by downstream automations, keep them stable.
type Message struct {
	Plate     string    `json:"plate"`
	Route     string    `json:"route,omitempty"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends detection messages through a Client.
type Publisher struct {
	client    Client
	topic     string
	onFailure func()
	log       logger.Logger
}

// NewPublisher returns a publisher writing to <baseTopic>/detections.
// onFailure, when set, is called for every failed publish.
func NewPublisher(client Client, baseTopic string, onFailure func()) *Publisher {
	if onFailure == nil {
		onFailure = func() {}
	}
	return &Publisher{
		client:    client,
		topic:     DetectionTopic(baseTopic),
		onFailure: onFailure,
		log:       GetLogger(),
	}
}

// DetectionTopic returns the topic detections are published to.
func DetectionTopic(baseTopic string) string {
	base := strings.Trim(strings.TrimSpace(baseTopic), "/")
	if base == "" {
		return DetectionsTopic
	}
	return base + "/" + DetectionsTopic
}

// Topic returns the publish topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish sends msg. Failures are logged and counted; the error is returned
// so callers may decide whether to care.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return p.fail(errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal").
			Build(), msg)
	}

	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		if !errors.IsCategory(err, errors.CategoryMQTTPublish) {
			err = errors.New(err).
				Component("mqtt").
				Category(errors.CategoryMQTTPublish).
				Context("topic", p.topic).
				Build()
		}
		return p.fail(err, msg)
	}
	return nil
}

func (p *Publisher) fail(err error, msg Message) error {
	p.onFailure()
	p.log.Warn("failed to publish detection",
		logger.String("topic", p.topic),
		logger.String("plate", msg.Plate),
		logger.Error(err))
	return err
}
