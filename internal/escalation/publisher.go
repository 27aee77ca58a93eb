package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Dispatch event types.
const (
	EventDispatchCreated  = "dispatch.created"
	EventDispatchUpdated  = "dispatch.updated"
	EventEmergencyStarted = "dispatch.emergency"
)

// DispatchEvent is published whenever a dispatch changes.
type DispatchEvent struct {
	Type                      string    `json:"type"`
	DispatchID                string    `json:"dispatchId"`
	SessionID                 string    `json:"sessionId"`
	ThreatScore               float64   `json:"threatScore"`
	EmergencyServicesNotified bool      `json:"emergencyServicesNotified"`
	Actions                   []string  `json:"actions"`
	OccurredAt                time.Time `json:"occurredAt"`
}

// EventPublisher announces dispatch changes to downstream responders.
type EventPublisher interface {
	Publish(ctx context.Context, event DispatchEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, DispatchEvent) error { return nil }

// PubSubPublisherConfig holds configuration for the Pub/Sub publisher.
type PubSubPublisherConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubPublisher publishes dispatch events to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

var _ EventPublisher = (*PubSubPublisher)(nil)

// NewPubSubPublisher creates a publisher for cfg.Topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubPublisherConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	// Events for one session must arrive in order.
	publisher.EnableMessageOrdering = true

	return &PubSubPublisher{
		client:    client,
		publisher: publisher,
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends event and waits for the server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, event DispatchEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: event.SessionID,
		Attributes: map[string]string{
			"type":       event.Type,
			"session_id": event.SessionID,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		p.publisher.ResumePublish(event.SessionID)
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("message_id", id).
		Str("event_type", event.Type).
		Str("dispatch_id", event.DispatchID).
		Msg("dispatch event published")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
