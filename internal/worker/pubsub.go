package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/saferide/saferide/internal/geo"
	"github.com/saferide/saferide/internal/monitor"
	"github.com/saferide/saferide/internal/session"
)

// Device message types.
const (
	MessageLocationUpdate   = "location_update"
	MessageLocationDisabled = "location_disabled"
	MessagePanic            = "panic"
)

// Disposition tells Pub/Sub what to do with a handled message.
type Disposition int

const (
	// Ack removes the message; used for success and for terminal failures
	// that a redelivery cannot fix.
	Ack Disposition = iota
	// Nack asks for redelivery.
	Nack
)

func (d Disposition) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// LocationSink receives device telemetry.
type LocationSink interface {
	UpdateLocation(ctx context.Context, id string, upd monitor.Update) (*monitor.UpdateResult, error)
	ReportLocationDisabled(ctx context.Context, id string) (*monitor.UpdateResult, error)
	TriggerEmergency(ctx context.Context, id string, loc *geo.Location) (*monitor.UpdateResult, error)
}

// DeviceMessage is one telemetry message published by a rider's device.
type DeviceMessage struct {
	Type      string        `json:"type" validate:"required"`
	SessionID string        `json:"sessionId" validate:"required,max=64"`
	Location  *geo.Location `json:"location,omitempty" validate:"required_if=Type location_update"`
}

// Handler turns device messages into monitor calls.
type Handler struct {
	sink     LocationSink
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler creates a device message handler.
func NewHandler(sink LocationSink, logger zerolog.Logger) *Handler {
	return &Handler{
		sink:     sink,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Handle processes one message body. publishTime stamps locations that
// arrive without their own timestamp.
func (h *Handler) Handle(ctx context.Context, data []byte, publishTime time.Time) Disposition {
	var msg DeviceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Error().Err(err).Msg("failed to parse device message")
		return Nack
	}
	if err := h.validate.Struct(msg); err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("invalid device message")
		return Nack
	}

	logger := h.logger.With().
		Str("type", msg.Type).
		Str("session_id", msg.SessionID).
		Logger()

	var (
		result *monitor.UpdateResult
		err    error
	)
	switch msg.Type {
	case MessageLocationUpdate:
		loc := stamp(*msg.Location, publishTime)
		result, err = h.sink.UpdateLocation(ctx, msg.SessionID, monitor.Update{Location: loc, LocationEnabled: true})
	case MessageLocationDisabled:
		result, err = h.sink.ReportLocationDisabled(ctx, msg.SessionID)
	case MessagePanic:
		var loc *geo.Location
		if msg.Location != nil {
			l := stamp(*msg.Location, publishTime)
			loc = &l
		}
		result, err = h.sink.TriggerEmergency(ctx, msg.SessionID, loc)
	default:
		// Unknown types are acked to prevent redelivery.
		logger.Warn().Msg("unknown device message type")
		return Ack
	}

	if err != nil {
		return h.disposition(logger, err)
	}

	event := logger.Debug()
	if result.Escalation != nil {
		event = logger.Warn().Str("dispatch_id", result.Escalation.DispatchID)
	}
	event.
		Float64("score", result.Assessment.Score).
		Str("level", string(result.Assessment.Level)).
		Msg("device message processed")
	return Ack
}

// disposition decides whether a failed message is worth retrying.
func (h *Handler) disposition(logger zerolog.Logger, err error) Disposition {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		logger.Warn().Err(err).Msg("device message for unknown session")
		return Ack
	case errors.Is(err, monitor.ErrSessionNotActive),
		errors.Is(err, session.ErrInvalidTransition):
		logger.Info().Err(err).Msg("device message for session no longer monitored")
		return Ack
	case errors.Is(err, monitor.ErrInvalidLocation):
		logger.Error().Err(err).Msg("device message with invalid location")
		return Nack
	default:
		logger.Error().Err(err).Msg("device message failed")
		return Nack
	}
}

// stamp fills a missing device timestamp from the publish time.
func stamp(loc geo.Location, publishTime time.Time) geo.Location {
	if loc.Timestamp.IsZero() || loc.Timestamp.UnixMilli() == 0 {
		loc.Timestamp = publishTime
	}
	if loc.Source == "" {
		loc.Source = geo.SourceGPS
	}
	return loc
}

// PubSubHandler receives device telemetry from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *Handler
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	// MaxOutstanding bounds unacknowledged messages held in memory.
	MaxOutstanding int
	Handler        *Handler
	Logger         zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	if cfg.MaxOutstanding > 0 {
		subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	// Location samples are only useful while fresh.
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          cfg.Handler,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting device telemetry subscriber")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		d := h.handler.Handle(ctx, msg.Data, msg.PublishTime)
		if d == Nack {
			msg.Nack()
		} else {
			msg.Ack()
		}
		h.logger.Debug().
			Str("message_id", msg.ID).
			Str("disposition", d.String()).
			Dur("duration", time.Since(start)).
			Msg("pubsub message handled")
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}
