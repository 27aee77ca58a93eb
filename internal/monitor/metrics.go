package monitor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/saferide/saferide/internal/escalation"
	"github.com/saferide/saferide/internal/threat"
)

const meterName = "github.com/saferide/saferide/internal/monitor"

// Metrics holds the domain instruments. A nil *Metrics records nothing.
type Metrics struct {
	assessments   metric.Int64Counter
	score         metric.Float64Histogram
	escalations   metric.Int64Counter
	notifications metric.Int64Counter
}

var _ escalation.Observer = (*Metrics)(nil)

// NewMetrics creates the monitor instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	assessments, err := meter.Int64Counter(
		"saferide.assessments.total",
		metric.WithDescription("Threat assessments computed, by level and action"),
		metric.WithUnit("{assessment}"),
	)
	if err != nil {
		return nil, err
	}

	score, err := meter.Float64Histogram(
		"saferide.assessment.score",
		metric.WithDescription("Distribution of composite threat scores"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1),
	)
	if err != nil {
		return nil, err
	}

	escalations, err := meter.Int64Counter(
		"saferide.escalations.total",
		metric.WithDescription("Escalations run, by action"),
		metric.WithUnit("{escalation}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"saferide.notifications.total",
		metric.WithDescription("Emergency contact notifications, by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		assessments:   assessments,
		score:         score,
		escalations:   escalations,
		notifications: notifications,
	}, nil
}

// Assessed records one assessment.
func (m *Metrics) Assessed(ctx context.Context, a threat.Assessment) {
	if m == nil {
		return
	}
	m.assessments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", string(a.Level)),
		attribute.String("action", string(a.Action)),
	))
	m.score.Record(ctx, a.Score)
}

// Escalated implements escalation.Observer.
func (m *Metrics) Escalated(ctx context.Context, action threat.Action) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))
}

// Notified implements escalation.Observer.
func (m *Metrics) Notified(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
