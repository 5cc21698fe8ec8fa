package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Grading event types emitted over the message bus.
const (
	EventRubricGenerated     = "rubric.generated"
	EventEvaluationCompleted = "evaluation.completed"
)

// GradingEvent is the envelope published after a grading phase completes.
type GradingEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// EventPublisher broadcasts grading lifecycle events. Publishing is
// best-effort: a failed publish never fails the grading request.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{})
}

type natsPublisher struct {
	conn        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
}

// NewNATSPublisher builds an event publisher over an established NATS
// connection. A nil connection yields a publisher that does nothing.
func NewNATSPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "drona.grading"
	}

	return &natsPublisher{
		conn:        conn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) Publish(_ context.Context, eventType string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}

	event := GradingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("type", eventType).Msg("failed to encode grading event")
		return
	}

	subject := p.subjectBase + "." + eventType
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish grading event")
	}
}
