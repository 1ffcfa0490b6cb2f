package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/internal/domain/conflict"
	"github.com/roomline/service-booking/pkg/kafka"
)

const (
	// TopicConflicts carries conflict ledger events.
	TopicConflicts = "booking.conflicts"

	ConflictCreated  = "booking.conflict.created"
	ConflictResolved = "booking.conflict.resolved"

	eventSource    = "service-booking"
	publishTimeout = 5 * time.Second
)

// ConflictEvent is the payload of both conflict event types.
type ConflictEvent struct {
	ConflictID   uuid.UUID  `json:"conflict_id"`
	Code         string     `json:"code"`
	DisplacingID uuid.UUID  `json:"displacing_booking_id"`
	DisplacedID  uuid.UUID  `json:"displaced_booking_id"`
	ResourceID   uuid.UUID  `json:"resource_id"`
	Date         string     `json:"date"`
	From         string     `json:"from"`
	To           string     `json:"to"`
	Status       string     `json:"status"`
	Decision     string     `json:"decision,omitempty"`
	DecidedBy    *uuid.UUID `json:"decided_by,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// EventPublisher writes a CloudEvent to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// ConflictNotifier publishes conflict ledger changes as CloudEvents.
// Each event is sent from its own goroutine so callers never wait on the
// broker; failures are logged and dropped.
type ConflictNotifier struct {
	publisher EventPublisher
	topic     string
	logger    *zap.Logger
	inflight  sync.WaitGroup
}

// NewConflictNotifier creates a ConflictNotifier. An empty topic means TopicConflicts.
func NewConflictNotifier(publisher EventPublisher, topic string, logger *zap.Logger) *ConflictNotifier {
	if topic == "" {
		topic = TopicConflicts
	}
	return &ConflictNotifier{publisher: publisher, topic: topic, logger: logger}
}

// ConflictCreated announces a new OPEN record.
func (n *ConflictNotifier) ConflictCreated(ctx context.Context, rec *conflict.Record) {
	n.publish(ctx, ConflictCreated, rec)
}

// ConflictResolved announces a decision.
func (n *ConflictNotifier) ConflictResolved(ctx context.Context, rec *conflict.Record) {
	n.publish(ctx, ConflictResolved, rec)
}

// Wait blocks until every publish started so far has finished.
func (n *ConflictNotifier) Wait() {
	n.inflight.Wait()
}

func (n *ConflictNotifier) publish(ctx context.Context, eventType string, rec *conflict.Record) {
	evt := ConflictEvent{
		ConflictID:   rec.ID(),
		Code:         rec.Code(),
		DisplacingID: rec.DisplacingID(),
		DisplacedID:  rec.DisplacedID(),
		ResourceID:   rec.ResourceID(),
		Date:         booking.FormatDate(rec.WindowDate()),
		From:         rec.WindowFrom().String(),
		To:           rec.WindowTo().String(),
		Status:       string(rec.Status()),
		DecidedBy:    rec.DecidedBy(),
		OccurredAt:   time.Now().UTC(),
	}
	if d := rec.Decision(); d != nil {
		evt.Decision = string(*d)
	}

	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, evt)
	if err != nil {
		n.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = rec.Code()

	// Outlives the request context.
	pubCtx := context.WithoutCancel(ctx)

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()

		ctx, cancel := context.WithTimeout(pubCtx, publishTimeout)
		defer cancel()

		if err := n.publisher.PublishEvent(ctx, n.topic, cloudEvent); err != nil {
			n.logger.Error("failed to publish event",
				zap.String("topic", n.topic),
				zap.String("event_type", eventType),
				zap.String("code", cloudEvent.Subject),
				zap.Error(err),
			)
		}
	}()
}
