// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types emitted on the platform topic.
const (
	EventPickupCreated      = "pickup.created"
	EventPickupSold         = "pickup.sold"
	EventPickupReturned     = "pickup.returned"
	EventPickupTransferred  = "pickup.transferred"
	EventPickupExpired      = "pickup.expired"
	EventViolationRecorded  = "violation.recorded"
	EventAccountBlocked     = "account.blocked"
	EventAccountUnlocked    = "account.unlocked"
	EventSubmissionAdvanced = "submission.advanced"
	EventSubmissionApproved = "submission.approved"
	EventSubmissionRejected = "submission.rejected"
	EventWalletCredited     = "wallet.credited"
	EventWithdrawalPaid     = "wallet.withdrawal_paid"
)

// Envelope is the wire format for every published event.
type Envelope struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// Publisher writes domain events to Kafka. A nil Publisher is valid and
// drops every event, so callers never branch on whether eventing is enabled.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
	}
}

// Publish serializes and writes one event keyed by the subject identifier.
// Failures are logged, never propagated; eventing is best-effort.
func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload map[string]interface{}) {
	if p == nil {
		return
	}

	envelope := Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to marshal event")
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
