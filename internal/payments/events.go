package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/regpay-backend/pkg/enums"
)

const defaultPublishTimeout = 15 * time.Second

// StatusChangedEvent is published whenever a transaction moves to a new status.
type StatusChangedEvent struct {
	EventID        string                   `json:"eventId"`
	EventType      enums.PaymentEventType   `json:"eventType"`
	OrderID        string                   `json:"orderId"`
	Status         enums.PaymentStatus      `json:"status"`
	PreviousStatus enums.PaymentStatus      `json:"previousStatus"`
	Source         enums.PaymentEventSource `json:"source"`
	Amount         int64                    `json:"amount"`
	Collection     string                   `json:"collectionName,omitempty"`
	RegistrationID string                   `json:"registrationId,omitempty"`
	OccurredAt     time.Time                `json:"occurredAt"`
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubPublisher sends payment events to a single topic.
type PubSubPublisher struct {
	publisher publisher
	timeout   time.Duration
}

// NewPubSubPublisher wraps a topic publisher handle.
func NewPubSubPublisher(p *gcppubsub.Publisher) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return newPubSubPublisher(&gcpPublisher{Publisher: p}), nil
}

func newPubSubPublisher(p publisher) *PubSubPublisher {
	return &PubSubPublisher{publisher: p, timeout: defaultPublishTimeout}
}

// PublishStatusChanged blocks until the broker acknowledges the message.
func (p *PubSubPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode payment event: %w", err)
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":   event.EventID,
			"event_type": string(event.EventType),
			"order_id":   event.OrderID,
			"status":     string(event.Status),
			"source":     string(event.Source),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result := p.publisher.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publish returned no result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish payment event %s: %w", event.OrderID, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
