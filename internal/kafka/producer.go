package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-lounge/internal/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types published by the ledger.
const (
	EventUserRegistered       = "user.registered"
	EventBonusChanged         = "bonus.changed"
	EventReferralAwarded      = "referral.awarded"
	EventBonusRequestResolved = "bonus_request.resolved"
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventOrderOpened          = "order.opened"
	EventOrderClosed          = "order.closed"
	EventShiftOpened          = "shift.opened"
	EventShiftClosed          = "shift.closed"
)

// EventTypes lists every type so topics can be created up front.
var EventTypes = []string{
	EventUserRegistered,
	EventBonusChanged,
	EventReferralAwarded,
	EventBonusRequestResolved,
	EventBookingCreated,
	EventBookingStatusChanged,
	EventOrderOpened,
	EventOrderClosed,
	EventShiftOpened,
	EventShiftClosed,
}

// Publisher is what the services depend on. Publishing happens after the
// write is committed, so a failed publish never rolls anything back.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// Event is the envelope written as the message value.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEvent(eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

type Producer struct {
	Writer *kafka.Writer
	prefix string
	log    *logger.Logger
}

func NewProducer(brokers []string, topicPrefix string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Producer{Writer: writer, prefix: topicPrefix, log: log}
}

// Topic maps an event type to its topic name, e.g. lounge.shift.closed.
func Topic(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// Topics returns every topic the producer may write to.
func Topics(prefix string) []string {
	topics := make([]string, 0, len(EventTypes))
	for _, eventType := range EventTypes {
		topics = append(topics, Topic(prefix, eventType))
	}
	return topics
}

func (p *Producer) Publish(ctx context.Context, eventType, key string, payload any) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	topic := Topic(p.prefix, eventType)
	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	})
	if err != nil {
		p.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s to %s: %v", event.ID, topic, err))
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.log.LogKafka("PUBLISH", topic, fmt.Sprintf("event %s key=%s", event.ID, key))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// NoopPublisher drops events. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, any) error {
	return nil
}
