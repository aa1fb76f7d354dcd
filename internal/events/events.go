// Package events announces completed ingestions to downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types
const (
	TypeHistoryIngested = "history.ingested"
	TypeSearchSaved     = "search.saved"
)

// Event describes one completed ingestion
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Symbol     string    `json:"symbol,omitempty"`
	AssetType  string    `json:"asset_type,omitempty"`
	Function   string    `json:"function,omitempty"`
	Keywords   string    `json:"keywords,omitempty"`
	Source     string    `json:"source"`
	Count      int       `json:"count"`
	FirstDate  string    `json:"first_date,omitempty"`
	LastDate   string    `json:"last_date,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits events
type Publisher interface {
	PublishEvent(ctx context.Context, e Event) error
}

// TopicPublisher publishes events on one Kafka topic, keyed by symbol
type TopicPublisher struct {
	producer *Producer
	topic    string
	now      func() time.Time
}

// NewTopicPublisher creates a publisher writing to topic
func NewTopicPublisher(producer *Producer, topic string) *TopicPublisher {
	return &TopicPublisher{producer: producer, topic: topic, now: time.Now}
}

// PublishEvent stamps e with an ID and time when missing and sends it
func (p *TopicPublisher) PublishEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}

	key := e.Symbol
	if key == "" {
		key = e.Keywords
	}

	return p.producer.Publish(ctx, p.topic, Message{
		Key:   key,
		Value: e,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID)},
		},
	})
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, e Event) error { return nil }
