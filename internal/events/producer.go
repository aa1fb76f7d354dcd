package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message is a record to publish. Value is sent as JSON.
type Message struct {
	Key     string
	Value   any
	Headers []kafka.Header
}

// messageWriter is implemented by *kafka.Writer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to Kafka, holding one writer per topic
type Producer struct {
	mu        sync.Mutex
	writers   map[string]messageWriter
	newWriter func(topic string) messageWriter
	brokers   []string
	clientID  string
	logger    *zap.Logger
}

// NewProducer creates a producer for brokers. Writers are opened lazily.
func NewProducer(brokers []string, clientID string, logger *zap.Logger) *Producer {
	p := &Producer{
		writers:  make(map[string]messageWriter),
		brokers:  brokers,
		clientID: clientID,
		logger:   logger,
	}
	p.newWriter = p.kafkaWriter
	return p
}

// kafkaWriter hashes on the key so events of one symbol stay ordered
func (p *Producer) kafkaWriter(topic string) messageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}
}

func (p *Producer) writerFor(topic string) messageWriter {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.writers[topic]
	if !ok {
		w = p.newWriter(topic)
		p.writers[topic] = w
	}
	return w
}

// Publish encodes msg and writes it to topic
func (p *Producer) Publish(ctx context.Context, topic string, msg Message) error {
	value, err := json.Marshal(msg.Value)
	if err != nil {
		return fmt.Errorf("encode message for %s: %w", topic, err)
	}

	record := kafka.Message{
		Key:     []byte(msg.Key),
		Value:   value,
		Headers: msg.Headers,
		Time:    time.Now().UTC(),
	}
	if err := p.writerFor(topic).WriteMessages(ctx, record); err != nil {
		p.logger.Warn("Kafka write failed",
			zap.String("topic", topic),
			zap.String("key", msg.Key),
			zap.Error(err))
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	p.logger.Debug("Published message", zap.String("topic", topic), zap.String("key", msg.Key))
	return nil
}

// Close flushes and closes every writer opened so far. The producer can
// be reused afterwards; new writers are opened on demand.
func (p *Producer) Close() error {
	p.mu.Lock()
	writers := p.writers
	p.writers = make(map[string]messageWriter)
	p.mu.Unlock()

	var errs []error
	for topic, w := range writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer for %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}
