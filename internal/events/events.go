// Package events publishes billing activity to a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/bher20/energyplatform/internal/metrics"
)

// Event types.
const (
	TypeBillComputed     = "bill.computed"
	TypeInvoiceGenerated = "invoice.generated"
)

// Event is the JSON body of every published message.
type Event struct {
	Type        string    `json:"type"`
	InvoiceID   string    `json:"invoice_id,omitempty"`
	Sector      string    `json:"sector"`
	Consumption string    `json:"consumption"`
	Total       string    `json:"total"`
	Filename    string    `json:"filename,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// DefaultPublishTimeout bounds how long Publish may block the caller.
const DefaultPublishTimeout = 500 * time.Millisecond

// KafkaPublisher writes events to a Kafka topic, keyed by invoice id.
// Writes are asynchronous: delivery failures are reported through the
// writer's completion callback, not to the caller.
type KafkaPublisher struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{logger: logger, timeout: DefaultPublishTimeout}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
		WriteTimeout: 5 * time.Second,
		Completion:   p.complete,
	}
	return p
}

// Open returns a KafkaPublisher when brokers are configured, otherwise a
// NopPublisher.
func Open(brokers []string, topic string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("events: publishing to kafka", "brokers", brokers, "topic", topic)
	return NewKafkaPublisher(brokers, topic, logger)
}

// Publish enqueues e. It gives up after the publish timeout even if the
// writer's queue is full.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := toMessage(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) complete(msgs []kafkago.Message, err error) {
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("failed").Add(float64(len(msgs)))
		p.logger.Warn("events: delivery failed", "messages", len(msgs), "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("delivered").Add(float64(len(msgs)))
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(e Event) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event: %w", err)
	}
	key := e.InvoiceID
	if key == "" {
		key = e.Sector
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "occurred_at", Value: []byte(e.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
