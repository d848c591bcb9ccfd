// Package producer provides the Kafka producer for notification jobs.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	kafkautil "github.com/jean1042/monitoring/internal/kafka"
	"github.com/jean1042/monitoring/internal/notifier"
)

// Producer wraps a Kafka writer and publishes notification jobs.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

var _ notifier.JobQueue = (*Producer)(nil)

// NewProducer creates a new Kafka producer with the specified brokers and topic.
// The producer is configured for at-least-once delivery semantics with synchronous writes.
func NewProducer(brokers string, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	// Parse comma-separated broker list
	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	// Configure Kafka writer for at-least-once delivery
	// Use Hash balancer to partition by domain_id for tenant locality
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: kafka.RequireOne, // At-least-once semantics (waits for leader ack)
		Async:        false,            // Synchronous writes for reliability and error handling
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// buildMessage creates a Kafka message from a notification job.
// The message is keyed by domain_id for partition distribution (tenant locality).
func buildMessage(job *notifier.Job) (kafka.Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal notification job: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(job.Params.DomainID),
		Value: payload,
		Headers: []kafka.Header{
			{
				Key:   "queue",
				Value: []byte(job.Queue),
			},
			{
				Key:   "alert_id",
				Value: []byte(job.Params.AlertID),
			},
		},
		Time: time.Now(),
	}

	return msg, nil
}

// Submit serializes a notification job to JSON and publishes it to Kafka.
// Returns an error if serialization or publishing fails; the caller decides
// whether that error matters.
func (p *Producer) Submit(ctx context.Context, job *notifier.Job) error {
	msg, err := buildMessage(job)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	slog.Debug("Published notification job",
		"alert_id", job.Params.AlertID,
		"domain_id", job.Params.DomainID,
		"topic", p.topic,
	)

	return nil
}

// Close gracefully closes the Kafka writer and releases resources.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	return nil
}
