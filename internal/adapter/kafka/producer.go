package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Producer implements ports.Publisher over a shared kafka.Writer. Messages
// carry their topic, so one writer serves both the transfer and outcome
// topics. Writes are synchronous and wait for acknowledgment from all
// replicas; the key is hashed to a partition, which is what gives transfers
// on the same source account a total order.
type Producer struct {
	writer *kafkago.Writer
	log    zerolog.Logger
}

// NewProducer creates a new Producer for the given brokers.
func NewProducer(brokers []string, log zerolog.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	return &Producer{writer: writer, log: log}
}

// Publish writes one message and waits for the broker acknowledgment.
func (p *Producer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}

	p.log.Debug().
		Str("topic", topic).
		Str("key", key).
		Msg("message published")
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
