package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// failedMessage is the envelope written to the dead-letter topic. The raw
// bytes are preserved untouched so a repair job can inspect or replay them.
type failedMessage struct {
	Payload     json.RawMessage `json:"payload"`
	SourceTopic string          `json:"sourceTopic"`
	ErrorReason string          `json:"errorReason"`
	FailedAt    time.Time       `json:"failedAt"`
}

// DeadLetterProducer implements ports.DeadLetterer by parking unprocessable
// messages on a dedicated topic so they stop blocking the partition.
type DeadLetterProducer struct {
	writer *kafkago.Writer
	topic  string
	log    zerolog.Logger
}

// NewDeadLetterProducer creates a producer for the given dead-letter topic.
func NewDeadLetterProducer(brokers []string, topic string, log zerolog.Logger) *DeadLetterProducer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &DeadLetterProducer{writer: writer, topic: topic, log: log}
}

// Quarantine writes the raw message to the dead-letter topic together with
// the failure reason.
func (p *DeadLetterProducer) Quarantine(ctx context.Context, sourceTopic string, raw []byte, cause error) error {
	envelope := failedMessage{
		Payload:     normalizePayload(raw),
		SourceTopic: sourceTopic,
		ErrorReason: cause.Error(),
		FailedAt:    time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal dead-letter envelope: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{Value: payload}); err != nil {
		return fmt.Errorf("write to dead-letter topic %s: %w", p.topic, err)
	}

	p.log.Warn().
		Str("source_topic", sourceTopic).
		Str("reason", cause.Error()).
		Msg("message quarantined to dead-letter topic")
	return nil
}

// normalizePayload keeps valid JSON as-is and string-encodes anything else,
// since json.RawMessage must hold well-formed JSON.
func normalizePayload(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(string(raw))
	return json.RawMessage(quoted)
}

// Close closes the underlying writer.
func (p *DeadLetterProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
