package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"digital-banking-platform/internal/core/ports"
)

const (
	handlerRetryDelay    = 2 * time.Second
	maxHandlerRetryDelay = 30 * time.Second
	drainTimeout         = 10 * time.Second
)

// Consumer pulls messages from one topic as part of a consumer group and
// feeds them to a handler. The offset is committed only after the handler
// returns nil, so a crash between processing and commit redelivers the
// message rather than losing it.
type Consumer struct {
	reader  *kafkago.Reader
	handler ports.MessageHandler
	log     zerolog.Logger
}

// NewConsumer creates a Consumer joining the given consumer group.
func NewConsumer(brokers []string, topic, groupID string, handler ports.MessageHandler, log zerolog.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
		StartOffset:    kafkago.FirstOffset,
	})
	return &Consumer{reader: reader, handler: handler, log: log}
}

// Run consumes until ctx is canceled. A handler error means a transient
// fault: the same message is retried with backoff and later messages on
// the partition wait behind it. Returning nil from the handler, including
// for rejected or dead-lettered messages, advances the offset. Cancellation
// stops fetching; the message already in flight drains to completion first.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().
		Str("topic", c.reader.Config().Topic).
		Str("group", c.reader.Config().GroupID).
		Msg("consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := c.handleOne(ctx, msg); err != nil {
			// shutdown interrupted the retry loop; the offset stays
			// uncommitted and the message is redelivered after the
			// rebalance.
			return nil
		}
	}
}

// handleOne processes one fetched message and commits its offset. The handler
// and the commit run under a drain context detached from ctx, so a shutdown
// signal arriving mid-message lets the in-flight transaction and its offset
// commit finish instead of aborting halfway.
func (c *Consumer) handleOne(ctx context.Context, msg kafkago.Message) error {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	if err := c.process(ctx, drainCtx, msg); err != nil {
		return err
	}

	if err := c.reader.CommitMessages(drainCtx, msg); err != nil {
		c.log.Error().Err(err).
			Int64("offset", msg.Offset).
			Msg("failed to commit offset")
	}
	return nil
}

// process retries the handler until it succeeds. The handler always sees
// drainCtx; shutdown (ctx) only stops the loop between attempts, so a
// message already being processed is never cut off mid-transaction.
func (c *Consumer) process(ctx, drainCtx context.Context, msg kafkago.Message) error {
	delay := handlerRetryDelay
	for {
		err := c.handler.HandleMessage(drainCtx, msg.Value)
		if err == nil {
			return nil
		}

		c.log.Error().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Dur("retry_in", delay).
			Msg("message handling failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drainCtx.Done():
			return drainCtx.Err()
		case <-time.After(delay):
		}
		if delay < maxHandlerRetryDelay {
			delay *= 2
			if delay > maxHandlerRetryDelay {
				delay = maxHandlerRetryDelay
			}
		}
	}
}

// Close closes the underlying reader, leaving the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
