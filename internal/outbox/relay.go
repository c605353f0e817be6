package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"digital-banking-platform/internal/core/ports"
)

// Relay drains the outbox table into Kafka. Rows are claimed with
// FOR UPDATE SKIP LOCKED, so multiple relay instances can run against the
// same table without double-claiming; a crash between publish and mark
// republishes the row, which downstream idempotency absorbs.
type Relay struct {
	transactor ports.DBTransactor
	repo       ports.OutboxRepository
	publisher  ports.Publisher
	interval   time.Duration
	batchSize  int
	log        zerolog.Logger
}

// NewRelay creates a Relay polling at the given interval.
func NewRelay(
	transactor ports.DBTransactor,
	repo ports.OutboxRepository,
	publisher ports.Publisher,
	interval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *Relay {
	return &Relay{
		transactor: transactor,
		repo:       repo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
	}
}

// Run polls until ctx is canceled. Publish failures leave the rows
// unpublished and are retried on the next tick.
func (r *Relay) Run(ctx context.Context) {
	r.log.Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("outbox drain failed")
			}
		}
	}
}

// DrainOnce claims up to batchSize rows, publishes them in order, and marks
// the published ones inside the same transaction that holds the row locks.
func (r *Relay) DrainOnce(ctx context.Context) error {
	tx, err := r.transactor.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	messages, err := r.repo.FetchUnpublished(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(messages))
	for _, msg := range messages {
		if err := r.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			// Stop at the first failure so per-key ordering is preserved;
			// earlier successes still get marked.
			r.log.Error().Err(err).
				Str("outbox_id", msg.ID.String()).
				Str("topic", msg.Topic).
				Msg("outbox publish failed")
			break
		}
		published = append(published, msg.ID)
	}

	if len(published) == 0 {
		return nil
	}

	if err := r.repo.MarkPublished(ctx, tx, published); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.log.Debug().Int("count", len(published)).Msg("outbox batch published")
	return nil
}
