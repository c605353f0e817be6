package postgres

import (
	"context"
	"fmt"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository. Both services carry their own
// outbox table in their own store; the schema is identical.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Create inserts a pending event row. Must share the transaction of the state
// change it announces.
func (r *OutboxRepo) Create(ctx context.Context, tx pgx.Tx, msg *domain.OutboxMessage) error {
	query := `INSERT INTO outbox_messages (id, topic, key, payload, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, msg.ID, msg.Topic, msg.Key, msg.Payload, msg.CreatedAt, msg.PublishedAt)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// FetchUnpublished returns pending rows in insertion order, locked for this
// relay. SKIP LOCKED keeps concurrent relay instances off each other's rows.
func (r *OutboxRepo) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxMessage, error) {
	query := `SELECT id, topic, key, payload, created_at, published_at
		FROM outbox_messages WHERE published_at IS NULL
		ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.OutboxMessage
	for rows.Next() {
		m := domain.OutboxMessage{}
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.Payload, &m.CreatedAt, &m.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return msgs, nil
}

// MarkPublished stamps published_at on acknowledged rows.
func (r *OutboxRepo) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE outbox_messages SET published_at = NOW() WHERE id = ANY($1)`

	_, err := tx.Exec(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("mark outbox messages published: %w", err)
	}
	return nil
}
