package postgres

import (
	"context"
	"fmt"
	"time"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SettlementInboxRepo implements ports.SettlementInboxRepository against the
// account store.
type SettlementInboxRepo struct {
	pool Pool
}

// NewSettlementInboxRepo creates a new SettlementInboxRepo.
func NewSettlementInboxRepo(pool Pool) *SettlementInboxRepo {
	return &SettlementInboxRepo{pool: pool}
}

// Record inserts the applied marker for a settlement event. ON CONFLICT DO
// NOTHING turns a redelivered event into zero affected rows instead of an
// error, so the caller can skip without rolling back.
func (r *SettlementInboxRepo) Record(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, outcome domain.TransactionStatus, processedAt time.Time) (bool, error) {
	query := `INSERT INTO settlement_inbox (transaction_id, outcome, processed_at)
		VALUES ($1, $2, $3) ON CONFLICT (transaction_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, transactionID, outcome, processedAt)
	if err != nil {
		return false, fmt.Errorf("record settlement inbox: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
