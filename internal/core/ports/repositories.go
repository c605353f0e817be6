package ports

import (
	"context"
	"time"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository defines persistence for transfer records. The row is
// owned exclusively by the transfer service.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByReference(ctx context.Context, referenceCode string) (*domain.Transaction, error)
	// ApplyOutcome moves a Pending transaction to its terminal status.
	// Returns false when the row was not Pending (already applied).
	ApplyOutcome(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, reason *string, processedAt time.Time) (bool, error)
}

// AccountRepository defines persistence for account balances. Balance
// mutations are single conditional updates so concurrent settlement of the
// same account cannot lose writes or overdraw.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// DebitIfSufficient subtracts amount from balance and available_balance
	// only when the account is active and available_balance >= amount.
	// Returns false when no row qualified.
	DebitIfSufficient(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error)
	// Credit adds amount to balance and available_balance of an active
	// account. Returns false when no row qualified.
	Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error)
}

// OutboxRepository defines persistence for pending outbound events. Create
// runs in the same transaction as the state change; fetch and mark run in the
// relay's own transaction so a crashed relay re-sees unmarked rows.
type OutboxRepository interface {
	Create(ctx context.Context, tx pgx.Tx, msg *domain.OutboxMessage) error
	FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxMessage, error)
	MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error
}

// SettlementInboxRepository records which settlement events have been applied
// to balances. The insert shares the balance mutation's transaction and is
// the durable idempotency barrier against redelivery.
type SettlementInboxRepository interface {
	// Record inserts the applied marker. Returns false when the transaction
	// id was already recorded.
	Record(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, outcome domain.TransactionStatus, processedAt time.Time) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
