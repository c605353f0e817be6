package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction. A collision
// on the reference_code unique index returns domain.ErrDuplicateReference;
// callers regenerate the code and retry.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, from_account_id, to_account_id, type, amount, currency,
		fee, total_debit, status, description, reference_code, failure_reason, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.FromAccountID, t.ToAccountID, t.Type, t.Amount, t.Currency,
		t.Fee, t.TotalDebit, t.Status, t.Description, t.ReferenceCode,
		t.FailureReason, t.CreatedAt, t.ProcessedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, from_account_id, to_account_id, type, amount, currency,
		fee, total_debit, status, description, reference_code, failure_reason, created_at, processed_at
		FROM transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByReference fetches a transaction by its display-facing reference code.
func (r *TransactionRepo) GetByReference(ctx context.Context, referenceCode string) (*domain.Transaction, error) {
	query := `SELECT id, from_account_id, to_account_id, type, amount, currency,
		fee, total_debit, status, description, reference_code, failure_reason, created_at, processed_at
		FROM transactions WHERE reference_code = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, referenceCode))
}

// ApplyOutcome moves a Pending transaction to a terminal status. The status
// predicate makes replayed outcome events no-ops.
func (r *TransactionRepo) ApplyOutcome(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, reason *string, processedAt time.Time) (bool, error) {
	query := `UPDATE transactions SET status = $1, failure_reason = $2, processed_at = $3
		WHERE id = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query, status, reason, processedAt, id, domain.TransactionStatusPending)
	if err != nil {
		return false, fmt.Errorf("apply transaction outcome: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Type, &t.Amount, &t.Currency,
		&t.Fee, &t.TotalDebit, &t.Status, &t.Description, &t.ReferenceCode,
		&t.FailureReason, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
