package postgres

import (
	"context"
	"errors"
	"fmt"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, user_id, account_number, type, currency,
		balance, available_balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.UserID, a.AccountNumber, a.Type, a.Currency,
		a.Balance, a.AvailableBalance, a.IsActive, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, user_id, account_number, type, currency,
		balance, available_balance, is_active, created_at, updated_at
		FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.Type, &a.Currency,
		&a.Balance, &a.AvailableBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// DebitIfSufficient subtracts amount from both balances in one conditional
// update. The funds check and the write are a single statement, so two
// consumers racing on the same account cannot overdraw it.
func (r *AccountRepo) DebitIfSufficient(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error) {
	query := `UPDATE accounts
		SET balance = balance - $1, available_balance = available_balance - $1, updated_at = NOW()
		WHERE id = $2 AND is_active AND available_balance >= $1`

	tag, err := tx.Exec(ctx, query, amount, id)
	if err != nil {
		return false, fmt.Errorf("debit account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Credit adds amount to both balances of an active account.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error) {
	query := `UPDATE accounts
		SET balance = balance + $1, available_balance = available_balance + $1, updated_at = NOW()
		WHERE id = $2 AND is_active`

	tag, err := tx.Exec(ctx, query, amount, id)
	if err != nil {
		return false, fmt.Errorf("credit account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
