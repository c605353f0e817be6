package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "Transfer"
	TransactionTypeDeposit    TransactionType = "Deposit"
	TransactionTypeWithdrawal TransactionType = "Withdrawal"
	TransactionTypePayment    TransactionType = "Payment"
)

// TransactionStatus represents the lifecycle state of a transaction.
// A transaction starts Pending and converges to Completed or Failed once the
// settlement outcome event is applied.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"
	TransactionStatusCompleted TransactionStatus = "Completed"
	TransactionStatusFailed    TransactionStatus = "Failed"
)

// Transaction is the transfer record owned by the transfer service. Monetary
// fields are in the currency's minor unit. The row is written once at
// initiation; only status, failure_reason and processed_at change afterwards,
// and only through outcome application.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	FromAccountID uuid.UUID         `json:"from_account_id"`
	ToAccountID   *uuid.UUID        `json:"to_account_id,omitempty"`
	Type          TransactionType   `json:"type"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Fee           int64             `json:"fee"`
	TotalDebit    int64             `json:"total_debit"`
	Status        TransactionStatus `json:"status"`
	Description   *string           `json:"description,omitempty"`
	ReferenceCode string            `json:"reference_code"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}
