package domain

import (
	"time"

	"github.com/google/uuid"
)

// SettlementRequested is the event published when a transfer is initiated.
// The payload is immutable once written to the outbox; the same transactionId
// may be delivered more than once.
type SettlementRequested struct {
	TransactionID uuid.UUID  `json:"transactionId"`
	FromAccountID uuid.UUID  `json:"fromAccountId"`
	ToAccountID   *uuid.UUID `json:"toAccountId,omitempty"`
	Amount        int64      `json:"amount"`
	Fee           int64      `json:"fee"`
	TotalAmount   int64      `json:"totalAmount"`
	Currency      string     `json:"currency"`
	ReferenceCode string     `json:"referenceNumber"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewSettlementRequested builds the event for a freshly created transaction.
func NewSettlementRequested(t *Transaction) SettlementRequested {
	return SettlementRequested{
		TransactionID: t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount,
		Fee:           t.Fee,
		TotalAmount:   t.TotalDebit,
		Currency:      t.Currency,
		ReferenceCode: t.ReferenceCode,
		CreatedAt:     t.CreatedAt,
	}
}

// PartitionKey keys the event by source account so every transfer debiting
// the same account lands on the same partition, in creation order.
func (e SettlementRequested) PartitionKey() string {
	return e.FromAccountID.String()
}

// SettlementOutcome reports the terminal result of a settlement back to the
// transfer service.
type SettlementOutcome struct {
	TransactionID uuid.UUID         `json:"transactionId"`
	Status        TransactionStatus `json:"status"` // Completed or Failed
	Reason        *string           `json:"reason,omitempty"`
	ProcessedAt   time.Time         `json:"processedAt"`
}

// PartitionKey keys outcomes by transaction id; ordering across transactions
// does not matter on the outcome topic.
func (e SettlementOutcome) PartitionKey() string {
	return e.TransactionID.String()
}

// Failure reasons carried on Failed outcomes. These are stable strings stored
// on the transaction row, not display text.
const (
	FailureInsufficientFunds   = "insufficient funds"
	FailureSourceNotFound      = "source account not found or inactive"
	FailureDestinationNotFound = "destination account not found or inactive"
)
