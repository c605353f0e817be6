package ports

import (
	"context"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
)

// InitiateRequest carries a validated transfer request into the service
// layer. Amount is in the currency's minor unit.
type InitiateRequest struct {
	FromAccountID uuid.UUID
	ToAccountID   *uuid.UUID
	Amount        int64
	Currency      string
	Description   *string
}

// TransferService owns the request side of the pipeline: it validates,
// records and announces transfers, and later applies settlement outcomes.
type TransferService interface {
	Initiate(ctx context.Context, req InitiateRequest) (*domain.Transaction, error)
	GetByReference(ctx context.Context, referenceCode string) (*domain.Transaction, error)
	ApplyOutcome(ctx context.Context, evt domain.SettlementOutcome) error
}

// MessageHandler processes one raw channel message. A nil return tells the
// consumer loop to commit the read position; an error leaves the position
// uncommitted for redelivery.
type MessageHandler interface {
	HandleMessage(ctx context.Context, raw []byte) error
}
