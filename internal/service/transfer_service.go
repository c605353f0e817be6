package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
	"digital-banking-platform/pkg/apperror"
)

// maxReferenceAttempts bounds regeneration when a reference code collides.
const maxReferenceAttempts = 3

// TransferServiceImpl implements ports.TransferService. Initiation never
// touches account balances; it records the intent and stages the settlement
// event in the outbox within one database transaction.
type TransferServiceImpl struct {
	txRepo        ports.TransactionRepository
	outboxRepo    ports.OutboxRepository
	transactor    ports.DBTransactor
	feePolicy     domain.FeePolicy
	transferTopic string
	log           zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	txRepo ports.TransactionRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	feePolicy domain.FeePolicy,
	transferTopic string,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		txRepo:        txRepo,
		outboxRepo:    outboxRepo,
		transactor:    transactor,
		feePolicy:     feePolicy,
		transferTopic: transferTopic,
		log:           log,
	}
}

// Initiate validates the request, persists a Pending transaction and stages
// the settlement event atomically. The transfer is accepted without any
// balance check; settlement decides whether it completes.
func (s *TransferServiceImpl) Initiate(ctx context.Context, req ports.InitiateRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.ToAccountID != nil && *req.ToAccountID == req.FromAccountID {
		return nil, apperror.ErrSameAccount()
	}

	fee := s.feePolicy.Fee(req.Amount)
	now := time.Now().UTC()

	txn := &domain.Transaction{
		ID:            uuid.New(),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Type:          domain.TransactionTypeTransfer,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Fee:           fee,
		TotalDebit:    req.Amount + fee,
		Status:        domain.TransactionStatusPending,
		Description:   req.Description,
		CreatedAt:     now,
	}

	var lastErr error
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		txn.ReferenceCode = domain.NewReferenceCode(now)

		err := s.persistWithEvent(ctx, txn)
		if err == nil {
			s.log.Info().
				Str("transaction_id", txn.ID.String()).
				Str("reference_code", txn.ReferenceCode).
				Int64("amount", txn.Amount).
				Int64("fee", txn.Fee).
				Msg("transfer initiated")
			return txn, nil
		}
		if errors.Is(err, domain.ErrDuplicateReference) {
			lastErr = err
			continue
		}
		return nil, apperror.ErrDatabaseError(err)
	}
	return nil, apperror.ErrReferenceExhausted(lastErr)
}

// persistWithEvent writes the transaction row and its outbox row in one
// database transaction.
func (s *TransferServiceImpl) persistWithEvent(ctx context.Context, txn *domain.Transaction) error {
	evt := domain.NewSettlementRequested(txn)
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return err
	}

	msg := &domain.OutboxMessage{
		ID:        uuid.New(),
		Topic:     s.transferTopic,
		Key:       evt.PartitionKey(),
		Payload:   payload,
		CreatedAt: txn.CreatedAt,
	}
	if err := s.outboxRepo.Create(ctx, dbTx, msg); err != nil {
		return fmt.Errorf("stage outbox event: %w", err)
	}

	return dbTx.Commit(ctx)
}

// GetByReference looks up a transfer by its reference code.
func (s *TransferServiceImpl) GetByReference(ctx context.Context, referenceCode string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, referenceCode)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// ApplyOutcome moves the transaction to the terminal status reported by the
// settlement side. Replayed events find the row already terminal and are
// dropped without error.
func (s *TransferServiceImpl) ApplyOutcome(ctx context.Context, evt domain.SettlementOutcome) error {
	if evt.Status != domain.TransactionStatusCompleted && evt.Status != domain.TransactionStatusFailed {
		return fmt.Errorf("outcome for %s carries non-terminal status %q", evt.TransactionID, evt.Status)
	}

	applied, err := s.txRepo.ApplyOutcome(ctx, evt.TransactionID, evt.Status, evt.Reason, evt.ProcessedAt)
	if err != nil {
		return fmt.Errorf("apply outcome: %w", err)
	}
	if !applied {
		s.log.Debug().
			Str("transaction_id", evt.TransactionID.String()).
			Msg("outcome already applied, skipping")
		return nil
	}

	logEvt := s.log.Info().
		Str("transaction_id", evt.TransactionID.String()).
		Str("status", string(evt.Status))
	if evt.Reason != nil {
		logEvt = logEvt.Str("reason", *evt.Reason)
	}
	logEvt.Msg("settlement outcome applied")
	return nil
}
