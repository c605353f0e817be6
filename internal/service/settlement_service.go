package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
)

// SettlementServiceImpl applies settlement events to account balances. It
// implements ports.MessageHandler for the transfer topic.
//
// Each event is settled in one database transaction: the conditional debit,
// the optional credit, the inbox marker and the outcome outbox row commit or
// roll back together. The inbox marker is the durable idempotency barrier;
// the cache in front of it only saves round trips on obvious replays.
type SettlementServiceImpl struct {
	accountRepo  ports.AccountRepository
	inboxRepo    ports.SettlementInboxRepository
	outboxRepo   ports.OutboxRepository
	transactor   ports.DBTransactor
	cache        ports.SettlementCache
	deadLetter   ports.DeadLetterer
	sourceTopic  string
	outcomeTopic string
	dedupTTL     time.Duration
	log          zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	accountRepo ports.AccountRepository,
	inboxRepo ports.SettlementInboxRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	cache ports.SettlementCache,
	deadLetter ports.DeadLetterer,
	sourceTopic string,
	outcomeTopic string,
	dedupTTL time.Duration,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		accountRepo:  accountRepo,
		inboxRepo:    inboxRepo,
		outboxRepo:   outboxRepo,
		transactor:   transactor,
		cache:        cache,
		deadLetter:   deadLetter,
		sourceTopic:  sourceTopic,
		outcomeTopic: outcomeTopic,
		dedupTTL:     dedupTTL,
		log:          log,
	}
}

// HandleMessage settles one event. A nil return commits the read position:
// success, business failure and duplicates all return nil, because each
// produced a durable decision. Only transient faults return an error.
func (s *SettlementServiceImpl) HandleMessage(ctx context.Context, raw []byte) error {
	var evt domain.SettlementRequested
	if err := json.Unmarshal(raw, &evt); err != nil {
		return s.quarantine(ctx, raw, fmt.Errorf("unmarshal settlement event: %w", err))
	}
	if evt.Amount <= 0 || evt.Fee < 0 || evt.TotalAmount <= 0 || evt.TotalAmount < evt.Amount {
		return s.quarantine(ctx, raw, fmt.Errorf("settlement event %s carries invalid amounts", evt.TransactionID))
	}

	// Fast-path duplicate check. Errors fall through to the inbox barrier.
	applied, err := s.cache.AlreadyApplied(ctx, evt.TransactionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("settlement cache check failed, falling through to inbox")
	} else if applied {
		s.log.Debug().
			Str("transaction_id", evt.TransactionID.String()).
			Msg("duplicate settlement event, skipping")
		return nil
	}

	outcome, err := s.settle(ctx, evt)
	if err != nil {
		return err
	}

	// Best effort; a miss only costs a database round trip on replay.
	if err := s.cache.MarkApplied(ctx, evt.TransactionID, s.dedupTTL); err != nil {
		s.log.Warn().Err(err).Msg("settlement cache mark failed")
	}

	logEvt := s.log.Info().
		Str("transaction_id", evt.TransactionID.String()).
		Str("status", string(outcome.Status))
	if outcome.Reason != nil {
		logEvt = logEvt.Str("reason", *outcome.Reason)
	}
	logEvt.Msg("settlement applied")
	return nil
}

// settle runs the settlement transaction and returns the recorded outcome.
func (s *SettlementServiceImpl) settle(ctx context.Context, evt domain.SettlementRequested) (*domain.SettlementOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	debited, err := s.accountRepo.DebitIfSufficient(ctx, dbTx, evt.FromAccountID, evt.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("debit account %s: %w", evt.FromAccountID, err)
	}
	if !debited {
		reason, err := s.classifyDebitFailure(ctx, evt)
		if err != nil {
			return nil, err
		}
		return s.recordOutcome(ctx, dbTx, evt, domain.TransactionStatusFailed, &reason, now)
	}

	if evt.ToAccountID != nil {
		credited, err := s.accountRepo.Credit(ctx, dbTx, *evt.ToAccountID, evt.Amount)
		if err != nil {
			return nil, fmt.Errorf("credit account %s: %w", *evt.ToAccountID, err)
		}
		if !credited {
			// Roll back the debit rather than strand the money; the
			// transfer fails whole.
			if err := dbTx.Rollback(ctx); err != nil {
				return nil, fmt.Errorf("rollback after missing destination: %w", err)
			}
			return s.failInNewTx(ctx, evt, domain.FailureDestinationNotFound, now)
		}
	}

	return s.recordOutcome(ctx, dbTx, evt, domain.TransactionStatusCompleted, nil, now)
}

// classifyDebitFailure distinguishes a missing or inactive source account
// from plain insufficient funds.
func (s *SettlementServiceImpl) classifyDebitFailure(ctx context.Context, evt domain.SettlementRequested) (string, error) {
	acct, err := s.accountRepo.GetByID(ctx, evt.FromAccountID)
	if err != nil {
		return "", fmt.Errorf("inspect account %s: %w", evt.FromAccountID, err)
	}
	if acct == nil || !acct.IsActive {
		return domain.FailureSourceNotFound, nil
	}
	return domain.FailureInsufficientFunds, nil
}

// failInNewTx records a Failed outcome in a fresh transaction after the
// original one was rolled back.
func (s *SettlementServiceImpl) failInNewTx(ctx context.Context, evt domain.SettlementRequested, reason string, now time.Time) (*domain.SettlementOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	return s.recordOutcome(ctx, dbTx, evt, domain.TransactionStatusFailed, &reason, now)
}

// recordOutcome writes the inbox marker and the outcome outbox row, then
// commits. A losing race on the inbox marker rolls everything back, undoing
// this delivery's balance changes.
func (s *SettlementServiceImpl) recordOutcome(
	ctx context.Context,
	dbTx pgx.Tx,
	evt domain.SettlementRequested,
	status domain.TransactionStatus,
	reason *string,
	now time.Time,
) (*domain.SettlementOutcome, error) {
	recorded, err := s.inboxRepo.Record(ctx, dbTx, evt.TransactionID, status, now)
	if err != nil {
		return nil, fmt.Errorf("record settlement inbox: %w", err)
	}
	if !recorded {
		if err := dbTx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback duplicate settlement: %w", err)
		}
		s.log.Debug().
			Str("transaction_id", evt.TransactionID.String()).
			Msg("settlement already recorded, delivery discarded")
		return &domain.SettlementOutcome{TransactionID: evt.TransactionID, Status: status, Reason: reason, ProcessedAt: now}, nil
	}

	outcome := domain.SettlementOutcome{
		TransactionID: evt.TransactionID,
		Status:        status,
		Reason:        reason,
		ProcessedAt:   now,
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome event: %w", err)
	}

	msg := &domain.OutboxMessage{
		ID:        uuid.New(),
		Topic:     s.outcomeTopic,
		Key:       outcome.PartitionKey(),
		Payload:   payload,
		CreatedAt: now,
	}
	if err := s.outboxRepo.Create(ctx, dbTx, msg); err != nil {
		return nil, fmt.Errorf("stage outcome event: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}
	return &outcome, nil
}

func (s *SettlementServiceImpl) quarantine(ctx context.Context, raw []byte, cause error) error {
	s.log.Warn().Err(cause).Msg("unprocessable settlement event")
	if err := s.deadLetter.Quarantine(ctx, s.sourceTopic, raw, cause); err != nil {
		return fmt.Errorf("quarantine settlement event: %w", err)
	}
	return nil
}
