package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
)

// OutcomeHandler consumes settlement outcome events and applies them to the
// transaction store. It implements ports.MessageHandler for the outcome topic.
type OutcomeHandler struct {
	svc         ports.TransferService
	deadLetter  ports.DeadLetterer
	sourceTopic string
	log         zerolog.Logger
}

// NewOutcomeHandler creates a new OutcomeHandler.
func NewOutcomeHandler(svc ports.TransferService, deadLetter ports.DeadLetterer, sourceTopic string, log zerolog.Logger) *OutcomeHandler {
	return &OutcomeHandler{
		svc:         svc,
		deadLetter:  deadLetter,
		sourceTopic: sourceTopic,
		log:         log,
	}
}

// HandleMessage applies one outcome event. Malformed payloads go to the
// dead-letter topic and commit; transient faults return an error so the
// message is redelivered.
func (h *OutcomeHandler) HandleMessage(ctx context.Context, raw []byte) error {
	var evt domain.SettlementOutcome
	if err := json.Unmarshal(raw, &evt); err != nil {
		return h.quarantine(ctx, raw, fmt.Errorf("unmarshal outcome event: %w", err))
	}
	if evt.Status != domain.TransactionStatusCompleted && evt.Status != domain.TransactionStatusFailed {
		return h.quarantine(ctx, raw, fmt.Errorf("non-terminal outcome status %q", evt.Status))
	}

	if err := h.svc.ApplyOutcome(ctx, evt); err != nil {
		return err
	}
	return nil
}

func (h *OutcomeHandler) quarantine(ctx context.Context, raw []byte, cause error) error {
	h.log.Warn().Err(cause).Msg("unprocessable outcome event")
	if err := h.deadLetter.Quarantine(ctx, h.sourceTopic, raw, cause); err != nil {
		// quarantine must succeed before the offset may advance
		return fmt.Errorf("quarantine outcome event: %w", err)
	}
	return nil
}
