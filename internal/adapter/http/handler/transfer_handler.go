package handler

import (
	"net/http"
	"time"

	"digital-banking-platform/internal/adapter/http/dto"
	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
	"digital-banking-platform/pkg/apperror"
	"digital-banking-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler handles transfer-related endpoints.
type TransferHandler struct {
	transferSvc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferSvc ports.TransferService) *TransferHandler {
	return &TransferHandler{transferSvc: transferSvc}
}

// InitiateTransfer handles POST /api/v1/transfers. It answers as soon as the
// transfer is durably recorded; settlement happens asynchronously and the
// returned status is always Pending.
func (h *TransferHandler) InitiateTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		response.Error(c, apperror.Validation("from_account_id must be a UUID"))
		return
	}

	var toID *uuid.UUID
	if req.ToAccountID != nil {
		parsed, err := uuid.Parse(*req.ToAccountID)
		if err != nil {
			response.Error(c, apperror.Validation("to_account_id must be a UUID"))
			return
		}
		toID = &parsed
	}

	result, err := h.transferSvc.Initiate(c.Request.Context(), ports.InitiateRequest{
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransferResponse(result))
}

// GetTransfer handles GET /api/v1/transfers/:reference.
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	reference := c.Param("reference")

	result, err := h.transferSvc.GetByReference(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferResponse(result))
}

// HealthCheck handles GET /health — deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}

// toTransferResponse converts domain.Transaction to DTO.
func toTransferResponse(tx *domain.Transaction) dto.TransferResponse {
	resp := dto.TransferResponse{
		ID:            tx.ID.String(),
		FromAccountID: tx.FromAccountID.String(),
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Fee:           tx.Fee,
		TotalDebit:    tx.TotalDebit,
		Status:        string(tx.Status),
		Description:   tx.Description,
		ReferenceCode: tx.ReferenceCode,
		FailureReason: tx.FailureReason,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.ToAccountID != nil {
		s := tx.ToAccountID.String()
		resp.ToAccountID = &s
	}
	if tx.ProcessedAt != nil {
		s := tx.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &s
	}
	return resp
}
