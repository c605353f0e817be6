package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"digital-banking-platform/internal/adapter/http/dto"
	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
	"digital-banking-platform/internal/core/ports/mocks"
	"digital-banking-platform/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postTransfer(t *testing.T, h *TransferHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")

	h.InitiateTransfer(c)
	return w
}

// --- Transfer Handler Tests ---

func TestInitiateTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	from := uuid.New()
	to := uuid.New()
	toStr := to.String()

	txn := &domain.Transaction{
		ID:            uuid.New(),
		FromAccountID: from,
		ToAccountID:   &to,
		Type:          domain.TransactionTypeTransfer,
		Amount:        10000,
		Currency:      "USD",
		Fee:           100,
		TotalDebit:    10100,
		Status:        domain.TransactionStatusPending,
		ReferenceCode: "TXN20260901A1B2C3D4",
		CreatedAt:     time.Now().UTC(),
	}

	mockSvc.EXPECT().Initiate(gomock.Any(), ports.InitiateRequest{
		FromAccountID: from,
		ToAccountID:   &to,
		Amount:        10000,
		Currency:      "USD",
	}).Return(txn, nil)

	w := postTransfer(t, h, dto.TransferRequest{
		FromAccountID: from.String(),
		ToAccountID:   &toStr,
		Amount:        10000,
		Currency:      "USD",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Pending", data["status"])
	assert.Equal(t, "TXN20260901A1B2C3D4", data["reference_code"])
	assert.Equal(t, float64(10100), data["total_debit"])
}

func TestInitiateTransfer_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	// negative amount fails binding before the service is touched
	w := postTransfer(t, h, map[string]any{
		"from_account_id": uuid.New().String(),
		"amount":          -100,
		"currency":        "USD",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "VAL_001", resp["error_code"])
}

func TestInitiateTransfer_BadUUID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	w := postTransfer(t, h, map[string]any{
		"from_account_id": "not-a-uuid",
		"amount":          100,
		"currency":        "USD",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateTransfer_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	mockSvc.EXPECT().Initiate(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrSameAccount())

	id := uuid.New().String()
	w := postTransfer(t, h, map[string]any{
		"from_account_id": id,
		"to_account_id":   id,
		"amount":          100,
		"currency":        "USD",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRF_002", resp["error_code"])
}

func TestInitiateTransfer_InternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	mockSvc.EXPECT().Initiate(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrDatabaseError(errors.New("connection refused")))

	w := postTransfer(t, h, map[string]any{
		"from_account_id": uuid.New().String(),
		"amount":          100,
		"currency":        "USD",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	reason := domain.FailureInsufficientFunds
	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		FromAccountID: uuid.New(),
		Amount:        10000,
		Currency:      "USD",
		Status:        domain.TransactionStatusFailed,
		ReferenceCode: "TXN20260901DEADBEEF",
		FailureReason: &reason,
		CreatedAt:     now,
		ProcessedAt:   &now,
	}

	mockSvc.EXPECT().GetByReference(gomock.Any(), "TXN20260901DEADBEEF").Return(txn, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transfers/TXN20260901DEADBEEF", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN20260901DEADBEEF"}}

	h.GetTransfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Failed", data["status"])
	assert.Equal(t, domain.FailureInsufficientFunds, data["failure_reason"])
}

func TestGetTransfer_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(mockSvc)

	mockSvc.EXPECT().GetByReference(gomock.Any(), "TXN00000000FFFFFFFF").
		Return(nil, apperror.ErrNotFound("transaction"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/transfers/TXN00000000FFFFFFFF", nil)
	c.Params = gin.Params{{Key: "reference", Value: "TXN00000000FFFFFFFF"}}

	h.GetTransfer(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Health Handler Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}
