package domain

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeePolicy_Fee(t *testing.T) {
	p := DefaultFeePolicy

	tests := []struct {
		name   string
		amount int64 // minor units
		fee    int64
	}{
		{"10.00 hits the floor", 1000, 50},
		{"100.00 is 1%", 10000, 100},
		{"40.00 hits the floor", 4000, 50},
		{"exactly at the floor boundary", 5000, 50},
		{"just above the floor boundary", 5100, 51},
		{"rounds half up", 12350, 124},
		{"rounds down below half", 12345, 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fee, p.Fee(tt.amount))
		})
	}
}

func TestFeePolicy_TotalDebit(t *testing.T) {
	p := DefaultFeePolicy
	// 50.00 transfer costs 50.50 in total.
	assert.Equal(t, int64(5050), p.TotalDebit(5000))
}

func TestFeePolicy_CustomRate(t *testing.T) {
	p := FeePolicy{RateBasisPoints: 250, MinFee: 10} // 2.5%
	assert.Equal(t, int64(250), p.Fee(10000))
	assert.Equal(t, int64(10), p.Fee(100))
}

func TestNewReferenceCode_Format(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	code := NewReferenceCode(now)

	re := regexp.MustCompile(`^TXN20260901[0-9A-F]{8}$`)
	assert.Regexp(t, re, code)
}

func TestNewReferenceCode_Collisions(t *testing.T) {
	// 8 hex chars give 2^32 possibilities; 10k draws should practically
	// never collide. A collision here indicates broken entropy, not bad luck.
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	collisions := 0
	for i := 0; i < 10000; i++ {
		code := NewReferenceCode(now)
		if _, dup := seen[code]; dup {
			collisions++
		}
		seen[code] = struct{}{}
	}
	assert.Zero(t, collisions)
}

func TestTransaction_IsTerminal(t *testing.T) {
	txn := &Transaction{Status: TransactionStatusPending}
	assert.False(t, txn.IsTerminal())

	txn.Status = TransactionStatusCompleted
	assert.True(t, txn.IsTerminal())

	txn.Status = TransactionStatusFailed
	assert.True(t, txn.IsTerminal())
}

func TestNewSettlementRequested(t *testing.T) {
	dest := uuid.New()
	txn := &Transaction{
		ID:            uuid.New(),
		FromAccountID: uuid.New(),
		ToAccountID:   &dest,
		Type:          TransactionTypeTransfer,
		Amount:        5000,
		Currency:      "USD",
		Fee:           50,
		TotalDebit:    5050,
		Status:        TransactionStatusPending,
		ReferenceCode: "TXN20260901DEADBEEF",
		CreatedAt:     time.Now().UTC(),
	}

	evt := NewSettlementRequested(txn)
	assert.Equal(t, txn.ID, evt.TransactionID)
	assert.Equal(t, txn.FromAccountID, evt.FromAccountID)
	assert.Equal(t, &dest, evt.ToAccountID)
	assert.Equal(t, int64(5000), evt.Amount)
	assert.Equal(t, int64(50), evt.Fee)
	assert.Equal(t, int64(5050), evt.TotalAmount)
	assert.Equal(t, txn.ReferenceCode, evt.ReferenceCode)
	assert.Equal(t, txn.FromAccountID.String(), evt.PartitionKey())
}

func TestSettlementRequested_WireContract(t *testing.T) {
	// Field names are the cross-service contract; renaming them breaks the
	// account service's consumer.
	evt := NewSettlementRequested(&Transaction{
		ID:            uuid.New(),
		FromAccountID: uuid.New(),
		Amount:        100,
		Fee:           50,
		TotalDebit:    150,
		Currency:      "USD",
		ReferenceCode: "TXN2026090100000000",
		CreatedAt:     time.Now().UTC(),
	})

	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{
		"transactionId", "fromAccountId", "amount", "fee",
		"totalAmount", "currency", "referenceNumber", "createdAt",
	} {
		assert.Contains(t, fields, key)
	}
	// Absent destination is omitted, not null.
	assert.NotContains(t, fields, "toAccountId")
}
