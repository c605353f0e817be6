package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"digital-banking-platform/internal/core/domain"
	"digital-banking-platform/internal/core/ports"
	"digital-banking-platform/internal/outbox"
	"digital-banking-platform/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisStorage "digital-banking-platform/internal/adapter/storage/redis"
)

const (
	transferTopic = "transaction-initiated"
	outcomeTopic  = "transaction-settled"
	dedupTTL      = time.Hour
)

// testApp wires both services end to end: in-memory stores on each side, an
// in-memory broker between them, and miniredis for the dedup cache.
type testApp struct {
	transferSvc     ports.TransferService
	txRepo          *inMemoryTransactionRepo
	transferRelay   *outbox.Relay
	settlementSvc   *service.SettlementServiceImpl
	settlementRelay *outbox.Relay
	outcomeHandler  *service.OutcomeHandler
	accountRepo     *inMemoryAccountRepo
	broker          *memBroker
	dlq             *memDeadLetter
	redis           *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := zerolog.Nop()

	// transfer side
	transferStore := newMemStore()
	txRepo := newInMemoryTransactionRepo(transferStore)
	transferOutbox := newInMemoryOutboxRepo(transferStore)
	transferTransactor := newInMemoryTransactor(transferStore)

	// settlement side
	accountStore := newMemStore()
	accountRepo := newInMemoryAccountRepo(accountStore)
	inboxRepo := newInMemoryInboxRepo(accountStore)
	settlementOutbox := newInMemoryOutboxRepo(accountStore)
	settlementTransactor := newInMemoryTransactor(accountStore)

	mr := miniredis.RunT(t)
	cache := redisStorage.NewSettlementCache(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	broker := newMemBroker()
	dlq := newMemDeadLetter()

	transferSvc := service.NewTransferService(
		txRepo, transferOutbox, transferTransactor,
		domain.DefaultFeePolicy, transferTopic, log,
	)
	settlementSvc := service.NewSettlementService(
		accountRepo, inboxRepo, settlementOutbox, settlementTransactor,
		cache, dlq, transferTopic, outcomeTopic, dedupTTL, log,
	)

	return &testApp{
		transferSvc:     transferSvc,
		txRepo:          txRepo,
		transferRelay:   outbox.NewRelay(transferTransactor, transferOutbox, broker, time.Millisecond, 100, log),
		settlementSvc:   settlementSvc,
		settlementRelay: outbox.NewRelay(settlementTransactor, settlementOutbox, broker, time.Millisecond, 100, log),
		outcomeHandler:  service.NewOutcomeHandler(transferSvc, dlq, outcomeTopic, log),
		accountRepo:     accountRepo,
		broker:          broker,
		dlq:             dlq,
		redis:           mr,
	}
}

// pump runs one full round of the pipeline: transfer outbox to broker, broker
// to settlement, settlement outbox to broker, broker to outcome application.
func (app *testApp) pump(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, app.transferRelay.DrainOnce(ctx))
	for _, m := range app.broker.Drain(transferTopic) {
		require.NoError(t, app.settlementSvc.HandleMessage(ctx, m.Payload))
	}
	require.NoError(t, app.settlementRelay.DrainOnce(ctx))
	for _, m := range app.broker.Drain(outcomeTopic) {
		require.NoError(t, app.outcomeHandler.HandleMessage(ctx, m.Payload))
	}
}

func (app *testApp) newAccount(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, app.accountRepo.Create(context.Background(), &domain.Account{
		ID:               id,
		UserID:           uuid.New(),
		AccountNumber:    id.String()[:8],
		Type:             "Checking",
		Currency:         "USD",
		Balance:          balance,
		AvailableBalance: balance,
		IsActive:         true,
		CreatedAt:        time.Now().UTC(),
	}))
	return id
}

func (app *testApp) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	acct, err := app.accountRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, acct)
	require.Equal(t, acct.Balance, acct.AvailableBalance)
	return acct.AvailableBalance
}

func TestPipeline_TransferCompleted(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 100000)
	to := app.newAccount(t, 0)

	txn, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		ToAccountID:   &to,
		Amount:        10000,
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, int64(10100), txn.TotalDebit)

	// balances untouched until settlement runs
	assert.Equal(t, int64(100000), app.balance(t, from))

	app.pump(t, ctx)

	assert.Equal(t, int64(89900), app.balance(t, from))
	assert.Equal(t, int64(10000), app.balance(t, to))

	settled, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, settled.Status)
	assert.Nil(t, settled.FailureReason)
	require.NotNil(t, settled.ProcessedAt)
}

func TestPipeline_InsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 5000)
	to := app.newAccount(t, 0)

	txn, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		ToAccountID:   &to,
		Amount:        10000, // needs 10100 with fee
		Currency:      "USD",
	})
	require.NoError(t, err)

	app.pump(t, ctx)

	// no money moved anywhere
	assert.Equal(t, int64(5000), app.balance(t, from))
	assert.Equal(t, int64(0), app.balance(t, to))

	settled, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, settled.Status)
	require.NotNil(t, settled.FailureReason)
	assert.Equal(t, domain.FailureInsufficientFunds, *settled.FailureReason)
}

func TestPipeline_WithdrawalNoDestination(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 20000)

	txn, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		Amount:        10000,
		Currency:      "USD",
	})
	require.NoError(t, err)

	app.pump(t, ctx)

	assert.Equal(t, int64(9900), app.balance(t, from)) // 20000 - 10100

	settled, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, settled.Status)
}

func TestPipeline_DestinationMissing(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 100000)
	missing := uuid.New() // never created

	txn, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		ToAccountID:   &missing,
		Amount:        10000,
		Currency:      "USD",
	})
	require.NoError(t, err)

	app.pump(t, ctx)

	// the debit was rolled back, no funds stranded
	assert.Equal(t, int64(100000), app.balance(t, from))

	settled, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, settled.Status)
	require.NotNil(t, settled.FailureReason)
	assert.Equal(t, domain.FailureDestinationNotFound, *settled.FailureReason)
}

func TestPipeline_RedeliveryAppliesOnce(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 100000)
	to := app.newAccount(t, 0)

	_, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		ToAccountID:   &to,
		Amount:        10000,
		Currency:      "USD",
	})
	require.NoError(t, err)

	require.NoError(t, app.transferRelay.DrainOnce(ctx))
	msgs := app.broker.Drain(transferTopic)
	require.Len(t, msgs, 1)

	// first delivery settles
	require.NoError(t, app.settlementSvc.HandleMessage(ctx, msgs[0].Payload))
	assert.Equal(t, int64(89900), app.balance(t, from))

	// redelivery with a warm cache is dropped
	require.NoError(t, app.settlementSvc.HandleMessage(ctx, msgs[0].Payload))
	assert.Equal(t, int64(89900), app.balance(t, from))

	// even with the cache gone, the inbox barrier holds
	app.redis.FlushAll()
	require.NoError(t, app.settlementSvc.HandleMessage(ctx, msgs[0].Payload))
	assert.Equal(t, int64(89900), app.balance(t, from))
	assert.Equal(t, int64(10000), app.balance(t, to))
}

func TestPipeline_OutcomeReplayIsNoop(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 100000)
	txn, err := app.transferSvc.Initiate(ctx, ports.InitiateRequest{
		FromAccountID: from,
		Amount:        10000,
		Currency:      "USD",
	})
	require.NoError(t, err)

	require.NoError(t, app.transferRelay.DrainOnce(ctx))
	for _, m := range app.broker.Drain(transferTopic) {
		require.NoError(t, app.settlementSvc.HandleMessage(ctx, m.Payload))
	}
	require.NoError(t, app.settlementRelay.DrainOnce(ctx))
	outcomes := app.broker.Drain(outcomeTopic)
	require.Len(t, outcomes, 1)

	require.NoError(t, app.outcomeHandler.HandleMessage(ctx, outcomes[0].Payload))
	first, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	firstProcessed := *first.ProcessedAt

	// replaying the outcome leaves the row untouched
	require.NoError(t, app.outcomeHandler.HandleMessage(ctx, outcomes[0].Payload))
	second, err := app.transferSvc.GetByReference(ctx, txn.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, second.Status)
	assert.Equal(t, firstProcessed, *second.ProcessedAt)
}

func TestPipeline_MalformedEventQuarantined(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.settlementSvc.HandleMessage(ctx, []byte("{broken")))
	assert.Equal(t, 1, app.dlq.Count())
}

func TestPipeline_NegativeAmountEventQuarantined(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	from := app.newAccount(t, 100000)
	to := app.newAccount(t, 0)

	// a crafted event, never producible by Initiate: a small positive total
	// hiding a negative transfer amount that would pull money out of the
	// destination if it reached the credit
	raw, err := json.Marshal(domain.SettlementRequested{
		TransactionID: uuid.New(),
		FromAccountID: from,
		ToAccountID:   &to,
		Amount:        -10000,
		Fee:           50,
		TotalAmount:   50,
		Currency:      "USD",
		ReferenceCode: "TXN20260901DEADBEEF",
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, app.settlementSvc.HandleMessage(ctx, raw))

	assert.Equal(t, 1, app.dlq.Count())
	assert.Equal(t, int64(100000), app.balance(t, from))
	assert.Equal(t, int64(0), app.balance(t, to))
}
