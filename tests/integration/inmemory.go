package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"digital-banking-platform/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Each service owns its own store; the transfer side never sees accounts and
// the settlement side never sees transaction rows. A store hands out
// transactions that serialize against each other and support rollback via an
// undo journal, approximating what the real repositories get from PostgreSQL.

type memStore struct {
	txMu sync.Mutex // serializes transactions
	mu   sync.RWMutex

	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	byReference  map[string]uuid.UUID
	inbox        map[uuid.UUID]domain.TransactionStatus
	outbox       []*domain.OutboxMessage
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		byReference:  make(map[string]uuid.UUID),
		inbox:        make(map[uuid.UUID]domain.TransactionStatus),
	}
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	store *memStore
}

func newInMemoryTransactor(store *memStore) *inMemoryTransactor {
	return &inMemoryTransactor{store: store}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.store.txMu.Lock()
	return &memTx{store: t.store}, nil
}

// memTx implements pgx.Tx over a memStore. Mutations made through the
// repositories append undo closures; Rollback replays them in reverse.
type memTx struct {
	store *memStore
	undo  []func()
	done  bool
}

func (t *memTx) addUndo(fn func()) { t.undo = append(t.undo, fn) }

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	store *memStore
}

func newInMemoryTransactionRepo(store *memStore) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{store: store}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.byReference[t.ReferenceCode]; exists {
		return domain.ErrDuplicateReference
	}
	cp := *t
	r.store.transactions[t.ID] = &cp
	r.store.byReference[t.ReferenceCode] = t.ID

	id, ref := t.ID, t.ReferenceCode
	mt.addUndo(func() {
		delete(r.store.transactions, id)
		delete(r.store.byReference, ref)
	})
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, referenceCode string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	id, ok := r.store.byReference[referenceCode]
	r.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *inMemoryTransactionRepo) ApplyOutcome(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, reason *string, processedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok || t.Status != domain.TransactionStatusPending {
		return false, nil
	}
	t.Status = status
	t.FailureReason = reason
	t.ProcessedAt = &processedAt
	return true, nil
}

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	store *memStore
}

func newInMemoryAccountRepo(store *memStore) *inMemoryAccountRepo {
	return &inMemoryAccountRepo{store: store}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *a
	r.store.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) DebitIfSufficient(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error) {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok || !a.IsActive || a.AvailableBalance < amount {
		return false, nil
	}
	a.Balance -= amount
	a.AvailableBalance -= amount
	mt.addUndo(func() {
		a.Balance += amount
		a.AvailableBalance += amount
	})
	return true, nil
}

func (r *inMemoryAccountRepo) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) (bool, error) {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.Balance += amount
	a.AvailableBalance += amount
	mt.addUndo(func() {
		a.Balance -= amount
		a.AvailableBalance -= amount
	})
	return true, nil
}

// --- In-Memory Outbox Repo ---

type inMemoryOutboxRepo struct {
	store *memStore
}

func newInMemoryOutboxRepo(store *memStore) *inMemoryOutboxRepo {
	return &inMemoryOutboxRepo{store: store}
}

func (r *inMemoryOutboxRepo) Create(ctx context.Context, tx pgx.Tx, msg *domain.OutboxMessage) error {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *msg
	r.store.outbox = append(r.store.outbox, &cp)

	id := msg.ID
	mt.addUndo(func() {
		for i, m := range r.store.outbox {
			if m.ID == id {
				r.store.outbox = append(r.store.outbox[:i], r.store.outbox[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryOutboxRepo) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]domain.OutboxMessage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []domain.OutboxMessage
	for _, m := range r.store.outbox {
		if m.PublishedAt == nil {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *inMemoryOutboxRepo) MarkPublished(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	var undone []*domain.OutboxMessage
	for _, m := range r.store.outbox {
		if marked[m.ID] && m.PublishedAt == nil {
			m.PublishedAt = &now
			undone = append(undone, m)
		}
	}
	mt.addUndo(func() {
		for _, m := range undone {
			m.PublishedAt = nil
		}
	})
	return nil
}

// --- In-Memory Settlement Inbox Repo ---

type inMemoryInboxRepo struct {
	store *memStore
}

func newInMemoryInboxRepo(store *memStore) *inMemoryInboxRepo {
	return &inMemoryInboxRepo{store: store}
}

func (r *inMemoryInboxRepo) Record(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, outcome domain.TransactionStatus, processedAt time.Time) (bool, error) {
	mt := tx.(*memTx)
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.inbox[transactionID]; exists {
		return false, nil
	}
	r.store.inbox[transactionID] = outcome
	mt.addUndo(func() { delete(r.store.inbox, transactionID) })
	return true, nil
}

// --- In-Memory Broker ---

// memBroker implements ports.Publisher, collecting messages per topic in
// publish order.
type memBroker struct {
	mu     sync.Mutex
	topics map[string][]brokerMessage
}

type brokerMessage struct {
	Key     string
	Payload []byte
}

func newMemBroker() *memBroker {
	return &memBroker{topics: make(map[string][]brokerMessage)}
}

func (b *memBroker) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	b.topics[topic] = append(b.topics[topic], brokerMessage{Key: key, Payload: cp})
	return nil
}

// Drain returns and removes all messages on a topic.
func (b *memBroker) Drain(topic string) []brokerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.topics[topic]
	b.topics[topic] = nil
	return msgs
}

// --- In-Memory Dead Letter Collector ---

type memDeadLetter struct {
	mu       sync.Mutex
	messages [][]byte
}

func newMemDeadLetter() *memDeadLetter {
	return &memDeadLetter{}
}

func (d *memDeadLetter) Quarantine(ctx context.Context, sourceTopic string, raw []byte, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, raw)
	return nil
}

func (d *memDeadLetter) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}
