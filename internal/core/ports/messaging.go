package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher delivers an event to the durable channel. Implementations must
// wait for a broker acknowledgment before returning nil; the key selects the
// partition and therefore the ordering domain.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, payload []byte) error
}

// DeadLetterer quarantines a message that cannot be processed, so a poisoned
// payload does not block its partition forever.
type DeadLetterer interface {
	Quarantine(ctx context.Context, sourceTopic string, raw []byte, cause error) error
}

// SettlementCache is the fast-path duplicate check in front of the durable
// inbox. It is best-effort: a cache miss or error always falls through to the
// database barrier.
type SettlementCache interface {
	AlreadyApplied(ctx context.Context, transactionID uuid.UUID) (bool, error)
	MarkApplied(ctx context.Context, transactionID uuid.UUID, ttl time.Duration) error
}
