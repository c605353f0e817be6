package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a pending event row written in the same database
// transaction as the state change it announces. The relay publishes rows in
// insertion order and stamps published_at once the broker acknowledges.
type OutboxMessage struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	Key         string     `json:"key"`
	Payload     []byte     `json:"payload"`
	CreatedAt   time.Time  `json:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
