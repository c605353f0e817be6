package domain

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const referencePrefix = "TXN"

// ErrDuplicateReference is returned when a transaction insert collides on the
// reference code unique index.
var ErrDuplicateReference = errors.New("duplicate reference code")

// NewReferenceCode generates a display-facing reference code:
// "TXN" + UTC date stamp + 8 uppercase hex characters, e.g. TXN20260901A3F09B12.
// The random segment alone is not collision-proof; the transaction store
// enforces a unique index and the initiator regenerates on conflict.
func NewReferenceCode(now time.Time) string {
	u := uuid.New()
	return referencePrefix +
		now.UTC().Format("20060102") +
		strings.ToUpper(hex.EncodeToString(u[:4]))
}
