package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "Checking"
	AccountTypeSavings    AccountType = "Savings"
	AccountTypeInvestment AccountType = "Investment"
)

// Account is the balance record owned by the account service. Balances are in
// the currency's minor unit. available_balance <= balance and both stay >= 0;
// settlement enforces this with conditional updates, never read-then-write.
type Account struct {
	ID               uuid.UUID   `json:"id"`
	UserID           uuid.UUID   `json:"user_id"`
	AccountNumber    string      `json:"account_number"`
	Type             AccountType `json:"type"`
	Currency         string      `json:"currency"`
	Balance          int64       `json:"balance"`
	AvailableBalance int64       `json:"available_balance"`
	IsActive         bool        `json:"is_active"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
