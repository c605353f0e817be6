package domain

import "github.com/shopspring/decimal"

// FeePolicy computes the platform fee for a transfer. Rates are expressed in
// basis points (100 = 1%); MinFee is a floor in minor units.
type FeePolicy struct {
	RateBasisPoints int64
	MinFee          int64
}

// DefaultFeePolicy is 1% with a 50 minor-unit (e.g. $0.50) floor.
var DefaultFeePolicy = FeePolicy{RateBasisPoints: 100, MinFee: 50}

// Fee returns max(amount * rate, MinFee) in minor units. The percentage is
// computed in decimal and rounded half away from zero, so a 1% fee on 12345
// is 123 + 0.45 -> 123, and on 12350 is 124.
func (p FeePolicy) Fee(amount int64) int64 {
	rate := decimal.New(p.RateBasisPoints, -4)
	fee := decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
	if fee < p.MinFee {
		return p.MinFee
	}
	return fee
}

// TotalDebit returns the full amount leaving the source account.
func (p FeePolicy) TotalDebit(amount int64) int64 {
	return amount + p.Fee(amount)
}
