package ledger

import (
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/shopspring/decimal"
)

// Prepare validates e for an apply in direction dir and fills defaults:
// completed status, net amount equal to gross, and a timestamp.
func (e Entry) Prepare(dir Direction, now time.Time) (Entry, error) {
	if e.UserID <= 0 {
		return e, apperr.Validation("invalid_user", "user id must be positive")
	}
	if !e.Wallet.Valid() {
		return e, apperr.Validation("invalid_wallet", "unknown wallet %q", e.Wallet)
	}
	if e.Wallet == WalletNone && e.Type != TxPurchase {
		return e, apperr.Validation("invalid_wallet", "only purchases may be recorded without a wallet")
	}
	if dir != Credit && dir != Debit {
		return e, apperr.Validation("invalid_direction", "unknown direction %q", dir)
	}
	if !e.Amount.IsPositive() {
		return e, apperr.Validation("invalid_amount", "amount must be positive")
	}
	if e.Type == "" {
		return e, apperr.Validation("invalid_type", "transaction type is required")
	}
	if e.Guard != nil && e.Guard.MaxPerDay < 1 {
		return e, apperr.Validation("invalid_guard", "daily guard needs a positive cap")
	}

	if e.Status == "" {
		e.Status = StatusCompleted
	}
	if e.NetAmount.IsZero() {
		e.NetAmount = e.Amount
	}
	if e.At.IsZero() {
		e.At = now
	}
	return e, nil
}

// RewardDay is the uniqueness day stored with the transaction; empty when
// the entry is not quota-guarded.
func (e Entry) RewardDay() string {
	if e.Guard == nil {
		return ""
	}
	return e.Guard.Day()
}

// NextBalance applies amount to current in direction dir. A debit that
// would take the balance below zero fails with ErrInsufficientFunds.
func NextBalance(current decimal.Decimal, dir Direction, amount decimal.Decimal) (decimal.Decimal, error) {
	if dir == Credit {
		return current.Add(amount), nil
	}
	if current.LessThan(amount) {
		return current, apperr.ErrInsufficientFunds
	}
	return current.Sub(amount), nil
}

// EarningDelta is how much an apply adds to the user's total earnings.
func (e Entry) EarningDelta(dir Direction) decimal.Decimal {
	if dir == Credit && e.Status == StatusCompleted && e.Type.Earning() {
		return e.Amount
	}
	return decimal.Zero
}
