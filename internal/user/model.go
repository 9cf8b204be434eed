package user

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Email              string          `db:"email" json:"email"`
	ReferralCode       string          `db:"referral_code" json:"referral_code"`
	Role               string          `db:"role" json:"role"`
	SponsorID          *int64          `db:"sponsor_id" json:"sponsor_id,omitempty"`
	Level              int             `db:"level" json:"level"`
	CurrentPackageID   *int64          `db:"current_package_id" json:"current_package_id,omitempty"`
	PackageActivatedAt *time.Time      `db:"package_activated_at" json:"package_activated_at,omitempty"`
	UpgradeWallet      decimal.Decimal `db:"upgrade_wallet" json:"upgrade_wallet"`
	WithdrawalWallet   decimal.Decimal `db:"withdrawal_wallet" json:"withdrawal_wallet"`
	TotalEarnings      decimal.Decimal `db:"total_earnings" json:"total_earnings"`
	TotalReferrals     int64           `db:"total_referrals" json:"total_referrals"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// Sponsor returns the sponsor id, or 0 for a root user.
func (u *User) Sponsor() int64 {
	if u.SponsorID == nil {
		return 0
	}
	return *u.SponsorID
}

// PackageHolding is the package a user currently holds, joined with the
// catalog row it was bought from.
type PackageHolding struct {
	UserID       int64           `db:"user_id"`
	PackageID    int64           `db:"package_id"`
	Price        decimal.Decimal `db:"price"`
	DailyIncome  decimal.Decimal `db:"daily_income"`
	ValidityDays int             `db:"validity_days"`
	ActivatedAt  time.Time       `db:"package_activated_at"`
}

// ElapsedDays is the number of whole days the package has been active.
func (h PackageHolding) ElapsedDays(now time.Time) int {
	if now.Before(h.ActivatedAt) {
		return 0
	}
	return int(now.Sub(h.ActivatedAt) / (24 * time.Hour))
}

func (h PackageHolding) Expired(now time.Time) bool {
	return h.ElapsedDays(now) >= h.ValidityDays
}

type RegisterRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	SponsorCode string `json:"sponsor_code" binding:"omitempty,max=64"`
}

// NewUser is a validated registration ready to persist.
type NewUser struct {
	ID           int64
	Name         string
	Email        string
	Role         string
	ReferralCode string
	SponsorID    *int64
	Level        int
}
