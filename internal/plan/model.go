package plan

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Schedule holds level-income percentages, index 0 being the direct
// sponsor. It is stored as NUMERIC[].
type Schedule []decimal.Decimal

func (s Schedule) Value() (driver.Value, error) {
	strs := make(pq.StringArray, len(s))
	for i, pct := range s {
		strs[i] = pct.String()
	}
	return strs.Value()
}

func (s *Schedule) Scan(src any) error {
	var strs pq.StringArray
	if err := strs.Scan(src); err != nil {
		return fmt.Errorf("scan level schedule: %w", err)
	}
	out := make(Schedule, 0, len(strs))
	for _, v := range strs {
		pct, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("scan level schedule: %w", err)
		}
		out = append(out, pct)
	}
	*s = out
	return nil
}

// Total is the share of the price paid out across all levels, in percent.
func (s Schedule) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, pct := range s {
		sum = sum.Add(pct)
	}
	return sum
}

type Package struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Price         decimal.Decimal `db:"price" json:"price"`
	DailyIncome   decimal.Decimal `db:"daily_income" json:"daily_income"`
	ValidityDays  int             `db:"validity_days" json:"validity_days"`
	LevelSchedule Schedule        `db:"level_schedule" json:"level_schedule"`
	Active        bool            `db:"active" json:"active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

type CreatePackageRequest struct {
	Name          string            `json:"name" binding:"required,min=2,max=100"`
	Price         decimal.Decimal   `json:"price"`
	DailyIncome   decimal.Decimal   `json:"daily_income"`
	ValidityDays  int               `json:"validity_days" binding:"required,min=1,max=3650"`
	LevelSchedule []decimal.Decimal `json:"level_schedule" binding:"max=100"`
}

type Payment string

const (
	PaymentWallet  Payment = "wallet"
	PaymentGateway Payment = "gateway"
)

// Intent is a started checkout. It freezes the package price and level
// schedule so a later catalog edit cannot change what the purchase pays.
type Intent struct {
	Token        string          `json:"token"`
	UserID       int64           `json:"user_id"`
	PackageID    int64           `json:"package_id"`
	PackageName  string          `json:"package_name"`
	Price        decimal.Decimal `json:"price"`
	DailyIncome  decimal.Decimal `json:"daily_income"`
	ValidityDays int             `json:"validity_days"`
	Schedule     Schedule        `json:"level_schedule"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

type ConfirmRequest struct {
	Payment          Payment `json:"payment" binding:"required,oneof=wallet gateway"`
	GatewayReference string  `json:"gateway_reference" binding:"max=128"`
}

// SettleRequest carries the gateway's own payment reference for a checkout
// it has settled.
type SettleRequest struct {
	GatewayReference string `json:"gateway_reference" binding:"required,max=128"`
}

// Purchase is the outcome of a confirmed checkout. Warning is set when the
// package was activated but some level income could not be paid.
type Purchase struct {
	PackageID     int64            `json:"package_id"`
	Price         decimal.Decimal  `json:"price"`
	Payment       Payment          `json:"payment"`
	TransactionID int64            `json:"transaction_id"`
	ActivatedAt   time.Time        `json:"activated_at"`
	Commissions   []CommissionLine `json:"commissions"`
	Warning       string           `json:"warning,omitempty"`
}

type CommissionLine struct {
	AncestorID int64           `json:"ancestor_id"`
	Level      int             `json:"level"`
	Amount     decimal.Decimal `json:"amount"`
	Applied    bool            `json:"applied"`
}
