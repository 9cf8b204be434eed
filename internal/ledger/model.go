package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet names one of the two segregated balances a user holds.
type Wallet string

const (
	WalletUpgrade    Wallet = "upgrade"
	WalletWithdrawal Wallet = "withdrawal"
	// WalletNone records an economic event settled outside the platform,
	// e.g. a gateway-paid package purchase. No balance moves.
	WalletNone Wallet = "none"
)

func (w Wallet) Valid() bool {
	return w == WalletUpgrade || w == WalletWithdrawal || w == WalletNone
}

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

type TxType string

const (
	TxDailyIncome      TxType = "daily_income"
	TxLevelIncome      TxType = "level_income"
	TxReferralBonus    TxType = "referral_bonus"
	TxVideoReward      TxType = "video_reward"
	TxAdReward         TxType = "ad_reward"
	TxLoginReward      TxType = "login_reward"
	TxWithdrawal       TxType = "withdrawal"
	TxWithdrawalRefund TxType = "withdrawal_refund"
	TxPurchase         TxType = "purchase"
)

// Earning reports whether a completed credit of this type counts towards
// the user's total earnings.
func (t TxType) Earning() bool {
	switch t {
	case TxDailyIncome, TxLevelIncome, TxReferralBonus, TxVideoReward, TxAdReward, TxLoginReward:
		return true
	}
	return false
}

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

// Transaction is an immutable ledger entry. Only withdrawal entries ever
// change status, and only pending -> completed|failed.
type Transaction struct {
	ID           int64           `db:"id" json:"id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	Wallet       Wallet          `db:"wallet" json:"wallet"`
	Direction    Direction       `db:"direction" json:"direction"`
	Type         TxType          `db:"type" json:"type"`
	SubType      string          `db:"sub_type" json:"sub_type,omitempty"`
	ContentID    string          `db:"content_id" json:"content_id,omitempty"`
	RewardDay    string          `db:"reward_day" json:"reward_day,omitempty"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	NetAmount    decimal.Decimal `db:"net_amount" json:"net_amount"`
	BalanceAfter decimal.Decimal `db:"balance_after" json:"balance_after"`
	Status       TxStatus        `db:"status" json:"status"`
	Description  string          `db:"description" json:"description"`
	Reference    string          `db:"reference" json:"reference,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

type Balance struct {
	UserID           int64           `db:"id" json:"user_id"`
	UpgradeWallet    decimal.Decimal `db:"upgrade_wallet" json:"upgrade_wallet"`
	WithdrawalWallet decimal.Decimal `db:"withdrawal_wallet" json:"withdrawal_wallet"`
	TotalEarnings    decimal.Decimal `db:"total_earnings" json:"total_earnings"`
}

func (b Balance) Of(w Wallet) decimal.Decimal {
	switch w {
	case WalletUpgrade:
		return b.UpgradeWallet
	case WalletWithdrawal:
		return b.WithdrawalWallet
	}
	return decimal.Zero
}

// ActivityCounter tracks lifetime engagement per activity, e.g. videos
// watched and the gaming earnings they produced.
type ActivityCounter struct {
	UserID   int64           `db:"user_id" json:"-"`
	Activity string          `db:"activity" json:"activity"`
	Count    int64           `db:"count" json:"count"`
	Earnings decimal.Decimal `db:"earnings" json:"earnings"`
}

// DailyGuard makes an apply conditional on the user's quota for the local
// day [From, To). It is evaluated under the same lock as the balance
// update, so racing claims cannot both pass.
type DailyGuard struct {
	MaxPerDay int
	From      time.Time
	To        time.Time
}

// Day is the calendar day the guard covers, used as the uniqueness key for
// content-keyed rewards.
func (g DailyGuard) Day() string {
	return g.From.Format("2006-01-02")
}

// Entry describes one wallet movement.
type Entry struct {
	UserID      int64
	Wallet      Wallet
	Amount      decimal.Decimal
	NetAmount   decimal.Decimal
	Type        TxType
	SubType     string
	ContentID   string
	Status      TxStatus
	Description string
	Reference   string
	At          time.Time

	// Activity, when set, increments that activity's counter in the same
	// unit of work.
	Activity string
	Guard    *DailyGuard
}

// Receipt is what a successful apply produced.
type Receipt struct {
	Transaction Transaction      `json:"transaction"`
	DailyCount  int              `json:"daily_count,omitempty"`
	Counter     *ActivityCounter `json:"counter,omitempty"`
}

// DayQuery selects completed transactions of one type inside a window.
type DayQuery struct {
	UserID  int64
	Type    TxType
	SubType string
	From    time.Time
	To      time.Time
}
