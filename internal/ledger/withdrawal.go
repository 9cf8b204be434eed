package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalProcessed WithdrawalStatus = "processed"
	WithdrawalRejected  WithdrawalStatus = "rejected"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:  {WithdrawalApproved, WithdrawalRejected},
	WithdrawalApproved: {WithdrawalProcessed, WithdrawalRejected},
}

// CanTransition reports whether an admin action may move a request from s
// to next. Processed and rejected are terminal.
func (s WithdrawalStatus) CanTransition(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BankDetails struct {
	AccountHolder string `db:"account_holder" json:"account_holder" binding:"required" validate:"required,min=2,max=100"`
	AccountNumber string `db:"account_number" json:"account_number" binding:"required" validate:"required,numeric,min=6,max=20"`
	IFSCCode      string `db:"ifsc_code" json:"ifsc_code" binding:"required" validate:"required,len=11,alphanum"`
	BankName      string `db:"bank_name" json:"bank_name" binding:"required" validate:"required,max=100"`
}

type Withdrawal struct {
	ID            int64            `db:"id" json:"id"`
	UserID        int64            `db:"user_id" json:"user_id"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	TDSAmount     decimal.Decimal  `db:"tds_amount" json:"tds_amount"`
	NetAmount     decimal.Decimal  `db:"net_amount" json:"net_amount"`
	Status        WithdrawalStatus `db:"status" json:"status"`
	TransactionID int64            `db:"transaction_id" json:"transaction_id"`
	AdminNote     string           `db:"admin_note" json:"admin_note,omitempty"`
	BankDetails
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
}

// WithdrawalDraft is a validated request waiting to reserve funds.
// WithdrawalDraft is a request about to be reserved. A positive MinInterval
// is enforced against the user's last non-rejected request under the same
// row lock as the debit.
type WithdrawalDraft struct {
	UserID      int64
	Amount      decimal.Decimal
	TDSAmount   decimal.Decimal
	NetAmount   decimal.Decimal
	Bank        BankDetails
	At          time.Time
	MinInterval time.Duration
}
