package ledger

import (
	"context"
	"time"
)

// Repository is the system of record for money movement. Every apply is a
// single atomic unit serialised per user.
type Repository interface {
	ApplyCredit(ctx context.Context, e Entry) (*Receipt, error)
	ApplyDebit(ctx context.Context, e Entry) (*Receipt, error)
	Reverse(ctx context.Context, txID int64, e Entry) (*Receipt, error)
	GetBalance(ctx context.Context, userID int64) (*Balance, error)
	GetTransactions(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error)
	CountCompleted(ctx context.Context, q DayQuery) (int, error)
	ContentClaimed(ctx context.Context, userID int64, txType TxType, contentID, day string) (bool, error)
	GetCounters(ctx context.Context, userID int64) ([]ActivityCounter, error)

	ReserveWithdrawal(ctx context.Context, d WithdrawalDraft) (*Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id int64, to WithdrawalStatus, note string, at time.Time) (*Withdrawal, error)
	GetWithdrawal(ctx context.Context, id int64) (*Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID int64) ([]Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status WithdrawalStatus, limit, offset int) ([]Withdrawal, error)
	LastWithdrawalAt(ctx context.Context, userID int64) (*time.Time, error)
}
