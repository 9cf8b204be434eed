// Package withdrawal turns withdrawal-wallet balance into bank payouts:
// request validation and TDS, then the admin approve/process/reject flow.
package withdrawal

import (
	"context"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/config"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/user"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount      = apperr.Validation("invalid_amount", "amount must be positive with at most two decimals")
	ErrAmountOutOfRange   = apperr.NotEligible("amount_out_of_range", "amount is outside the allowed withdrawal range")
	ErrTooSoon            = ledger.ErrWithdrawalTooSoon
	ErrRejectReasonNeeded = apperr.Validation("reason_required", "a rejection reason is required")
)

type Ledger interface {
	ReserveWithdrawal(ctx context.Context, d ledger.WithdrawalDraft) (*ledger.Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id int64, to ledger.WithdrawalStatus, note string, at time.Time) (*ledger.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id int64) (*ledger.Withdrawal, error)
	ListWithdrawals(ctx context.Context, userID int64) ([]ledger.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, status ledger.WithdrawalStatus, limit, offset int) ([]ledger.Withdrawal, error)
	LastWithdrawalAt(ctx context.Context, userID int64) (*time.Time, error)
}

type Users interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

// Notifier delivers status emails. Delivery is best effort.
type Notifier interface {
	SendWithdrawalRequested(ctx context.Context, email, name string, id int64, gross, tds, net decimal.Decimal) error
	SendWithdrawalApproved(ctx context.Context, email, name string, id int64, net decimal.Decimal) error
	SendWithdrawalProcessed(ctx context.Context, email, name string, id int64, net decimal.Decimal, note string) error
	SendWithdrawalRejected(ctx context.Context, email, name string, id int64, gross decimal.Decimal, reason string) error
}

type Request struct {
	Amount decimal.Decimal `json:"amount" example:"1000.00"`
	ledger.BankDetails
}

type Service interface {
	Request(ctx context.Context, userID int64, gross decimal.Decimal, bank ledger.BankDetails) (*ledger.Withdrawal, error)
	Approve(ctx context.Context, id int64, note string) (*ledger.Withdrawal, error)
	MarkProcessed(ctx context.Context, id int64, note string) (*ledger.Withdrawal, error)
	Reject(ctx context.Context, id int64, reason string) (*ledger.Withdrawal, error)
	List(ctx context.Context, userID int64) ([]ledger.Withdrawal, error)
	ListByStatus(ctx context.Context, status ledger.WithdrawalStatus, limit, offset int) ([]ledger.Withdrawal, error)
}

type service struct {
	ledger   Ledger
	users    Users
	notifier Notifier
	rules    config.WithdrawalRules
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the processor. notifier may be nil.
func NewService(l Ledger, users Users, notifier Notifier, rules config.WithdrawalRules) Service {
	return &service{
		ledger:   l,
		users:    users,
		notifier: notifier,
		rules:    rules,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Tax splits gross into the TDS withheld and the net payout.
func Tax(gross, rate decimal.Decimal) (tds, net decimal.Decimal) {
	tds = gross.Mul(rate).Round(2)
	return tds, gross.Sub(tds)
}

func (s *service) Request(ctx context.Context, userID int64, gross decimal.Decimal, bank ledger.BankDetails) (*ledger.Withdrawal, error) {
	w, err := s.request(ctx, userID, gross, bank)
	if err != nil {
		if code := apperr.Code(err); code != "" {
			metrics.RecordWithdrawal("refused_" + code)
		}
		return nil, err
	}

	metrics.RecordWithdrawal(string(w.Status))
	logger.Info("Withdrawal requested",
		"withdrawal_id", w.ID,
		"user_id", userID,
		"amount", w.Amount.String(),
		"tds", w.TDSAmount.String(),
	)
	s.notify(ctx, userID, func(n Notifier, u *user.User) error {
		return n.SendWithdrawalRequested(ctx, u.Email, u.Name, w.ID, w.Amount, w.TDSAmount, w.NetAmount)
	})
	return w, nil
}

func (s *service) request(ctx context.Context, userID int64, gross decimal.Decimal, bank ledger.BankDetails) (*ledger.Withdrawal, error) {
	if userID <= 0 {
		return nil, apperr.Validation("invalid_user", "user id must be positive")
	}
	if !gross.IsPositive() || !gross.Equal(gross.Round(2)) {
		return nil, ErrInvalidAmount
	}
	if err := s.validate.Struct(bank); err != nil {
		return nil, apperr.Validation("invalid_bank_details", "%v", err)
	}

	if gross.LessThan(s.rules.MinAmount) || gross.GreaterThan(s.rules.MaxAmount) {
		return nil, apperr.NotEligible(ErrAmountOutOfRange.Code, "amount must be between %s and %s",
			s.rules.MinAmount.StringFixed(2), s.rules.MaxAmount.StringFixed(2))
	}

	now := s.now()
	last, err := s.ledger.LastWithdrawalAt(ctx, userID)
	if err != nil {
		return nil, err
	}
	if last != nil && now.Sub(*last) < s.rules.MinInterval {
		return nil, ErrTooSoon
	}

	tds, net := Tax(gross, s.rules.TDSRate)
	return s.ledger.ReserveWithdrawal(ctx, ledger.WithdrawalDraft{
		UserID:      userID,
		Amount:      gross,
		TDSAmount:   tds,
		NetAmount:   net,
		Bank:        bank,
		At:          now,
		MinInterval: s.rules.MinInterval,
	})
}

func (s *service) Approve(ctx context.Context, id int64, note string) (*ledger.Withdrawal, error) {
	w, err := s.transition(ctx, id, ledger.WithdrawalApproved, note)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, w.UserID, func(n Notifier, u *user.User) error {
		return n.SendWithdrawalApproved(ctx, u.Email, u.Name, w.ID, w.NetAmount)
	})
	return w, nil
}

func (s *service) MarkProcessed(ctx context.Context, id int64, note string) (*ledger.Withdrawal, error) {
	w, err := s.transition(ctx, id, ledger.WithdrawalProcessed, note)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, w.UserID, func(n Notifier, u *user.User) error {
		return n.SendWithdrawalProcessed(ctx, u.Email, u.Name, w.ID, w.NetAmount, note)
	})
	return w, nil
}

// Reject refunds the reserved gross amount to the withdrawal wallet.
func (s *service) Reject(ctx context.Context, id int64, reason string) (*ledger.Withdrawal, error) {
	if reason == "" {
		return nil, ErrRejectReasonNeeded
	}
	w, err := s.transition(ctx, id, ledger.WithdrawalRejected, reason)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, w.UserID, func(n Notifier, u *user.User) error {
		return n.SendWithdrawalRejected(ctx, u.Email, u.Name, w.ID, w.Amount, reason)
	})
	return w, nil
}

func (s *service) transition(ctx context.Context, id int64, to ledger.WithdrawalStatus, note string) (*ledger.Withdrawal, error) {
	if id <= 0 {
		return nil, apperr.Validation("invalid_id", "withdrawal id must be positive")
	}
	w, err := s.ledger.TransitionWithdrawal(ctx, id, to, note, s.now())
	if err != nil {
		return nil, err
	}
	metrics.RecordWithdrawal(string(to))
	logger.Info("Withdrawal status changed", "withdrawal_id", id, "status", string(to), "user_id", w.UserID)
	return w, nil
}

func (s *service) notify(ctx context.Context, userID int64, send func(Notifier, *user.User) error) {
	if s.notifier == nil || s.users == nil {
		return
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		logger.Warn("Withdrawal notice skipped", "user_id", userID, "error", err)
		return
	}
	if u.Email == "" {
		return
	}
	if err := send(s.notifier, u); err != nil {
		logger.Warn("Withdrawal notice not queued", "user_id", userID, "error", err)
	}
}

func (s *service) List(ctx context.Context, userID int64) ([]ledger.Withdrawal, error) {
	return s.ledger.ListWithdrawals(ctx, userID)
}

func (s *service) ListByStatus(ctx context.Context, status ledger.WithdrawalStatus, limit, offset int) ([]ledger.Withdrawal, error) {
	switch status {
	case ledger.WithdrawalPending, ledger.WithdrawalApproved, ledger.WithdrawalProcessed, ledger.WithdrawalRejected:
	default:
		return nil, apperr.Validation("invalid_status", "unknown withdrawal status %q", status)
	}
	return s.ledger.ListWithdrawalsByStatus(ctx, status, limit, offset)
}
