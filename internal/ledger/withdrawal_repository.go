package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
)

const withdrawalColumns = `id, user_id, amount, tds_amount, net_amount, status, transaction_id, admin_note,
	account_holder, account_number, ifsc_code, bank_name, created_at, updated_at, approved_at, processed_at, rejected_at`

var (
	ErrWithdrawalNotFound = apperr.NotFound("withdrawal_not_found", "withdrawal request not found")
	ErrWithdrawalTooSoon  = apperr.NotEligible("too_soon", "minimum interval since the last withdrawal has not passed")
)

const lastWithdrawalQuery = `
	SELECT MAX(created_at)
	FROM withdrawal_requests
	WHERE user_id = $1 AND status <> 'rejected'`

var resolvedAtColumn = map[WithdrawalStatus]string{
	WithdrawalApproved:  "approved_at",
	WithdrawalProcessed: "processed_at",
	WithdrawalRejected:  "rejected_at",
}

// ReserveWithdrawal debits the gross amount from the withdrawal wallet and
// records the pending transaction and the request in one unit of work.
func (r *repository) ReserveWithdrawal(ctx context.Context, d WithdrawalDraft) (*Withdrawal, error) {
	if d.At.IsZero() {
		d.At = r.now()
	}
	e, err := Entry{
		UserID:      d.UserID,
		Wallet:      WalletWithdrawal,
		Amount:      d.Amount,
		NetAmount:   d.NetAmount,
		Type:        TxWithdrawal,
		Status:      StatusPending,
		Description: fmt.Sprintf("Withdrawal of %s (TDS %s)", d.Amount.StringFixed(2), d.TDSAmount.StringFixed(2)),
		At:          d.At,
	}.Prepare(Debit, d.At)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer tx.Rollback()

	if d.MinInterval > 0 {
		var id int64
		err = tx.GetContext(ctx, &id, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, d.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.ErrUserNotFound
			}
			return nil, apperr.Storage(err)
		}

		var last sql.NullTime
		if err := tx.GetContext(ctx, &last, lastWithdrawalQuery, d.UserID); err != nil {
			return nil, apperr.Storage(err)
		}
		if last.Valid && d.At.Sub(last.Time) < d.MinInterval {
			return nil, ErrWithdrawalTooSoon
		}
	}

	rec, err := applyTx(ctx, tx, Debit, e)
	if err != nil {
		return nil, err
	}

	var w Withdrawal
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO withdrawal_requests (user_id, amount, tds_amount, net_amount, status, transaction_id,
			account_holder, account_number, ifsc_code, bank_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+withdrawalColumns,
		d.UserID, d.Amount, d.TDSAmount, d.NetAmount, rec.Transaction.ID,
		d.Bank.AccountHolder, d.Bank.AccountNumber, d.Bank.IFSCCode, d.Bank.BankName, d.At,
	).StructScan(&w)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE transactions SET reference = $1 WHERE id = $2`,
		withdrawalReference(w.ID), rec.Transaction.ID)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage(err)
	}
	return &w, nil
}

// TransitionWithdrawal moves a request along its state machine. Rejection
// credits the reserved gross amount back; the row lock plus the status
// check make that compensation happen at most once.
func (r *repository) TransitionWithdrawal(ctx context.Context, id int64, to WithdrawalStatus, note string, at time.Time) (*Withdrawal, error) {
	if at.IsZero() {
		at = r.now()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer tx.Rollback()

	var w Withdrawal
	err = tx.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, apperr.Storage(err)
	}

	if !w.Status.CanTransition(to) {
		return nil, apperr.NotEligible("invalid_transition", "cannot move withdrawal from %s to %s", w.Status, to)
	}

	switch to {
	case WithdrawalRejected:
		refund, err := Entry{
			UserID:      w.UserID,
			Wallet:      WalletWithdrawal,
			Amount:      w.Amount,
			Type:        TxWithdrawalRefund,
			Description: fmt.Sprintf("Refund of rejected withdrawal #%d", w.ID),
			Reference:   withdrawalReference(w.ID),
			At:          at,
		}.Prepare(Credit, at)
		if err != nil {
			return nil, err
		}
		if _, err := applyTx(ctx, tx, Credit, refund); err != nil {
			return nil, err
		}
		if err := setTransactionStatus(ctx, tx, w.TransactionID, StatusFailed); err != nil {
			return nil, err
		}
	case WithdrawalProcessed:
		if err := setTransactionStatus(ctx, tx, w.TransactionID, StatusCompleted); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE withdrawal_requests
		SET status = $1, admin_note = $2, updated_at = $3, `+resolvedAtColumn[to]+` = $3
		WHERE id = $4
		RETURNING `+withdrawalColumns,
		to, note, at, id,
	).StructScan(&w)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage(err)
	}
	return &w, nil
}

func setTransactionStatus(ctx context.Context, tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, txID int64, status TxStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE transactions SET status = $1 WHERE id = $2 AND status = 'pending'`, status, txID)
	if err != nil {
		return apperr.Storage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(err)
	}
	if n == 0 {
		return apperr.Storage(fmt.Errorf("withdrawal transaction %d is not pending", txID))
	}
	return nil
}

func withdrawalReference(id int64) string {
	return fmt.Sprintf("withdrawal:%d", id)
}

func (r *repository) GetWithdrawal(ctx context.Context, id int64) (*Withdrawal, error) {
	var w Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, apperr.Storage(err)
	}
	return &w, nil
}

func (r *repository) ListWithdrawals(ctx context.Context, userID int64) ([]Withdrawal, error) {
	out := []Withdrawal{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

func (r *repository) ListWithdrawalsByStatus(ctx context.Context, status WithdrawalStatus, limit, offset int) ([]Withdrawal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	out := []Withdrawal{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`,
		status, limit, offset,
	)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

func (r *repository) LastWithdrawalAt(ctx context.Context, userID int64) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.GetContext(ctx, &last, lastWithdrawalQuery, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
