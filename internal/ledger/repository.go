package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	purchaseReferenceIndex = "uq_transactions_purchase_reference"
)

var ErrNotReversible = apperr.NotEligible("not_reversible", "transaction is not completed or belongs to another user")

var balanceUpdates = map[Wallet]string{
	WalletUpgrade: `
		UPDATE users
		SET upgrade_wallet = $1, total_earnings = total_earnings + $2, updated_at = NOW()
		WHERE id = $3`,
	WalletWithdrawal: `
		UPDATE users
		SET withdrawal_wallet = $1, total_earnings = total_earnings + $2, updated_at = NOW()
		WHERE id = $3`,
}

type repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) ApplyCredit(ctx context.Context, e Entry) (*Receipt, error) {
	return r.apply(ctx, Credit, e)
}

func (r *repository) ApplyDebit(ctx context.Context, e Entry) (*Receipt, error) {
	return r.apply(ctx, Debit, e)
}

// Reverse credits e back and marks the completed transaction txID as failed
// in one unit of work, so the reversed row no longer counts as settled.
func (r *repository) Reverse(ctx context.Context, txID int64, e Entry) (*Receipt, error) {
	e, err := e.Prepare(Credit, r.now())
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer tx.Rollback()

	rec, err := applyTx(ctx, tx, Credit, e)
	if err != nil {
		metrics.RecordLedgerApply(string(e.Type), "reversal", outcome(err))
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'failed'
		WHERE id = $1 AND user_id = $2 AND status = 'completed'`,
		txID, e.UserID,
	)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if n == 0 {
		metrics.RecordLedgerApply(string(e.Type), "reversal", "rejected")
		return nil, ErrNotReversible
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage(err)
	}

	metrics.RecordLedgerApply(string(e.Type), "reversal", "applied")
	return rec, nil
}

func (r *repository) apply(ctx context.Context, dir Direction, e Entry) (*Receipt, error) {
	e, err := e.Prepare(dir, r.now())
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer tx.Rollback()

	rec, err := applyTx(ctx, tx, dir, e)
	if err != nil {
		metrics.RecordLedgerApply(string(e.Type), string(dir), outcome(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		metrics.RecordLedgerApply(string(e.Type), string(dir), "error")
		return nil, apperr.Storage(err)
	}

	metrics.RecordLedgerApply(string(e.Type), string(dir), "applied")
	return rec, nil
}

// applyTx runs one apply inside tx. The user row lock taken first is what
// serialises every mutation of that user's wallets.
func applyTx(ctx context.Context, tx *sqlx.Tx, dir Direction, e Entry) (*Receipt, error) {
	var bal Balance
	err := tx.GetContext(ctx, &bal, `
		SELECT id, upgrade_wallet, withdrawal_wallet, total_earnings
		FROM users
		WHERE id = $1
		FOR UPDATE`,
		e.UserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Storage(err)
	}

	rec := &Receipt{}

	if e.Guard != nil {
		var count int
		err = tx.GetContext(ctx, &count, `
			SELECT COUNT(*)
			FROM transactions
			WHERE user_id = $1 AND type = $2 AND sub_type = $3 AND status = 'completed'
			  AND created_at >= $4 AND created_at < $5`,
			e.UserID, e.Type, e.SubType, e.Guard.From, e.Guard.To,
		)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		if count >= e.Guard.MaxPerDay {
			return nil, apperr.ErrDailyCapReached
		}

		if e.ContentID != "" {
			claimed, err := contentClaimed(ctx, tx, e.UserID, e.Type, e.ContentID, e.Guard.Day())
			if err != nil {
				return nil, err
			}
			if claimed {
				return nil, apperr.ErrAlreadyClaimed
			}
		}
		rec.DailyCount = count + 1
	}

	after := bal.Of(e.Wallet)
	if e.Wallet != WalletNone {
		after, err = NextBalance(after, dir, e.Amount)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, balanceUpdates[e.Wallet], after, e.EarningDelta(dir), e.UserID)
		if err != nil {
			return nil, apperr.Storage(err)
		}
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (user_id, wallet, direction, type, sub_type, content_id, reward_day, amount, net_amount, balance_after, status, description, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, user_id, wallet, direction, type, sub_type, content_id, reward_day, amount, net_amount, balance_after, status, description, reference, created_at`,
		e.UserID, e.Wallet, dir, e.Type, e.SubType, e.ContentID, e.RewardDay(),
		e.Amount, e.NetAmount, after, e.Status, e.Description, e.Reference, e.At,
	).StructScan(&rec.Transaction)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == purchaseReferenceIndex {
				return nil, apperr.ErrDuplicateReference
			}
			return nil, apperr.ErrAlreadyClaimed
		}
		return nil, apperr.Storage(err)
	}

	if e.Activity != "" {
		var c ActivityCounter
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO activity_counters (user_id, activity, count, earnings)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (user_id, activity)
			DO UPDATE SET count = activity_counters.count + 1, earnings = activity_counters.earnings + EXCLUDED.earnings, updated_at = NOW()
			RETURNING user_id, activity, count, earnings`,
			e.UserID, e.Activity, e.Amount,
		).StructScan(&c)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		rec.Counter = &c
	}

	return rec, nil
}

func contentClaimed(ctx context.Context, q sqlx.QueryerContext, userID int64, txType TxType, contentID, day string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND type = $2 AND content_id = $3 AND reward_day = $4 AND status = 'completed'
		)`,
		userID, txType, contentID, day,
	)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return exists, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrStorage):
		return "error"
	default:
		return "rejected"
	}
}

func (r *repository) GetBalance(ctx context.Context, userID int64) (*Balance, error) {
	var b Balance
	err := r.db.GetContext(ctx, &b, `
		SELECT id, upgrade_wallet, withdrawal_wallet, total_earnings
		FROM users
		WHERE id = $1`,
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Storage(err)
	}
	return &b, nil
}

func (r *repository) GetTransactions(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT id, user_id, wallet, direction, type, sub_type, content_id, reward_day, amount, net_amount, balance_after, status, description, reference, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return txs, nil
}

func (r *repository) CountCompleted(ctx context.Context, q DayQuery) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1 AND type = $2 AND sub_type = $3 AND status = 'completed'
		  AND created_at >= $4 AND created_at < $5`,
		q.UserID, q.Type, q.SubType, q.From, q.To,
	)
	if err != nil {
		return 0, apperr.Storage(err)
	}
	return count, nil
}

func (r *repository) ContentClaimed(ctx context.Context, userID int64, txType TxType, contentID, day string) (bool, error) {
	return contentClaimed(ctx, r.db, userID, txType, contentID, day)
}

func (r *repository) GetCounters(ctx context.Context, userID int64) ([]ActivityCounter, error) {
	counters := []ActivityCounter{}
	err := r.db.SelectContext(ctx, &counters, `
		SELECT user_id, activity, count, earnings
		FROM activity_counters
		WHERE user_id = $1
		ORDER BY activity`,
		userID,
	)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return counters, nil
}
