package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const userColumns = `id, name, email, referral_code, role, sponsor_id, level, current_package_id, package_activated_at,
	upgrade_wallet, withdrawal_wallet, total_earnings, total_referrals, created_at, updated_at`

var ErrAlreadyRegistered = apperr.NotEligible("already_registered", "user or email already registered")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts the user and bumps the sponsor's referral count in one
// transaction.
func (r *repository) Create(ctx context.Context, u NewUser) (*User, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer tx.Rollback()

	var created User
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO users (id, name, email, role, referral_code, sponsor_id, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.Role, u.ReferralCode, u.SponsorID, u.Level,
	).StructScan(&created)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAlreadyRegistered
		}
		return nil, apperr.Storage(err)
	}

	if u.SponsorID != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET total_referrals = total_referrals + 1, updated_at = NOW()
			WHERE id = $1`,
			*u.SponsorID,
		)
		if err != nil {
			return nil, apperr.Storage(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage(err)
	}
	return &created, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *repository) FindByReferralCode(ctx context.Context, code string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Storage(err)
	}
	return &u, nil
}

func (r *repository) Exists(ctx context.Context, id int64, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 OR email = $2)`, id, email)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return exists, nil
}

// FindHolding returns nil when the user holds no package.
func (r *repository) FindHolding(ctx context.Context, userID int64) (*PackageHolding, error) {
	var h PackageHolding
	err := r.db.GetContext(ctx, &h, `
		SELECT u.id AS user_id, p.id AS package_id, p.price, p.daily_income, p.validity_days, u.package_activated_at
		FROM users u
		JOIN packages p ON p.id = u.current_package_id
		WHERE u.id = $1 AND u.package_activated_at IS NOT NULL`,
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage(err)
	}
	return &h, nil
}

func (r *repository) ActivatePackage(ctx context.Context, userID, packageID int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET current_package_id = $1, package_activated_at = $2, updated_at = NOW()
		WHERE id = $3`,
		packageID, at, userID,
	)
	if err != nil {
		return apperr.Storage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(err)
	}
	if n == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}
