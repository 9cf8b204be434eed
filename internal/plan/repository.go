package plan

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/jmoiron/sqlx"
)

const packageColumns = `id, name, price, daily_income, validity_days, level_schedule, active, created_at`

var ErrPackageNotFound = apperr.NotFound("package_not_found", "package not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context) ([]Package, error) {
	pkgs := []Package{}
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT `+packageColumns+`
		FROM packages
		WHERE active
		ORDER BY price ASC`)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return pkgs, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Package, error) {
	var p Package
	err := r.db.GetContext(ctx, &p, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

func (r *repository) Create(ctx context.Context, p Package) (*Package, error) {
	var created Package
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO packages (name, price, daily_income, validity_days, level_schedule, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+packageColumns,
		p.Name, p.Price, p.DailyIncome, p.ValidityDays, p.LevelSchedule, p.Active,
	).StructScan(&created)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &created, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE packages SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return apperr.Storage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage(err)
	}
	if n == 0 {
		return ErrPackageNotFound
	}
	return nil
}
