package plan

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPlanMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

var packageCols = []string{"id", "name", "price", "daily_income", "validity_days", "level_schedule", "active", "created_at"}

func TestListActive(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM packages WHERE active ORDER BY price ASC`)).
		WillReturnRows(sqlmock.NewRows(packageCols).
			AddRow(1, "Silver", "1000.00", "10.00", 30, []byte(`{10,5}`), true, now).
			AddRow(2, "Gold", "5000.00", "60.00", 30, []byte(`{10,5,2.5}`), true, now))

	pkgs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.True(t, pkgs[1].Price.Equal(decimal.NewFromInt(5000)))
	assert.Len(t, pkgs[1].LevelSchedule, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM packages WHERE id = $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(packageCols).
			AddRow(2, "Gold", "5000.00", "60.00", 30, []byte(`{10,5}`), true, time.Now()))

	p, err := repo.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Gold", p.Name)
	assert.Equal(t, "10", p.LevelSchedule[0].String())
}

func TestFindByIDNotFound(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM packages WHERE id = $1`)).
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrPackageNotFound)
}

func TestCreatePackage(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO packages (name, price, daily_income, validity_days, level_schedule, active)`)).
		WithArgs("Gold", sqlmock.AnyArg(), sqlmock.AnyArg(), 30, `{"10","5"}`, true).
		WillReturnRows(sqlmock.NewRows(packageCols).
			AddRow(5, "Gold", "5000.00", "60.00", 30, []byte(`{10,5}`), true, time.Now()))

	p, err := repo.Create(context.Background(), Package{
		Name:          "Gold",
		Price:         decimal.NewFromInt(5000),
		DailyIncome:   decimal.NewFromInt(60),
		ValidityDays:  30,
		LevelSchedule: pcts("10", "5"),
		Active:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePackageStorageError(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO packages`)).WillReturnError(sql.ErrConnDone)

	_, err := repo.Create(context.Background(), Package{Name: "Gold", Price: decimal.NewFromInt(5000), ValidityDays: 30})
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestSetActive(t *testing.T) {
	repo, mock, close := setupPlanMock(t)
	defer close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE packages SET active = $1 WHERE id = $2`)).
		WithArgs(false, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE packages SET active = $1 WHERE id = $2`)).
		WithArgs(false, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.SetActive(context.Background(), 2, false))
	assert.ErrorIs(t, repo.SetActive(context.Background(), 9, false), ErrPackageNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
