package plan

import (
	"context"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Service interface {
	List(ctx context.Context) ([]Package, error)
	Get(ctx context.Context, id int64) (*Package, error)
	Create(ctx context.Context, req CreatePackageRequest) (*Package, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context) ([]Package, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (*Package, error) {
	if id <= 0 {
		return nil, ErrPackageNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) Create(ctx context.Context, req CreatePackageRequest) (*Package, error) {
	if !req.Price.IsPositive() || !req.Price.Equal(req.Price.Round(2)) {
		return nil, apperr.Validation("invalid_price", "price must be positive with at most two decimals")
	}
	if req.DailyIncome.IsNegative() || !req.DailyIncome.Equal(req.DailyIncome.Round(2)) {
		return nil, apperr.Validation("invalid_daily_income", "daily income must not be negative and have at most two decimals")
	}
	if err := ValidateSchedule(req.LevelSchedule); err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, Package{
		Name:          req.Name,
		Price:         req.Price,
		DailyIncome:   req.DailyIncome,
		ValidityDays:  req.ValidityDays,
		LevelSchedule: Schedule(req.LevelSchedule),
		Active:        true,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Package created", "package_id", p.ID, "name", p.Name, "price", p.Price.String(), "levels", len(p.LevelSchedule))
	return p, nil
}

func (s *service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// ValidateSchedule checks every level is within [0, 100] percent and the
// levels together never pay out more than the price.
func ValidateSchedule(schedule []decimal.Decimal) error {
	for i, pct := range schedule {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return apperr.Validation("invalid_schedule", "level %d percentage %s is outside [0, 100]", i+1, pct)
		}
	}
	if total := Schedule(schedule).Total(); total.GreaterThan(hundred) {
		return apperr.Validation("invalid_schedule", "level percentages add up to %s, more than 100", total)
	}
	return nil
}
