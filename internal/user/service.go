package user

import (
	"context"
	"errors"
	"strings"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/commission"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"

	"github.com/google/uuid"
)

var ErrInvalidSponsorCode = apperr.Validation("invalid_sponsor_code", "sponsor code does not match any user")

type BonusPayer interface {
	RegistrationBonus(ctx context.Context, newUserID, sponsorID int64) (*commission.Distribution, error)
}

type Service interface {
	Register(ctx context.Context, id int64, email, role string, req RegisterRequest) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

type service struct {
	repo    Repository
	bonuses BonusPayer
}

func NewService(repo Repository, bonuses BonusPayer) Service {
	return &service{
		repo:    repo,
		bonuses: bonuses,
	}
}

// Register creates the profile of an authenticated account. The sponsor,
// and therefore the user's level, is fixed here and never changes.
func (s *service) Register(ctx context.Context, id int64, email, role string, req RegisterRequest) (*User, error) {
	if id <= 0 {
		return nil, apperr.Validation("invalid_user", "user id must be positive")
	}
	if role == "" {
		role = "member"
	}

	exists, err := s.repo.Exists(ctx, id, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyRegistered
	}

	nu := NewUser{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Role:         role,
		ReferralCode: newReferralCode(),
	}

	if code := strings.TrimSpace(req.SponsorCode); code != "" {
		sponsor, err := s.repo.FindByReferralCode(ctx, strings.ToUpper(code))
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, ErrInvalidSponsorCode
			}
			return nil, err
		}
		nu.SponsorID = &sponsor.ID
		nu.Level = sponsor.Level + 1
	}

	u, err := s.repo.Create(ctx, nu)
	if err != nil {
		return nil, err
	}
	metrics.RecordRegistration(nu.SponsorID != nil)
	logger.Info("User registered", "user_id", u.ID, "sponsor_id", u.Sponsor(), "level", u.Level)

	if u.SponsorID != nil && s.bonuses != nil {
		if _, err := s.bonuses.RegistrationBonus(ctx, u.ID, *u.SponsorID); err != nil {
			logger.Error("Referral bonus failed",
				"user_id", u.ID,
				"sponsor_id", *u.SponsorID,
				"error", err,
			)
		}
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
