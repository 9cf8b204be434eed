// Package reward validates and pays capped activity rewards: daily package
// income, video and ad views, daily login.
package reward

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/config"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/user"

	"github.com/shopspring/decimal"
)

var (
	ErrPackageInactive    = apperr.NotEligible("package_inactive", "an active package is required")
	ErrPackageExpired     = apperr.NotEligible("package_expired", "package validity has ended")
	ErrEngagementTooShort = apperr.NotEligible("engagement_too_short", "activity was not engaged long enough")
	ErrNoDailyIncome      = apperr.NotEligible("no_daily_income", "the active package pays no daily income")
)

type Ledger interface {
	ApplyCredit(ctx context.Context, e ledger.Entry) (*ledger.Receipt, error)
	CountCompleted(ctx context.Context, q ledger.DayQuery) (int, error)
	ContentClaimed(ctx context.Context, userID int64, txType ledger.TxType, contentID, day string) (bool, error)
	GetCounters(ctx context.Context, userID int64) ([]ledger.ActivityCounter, error)
}

type Holdings interface {
	FindHolding(ctx context.Context, userID int64) (*user.PackageHolding, error)
}

type ClaimRequest struct {
	UserID            int64  `json:"-"`
	Activity          string `json:"activity" binding:"required"`
	SubType           string `json:"sub_type"`
	ContentID         string `json:"content_id" binding:"max=128"`
	EngagementSeconds int    `json:"engagement_seconds" binding:"min=0"`
}

type ClaimResult struct {
	Amount         decimal.Decimal         `json:"amount"`
	Wallet         ledger.Wallet           `json:"wallet"`
	TransactionID  int64                   `json:"transaction_id"`
	NewDailyCount  int                     `json:"new_daily_count"`
	RemainingQuota int                     `json:"remaining_quota"`
	Counter        *ledger.ActivityCounter `json:"counter,omitempty"`
}

// Quota is the state of one activity's daily allowance.
type Quota struct {
	Activity  string `json:"activity"`
	SubType   string `json:"sub_type,omitempty"`
	Used      int    `json:"used"`
	MaxPerDay int    `json:"max_per_day"`
	Remaining int    `json:"remaining"`
}

type Processor struct {
	ledger   Ledger
	holdings Holdings
	rules    *config.Rules
	now      func() time.Time
}

func NewProcessor(l Ledger, holdings Holdings, rules *config.Rules) *Processor {
	return &Processor{ledger: l, holdings: holdings, rules: rules, now: time.Now}
}

// Window is the local calendar day containing t, as [midnight, next midnight).
func (p *Processor) Window(t time.Time) (time.Time, time.Time) {
	local := t.In(p.rules.Location())
	y, m, d := local.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, local.Location())
	return from, from.AddDate(0, 0, 1)
}

// Claim validates and pays one reward. Checks run in order and the first
// failure wins: active package, engagement, daily cap, content replay. The
// last two are repeated inside the ledger apply under the user lock.
func (p *Processor) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	res, err := p.claim(ctx, req)
	switch {
	case err == nil:
		metrics.RecordRewardClaim(req.Activity, "credited")
	case apperr.Code(err) != "":
		metrics.RecordRewardClaim(req.Activity, apperr.Code(err))
	default:
		metrics.RecordRewardClaim(req.Activity, "error")
	}
	return res, err
}

func (p *Processor) claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	if req.UserID <= 0 {
		return nil, apperr.Validation("invalid_user", "user id must be positive")
	}
	if req.EngagementSeconds < 0 {
		return nil, apperr.Validation("invalid_engagement", "engagement seconds must not be negative")
	}
	act, err := p.rules.Activity(req.Activity, req.SubType)
	if err != nil {
		if errors.Is(err, config.ErrUnknownActivity) {
			return nil, apperr.Validation("unknown_activity", "%v", err)
		}
		return nil, err
	}
	if act.ContentKeyed && req.ContentID == "" {
		return nil, apperr.Validation("content_required", "content id is required for %s", act.Name)
	}

	now := p.now()

	holding, err := p.holdings.FindHolding(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, ErrPackageInactive
	}
	if holding.Expired(now) {
		return nil, ErrPackageExpired
	}

	if time.Duration(req.EngagementSeconds)*time.Second < act.MinDuration {
		return nil, ErrEngagementTooShort
	}

	amount, desc := p.amount(act, holding)
	if !amount.IsPositive() {
		if act.UsePackageIncome {
			return nil, ErrNoDailyIncome
		}
		return nil, apperr.NotEligible("no_reward", "%s pays nothing for this package", act.Name)
	}

	txType := ledger.TxType(act.TxType)
	from, to := p.Window(now)
	guard := &ledger.DailyGuard{MaxPerDay: act.MaxPerDay, From: from, To: to}

	used, err := p.ledger.CountCompleted(ctx, ledger.DayQuery{
		UserID: req.UserID, Type: txType, SubType: act.SubType, From: from, To: to,
	})
	if err != nil {
		return nil, err
	}
	if used >= act.MaxPerDay {
		return nil, apperr.ErrDailyCapReached
	}

	contentID := ""
	if act.ContentKeyed {
		contentID = req.ContentID
		claimed, err := p.ledger.ContentClaimed(ctx, req.UserID, txType, contentID, guard.Day())
		if err != nil {
			return nil, err
		}
		if claimed {
			return nil, apperr.ErrAlreadyClaimed
		}
	}

	rec, err := p.ledger.ApplyCredit(ctx, ledger.Entry{
		UserID:      req.UserID,
		Wallet:      ledger.Wallet(act.Wallet),
		Amount:      amount,
		Type:        txType,
		SubType:     act.SubType,
		ContentID:   contentID,
		Description: desc,
		At:          now,
		Activity:    act.Name,
		Guard:       guard,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Reward credited",
		"user_id", req.UserID,
		"activity", act.Name,
		"sub_type", act.SubType,
		"amount", amount.String(),
		"daily_count", rec.DailyCount,
	)

	return &ClaimResult{
		Amount:         amount,
		Wallet:         ledger.Wallet(act.Wallet),
		TransactionID:  rec.Transaction.ID,
		NewDailyCount:  rec.DailyCount,
		RemainingQuota: act.MaxPerDay - rec.DailyCount,
		Counter:        rec.Counter,
	}, nil
}

// amount is the base reward scaled by the package tier. Daily income is the
// package's own daily income and is not scaled.
func (p *Processor) amount(act config.Activity, h *user.PackageHolding) (decimal.Decimal, string) {
	if act.UsePackageIncome {
		return h.DailyIncome, fmt.Sprintf("Daily income from package #%d", h.PackageID)
	}

	multiplier := p.rules.Tiers.Multiplier(h.Price)
	amount := act.RewardPerUnit.Mul(multiplier).Round(2)

	label := act.Name
	if act.SubType != "" {
		label = act.Name + " (" + act.SubType + ")"
	}
	return amount, fmt.Sprintf("Reward for %s, x%s package multiplier", label, multiplier.String())
}

// Quotas reports today's usage for every configured activity and sub-type.
func (p *Processor) Quotas(ctx context.Context, userID int64) ([]Quota, error) {
	from, to := p.Window(p.now())

	var out []Quota
	for _, name := range p.rules.ActivityNames() {
		subTypes := []string{""}
		if rule := p.rules.Activities[name]; len(rule.SubTypes) > 0 {
			subTypes = subTypes[:0]
			for sub := range rule.SubTypes {
				subTypes = append(subTypes, sub)
			}
			sort.Strings(subTypes)
		}
		for _, sub := range subTypes {
			act, err := p.rules.Activity(name, sub)
			if err != nil {
				return nil, err
			}
			used, err := p.ledger.CountCompleted(ctx, ledger.DayQuery{
				UserID: userID, Type: ledger.TxType(act.TxType), SubType: act.SubType, From: from, To: to,
			})
			if err != nil {
				return nil, err
			}
			remaining := act.MaxPerDay - used
			if remaining < 0 {
				remaining = 0
			}
			out = append(out, Quota{Activity: name, SubType: sub, Used: used, MaxPerDay: act.MaxPerDay, Remaining: remaining})
		}
	}
	return out, nil
}

func (p *Processor) Counters(ctx context.Context, userID int64) ([]ledger.ActivityCounter, error) {
	return p.ledger.GetCounters(ctx, userID)
}
