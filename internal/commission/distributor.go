// Package commission pays level income up the sponsor chain when a user
// buys a package, and the one-level referral bonus at signup.
package commission

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/config"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

type Crediter interface {
	ApplyCredit(ctx context.Context, e ledger.Entry) (*ledger.Receipt, error)
}

type UplineWalker interface {
	Upline(ctx context.Context, userID int64, maxDepth int) ([]int64, error)
}

// Snapshot is the price and level schedule of a package as it stood when
// the purchase was made. Schedule[0] is the direct sponsor's percentage.
type Snapshot struct {
	PackageID int64
	Price     decimal.Decimal
	Schedule  []decimal.Decimal
	Reference string
}

// Distribution is one planned level-income credit and how applying it went.
type Distribution struct {
	AncestorID    int64           `json:"ancestor_id"`
	Level         int             `json:"level"`
	Percentage    decimal.Decimal `json:"percentage"`
	Amount        decimal.Decimal `json:"amount"`
	Applied       bool            `json:"applied"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	Err           error           `json:"-"`
}

// PartialDistributionError reports ancestors whose credit failed while
// others were paid. Paid credits stay paid.
type PartialDistributionError struct {
	PurchaserID int64
	Failed      []Distribution
	Applied     int
}

func (e *PartialDistributionError) Error() string {
	levels := make([]string, 0, len(e.Failed))
	for _, d := range e.Failed {
		levels = append(levels, fmt.Sprintf("level %d (user %d): %v", d.Level, d.AncestorID, d.Err))
	}
	return fmt.Sprintf("commission for purchase by user %d partially applied (%d ok, %d failed): %s",
		e.PurchaserID, e.Applied, len(e.Failed), strings.Join(levels, "; "))
}

func (e *PartialDistributionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, d := range e.Failed {
		errs = append(errs, d.Err)
	}
	return errs
}

type Distributor struct {
	ledger Crediter
	upline UplineWalker
	rules  config.CommissionRules
}

func NewDistributor(l Crediter, upline UplineWalker, rules config.CommissionRules) *Distributor {
	if rules.Parallelism < 1 {
		rules.Parallelism = 1
	}
	return &Distributor{ledger: l, upline: upline, rules: rules}
}

// Plan computes the credits for a purchase without applying them.
func Plan(price decimal.Decimal, schedule []decimal.Decimal, upline []int64) []Distribution {
	plan := make([]Distribution, 0, len(upline))
	for i, ancestor := range upline {
		if i >= len(schedule) {
			break
		}
		pct := schedule[i]
		if !pct.IsPositive() {
			continue
		}
		amount := price.Mul(pct).Div(hundred).Round(2)
		if !amount.IsPositive() {
			continue
		}
		plan = append(plan, Distribution{
			AncestorID: ancestor,
			Level:      i + 1,
			Percentage: pct,
			Amount:     amount,
		})
	}
	return plan
}

// Distribute pays level income for a purchase by purchaserID. The whole
// plan is computed before any credit is applied; credits then run in
// parallel and a failed one never undoes the others. When some fail the
// full result list is returned together with a *PartialDistributionError.
func (d *Distributor) Distribute(ctx context.Context, purchaserID int64, snap Snapshot) ([]Distribution, error) {
	if purchaserID <= 0 {
		return nil, apperr.Validation("invalid_user", "purchaser id must be positive")
	}
	if !snap.Price.IsPositive() {
		return nil, apperr.Validation("invalid_amount", "package price must be positive")
	}
	schedule := append([]decimal.Decimal(nil), snap.Schedule...)

	depth := len(schedule)
	if depth > d.rules.MaxDepth {
		depth = d.rules.MaxDepth
	}
	if depth == 0 {
		return []Distribution{}, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveCommissionDistribution(time.Since(start).Seconds()) }()

	upline, err := d.upline.Upline(ctx, purchaserID, depth)
	if err != nil {
		return nil, err
	}

	plan := Plan(snap.Price, schedule, upline)

	var g errgroup.Group
	g.SetLimit(d.rules.Parallelism)
	for i := range plan {
		g.Go(func() error {
			dist := &plan[i]
			rec, err := d.ledger.ApplyCredit(ctx, ledger.Entry{
				UserID:      dist.AncestorID,
				Wallet:      ledger.WalletUpgrade,
				Amount:      dist.Amount,
				Type:        ledger.TxLevelIncome,
				SubType:     "level_" + strconv.Itoa(dist.Level),
				Description: fmt.Sprintf("Level %d income: %s%% of %s package purchase by user %d", dist.Level, dist.Percentage.String(), snap.Price.StringFixed(2), purchaserID),
				Reference:   snap.Reference,
			})
			if err != nil {
				dist.Err = err
				metrics.RecordCommissionCredit(strconv.Itoa(dist.Level), "failed")
				return nil
			}
			dist.Applied = true
			dist.TransactionID = rec.Transaction.ID
			metrics.RecordCommissionCredit(strconv.Itoa(dist.Level), "applied")
			return nil
		})
	}
	_ = g.Wait()

	var failed []Distribution
	for _, dist := range plan {
		if dist.Err != nil {
			failed = append(failed, dist)
			logger.Error("Level income credit failed",
				"purchaser_id", purchaserID,
				"ancestor_id", dist.AncestorID,
				"level", dist.Level,
				"amount", dist.Amount.String(),
				"error", dist.Err,
			)
		}
	}

	if len(failed) > 0 {
		return plan, &PartialDistributionError{
			PurchaserID: purchaserID,
			Failed:      failed,
			Applied:     len(plan) - len(failed),
		}
	}

	logger.Info("Commission distributed",
		"purchaser_id", purchaserID,
		"package_id", snap.PackageID,
		"credits", len(plan),
	)
	return plan, nil
}

// RegistrationBonus credits the direct sponsor of a newly registered user
// with the configured referral bonus. Returns nil when there is nothing to
// pay.
func (d *Distributor) RegistrationBonus(ctx context.Context, newUserID, sponsorID int64) (*Distribution, error) {
	if sponsorID == 0 || !d.rules.RegistrationBonus.IsPositive() {
		return nil, nil
	}
	if sponsorID == newUserID {
		return nil, apperr.Validation("invalid_sponsor", "user cannot sponsor themselves")
	}

	rec, err := d.ledger.ApplyCredit(ctx, ledger.Entry{
		UserID:      sponsorID,
		Wallet:      ledger.WalletUpgrade,
		Amount:      d.rules.RegistrationBonus,
		Type:        ledger.TxReferralBonus,
		Description: fmt.Sprintf("Referral bonus for registration of user %d", newUserID),
		Reference:   fmt.Sprintf("registration:%d", newUserID),
	})
	if err != nil {
		metrics.RecordCommissionCredit("0", "failed")
		return nil, err
	}
	metrics.RecordCommissionCredit("0", "applied")

	return &Distribution{
		AncestorID:    sponsorID,
		Level:         1,
		Amount:        d.rules.RegistrationBonus,
		Applied:       true,
		TransactionID: rec.Transaction.ID,
	}, nil
}
