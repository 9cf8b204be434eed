package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/commission"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/metrics"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/session"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCheckoutNotFound     = apperr.NotFound("checkout_not_found", "checkout expired or unknown")
	ErrPackageUnavailable   = apperr.NotEligible("package_unavailable", "package is not on sale")
	ErrPackageAlreadyActive = apperr.NotEligible("package_already_active", "an equal or higher package is already active")
	ErrGatewayReference     = apperr.Validation("gateway_reference_required", "gateway payments need a gateway reference")
	ErrGatewaySettlement    = apperr.NotEligible("gateway_settlement_required", "gateway payments are confirmed by settlement, not by the buyer")
)

type Sessions interface {
	Put(ctx context.Context, id string, v any) error
	Take(ctx context.Context, id string, v any) error
	TTL() time.Duration
}

type Wallets interface {
	ApplyDebit(ctx context.Context, e ledger.Entry) (*ledger.Receipt, error)
	Reverse(ctx context.Context, txID int64, e ledger.Entry) (*ledger.Receipt, error)
}

type Members interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
	FindHolding(ctx context.Context, userID int64) (*user.PackageHolding, error)
	ActivatePackage(ctx context.Context, userID, packageID int64, at time.Time) error
}

type Commissions interface {
	Distribute(ctx context.Context, purchaserID int64, snap commission.Snapshot) ([]commission.Distribution, error)
}

type Notifier interface {
	SendPackageActivated(ctx context.Context, email, name, packageName string, price decimal.Decimal, validityDays int) error
}

// Checkout sells packages in two steps. Start freezes the package terms in
// a session; Confirm pays, activates and distributes level income from that
// frozen copy.
type Checkout struct {
	catalog     Repository
	sessions    Sessions
	wallets     Wallets
	members     Members
	commissions Commissions
	notifier    Notifier
	now         func() time.Time
	newToken    func() string
}

func NewCheckout(catalog Repository, sessions Sessions, wallets Wallets, members Members, commissions Commissions, notifier Notifier) *Checkout {
	return &Checkout{
		catalog:     catalog,
		sessions:    sessions,
		wallets:     wallets,
		members:     members,
		commissions: commissions,
		notifier:    notifier,
		now:         time.Now,
		newToken:    uuid.NewString,
	}
}

func (c *Checkout) Start(ctx context.Context, userID, packageID int64) (*Intent, error) {
	if userID <= 0 {
		return nil, apperr.Validation("invalid_user", "user id must be positive")
	}

	pkg, err := c.catalog.FindByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, ErrPackageUnavailable
	}

	if _, err := c.members.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	now := c.now()
	holding, err := c.members.FindHolding(ctx, userID)
	if err != nil {
		return nil, err
	}
	if holding != nil && !holding.Expired(now) && pkg.Price.LessThanOrEqual(holding.Price) {
		return nil, ErrPackageAlreadyActive
	}

	schedule := make(Schedule, len(pkg.LevelSchedule))
	copy(schedule, pkg.LevelSchedule)

	intent := &Intent{
		Token:        c.newToken(),
		UserID:       userID,
		PackageID:    pkg.ID,
		PackageName:  pkg.Name,
		Price:        pkg.Price,
		DailyIncome:  pkg.DailyIncome,
		ValidityDays: pkg.ValidityDays,
		Schedule:     schedule,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.sessions.TTL()),
	}
	if err := c.sessions.Put(ctx, intent.Token, intent); err != nil {
		return nil, err
	}

	logger.Debug("Checkout started", "user_id", userID, "package_id", pkg.ID, "token", intent.Token)
	return intent, nil
}

// Confirm consumes the checkout token and pays from the buyer's upgrade
// wallet. A failed payment puts the intent back so the user can retry; once
// paid, a commission failure does not undo the purchase and is reported in
// Purchase.Warning. Gateway payments are never confirmed by the buyer; they
// go through Settle.
func (c *Checkout) Confirm(ctx context.Context, userID int64, token string, req ConfirmRequest) (*Purchase, error) {
	switch req.Payment {
	case PaymentWallet:
	case PaymentGateway:
		return nil, ErrGatewaySettlement
	default:
		return nil, apperr.Validation("invalid_payment", "unknown payment method %q", req.Payment)
	}

	intent, err := c.take(ctx, token)
	if err != nil {
		return nil, err
	}
	if intent.UserID != userID {
		c.restore(ctx, intent)
		return nil, ErrCheckoutNotFound
	}

	return c.complete(ctx, intent, PaymentWallet, ledger.Entry{
		Wallet:      ledger.WalletUpgrade,
		Description: fmt.Sprintf("Purchase of %s package", intent.PackageName),
		Reference:   "checkout:" + token,
	})
}

// Settle completes a checkout paid through the payment gateway. It is driven
// by the settlement side, never by the buyer. The purchase is recorded
// without touching a wallet and keyed by the gateway reference, so one
// gateway payment activates at most one package.
func (c *Checkout) Settle(ctx context.Context, token, gatewayReference string) (*Purchase, error) {
	gatewayReference = strings.TrimSpace(gatewayReference)
	if gatewayReference == "" {
		return nil, ErrGatewayReference
	}

	intent, err := c.take(ctx, token)
	if err != nil {
		return nil, err
	}

	return c.complete(ctx, intent, PaymentGateway, ledger.Entry{
		Wallet:      ledger.WalletNone,
		Description: fmt.Sprintf("Purchase of %s package via gateway %s", intent.PackageName, gatewayReference),
		Reference:   "gateway:" + gatewayReference,
	})
}

func (c *Checkout) take(ctx context.Context, token string) (*Intent, error) {
	var intent Intent
	if err := c.sessions.Take(ctx, token, &intent); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrCheckoutNotFound
		}
		return nil, err
	}
	return &intent, nil
}

// complete debits the purchase, activates the package and distributes level
// income from the frozen schedule.
func (c *Checkout) complete(ctx context.Context, intent *Intent, payment Payment, purchase ledger.Entry) (*Purchase, error) {
	now := c.now()
	userID := intent.UserID

	purchase.UserID = userID
	purchase.Amount = intent.Price
	purchase.Type = ledger.TxPurchase
	purchase.At = now

	rec, err := c.wallets.ApplyDebit(ctx, purchase)
	if err != nil {
		c.restore(ctx, intent)
		return nil, err
	}

	if err := c.members.ActivatePackage(ctx, userID, intent.PackageID, now); err != nil {
		c.reverse(ctx, rec.Transaction.ID, purchase)
		c.restore(ctx, intent)
		return nil, err
	}

	result := &Purchase{
		PackageID:     intent.PackageID,
		Price:         intent.Price,
		Payment:       payment,
		TransactionID: rec.Transaction.ID,
		ActivatedAt:   now,
		Commissions:   []CommissionLine{},
	}

	dists, err := c.commissions.Distribute(ctx, userID, commission.Snapshot{
		PackageID: intent.PackageID,
		Price:     intent.Price,
		Schedule:  intent.Schedule,
		Reference: purchase.Reference,
	})
	for _, d := range dists {
		result.Commissions = append(result.Commissions, CommissionLine{
			AncestorID: d.AncestorID,
			Level:      d.Level,
			Amount:     d.Amount,
			Applied:    d.Applied,
		})
	}
	if err != nil {
		var partial *commission.PartialDistributionError
		if errors.As(err, &partial) {
			result.Warning = fmt.Sprintf("level income failed for %d of %d levels", len(partial.Failed), len(dists))
		} else {
			result.Warning = "level income could not be distributed"
		}
		logger.Error("Commission distribution incomplete", "user_id", userID, "token", intent.Token, "error", err)
	}

	metrics.RecordPackagePurchase(string(payment))
	logger.Info("Package purchased",
		"user_id", userID,
		"package_id", intent.PackageID,
		"price", intent.Price.String(),
		"payment", string(payment),
		"reference", purchase.Reference,
		"commissions", len(result.Commissions),
	)
	c.notify(ctx, userID, intent)
	return result, nil
}

func (c *Checkout) restore(ctx context.Context, intent *Intent) {
	if err := c.sessions.Put(ctx, intent.Token, intent); err != nil {
		logger.Warn("Checkout intent not restored", "token", intent.Token, "error", err)
	}
}

// reverse credits back a purchase whose activation failed.
func (c *Checkout) reverse(ctx context.Context, txID int64, purchase ledger.Entry) {
	purchase.Description = "Reversal: " + purchase.Description
	purchase.Reference += ":reversal"
	if _, err := c.wallets.Reverse(ctx, txID, purchase); err != nil {
		logger.Error("Purchase reversal failed", "user_id", purchase.UserID, "reference", purchase.Reference, "error", err)
	}
}

func (c *Checkout) notify(ctx context.Context, userID int64, intent *Intent) {
	if c.notifier == nil {
		return
	}
	u, err := c.members.FindByID(ctx, userID)
	if err != nil || u.Email == "" {
		return
	}
	if err := c.notifier.SendPackageActivated(ctx, u.Email, u.Name, intent.PackageName, intent.Price, intent.ValidityDays); err != nil {
		logger.Warn("Package notice not queued", "user_id", userID, "error", err)
	}
}
