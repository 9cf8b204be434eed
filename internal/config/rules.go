package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Rules is the engine's reward catalog: tier multipliers, commission and
// withdrawal policy, and one record per reward-earning activity.
type Rules struct {
	Timezone   string                  `yaml:"timezone" validate:"required"`
	Tiers      TierRules               `yaml:"tiers"`
	Commission CommissionRules         `yaml:"commission"`
	Withdrawal WithdrawalRules         `yaml:"withdrawal"`
	Activities map[string]ActivityRule `yaml:"activities" validate:"required,min=1,dive"`

	location *time.Location
}

type TierRules struct {
	PremiumThreshold   decimal.Decimal `yaml:"premium_threshold"`
	PremiumMultiplier  decimal.Decimal `yaml:"premium_multiplier"`
	StandardThreshold  decimal.Decimal `yaml:"standard_threshold"`
	StandardMultiplier decimal.Decimal `yaml:"standard_multiplier"`
}

type CommissionRules struct {
	MaxDepth          int             `yaml:"max_depth" validate:"min=1,max=100"`
	Parallelism       int             `yaml:"parallelism" validate:"min=1,max=64"`
	RegistrationBonus decimal.Decimal `yaml:"registration_bonus"`
}

type WithdrawalRules struct {
	TDSRate     decimal.Decimal `yaml:"tds_rate"`
	MinAmount   decimal.Decimal `yaml:"min_amount"`
	MaxAmount   decimal.Decimal `yaml:"max_amount"`
	MinInterval time.Duration   `yaml:"min_interval" validate:"min=0"`
}

type ActivityRule struct {
	TxType             string                 `yaml:"tx_type" validate:"required,oneof=daily_income video_reward ad_reward login_reward"`
	Wallet             string                 `yaml:"wallet" validate:"required,oneof=upgrade withdrawal"`
	RewardPerUnit      decimal.Decimal        `yaml:"reward_per_unit"`
	UsePackageIncome   bool                   `yaml:"use_package_income"`
	MaxPerDay          int                    `yaml:"max_per_day" validate:"omitempty,min=1"`
	MinDurationSeconds int                    `yaml:"min_duration_seconds" validate:"min=0"`
	ContentKeyed       bool                   `yaml:"content_keyed"`
	SubTypes           map[string]SubTypeRule `yaml:"sub_types" validate:"omitempty,dive"`
}

// SubTypeRule overrides the reward, cap and minimum duration for one
// variant of an activity (e.g. a banner ad versus a rewarded video ad).
type SubTypeRule struct {
	RewardPerUnit      decimal.Decimal `yaml:"reward_per_unit"`
	MaxPerDay          int             `yaml:"max_per_day" validate:"min=1"`
	MinDurationSeconds int             `yaml:"min_duration_seconds" validate:"min=0"`
}

// Activity is the resolved record for one (activity, sub-type) pair.
type Activity struct {
	Name             string
	SubType          string
	TxType           string
	Wallet           string
	RewardPerUnit    decimal.Decimal
	UsePackageIncome bool
	MaxPerDay        int
	MinDuration      time.Duration
	ContentKeyed     bool
}

var ErrUnknownActivity = errors.New("unknown activity")

func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rewards config: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rewards config: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("invalid rewards config: %w", err)
	}

	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return fmt.Errorf("invalid rewards config: timezone %q: %w", r.Timezone, err)
	}
	r.location = loc

	// an omitted tiers block means no boost
	if r.Tiers.StandardMultiplier.IsZero() {
		r.Tiers.StandardMultiplier = decimal.NewFromInt(1)
	}
	if r.Tiers.PremiumMultiplier.IsZero() {
		r.Tiers.PremiumMultiplier = r.Tiers.StandardMultiplier
	}

	t := r.Tiers
	if t.StandardThreshold.IsNegative() || t.PremiumThreshold.LessThan(t.StandardThreshold) {
		return fmt.Errorf("invalid rewards config: premium_threshold must be >= standard_threshold >= 0")
	}
	if t.StandardMultiplier.LessThan(decimal.NewFromInt(1)) || t.PremiumMultiplier.LessThan(t.StandardMultiplier) {
		return fmt.Errorf("invalid rewards config: multipliers must satisfy premium >= standard >= 1")
	}

	if r.Commission.RegistrationBonus.IsNegative() {
		return fmt.Errorf("invalid rewards config: registration_bonus must not be negative")
	}

	w := r.Withdrawal
	if w.TDSRate.IsNegative() || w.TDSRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid rewards config: tds_rate must be in [0, 1)")
	}
	if !w.MinAmount.IsPositive() || w.MaxAmount.LessThan(w.MinAmount) {
		return fmt.Errorf("invalid rewards config: withdrawal amounts must satisfy 0 < min_amount <= max_amount")
	}

	for name, a := range r.Activities {
		if len(a.SubTypes) == 0 {
			if a.MaxPerDay < 1 {
				return fmt.Errorf("invalid rewards config: activity %q needs max_per_day >= 1", name)
			}
			if !a.UsePackageIncome && !a.RewardPerUnit.IsPositive() {
				return fmt.Errorf("invalid rewards config: activity %q needs a positive reward_per_unit", name)
			}
		}
		for sub, s := range a.SubTypes {
			if !s.RewardPerUnit.IsPositive() {
				return fmt.Errorf("invalid rewards config: activity %q sub-type %q needs a positive reward_per_unit", name, sub)
			}
		}
	}

	return nil
}

// Location is the zone whose midnight resets daily caps.
func (r *Rules) Location() *time.Location {
	if r.location == nil {
		return time.UTC
	}
	return r.location
}

// Multiplier returns the package-tier multiplier for a package price.
func (t TierRules) Multiplier(price decimal.Decimal) decimal.Decimal {
	switch {
	case price.GreaterThanOrEqual(t.PremiumThreshold):
		return t.PremiumMultiplier
	case price.GreaterThanOrEqual(t.StandardThreshold):
		return t.StandardMultiplier
	default:
		return decimal.NewFromInt(1)
	}
}

// Activity resolves the record for name and, when the activity has
// variants, subType.
func (r *Rules) Activity(name, subType string) (Activity, error) {
	a, ok := r.Activities[name]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %q", ErrUnknownActivity, name)
	}

	out := Activity{
		Name:             name,
		TxType:           a.TxType,
		Wallet:           a.Wallet,
		RewardPerUnit:    a.RewardPerUnit,
		UsePackageIncome: a.UsePackageIncome,
		MaxPerDay:        a.MaxPerDay,
		MinDuration:      time.Duration(a.MinDurationSeconds) * time.Second,
		ContentKeyed:     a.ContentKeyed,
	}

	if len(a.SubTypes) == 0 {
		return out, nil
	}
	s, ok := a.SubTypes[subType]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %q has no sub-type %q", ErrUnknownActivity, name, subType)
	}
	out.SubType = subType
	out.RewardPerUnit = s.RewardPerUnit
	out.MaxPerDay = s.MaxPerDay
	out.MinDuration = time.Duration(s.MinDurationSeconds) * time.Second
	return out, nil
}

// ActivityNames lists configured activities in a stable order.
func (r *Rules) ActivityNames() []string {
	names := make([]string, 0, len(r.Activities))
	for name := range r.Activities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
