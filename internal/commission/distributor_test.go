package commission

import (
	"context"
	"errors"
	"testing"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/config"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/ledger/ledgertest"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/referral"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sponsors map[int64]int64

func (s sponsors) SponsorOf(_ context.Context, userID int64) (int64, error) {
	return s[userID], nil
}

// MockWalker is a mock implementation of UplineWalker
type MockWalker struct {
	mock.Mock
}

func (m *MockWalker) Upline(ctx context.Context, userID int64, maxDepth int) ([]int64, error) {
	args := m.Called(ctx, userID, maxDepth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func pcts(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(values))
	for _, v := range values {
		out = append(out, decimal.RequireFromString(v))
	}
	return out
}

func rules() config.CommissionRules {
	return config.CommissionRules{MaxDepth: 10, Parallelism: 3, RegistrationBonus: decimal.NewFromInt(50)}
}

// chainStore builds users 1..n where user i is sponsored by i-1.
func chainStore(n int64) (*ledgertest.Store, sponsors) {
	store := ledgertest.New()
	graph := sponsors{}
	for id := int64(1); id <= n; id++ {
		store.AddUser(id, decimal.Zero, decimal.Zero)
		if id > 1 {
			graph[id] = id - 1
		}
	}
	return store, graph
}

func balance(t *testing.T, store *ledgertest.Store, userID int64) decimal.Decimal {
	t.Helper()
	b, err := store.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b.UpgradeWallet
}

func TestPlan(t *testing.T) {
	t.Run("amount is price times percentage", func(t *testing.T) {
		plan := Plan(decimal.NewFromInt(5000), pcts("10", "5", "2.5"), []int64{9, 8, 7})

		require.Len(t, plan, 3)
		assert.Equal(t, "500", plan[0].Amount.String())
		assert.Equal(t, "250", plan[1].Amount.String())
		assert.Equal(t, "125", plan[2].Amount.String())
		assert.Equal(t, 3, plan[2].Level)
	})

	t.Run("stops at schedule end", func(t *testing.T) {
		plan := Plan(decimal.NewFromInt(1000), pcts("10"), []int64{9, 8, 7})

		require.Len(t, plan, 1)
		assert.Equal(t, int64(9), plan[0].AncestorID)
	})

	t.Run("zero entries are skipped", func(t *testing.T) {
		plan := Plan(decimal.NewFromInt(1000), pcts("10", "0", "3"), []int64{9, 8, 7})

		require.Len(t, plan, 2)
		assert.Equal(t, int64(7), plan[1].AncestorID)
		assert.Equal(t, 3, plan[1].Level)
	})

	t.Run("fractional amounts round to paise", func(t *testing.T) {
		plan := Plan(decimal.NewFromInt(999), pcts("2.5", "0.333"), []int64{9, 8})

		require.Len(t, plan, 2)
		// 24.975 округляется от нуля
		assert.Equal(t, "24.98", plan[0].Amount.String())
		assert.Equal(t, "3.33", plan[1].Amount.String())
	})

	t.Run("sub-paisa credit is dropped", func(t *testing.T) {
		plan := Plan(decimal.NewFromInt(1), pcts("0.1", "10"), []int64{9, 8})

		require.Len(t, plan, 1)
		assert.Equal(t, 2, plan[0].Level)
		assert.Equal(t, "0.1", plan[0].Amount.String())
	})

	t.Run("no upline means no plan", func(t *testing.T) {
		assert.Empty(t, Plan(decimal.NewFromInt(1000), pcts("10"), nil))
	})
}

func TestDistribute_CreditsEachLevel(t *testing.T) {
	store, graph := chainStore(5)
	d := NewDistributor(store, referral.NewWalker(graph), rules())

	got, err := d.Distribute(context.Background(), 5, Snapshot{
		Price:     decimal.NewFromInt(2000),
		Schedule:  pcts("10", "5", "0", "1", "1", "1"),
		Reference: "checkout:abc",
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, balance(t, store, 4).Equal(decimal.NewFromInt(200)))
	assert.True(t, balance(t, store, 3).Equal(decimal.NewFromInt(100)))
	assert.True(t, balance(t, store, 2).IsZero())
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(20)))
	assert.True(t, balance(t, store, 5).IsZero())

	for _, dist := range got {
		assert.True(t, dist.Applied)
		assert.NotZero(t, dist.TransactionID)
	}
	for _, tx := range store.Transactions() {
		assert.Equal(t, ledger.TxLevelIncome, tx.Type)
		assert.Equal(t, ledger.WalletUpgrade, tx.Wallet)
		assert.Equal(t, "checkout:abc", tx.Reference)
	}
}

func TestDistribute_NoSponsor(t *testing.T) {
	store, graph := chainStore(1)
	d := NewDistributor(store, referral.NewWalker(graph), rules())

	got, err := d.Distribute(context.Background(), 1, Snapshot{Price: decimal.NewFromInt(1000), Schedule: pcts("10")})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, store.Transactions())
}

func TestDistribute_DepthBoundedByConfig(t *testing.T) {
	m := new(MockWalker)
	m.On("Upline", mock.Anything, int64(50), 2).Return([]int64{49, 48}, nil)

	store := ledgertest.New()
	store.AddUser(49, decimal.Zero, decimal.Zero)
	store.AddUser(48, decimal.Zero, decimal.Zero)

	r := rules()
	r.MaxDepth = 2
	d := NewDistributor(store, m, r)

	got, err := d.Distribute(context.Background(), 50, Snapshot{Price: decimal.NewFromInt(100), Schedule: pcts("1", "1", "1", "1")})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	m.AssertExpectations(t)
}

func TestDistribute_ScheduleIsCopied(t *testing.T) {
	store, graph := chainStore(2)
	d := NewDistributor(store, referral.NewWalker(graph), rules())

	schedule := pcts("10")
	snap := Snapshot{Price: decimal.NewFromInt(1000), Schedule: schedule}
	got, err := d.Distribute(context.Background(), 2, snap)
	require.NoError(t, err)

	schedule[0] = decimal.NewFromInt(90)
	assert.Equal(t, "100", got[0].Amount.String())
	assert.Equal(t, "10", got[0].Percentage.String())
}

func TestDistribute_PartialFailure(t *testing.T) {
	store, graph := chainStore(4)
	boom := apperr.Storage(errors.New("deadlock detected"))
	store.FailCredit = func(e ledger.Entry) error {
		if e.UserID == 2 {
			return boom
		}
		return nil
	}
	d := NewDistributor(store, referral.NewWalker(graph), rules())

	got, err := d.Distribute(context.Background(), 4, Snapshot{Price: decimal.NewFromInt(1000), Schedule: pcts("10", "5", "2")})

	var partial *PartialDistributionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Applied)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, int64(2), partial.Failed[0].AncestorID)
	assert.ErrorIs(t, err, apperr.ErrStorage)

	require.Len(t, got, 3)
	assert.True(t, got[0].Applied)
	assert.False(t, got[1].Applied)
	assert.True(t, got[2].Applied)

	// успешные начисления не откатываются
	assert.True(t, balance(t, store, 3).Equal(decimal.NewFromInt(100)))
	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(20)))
	assert.True(t, balance(t, store, 2).IsZero())
}

func TestDistribute_WalkErrorAppliesNothing(t *testing.T) {
	m := new(MockWalker)
	m.On("Upline", mock.Anything, int64(5), 1).Return(nil, apperr.Storage(errors.New("timeout")))

	store := ledgertest.New()
	d := NewDistributor(store, m, rules())

	_, err := d.Distribute(context.Background(), 5, Snapshot{Price: decimal.NewFromInt(100), Schedule: pcts("10")})
	assert.ErrorIs(t, err, apperr.ErrStorage)
	assert.Empty(t, store.Transactions())
}

func TestDistribute_Validation(t *testing.T) {
	d := NewDistributor(ledgertest.New(), referral.NewWalker(sponsors{}), rules())

	_, err := d.Distribute(context.Background(), 0, Snapshot{Price: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = d.Distribute(context.Background(), 1, Snapshot{Price: decimal.Zero})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegistrationBonus(t *testing.T) {
	store, graph := chainStore(2)
	d := NewDistributor(store, referral.NewWalker(graph), rules())

	got, err := d.RegistrationBonus(context.Background(), 2, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Applied)

	assert.True(t, balance(t, store, 1).Equal(decimal.NewFromInt(50)))
	txs := store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxReferralBonus, txs[0].Type)
	assert.Equal(t, "registration:2", txs[0].Reference)

	t.Run("no sponsor pays nothing", func(t *testing.T) {
		got, err := d.RegistrationBonus(context.Background(), 1, 0)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("disabled bonus pays nothing", func(t *testing.T) {
		r := rules()
		r.RegistrationBonus = decimal.Zero
		got, err := NewDistributor(store, referral.NewWalker(graph), r).RegistrationBonus(context.Background(), 2, 1)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}
