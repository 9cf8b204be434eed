package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSponsorLookup is a mock implementation of SponsorLookup
type MockSponsorLookup struct {
	mock.Mock
}

func (m *MockSponsorLookup) SponsorOf(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// chain maps user -> sponsor; missing keys are roots.
type chain map[int64]int64

func (c chain) SponsorOf(_ context.Context, userID int64) (int64, error) {
	return c[userID], nil
}

func TestUpline(t *testing.T) {
	// 5 -> 4 -> 3 -> 2 -> 1 (root)
	graph := chain{5: 4, 4: 3, 3: 2, 2: 1}

	tests := []struct {
		name     string
		userID   int64
		maxDepth int
		want     []int64
	}{
		{"full chain to root", 5, 10, []int64{4, 3, 2, 1}},
		{"bounded by depth", 5, 2, []int64{4, 3}},
		{"root user", 1, 10, []int64{}},
		{"zero depth", 5, 0, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWalker(graph).Upline(context.Background(), tt.userID, tt.maxDepth)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpline_CycleStopsWalk(t *testing.T) {
	// 3 -> 2 -> 1 -> 2 ...
	graph := chain{3: 2, 2: 1, 1: 2}

	got, err := NewWalker(graph).Upline(context.Background(), 3, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, got)
}

func TestUpline_SelfSponsored(t *testing.T) {
	got, err := NewWalker(chain{7: 7}).Upline(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpline_NeverExceedsMaxDepthLookups(t *testing.T) {
	m := new(MockSponsorLookup)
	m.On("SponsorOf", mock.Anything, int64(100)).Return(int64(99), nil).Once()
	m.On("SponsorOf", mock.Anything, int64(99)).Return(int64(98), nil).Once()
	m.On("SponsorOf", mock.Anything, int64(98)).Return(int64(97), nil).Once()

	got, err := NewWalker(m).Upline(context.Background(), 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 98, 97}, got)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "SponsorOf", 3)
}

func TestUpline_LookupError(t *testing.T) {
	m := new(MockSponsorLookup)
	m.On("SponsorOf", mock.Anything, int64(5)).Return(int64(4), nil)
	m.On("SponsorOf", mock.Anything, int64(4)).Return(int64(0), apperr.Storage(errors.New("timeout")))

	_, err := NewWalker(m).Upline(context.Background(), 5, 10)
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestUpline_InvalidUser(t *testing.T) {
	_, err := NewWalker(chain{}).Upline(context.Background(), 0, 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
