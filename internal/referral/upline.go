// Package referral walks the sponsor chain above a user.
package referral

import (
	"context"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"
	"github.com/TheAakashSingh/adplaymart-sub001/internal/logger"
)

// SponsorLookup returns the direct sponsor of a user, or 0 for a root user.
type SponsorLookup interface {
	SponsorOf(ctx context.Context, userID int64) (int64, error)
}

type Walker struct {
	lookup SponsorLookup
}

func NewWalker(lookup SponsorLookup) *Walker {
	return &Walker{lookup: lookup}
}

// Upline returns the ancestors of userID nearest first, stopping at a root
// user or after maxDepth hops. A sponsor id seen twice means the graph has
// a cycle; that is logged and the walk ends there.
func (w *Walker) Upline(ctx context.Context, userID int64, maxDepth int) ([]int64, error) {
	if userID <= 0 {
		return nil, apperr.Validation("invalid_user", "user id must be positive")
	}
	if maxDepth <= 0 {
		return []int64{}, nil
	}

	upline := make([]int64, 0, maxDepth)
	seen := map[int64]struct{}{userID: {}}
	current := userID

	for len(upline) < maxDepth {
		sponsor, err := w.lookup.SponsorOf(ctx, current)
		if err != nil {
			return nil, err
		}
		if sponsor == 0 {
			break
		}
		if _, dup := seen[sponsor]; dup {
			logger.Error("Referral cycle detected",
				"user_id", userID,
				"at", current,
				"sponsor_id", sponsor,
				"depth", len(upline),
			)
			break
		}
		seen[sponsor] = struct{}{}
		upline = append(upline, sponsor)
		current = sponsor
	}

	return upline, nil
}
