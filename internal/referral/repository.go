package referral

import (
	"context"
	"database/sql"
	"errors"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository reads sponsor links from users.sponsor_id, one indexed
// lookup per hop.
func NewRepository(db *sqlx.DB) SponsorLookup {
	return &repository{db: db}
}

func (r *repository) SponsorOf(ctx context.Context, userID int64) (int64, error) {
	var sponsor sql.NullInt64
	err := r.db.GetContext(ctx, &sponsor, `SELECT sponsor_id FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.ErrUserNotFound
		}
		return 0, apperr.Storage(err)
	}
	if !sponsor.Valid {
		return 0, nil
	}
	return sponsor.Int64, nil
}
