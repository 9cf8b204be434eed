package user

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, u NewUser) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByReferralCode(ctx context.Context, code string) (*User, error)
	Exists(ctx context.Context, id int64, email string) (bool, error)
	FindHolding(ctx context.Context, userID int64) (*PackageHolding, error)
	ActivatePackage(ctx context.Context, userID, packageID int64, at time.Time) error
}
