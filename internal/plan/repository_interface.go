package plan

import "context"

type Repository interface {
	ListActive(ctx context.Context) ([]Package, error)
	FindByID(ctx context.Context, id int64) (*Package, error)
	Create(ctx context.Context, p Package) (*Package, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
