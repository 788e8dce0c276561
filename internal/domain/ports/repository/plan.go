package repository

import (
	"context"

	"vip-billing/internal/domain/model"
)

// PlanRepository is a read-only port; plans are managed outside this service
// except for the seeder.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
