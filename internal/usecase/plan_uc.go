package usecase

import (
	"context"
	"fmt"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	// Get returns a plan that exists and is active.
	Get(ctx context.Context, id string) (*model.Plan, error)
	// ListActive returns purchasable plans for presentation.
	ListActive(ctx context.Context) ([]*model.Plan, error)
}

type planUC struct {
	plans repository.PlanRepository
}

func NewPlanUseCase(plans repository.PlanRepository) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	if id == "" {
		return nil, fmt.Errorf("plan id is required: %w", domain.ErrValidation)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("plan %s: %w: %w", id, domain.ErrPlanInactive, domain.ErrNotFound)
	}
	return plan, nil
}

func (u *planUC) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListActive(ctx, repository.NoTX)
}
