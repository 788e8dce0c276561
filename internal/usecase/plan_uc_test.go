//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
)

func TestPlanUseCase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture()
	_ = f.plans.Save(ctx, nil, &model.Plan{ID: "a", Name: "VIP Mensal", PriceCents: 4990, DurationDays: 30, Active: true})
	_ = f.plans.Save(ctx, nil, &model.Plan{ID: "b", Name: "Antigo", PriceCents: 990, DurationDays: 7, Active: false})
	uc := NewPlanUseCase(f.plans)

	plans, err := uc.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "a" {
		t.Fatalf("expected only the active plan, got %+v", plans)
	}

	if _, err := uc.Get(ctx, "b"); !errors.Is(err, domain.ErrNotFound) || !errors.Is(err, domain.ErrPlanInactive) {
		t.Errorf("expected inactive plan to be not found, got %v", err)
	}
	if _, err := uc.Get(ctx, ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	got, err := uc.Get(ctx, "a")
	if err != nil || got.PriceCents != 4990 {
		t.Errorf("unexpected Get result: %+v %v", got, err)
	}
}
