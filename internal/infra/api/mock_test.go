//go:build !integration

package api

import (
	"context"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/usecase"
)

type mockCharges struct {
	CreateFunc func(ctx context.Context, userID, planID string) (*usecase.ChargeIntent, error)
}

func (m *mockCharges) Create(ctx context.Context, userID, planID string) (*usecase.ChargeIntent, error) {
	return m.CreateFunc(ctx, userID, planID)
}

type mockPolls struct {
	PollFunc func(ctx context.Context, userID, paymentID string) (*usecase.PollResult, error)
}

func (m *mockPolls) Poll(ctx context.Context, userID, paymentID string) (*usecase.PollResult, error) {
	return m.PollFunc(ctx, userID, paymentID)
}

type mockReconciler struct {
	calls         []model.Confirmation
	ReconcileFunc func(ctx context.Context, c model.Confirmation) (*usecase.ReconcileResult, error)
}

func (m *mockReconciler) Reconcile(ctx context.Context, c model.Confirmation) (*usecase.ReconcileResult, error) {
	m.calls = append(m.calls, c)
	if m.ReconcileFunc == nil {
		return &usecase.ReconcileResult{Outcome: usecase.OutcomeApplied}, nil
	}
	return m.ReconcileFunc(ctx, c)
}

type mockEntitlements struct {
	ResolveFunc func(ctx context.Context, userID string, admin bool) (*model.Entitlement, error)
}

func (m *mockEntitlements) Resolve(ctx context.Context, userID string, admin bool) (*model.Entitlement, error) {
	return m.ResolveFunc(ctx, userID, admin)
}

type mockPlans struct {
	plans []*model.Plan
	err   error
}

func (m *mockPlans) Get(ctx context.Context, id string) (*model.Plan, error) {
	for _, p := range m.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, m.err
}

func (m *mockPlans) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return m.plans, m.err
}
