package usecase

import (
	"context"
	"time"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

type EntitlementUseCase interface {
	Resolve(ctx context.Context, userID string, admin bool) (*model.Entitlement, error)
}

type entitlementUC struct {
	subs repository.SubscriptionRepository
	now  func() time.Time
}

func NewEntitlementUseCase(subs repository.SubscriptionRepository, now func() time.Time) *entitlementUC {
	if now == nil {
		now = time.Now
	}
	return &entitlementUC{subs: subs, now: now}
}

func (u *entitlementUC) Resolve(ctx context.Context, userID string, admin bool) (*model.Entitlement, error) {
	if admin {
		e := ResolveEntitlement(nil, true, u.now())
		return &e, nil
	}
	subs, err := u.subs.ListActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	e := ResolveEntitlement(subs, false, u.now())
	return &e, nil
}

// ResolveEntitlement picks the live subscription expiring last and classifies renewal urgency.
// It has no side effects.
func ResolveEntitlement(subs []*model.Subscription, admin bool, now time.Time) model.Entitlement {
	if admin {
		return model.Entitlement{Entitled: true, Admin: true, Urgency: model.UrgencySafe}
	}
	var governing *model.Subscription
	for _, s := range subs {
		if !s.IsLive(now) {
			continue
		}
		if governing == nil || s.ExpiresAt.After(*governing.ExpiresAt) {
			governing = s
		}
	}
	if governing == nil {
		return model.Entitlement{Entitled: false, Urgency: model.UrgencyCritical}
	}
	days := model.DaysRemaining(*governing.ExpiresAt, now)
	return model.Entitlement{
		Entitled:      true,
		Governing:     governing,
		DaysRemaining: days,
		Urgency:       model.ClassifyUrgency(days),
	}
}
