package model

import (
	"time"

	"vip-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired" // derived on read, never stored by this service
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the entitlement paired 1:1 with the payment that created it.
type Subscription struct {
	ID        string // UUID
	UserID    string
	PlanID    string
	Status    SubscriptionStatus
	StartsAt  *time.Time // nil until activated
	ExpiresAt *time.Time // set exactly once at activation
	CreatedAt time.Time
}

// NewPendingSubscription creates the pending half of a charge intent.
func NewPendingSubscription(id, userID string, plan *Plan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    SubscriptionStatusPending,
		CreatedAt: now,
	}, nil
}

// EffectiveStatus evaluates expiry lazily against now.
func (s *Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s.Status == SubscriptionStatusActive && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return SubscriptionStatusExpired
	}
	return s.Status
}

// IsLive reports an active subscription whose window has not closed.
func (s *Subscription) IsLive(now time.Time) bool {
	return s.EffectiveStatus(now) == SubscriptionStatusActive && s.ExpiresAt != nil
}

// ActivationWindow returns the [start, expiry) window for a confirmation at now.
func ActivationWindow(now time.Time, plan *Plan) (time.Time, time.Time) {
	return now, now.Add(plan.Duration())
}
