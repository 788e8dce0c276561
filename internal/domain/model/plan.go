package model

import (
	"time"

	"vip-billing/internal/domain"
)

// Plan is a purchasable VIP plan. Price is in minor currency units (centavos).
type Plan struct {
	ID           string
	Name         string
	PriceCents   int64
	DurationDays int
	Active       bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Duration is the entitlement window a single confirmed payment grants.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name string, priceCents int64, durationDays int) (*Plan, error) {
	if id == "" || name == "" || durationDays <= 0 || priceCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		PriceCents:   priceCents,
		DurationDays: durationDays,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
