package repository

import (
	"context"
	"time"

	"vip-billing/internal/domain/model"
)

// SubscriptionRepository is the port for user subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// ListActiveByUser returns every row with stored status 'active'; expiry is
	// evaluated by the caller.
	ListActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)

	// ActivateIfPending sets status, starts_at and expires_at only while the row is pending.
	ActivateIfPending(ctx context.Context, tx Tx, id string, startsAt, expiresAt time.Time) (bool, error)
	// CancelIfPending moves a pending row to cancelled.
	CancelIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}
