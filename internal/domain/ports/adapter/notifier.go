package adapter

import (
	"context"

	"vip-billing/internal/domain/model"
)

// Notifier announces lifecycle events to operators. Implementations are best effort.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, p *model.Payment, s *model.Subscription) error
}
