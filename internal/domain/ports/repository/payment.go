package repository

import (
	"context"
	"time"

	"vip-billing/internal/domain/model"
)

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Payment, error)

	// MarkPaidIfPending flips pending -> paid and records paidAt and payer.
	// It returns false when the row was no longer pending at write time.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, paidAt time.Time, payer model.Payer) (bool, error)
	// MarkFailedIfPending flips pending -> failed under the same guard.
	MarkFailedIfPending(ctx context.Context, tx Tx, id string) (bool, error)

	// ListPendingOlderThan returns pending payments with an external charge id
	// created before cutoff, oldest first.
	ListPendingOlderThan(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Payment, error)
}
