package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase re-reads charges whose webhook never arrived. It goes through the
// same reconciler as the receivers, so a late webhook and a sweep cannot both apply.
type SweepUseCase interface {
	// Stale lists pending payments created more than olderThan ago.
	Stale(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error)
	// Refresh asks the issuing gateway for p's status and reconciles the answer.
	Refresh(ctx context.Context, p *model.Payment) *PollResult
}

type sweepUC struct {
	payments   repository.PaymentRepository
	readers    map[string]adapter.ChargeStatusReader
	reconciler ReconcileUseCase
	now        func() time.Time
	log        *zerolog.Logger
}

func NewSweepUseCase(
	payments repository.PaymentRepository,
	reconciler ReconcileUseCase,
	now func() time.Time,
	logger *zerolog.Logger,
	readers ...adapter.ChargeStatusReader,
) *sweepUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "PendingSweep").Logger()
	return &sweepUC{
		payments:   payments,
		readers:    readersByName(readers),
		reconciler: reconciler,
		now:        now,
		log:        &l,
	}
}

func (u *sweepUC) Stale(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error) {
	return u.payments.ListPendingOlderThan(ctx, repository.NoTX, u.now().Add(-olderThan), limit)
}

func (u *sweepUC) Refresh(ctx context.Context, p *model.Payment) *PollResult {
	if p.Status.IsTerminal() {
		return fromPayment(p)
	}
	return refresh(ctx, u.readers, u.reconciler, u.log, p)
}
