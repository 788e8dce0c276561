package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vip-billing/internal/infra/metrics"
	"vip-billing/internal/infra/worker"
	"vip-billing/internal/usecase"
)

// PendingSweeper periodically re-reads stale pending charges at their gateway.
// This covers webhooks that never arrived and clients that stopped polling.
type PendingSweeper struct {
	uc         usecase.SweepUseCase
	pool       *worker.Pool
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	batch      int
	log        *zerolog.Logger
}

func NewPendingSweeper(uc usecase.SweepUseCase, pool *worker.Pool, interval, staleAfter time.Duration, batch int, logger *zerolog.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batch <= 0 {
		batch = 200
	}
	l := logger.With().Str("component", "PendingSweeper").Logger()
	return &PendingSweeper{uc: uc, pool: pool, interval: interval, staleAfter: staleAfter, batch: batch, log: &l}
}

// Start blocks until ctx is cancelled.
func (w *PendingSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	w.log.Info().Dur("interval", w.interval).Dur("stale_after", w.staleAfter).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("sweeper stopped")
			return
		case <-t.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one sweep and waits for its gateway reads to finish.
func (w *PendingSweeper) Tick(ctx context.Context) int {
	pending, err := w.uc.Stale(ctx, w.staleAfter, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending payments failed")
		return 0
	}
	submitted := 0
	for _, p := range pending {
		p := p
		err := w.pool.Submit(func(ctx context.Context) error {
			res := w.uc.Refresh(ctx, p)
			if res.UnknownStatus {
				metrics.IncUnknownStatus(res.Provider)
			}
			if res.Outcome != "" {
				metrics.IncConfirmation("sweep", string(res.Outcome))
			}
			if res.Outcome == usecase.OutcomeApplied {
				w.log.Info().Str("payment_id", p.ID).Str("status", string(res.Status)).Msg("reconciled stale payment")
			}
			return nil
		})
		if err != nil {
			// the rest is picked up on the next tick
			w.log.Warn().Err(err).Int("remaining", len(pending)-submitted).Msg("sweep batch truncated")
			break
		}
		submitted++
	}
	w.pool.Wait()
	return submitted
}
