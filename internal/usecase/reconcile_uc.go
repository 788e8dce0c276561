package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
)

// Outcome describes what a reconciliation did to persisted state.
type Outcome string

const (
	OutcomeApplied Outcome = "applied" // this call performed the transition
	OutcomeNoop    Outcome = "noop"    // payment already terminal or a concurrent caller won
	OutcomePending Outcome = "pending" // signal carried no decision yet
)

// ReconcileResult is the persisted state after reconciliation, re-read from the store.
type ReconcileResult struct {
	Outcome      Outcome
	Payment      *model.Payment
	Subscription *model.Subscription
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase is the single state-transition entry point shared by webhooks and polls.
type ReconcileUseCase interface {
	Reconcile(ctx context.Context, c model.Confirmation) (*ReconcileResult, error)
}

type reconcileUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	tm       repository.TransactionManager
	notifier adapter.Notifier
	now      func() time.Time
	log      *zerolog.Logger
}

// NewReconcileUseCase wires the reconciler. notifier and now may be nil.
func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	now func() time.Time,
	logger *zerolog.Logger,
) *reconcileUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "Reconciler").Logger()
	return &reconcileUC{
		payments: payments,
		subs:     subs,
		plans:    plans,
		tm:       tm,
		notifier: notifier,
		now:      now,
		log:      &l,
	}
}

func (u *reconcileUC) Reconcile(ctx context.Context, c model.Confirmation) (*ReconcileResult, error) {
	p, err := u.lookup(ctx, c)
	if err != nil {
		return nil, err
	}

	// A terminal payment is never revisited, whatever the incoming signal says.
	if p.Status.IsTerminal() {
		return u.result(ctx, OutcomeNoop, p)
	}

	switch c.Status {
	case model.CanonicalPaid:
		return u.applyPaid(ctx, p, c.Payer)
	case model.CanonicalFailed:
		return u.applyFailed(ctx, p)
	default:
		return u.result(ctx, OutcomePending, p)
	}
}

func (u *reconcileUC) lookup(ctx context.Context, c model.Confirmation) (*model.Payment, error) {
	switch {
	case c.ExternalChargeID != "":
		return u.payments.FindByExternalID(ctx, repository.NoTX, c.ExternalChargeID)
	case c.PaymentID != "":
		return u.payments.FindByID(ctx, repository.NoTX, c.PaymentID)
	default:
		return nil, fmt.Errorf("confirmation without charge reference: %w", domain.ErrValidation)
	}
}

func (u *reconcileUC) applyPaid(ctx context.Context, p *model.Payment, payer model.Payer) (*ReconcileResult, error) {
	sub, err := u.subs.FindByID(ctx, repository.NoTX, p.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("subscription for payment %s: %w", p.ID, err)
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("plan for subscription %s: %w", sub.ID, err)
	}

	now := u.now()
	startsAt, expiresAt := model.ActivationWindow(now, plan)

	var paymentWon, subWon bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		paymentWon, err = u.payments.MarkPaidIfPending(ctx, tx, p.ID, now, payer)
		if err != nil || !paymentWon {
			return err
		}
		subWon, err = u.subs.ActivateIfPending(ctx, tx, sub.ID, startsAt, expiresAt)
		return err
	})
	if err != nil {
		return nil, persistenceErr("activate payment "+p.ID, err)
	}

	if !paymentWon {
		u.log.Debug().Str("payment_id", p.ID).Msg("paid confirmation lost the race; already settled")
		return u.result(ctx, OutcomeNoop, p)
	}
	if !subWon {
		// Payment is paid; the subscription was moved by someone else (admin path).
		u.log.Warn().Str("payment_id", p.ID).Str("subscription_id", sub.ID).Msg("subscription no longer pending at activation")
	}

	res, err := u.result(ctx, OutcomeApplied, p)
	if err != nil {
		return nil, err
	}
	u.log.Info().
		Str("payment_id", p.ID).
		Str("subscription_id", sub.ID).
		Time("expires_at", expiresAt).
		Msg("subscription activated")
	if subWon {
		u.notify(ctx, res)
	}
	return res, nil
}

func (u *reconcileUC) applyFailed(ctx context.Context, p *model.Payment) (*ReconcileResult, error) {
	var won bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		var err error
		won, err = u.payments.MarkFailedIfPending(ctx, tx, p.ID)
		if err != nil || !won {
			return err
		}
		_, err = u.subs.CancelIfPending(ctx, tx, p.SubscriptionID)
		return err
	})
	if err != nil {
		return nil, persistenceErr("fail payment "+p.ID, err)
	}
	if !won {
		return u.result(ctx, OutcomeNoop, p)
	}
	u.log.Info().Str("payment_id", p.ID).Msg("payment failed; subscription cancelled")
	return u.result(ctx, OutcomeApplied, p)
}

// result re-reads both rows so every caller, winner or loser, reports the same final state.
func (u *reconcileUC) result(ctx context.Context, outcome Outcome, p *model.Payment) (*ReconcileResult, error) {
	fresh, err := u.payments.FindByID(ctx, repository.NoTX, p.ID)
	if err != nil {
		return nil, persistenceErr("reload payment "+p.ID, err)
	}
	res := &ReconcileResult{Outcome: outcome, Payment: fresh}
	if fresh.SubscriptionID != "" {
		sub, err := u.subs.FindByID(ctx, repository.NoTX, fresh.SubscriptionID)
		if err != nil {
			return nil, persistenceErr("reload subscription "+fresh.SubscriptionID, err)
		}
		res.Subscription = sub
	}
	return res, nil
}

func (u *reconcileUC) notify(ctx context.Context, res *ReconcileResult) {
	if u.notifier == nil || res.Subscription == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := u.notifier.SubscriptionActivated(nctx, res.Payment, res.Subscription); err != nil {
		u.log.Warn().Err(err).Str("payment_id", res.Payment.ID).Msg("activation notification failed")
	}
}

func persistenceErr(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistence, err)
}
