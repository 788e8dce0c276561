package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
)

// PollStatus is the only vocabulary the client ever sees.
type PollStatus string

const (
	PollPending      PollStatus = "pending"
	PollPaid         PollStatus = "paid"
	PollNotCompleted PollStatus = "not_completed" // failed/cancelled, no detail exposed
)

type PollResult struct {
	Status PollStatus `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`

	Outcome       Outcome `json:"-"` // empty when no reconciliation ran
	Provider      string  `json:"-"`
	GatewayCalled bool    `json:"-"`
	UnknownStatus bool    `json:"-"`
}

// PollLimiter bounds gateway reads per user. Allow reports whether a new read may proceed.
type PollLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// PollLimits configures PollLimiter usage; a zero Limit disables throttling.
type PollLimits struct {
	Limit  int
	Window time.Duration
}

// Compile-time check
var _ PollUseCase = (*pollUC)(nil)

type PollUseCase interface {
	// Poll checks a payment on demand for its owner. Gateway and persistence failures
	// are absorbed into a pending answer.
	Poll(ctx context.Context, userID, paymentID string) (*PollResult, error)
}

type pollUC struct {
	payments   repository.PaymentRepository
	readers    map[string]adapter.ChargeStatusReader
	reconciler ReconcileUseCase
	limiter    PollLimiter
	limits     PollLimits
	log        *zerolog.Logger
}

// NewPollUseCase wires the poll handler. readers are keyed by Name(); limiter may be nil.
func NewPollUseCase(
	payments repository.PaymentRepository,
	reconciler ReconcileUseCase,
	limiter PollLimiter,
	limits PollLimits,
	logger *zerolog.Logger,
	readers ...adapter.ChargeStatusReader,
) *pollUC {
	l := logger.With().Str("component", "PollHandler").Logger()
	return &pollUC{
		payments:   payments,
		readers:    readersByName(readers),
		reconciler: reconciler,
		limiter:    limiter,
		limits:     limits,
		log:        &l,
	}
}

func (u *pollUC) Poll(ctx context.Context, userID, paymentID string) (*PollResult, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required: %w", domain.ErrValidation)
	}
	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	// Someone else's payment is indistinguishable from a missing one.
	if p.UserID != userID {
		return nil, fmt.Errorf("payment %s: %w", paymentID, domain.ErrNotFound)
	}
	if p.Status.IsTerminal() {
		return fromPayment(p), nil
	}
	if p.ExternalChargeID == "" {
		return &PollResult{Status: PollPending}, nil
	}
	if !u.allow(ctx, userID) {
		u.log.Debug().Str("payment_id", p.ID).Msg("poll throttled; answering from store")
		return fromPayment(p), nil
	}

	return refresh(ctx, u.readers, u.reconciler, u.log, p), nil
}

// refresh reads the charge from the gateway that issued it and feeds the answer to
// the reconciler. Read and reconcile failures leave the payment pending.
func refresh(ctx context.Context, readers map[string]adapter.ChargeStatusReader, reconciler ReconcileUseCase, log *zerolog.Logger, p *model.Payment) *PollResult {
	reader, ok := readers[p.Provider]
	if !ok {
		log.Error().Str("payment_id", p.ID).Str("provider", p.Provider).Msg("no status reader for provider")
		return &PollResult{Status: PollPending}
	}
	st, err := reader.GetChargeStatus(ctx, p.ExternalChargeID)
	if err != nil {
		log.Warn().Err(err).Str("payment_id", p.ID).Str("provider", p.Provider).Msg("gateway status read failed")
		return &PollResult{Status: PollPending, Provider: p.Provider, GatewayCalled: true}
	}

	canonical, known := Normalize(model.Provider(p.Provider), st.NativeStatus)
	if !known {
		log.Warn().Str("provider", p.Provider).Str("status", st.NativeStatus).Msg("unrecognized provider status; treating as pending")
	}
	res, err := reconciler.Reconcile(ctx, model.Confirmation{
		PaymentID: p.ID,
		Status:    canonical,
		Payer:     model.Payer{Name: st.PayerName, Document: st.PayerDocument},
	})
	if err != nil {
		log.Error().Err(err).Str("payment_id", p.ID).Msg("reconcile from gateway read failed")
		return &PollResult{Status: PollPending, Provider: p.Provider, GatewayCalled: true, UnknownStatus: !known}
	}

	out := fromPayment(res.Payment)
	out.Outcome = res.Outcome
	out.Provider = p.Provider
	out.GatewayCalled = true
	out.UnknownStatus = !known
	return out
}

func (u *pollUC) allow(ctx context.Context, userID string) bool {
	if u.limiter == nil || u.limits.Limit <= 0 {
		return true
	}
	ok, err := u.limiter.Allow(ctx, "poll:"+userID, u.limits.Limit, u.limits.Window)
	if err != nil {
		// Limiter outage must not block confirmation.
		u.log.Warn().Err(err).Msg("poll limiter unavailable")
		return true
	}
	return ok
}

func readersByName(readers []adapter.ChargeStatusReader) map[string]adapter.ChargeStatusReader {
	byName := make(map[string]adapter.ChargeStatusReader, len(readers))
	for _, r := range readers {
		byName[r.Name()] = r
	}
	return byName
}

func fromPayment(p *model.Payment) *PollResult {
	switch p.Status {
	case model.PaymentStatusPaid:
		return &PollResult{Status: PollPaid, PaidAt: p.PaidAt}
	case model.PaymentStatusPending:
		return &PollResult{Status: PollPending}
	default:
		return &PollResult{Status: PollNotCompleted}
	}
}
