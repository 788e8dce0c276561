package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
)

// ChargeIntent is returned to the client session and passed back explicitly when polling.
type ChargeIntent struct {
	PaymentID      string                  `json:"payment_id"`
	SubscriptionID string                  `json:"subscription_id"`
	Payload        model.RenderablePayload `json:"payload"`
	Amount         int64                   `json:"amount"`
	Status         model.PaymentStatus     `json:"status"`
}

// Compile-time check
var _ ChargeUseCase = (*chargeUC)(nil)

type ChargeUseCase interface {
	// Create issues one gateway charge for the plan price and persists the pending
	// payment/subscription pair. Concurrent intents for the same plan are not deduplicated.
	Create(ctx context.Context, userID, planID string) (*ChargeIntent, error)
}

type chargeUC struct {
	plans       PlanUseCase
	payments    repository.PaymentRepository
	subs        repository.SubscriptionRepository
	tm          repository.TransactionManager
	gateway     adapter.PaymentGateway
	callbackURL string
	now         func() time.Time
	log         *zerolog.Logger
}

func NewChargeUseCase(
	plans PlanUseCase,
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	callbackURL string,
	now func() time.Time,
	logger *zerolog.Logger,
) *chargeUC {
	if now == nil {
		now = time.Now
	}
	l := logger.With().Str("component", "ChargeIntentCreator").Logger()
	return &chargeUC{
		plans:       plans,
		payments:    payments,
		subs:        subs,
		tm:          tm,
		gateway:     gateway,
		callbackURL: callbackURL,
		now:         now,
		log:         &l,
	}
}

func (u *chargeUC) Create(ctx context.Context, userID, planID string) (*ChargeIntent, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}
	plan, err := u.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}

	// Single outbound call; the caller retries by creating a fresh intent.
	charge, err := u.gateway.CreateCharge(ctx, plan.PriceCents, u.callbackURL)
	if err != nil {
		u.log.Error().Err(err).Str("plan_id", plan.ID).Msg("gateway create charge failed")
		return nil, fmt.Errorf("create charge: %w: %v", domain.ErrGateway, err)
	}
	if charge.ExternalID == "" {
		return nil, fmt.Errorf("create charge: %w: empty external id", domain.ErrGateway)
	}

	now := u.now()
	sub, err := model.NewPendingSubscription(uuid.NewString(), userID, plan, now)
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		ID:               uuid.NewString(),
		UserID:           userID,
		SubscriptionID:   sub.ID,
		Provider:         u.gateway.Name(),
		ExternalChargeID: charge.ExternalID,
		Amount:           plan.PriceCents,
		Status:           model.PaymentStatusPending,
		Method:           model.PaymentMethodPix,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		return u.payments.Save(ctx, tx, p)
	})
	if err != nil {
		// The gateway charge is orphaned; it can never confirm anything here.
		u.log.Error().Err(err).Str("external_id", charge.ExternalID).Msg("persist charge intent failed")
		return nil, persistenceErr("persist charge intent", err)
	}

	u.log.Info().
		Str("payment_id", p.ID).
		Str("subscription_id", sub.ID).
		Str("plan_id", plan.ID).
		Int64("amount", p.Amount).
		Msg("charge intent created")

	return &ChargeIntent{
		PaymentID:      p.ID,
		SubscriptionID: sub.ID,
		Payload:        charge.Payload,
		Amount:         p.Amount,
		Status:         p.Status,
	}, nil
}
