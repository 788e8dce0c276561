package adapter

import (
	"context"

	"vip-billing/internal/domain/model"
)

// Charge is the gateway's answer to a create-charge request.
type Charge struct {
	ExternalID   string
	Payload      model.RenderablePayload
	NativeStatus string
}

// ChargeStatus is the gateway's current view of a charge. Payer fields are optional.
type ChargeStatus struct {
	NativeStatus  string
	PayerName     string
	PayerDocument string
}

// ChargeStatusReader queries a charge's current status at the provider.
type ChargeStatusReader interface {
	Name() string
	GetChargeStatus(ctx context.Context, externalID string) (ChargeStatus, error)
}

// PaymentGateway is the hex port for the provider that issues charges.
type PaymentGateway interface {
	ChargeStatusReader

	// CreateCharge registers a charge for amount (minor units) and returns its
	// external id and the payload the payer scans. Non-success responses are errors.
	CreateCharge(ctx context.Context, amount int64, callbackURL string) (Charge, error)
}
