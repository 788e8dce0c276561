package model

// CanonicalStatus is the provider-agnostic outcome of a confirmation signal.
type CanonicalStatus string

const (
	CanonicalPending CanonicalStatus = "pending"
	CanonicalPaid    CanonicalStatus = "paid"
	CanonicalFailed  CanonicalStatus = "failed"
)

// Provider identifies a gateway's vocabulary and payload shape.
type Provider string

const (
	ProviderQrpay  Provider = "qrpay"
	ProviderCashin Provider = "cashin"
	ProviderNoop   Provider = "noop"
)

// Confirmation is a normalized signal handed to the reconciler.
// Exactly one of ExternalChargeID or PaymentID identifies the payment.
type Confirmation struct {
	ExternalChargeID string
	PaymentID        string
	Status           CanonicalStatus
	Payer            Payer
}
