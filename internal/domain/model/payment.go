package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // charge created at the gateway; awaiting confirmation
	PaymentStatusPaid      PaymentStatus = "paid"      // confirmed by webhook or poll
	PaymentStatusFailed    PaymentStatus = "failed"    // provider reported failure or expiry
	PaymentStatusCancelled PaymentStatus = "cancelled" // cancelled outside the confirmation path
	PaymentStatusRefunded  PaymentStatus = "refunded"  // admin transition, never written here
)

// IsTerminal reports whether the confirmation path must leave the payment alone.
func (s PaymentStatus) IsTerminal() bool { return s != PaymentStatusPending }

const PaymentMethodPix = "pix"

// Payment records a single gateway charge and its lifecycle.
type Payment struct {
	ID               string // UUID
	UserID           string
	SubscriptionID   string // paired subscription, fixed at creation
	Provider         string // gateway that issued the charge, e.g. "qrpay"
	ExternalChargeID string // gateway charge id; unique when non-empty
	Amount           int64  // minor units
	Status           PaymentStatus
	Method           string
	Payer            Payer // gateway-supplied on confirmation; untrusted
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Payer is display data reported by the gateway at confirmation time.
type Payer struct {
	Name     string
	Document string
}

func (p Payer) IsZero() bool { return p.Name == "" && p.Document == "" }

// RenderablePayload is what the client shows the payer: a copy-paste code and a QR image.
type RenderablePayload struct {
	Code        string `json:"code"`
	ImageBase64 string `json:"image_base64,omitempty"`
}
