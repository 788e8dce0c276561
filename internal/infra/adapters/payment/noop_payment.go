package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for dev mode. Charges stay pending
// until MarkPaid or MarkFailed is called.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	charges map[string]string // external id -> native status
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{
		charges: make(map[string]string),
	}
}

func (g *NoopPaymentGateway) Name() string { return string(model.ProviderNoop) }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreateCharge(ctx context.Context, amount int64, callbackURL string) (adapter.Charge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.charges[id] = "pending"
	code := fmt.Sprintf("00020126NOOP%s5204000053039865406%d", id, amount)
	return adapter.Charge{
		ExternalID:   id,
		Payload:      model.RenderablePayload{Code: code, ImageBase64: base64.StdEncoding.EncodeToString([]byte(code))},
		NativeStatus: "pending",
	}, nil
}

func (g *NoopPaymentGateway) GetChargeStatus(ctx context.Context, externalID string) (adapter.ChargeStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.charges[externalID]
	if !ok {
		return adapter.ChargeStatus{}, fmt.Errorf("noop: charge %s not found", externalID)
	}
	return adapter.ChargeStatus{NativeStatus: st}, nil
}

func (g *NoopPaymentGateway) MarkPaid(externalID string)   { g.set(externalID, "paid") }
func (g *NoopPaymentGateway) MarkFailed(externalID string) { g.set(externalID, "failed") }

func (g *NoopPaymentGateway) set(externalID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.charges[externalID]; ok {
		g.charges[externalID] = status
	}
}
