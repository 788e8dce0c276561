// File: internal/infra/adapters/payment/qrpay_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*QrpayGateway)(nil)

// QrpayGateway issues Pix charges through the QRPay REST API and reads their status.
type QrpayGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewQrpayGateway(baseURL, apiKey string, timeout time.Duration) (*QrpayGateway, error) {
	if apiKey == "" {
		return nil, errors.New("qrpay api key empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid qrpay base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &QrpayGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (g *QrpayGateway) Name() string { return string(model.ProviderQrpay) }

type qrpayCharge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Pix    struct {
		Code        string `json:"qr_code"`
		ImageBase64 string `json:"qr_code_base64"`
	} `json:"pix"`
	Payer struct {
		Name     string `json:"name"`
		Document string `json:"document"`
	} `json:"payer"`
}

// CreateCharge calls POST /v1/charges for amount minor units.
func (g *QrpayGateway) CreateCharge(ctx context.Context, amount int64, callbackURL string) (adapter.Charge, error) {
	if amount <= 0 {
		return adapter.Charge{}, fmt.Errorf("qrpay: amount must be positive, got %d", amount)
	}
	b, _ := json.Marshal(map[string]any{
		"amount":       amount,
		"method":       model.PaymentMethodPix,
		"callback_url": callbackURL,
	})
	req, err := http.NewRequest(http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(b))
	if err != nil {
		return adapter.Charge{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	var out qrpayCharge
	if err := doJSON(ctx, g.client, g.Name(), "create", req, &out); err != nil {
		return adapter.Charge{}, err
	}
	if out.ID == "" || out.Pix.Code == "" {
		return adapter.Charge{}, errors.New("qrpay create: response missing charge id or pix code")
	}
	return adapter.Charge{
		ExternalID:   out.ID,
		Payload:      model.RenderablePayload{Code: out.Pix.Code, ImageBase64: out.Pix.ImageBase64},
		NativeStatus: out.Status,
	}, nil
}

// GetChargeStatus calls GET /v1/charges/{id}.
func (g *QrpayGateway) GetChargeStatus(ctx context.Context, externalID string) (adapter.ChargeStatus, error) {
	if externalID == "" {
		return adapter.ChargeStatus{}, errors.New("qrpay: external id empty")
	}
	req, err := http.NewRequest(http.MethodGet, g.baseURL+"/v1/charges/"+url.PathEscape(externalID), nil)
	if err != nil {
		return adapter.ChargeStatus{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	var out qrpayCharge
	if err := doJSON(ctx, g.client, g.Name(), "status", req, &out); err != nil {
		return adapter.ChargeStatus{}, err
	}
	return adapter.ChargeStatus{
		NativeStatus:  out.Status,
		PayerName:     out.Payer.Name,
		PayerDocument: out.Payer.Document,
	}, nil
}
