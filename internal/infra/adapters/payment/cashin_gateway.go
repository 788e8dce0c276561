package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vip-billing/internal/domain/model"
	"vip-billing/internal/domain/ports/adapter"
)

var _ adapter.ChargeStatusReader = (*CashinStatusClient)(nil)

// CashinStatusClient reads transaction status from CashIn. Charges are never created here;
// rows with provider "cashin" come from the CashIn checkout.
type CashinStatusClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewCashinStatusClient(baseURL, clientID, clientSecret string, timeout time.Duration) (*CashinStatusClient, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("cashin client credentials empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid cashin base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CashinStatusClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (c *CashinStatusClient) Name() string { return string(model.ProviderCashin) }

// GetChargeStatus calls GET /v2/transactions/{idTransaction}.
func (c *CashinStatusClient) GetChargeStatus(ctx context.Context, externalID string) (adapter.ChargeStatus, error) {
	if externalID == "" {
		return adapter.ChargeStatus{}, errors.New("cashin: transaction id empty")
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/v2/transactions/"+url.PathEscape(externalID), nil)
	if err != nil {
		return adapter.ChargeStatus{}, err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)

	var out struct {
		IDTransaction     string `json:"idTransaction"`
		StatusTransaction string `json:"statusTransaction"`
		PayerName         string `json:"payerName"`
		PayerDocument     string `json:"payerDocument"`
	}
	if err := doJSON(ctx, c.client, c.Name(), "status", req, &out); err != nil {
		return adapter.ChargeStatus{}, err
	}
	if out.IDTransaction != "" && out.IDTransaction != externalID {
		return adapter.ChargeStatus{}, fmt.Errorf("cashin status: transaction mismatch %q != %q", out.IDTransaction, externalID)
	}
	return adapter.ChargeStatus{
		NativeStatus:  out.StatusTransaction,
		PayerName:     out.PayerName,
		PayerDocument: out.PayerDocument,
	}, nil
}
