package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
)

var validate = validator.New()

// signal is the provider-neutral part of an inbound webhook body.
type signal struct {
	Provider     model.Provider
	ExternalID   string
	NativeStatus string
	Payer        model.Payer
}

type webhookPayload interface {
	signal() signal
}

type qrpayWebhook struct {
	Event string `json:"event"`
	Data  struct {
		ID     string `json:"id" validate:"required,max=128"`
		Status string `json:"status" validate:"required,max=64"`
		Payer  struct {
			Name     string `json:"name" validate:"max=256"`
			Document string `json:"document" validate:"max=64"`
		} `json:"payer"`
	} `json:"data"`
}

func (q *qrpayWebhook) signal() signal {
	return signal{
		Provider:     model.ProviderQrpay,
		ExternalID:   q.Data.ID,
		NativeStatus: q.Data.Status,
		Payer:        model.Payer{Name: q.Data.Payer.Name, Document: q.Data.Payer.Document},
	}
}

// cashinWebhook arrives either as JSON or as a url-encoded form with the same keys.
type cashinWebhook struct {
	IDTransaction     string `json:"idTransaction" validate:"required,max=128"`
	StatusTransaction string `json:"statusTransaction" validate:"required,max=64"`
	PayerName         string `json:"payerName" validate:"max=256"`
	PayerDocument     string `json:"payerDocument" validate:"max=64"`
}

func (c *cashinWebhook) signal() signal {
	return signal{
		Provider:     model.ProviderCashin,
		ExternalID:   c.IDTransaction,
		NativeStatus: c.StatusTransaction,
		Payer:        model.Payer{Name: c.PayerName, Document: c.PayerDocument},
	}
}

func decodeQrpay(r *http.Request, body []byte) (webhookPayload, error) {
	var p qrpayWebhook
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed qrpay payload: %w", domain.ErrValidation)
	}
	return &p, checkStruct(&p)
}

func decodeCashin(r *http.Request, body []byte) (webhookPayload, error) {
	var p cashinWebhook
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		form, err := parseForm(body)
		if err != nil {
			return nil, fmt.Errorf("malformed cashin form: %w", domain.ErrValidation)
		}
		p = cashinWebhook{
			IDTransaction:     form.Get("idTransaction"),
			StatusTransaction: form.Get("statusTransaction"),
			PayerName:         form.Get("payerName"),
			PayerDocument:     form.Get("payerDocument"),
		}
	} else if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("malformed cashin payload: %w", domain.ErrValidation)
	}
	return &p, checkStruct(&p)
}

func checkStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrValidation)
	}
	return nil
}

type createChargeRequest struct {
	PlanID string `json:"plan_id" validate:"required,max=64"`
}
