package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"vip-billing/internal/domain"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/infra/logging"
	"vip-billing/internal/infra/metrics"
	"vip-billing/internal/usecase"
)

const (
	maxWebhookBody  = 64 << 10
	qrpaySigHeader  = "X-Qrpay-Signature"
	webhookTokenArg = "token"
)

type decodeFunc func(r *http.Request, body []byte) (webhookPayload, error)

type webhookHandler struct {
	provider      model.Provider
	secret        string
	signingSecret string // qrpay only, optional
	decode        decodeFunc
	srv           *Server
}

func (s *Server) qrpayWebhook() http.Handler {
	return &webhookHandler{
		provider:      model.ProviderQrpay,
		secret:        s.opts.QrpayWebhookSecret,
		signingSecret: s.opts.QrpaySigningSecret,
		decode:        decodeQrpay,
		srv:           s,
	}
}

func (s *Server) cashinWebhook() http.Handler {
	return &webhookHandler{
		provider: model.ProviderCashin,
		secret:   s.opts.CashinWebhookSecret,
		decode:   decodeCashin,
		srv:      s,
	}
}

func (h *webhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, h.srv.log).With().Str("provider", string(h.provider)).Logger()
	source := "webhook_" + string(h.provider)

	// An unset secret rejects everything rather than accepting everything.
	tok := r.URL.Query().Get(webhookTokenArg)
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(h.secret)) != 1 {
		log.Warn().Msg("webhook rejected: bad token")
		metrics.IncConfirmation(source, "unauthorized")
		writeError(w, &log, domain.ErrAuthentication)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		metrics.IncConfirmation(source, "invalid")
		writeError(w, &log, fmt.Errorf("read body: %v: %w", err, domain.ErrValidation))
		return
	}

	if h.signingSecret != "" && !validSignature(h.signingSecret, body, r.Header.Get(qrpaySigHeader)) {
		log.Warn().Msg("webhook rejected: bad signature")
		metrics.IncConfirmation(source, "unauthorized")
		writeError(w, &log, domain.ErrAuthentication)
		return
	}

	payload, err := h.decode(r, body)
	if err != nil {
		metrics.IncConfirmation(source, "invalid")
		writeError(w, &log, err)
		return
	}
	sig := payload.signal()

	status, known := usecase.Normalize(sig.Provider, sig.NativeStatus)
	if !known {
		metrics.IncUnknownStatus(string(sig.Provider))
		log.Warn().Str("external_id", sig.ExternalID).Str("native_status", sig.NativeStatus).Msg("unrecognized provider status, treating as pending")
	}

	res, err := h.srv.reconciler.Reconcile(ctx, model.Confirmation{
		ExternalChargeID: sig.ExternalID,
		Status:           status,
		Payer:            sig.Payer,
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrNotFound) {
			outcome = "not_found"
		}
		metrics.IncConfirmation(source, outcome)
		writeError(w, &log, err)
		return
	}

	metrics.IncConfirmation(source, string(res.Outcome))
	log.Info().
		Str("external_id", sig.ExternalID).
		Str("status", string(status)).
		Str("outcome", string(res.Outcome)).
		Msg("webhook reconciled")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "outcome": string(res.Outcome)})
}

// validSignature checks a hex HMAC-SHA256 of the raw body.
func validSignature(secret string, body []byte, got string) bool {
	want, err := hex.DecodeString(got)
	if err != nil || len(want) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}
