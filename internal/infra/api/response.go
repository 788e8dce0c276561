package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"vip-billing/internal/domain"
)

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and answers without leaking internals.
func writeError(w http.ResponseWriter, log *zerolog.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Retryable: domain.IsRetryable(err)}
	switch status {
	case http.StatusBadRequest:
		body.Error = err.Error()
	case http.StatusUnauthorized:
		body.Error = "unauthorized"
	case http.StatusForbidden:
		body.Error = "forbidden"
	case http.StatusNotFound:
		body.Error = "not found"
	case http.StatusBadGateway:
		body.Error = "payment provider unavailable, try again"
		log.Warn().Err(err).Msg("gateway failure")
	default:
		body.Error = "internal error"
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, body)
}
