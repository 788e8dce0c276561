package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vip-billing/internal/domain"
	"vip-billing/internal/infra/logging"
	"vip-billing/internal/infra/metrics"
)

const maxJSONBody = 16 << 10

func (s *Server) createCharge(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	p, _ := PrincipalFrom(r.Context())

	var req createChargeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, log, fmt.Errorf("invalid body: %w", domain.ErrValidation))
		return
	}
	if err := checkStruct(&req); err != nil {
		writeError(w, log, err)
		return
	}

	intent, err := s.charges.Create(r.Context(), p.UserID, req.PlanID)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrGateway) {
			result = "gateway_error"
		}
		metrics.IncChargeCreated(s.opts.GatewayName, result)
		writeError(w, log, err)
		return
	}
	metrics.IncChargeCreated(s.opts.GatewayName, "ok")
	writeJSON(w, http.StatusCreated, intent)
}

func (s *Server) pollPayment(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	p, _ := PrincipalFrom(r.Context())

	res, err := s.polls.Poll(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, log, err)
		return
	}
	if res.UnknownStatus {
		metrics.IncUnknownStatus(res.Provider)
	}
	if res.Outcome != "" {
		metrics.IncConfirmation("poll", string(res.Outcome))
	}
	writeJSON(w, http.StatusOK, res)
}

type entitlementResponse struct {
	Entitled       bool       `json:"entitled"`
	Admin          bool       `json:"admin"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	DaysRemaining  *int       `json:"days_remaining,omitempty"`
	Urgency        string     `json:"urgency,omitempty"`
}

func (s *Server) entitlement(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	p, _ := PrincipalFrom(r.Context())

	ent, err := s.entitlements.Resolve(r.Context(), p.UserID, p.Admin)
	if err != nil {
		writeError(w, log, err)
		return
	}
	resp := entitlementResponse{Entitled: ent.Entitled, Admin: ent.Admin}
	if sub := ent.Governing; sub != nil {
		days := ent.DaysRemaining
		resp.SubscriptionID = sub.ID
		resp.ExpiresAt = sub.ExpiresAt
		resp.DaysRemaining = &days
		resp.Urgency = string(ent.Urgency)
	}
	writeJSON(w, http.StatusOK, resp)
}

type planResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DurationDays int    `json:"duration_days"`
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListActive(r.Context())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, planResponse{ID: p.ID, Name: p.Name, PriceCents: p.PriceCents, DurationDays: p.DurationDays})
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			deps[c.Name] = "down"
			status = http.StatusServiceUnavailable
			s.log.Warn().Err(err).Str("dependency", c.Name).Msg("health check failed")
			continue
		}
		deps[c.Name] = "ok"
	}
	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "dependencies": deps})
}


// simulateCharge flips a dev gateway charge; the next poll picks the change up.
func (s *Server) simulateCharge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "external_id")
	switch chi.URLParam(r, "outcome") {
	case "paid":
		s.opts.Simulator.MarkPaid(id)
	case "failed":
		s.opts.Simulator.MarkFailed(id)
	default:
		writeError(w, s.log, fmt.Errorf("outcome must be paid or failed: %w", domain.ErrValidation))
		return
	}
	s.log.Info().Str("external_id", id).Str("outcome", chi.URLParam(r, "outcome")).Msg("dev charge settled")
	w.WriteHeader(http.StatusNoContent)
}
