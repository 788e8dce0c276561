package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vip-billing/internal/usecase"
)

type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration

	QrpayWebhookSecret  string
	QrpaySigningSecret  string
	CashinWebhookSecret string
	WebhookRPS          float64
	WebhookBurst        int

	// GatewayName labels charge metrics.
	GatewayName string

	// Simulator, when set, exposes /dev/charges for settling noop charges by hand.
	Simulator ChargeSimulator
}

// ChargeSimulator settles charges held by the in-memory dev gateway.
type ChargeSimulator interface {
	MarkPaid(externalID string)
	MarkFailed(externalID string)
}

// Server exposes the API, the webhook receivers and the operational endpoints.
type Server struct {
	charges      usecase.ChargeUseCase
	polls        usecase.PollUseCase
	reconciler   usecase.ReconcileUseCase
	entitlements usecase.EntitlementUseCase
	plans        usecase.PlanUseCase
	auth         *Authenticator
	opts         Options
	checks       []HealthCheck
	log          *zerolog.Logger
}

func NewServer(
	charges usecase.ChargeUseCase,
	polls usecase.PollUseCase,
	reconciler usecase.ReconcileUseCase,
	entitlements usecase.EntitlementUseCase,
	plans usecase.PlanUseCase,
	auth *Authenticator,
	opts Options,
	logger *zerolog.Logger,
	checks ...HealthCheck,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.WebhookRPS <= 0 {
		opts.WebhookRPS = 20
	}
	if opts.WebhookBurst <= 0 {
		opts.WebhookBurst = 40
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		charges:      charges,
		polls:        polls,
		reconciler:   reconciler,
		entitlements: entitlements,
		plans:        plans,
		auth:         auth,
		opts:         opts,
		checks:       checks,
		log:          &l,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	limiter := NewIPRateLimiter(s.opts.WebhookRPS, s.opts.WebhookBurst)
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Method(http.MethodPost, "/qrpay", s.qrpayWebhook())
		r.Method(http.MethodPost, "/cashin", s.cashinWebhook())
	})

	if s.opts.Simulator != nil {
		r.Post("/dev/charges/{external_id}/{outcome}", s.simulateCharge)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", traceHeader},
			ExposedHeaders:   []string{traceHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(Timeout(s.opts.RequestTimeout))

		r.Get("/plans", s.listPlans)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/charges", s.createCharge)
			r.Get("/payments/{id}/status", s.pollPayment)
			r.Get("/me/entitlement", s.entitlement)
		})
	})
	return r
}
