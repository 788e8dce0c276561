// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"vip-billing/internal/config"
	"vip-billing/internal/domain/ports/adapter"
	"vip-billing/internal/domain/ports/repository"
	payAdapters "vip-billing/internal/infra/adapters/payment"
	"vip-billing/internal/infra/api"
	pg "vip-billing/internal/infra/db/postgres"
	"vip-billing/internal/infra/logging"
	"vip-billing/internal/infra/metrics"
	red "vip-billing/internal/infra/redis"
	"vip-billing/internal/infra/sched"
	"vip-billing/internal/infra/security"
	"vip-billing/internal/infra/telegram"
	"vip-billing/internal/infra/worker"
	"vip-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("DEV MODE enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Encryption (optional) ----
	var cipher pg.DocumentCipher
	if cfg.Security.EncryptionKey != "" {
		encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
		if err != nil {
			logger.Fatal().Err(err).Msg("encryption")
		}
		cipher = encSvc
	} else {
		logger.Warn().Msg("security.encryption_key not set; payer documents stored in clear")
	}

	// ---- Repositories ----
	var planRepo repository.PlanRepository = pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	payRepo := pg.NewPaymentRepo(pool, cipher)

	checks := []api.HealthCheck{{
		Name: "postgres",
		Ping: func(ctx context.Context) error {
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			return pool.Ping(ctx)
		},
	}}

	// ---- Redis (optional) ----
	var pollLimiter usecase.PollLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL, logger)
		pollLimiter = red.NewRateLimiter(redisClient)
		checks = append(checks, api.HealthCheck{Name: "redis", Ping: redisClient.Ping})
	} else {
		logger.Info().Msg("redis not configured; plan cache and poll throttling disabled")
	}

	// ---- Gateways ----
	var (
		gateway   adapter.PaymentGateway
		simulator api.ChargeSimulator
	)
	if cfg.UseNoopGateway() {
		noop := payAdapters.NewNoopPaymentGateway()
		gateway, simulator = noop, noop
		logger.Warn().Msg("payment gateway: noop (dev)")
	} else {
		qr, err := payAdapters.NewQrpayGateway(cfg.Payment.Qrpay.BaseURL, cfg.Payment.Qrpay.APIKey, cfg.Payment.Qrpay.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("qrpay gateway")
		}
		gateway = qr
	}
	readers := []adapter.ChargeStatusReader{gateway}
	if c := cfg.Payment.Cashin; c.BaseURL != "" {
		cashin, err := payAdapters.NewCashinStatusClient(c.BaseURL, c.ClientID, c.ClientSecret, c.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("cashin client")
		}
		readers = append(readers, cashin)
	}

	// ---- Notifier ----
	var notifier adapter.Notifier = telegram.NoopNotifier{}
	if cfg.Telegram.Token != "" {
		n, err := telegram.NewActivationNotifier(cfg.Telegram, cfg.Runtime.Dev, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			notifier = n
		}
	}

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo)
	reconcileUC := usecase.NewReconcileUseCase(payRepo, subRepo, planRepo, tm, notifier, time.Now, logger)
	chargeUC := usecase.NewChargeUseCase(planUC, payRepo, subRepo, tm, gateway, callbackURL(cfg), time.Now, logger)
	pollUC := usecase.NewPollUseCase(payRepo, reconcileUC, pollLimiter, usecase.PollLimits{
		Limit:  cfg.Payment.PollLimit,
		Window: cfg.Payment.PollWindow,
	}, logger, readers...)
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, time.Now)

	// ---- Pending sweeper ----
	if cfg.Sweep.Enabled {
		workers := worker.NewPool(cfg.Sweep.Workers, logger)
		workers.Start(ctx)
		defer workers.Stop()
		sweepUC := usecase.NewSweepUseCase(payRepo, reconcileUC, time.Now, logger, readers...)
		sweeper := sched.NewPendingSweeper(sweepUC, workers, cfg.Sweep.Interval, cfg.Sweep.StaleAfter, cfg.Sweep.Batch, logger)
		go sweeper.Start(ctx)
	}

	// ---- HTTP ----
	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AdminRole, logger)
	srv := api.NewServer(chargeUC, pollUC, reconcileUC, entitlementUC, planUC, auth, api.Options{
		CORSOrigins:         cfg.HTTP.CORSOrigins,
		RequestTimeout:      cfg.HTTP.RequestTimeout,
		QrpayWebhookSecret:  cfg.Payment.Qrpay.WebhookSecret,
		QrpaySigningSecret:  cfg.Payment.Qrpay.SigningSecret,
		CashinWebhookSecret: cfg.Payment.Cashin.WebhookSecret,
		WebhookRPS:          cfg.Webhook.RPS,
		WebhookBurst:        cfg.Webhook.Burst,
		GatewayName:         gateway.Name(),
		Simulator:           simulator,
	}, logger, checks...)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("gateway", gateway.Name()).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdown(server, logger)
}

func shutdown(server *http.Server, logger *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// callbackURL is where qrpay posts charge updates; the token authenticates them.
func callbackURL(cfg *config.Config) string {
	base := strings.TrimRight(cfg.HTTP.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	}
	return base + "/webhooks/qrpay?token=" + url.QueryEscape(cfg.Payment.Qrpay.WebhookSecret)
}
