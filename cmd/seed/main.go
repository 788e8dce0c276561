package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"vip-billing/internal/config"
	"vip-billing/internal/domain/model"
	"vip-billing/internal/infra/api"
	pg "vip-billing/internal/infra/db/postgres"
	"vip-billing/internal/usecase"
)

func main() {
	tokenFor := flag.String("token-for", "", "also print a 24h bearer token for this user id (dev only)")
	admin := flag.Bool("admin", false, "mint the token with the admin role")

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.Connect(ctx, config.DatabaseConfig{URL: cfg.Database.URL, MaxConns: 4})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo)

	// If plans already exist, do nothing
	plans, err := planUC.ListActive(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (id=%s, days=%d, price=%d cents)\n", p.Name, p.ID, p.DurationDays, p.PriceCents)
		}
	} else {
		seed := []struct {
			ID    string
			Name  string
			Days  int
			Price int64
		}{
			{"vip-mensal", "VIP Mensal", 30, 4990},
			{"vip-trimestral", "VIP Trimestral", 90, 12990},
			{"vip-anual", "VIP Anual", 365, 44990},
			{"vip-semanal", "VIP Semanal", 7, 1490},
		}
		for _, s := range seed {
			p, err := model.NewPlan(s.ID, s.Name, s.Price, s.Days)
			if err != nil {
				log.Fatalf("plan %q: %v", s.Name, err)
			}
			if err := planRepo.Save(ctx, nil, p); err != nil {
				log.Fatalf("save plan %q: %v", s.Name, err)
			}
			fmt.Printf("seeded: %s (id=%s, days=%d, price=%d cents)\n", p.Name, p.ID, p.DurationDays, p.PriceCents)
		}
		fmt.Println("Seeding complete.")
	}

	if *tokenFor != "" {
		if !cfg.Runtime.Dev {
			log.Fatal("-token-for requires -dev")
		}
		auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AdminRole, nil)
		tok, err := auth.Mint(*tokenFor, *admin, 24*time.Hour)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Printf("Authorization: Bearer %s\n", tok)
	}
}
