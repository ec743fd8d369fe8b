package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	pg "wifi-loyalty-portal/internal/infra/db/postgres"
	"wifi-loyalty-portal/internal/infra/encoding"
	"wifi-loyalty-portal/internal/infra/events"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/telegram"
	"wifi-loyalty-portal/internal/usecase"

	"github.com/alexedwards/argon2id"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	schema := flag.String("schema", "", "apply this SQL schema file first (e.g. deploy/postgres/init.sql)")
	adminEmail := flag.String("admin-email", "admin@example.com", "bootstrap admin email")
	premium := flag.Int("premium", 3, "number of anonymous premium_wifi vouchers to print")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if *schema != "" {
		if err := pg.ApplySchemaFile(ctx, pool, *schema); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Printf("applied schema %s\n", *schema)
	}

	notifier, err := telegram.NewAlertNotifier(cfg.Alerts, logger)
	if err != nil {
		log.Fatalf("notifier: %v", err)
	}
	publisher := events.NopPublisher{}
	policy := usecase.PolicyFromConfig(cfg)

	customerRepo := pg.NewCustomerRepo(pool)
	auditUC := usecase.NewAuditUseCase(pg.NewAuditRepo(pool), notifier, publisher, nil, policy, logger)
	authUC := usecase.NewAuthUseCase(pg.NewStaffRepo(pool), auditUC, argon2id.DefaultParams, policy, logger)
	loyaltyUC := usecase.NewLoyaltyUseCase(customerRepo, pg.NewTxManager(pool), auditUC, policy, logger)
	voucherUC := usecase.NewVoucherUseCase(pg.NewVoucherRepo(pool), customerRepo,
		encoding.NewEncoder(cfg.Site.Name, cfg.Vouchers), auditUC, publisher, policy, logger)

	system := model.SystemActor()

	// ---- Admin ----
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "change-me-now"
		fmt.Println("SEED_ADMIN_PASSWORD not set; using the default password, change it after first login")
	}
	admin, err := authUC.CreateStaff(ctx, usecase.NewStaffInput{
		Name:     "Administrator",
		Email:    *adminEmail,
		Password: password,
		Role:     model.StaffRoleAdmin,
	}, system)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		fmt.Printf("admin %s already present. No changes.\n", *adminEmail)
	case err != nil:
		log.Fatalf("create admin: %v", err)
	default:
		fmt.Printf("seeded admin: %s (id=%s)\n", admin.Email, admin.ID)
	}

	// ---- Demo customer ----
	c, err := loyaltyUC.RegisterCustomer(ctx, "Demo Guest", "guest@example.com", "", system)
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		fmt.Println("demo customer already present")
	case err != nil:
		log.Fatalf("create customer: %v", err)
	default:
		v, err := voucherUC.Create(ctx, model.VoucherDraft{
			OwnerID:       &c.ID,
			Type:          model.VoucherTypeLoyaltyReward,
			Title:         "Welcome drink",
			Value:         4,
			ValidityHours: 7 * 24,
		}, system)
		if err != nil {
			log.Fatalf("create welcome voucher: %v", err)
		}
		fmt.Printf("seeded customer: %s (id=%s) welcome=%s\n", c.Email, c.ID, v.Code)
	}

	// ---- Premium WiFi ----
	for i := 0; i < *premium; i++ {
		v, err := voucherUC.Create(ctx, model.VoucherDraft{
			Type:          model.VoucherTypePremiumWiFi,
			Title:         "Premium WiFi day pass",
			ValidityHours: 24,
		}, system)
		if err != nil {
			log.Fatalf("create premium voucher: %v", err)
		}
		fmt.Printf("premium_wifi: %s expires %s\n", v.Code, v.ExpiresAt.Format(time.RFC3339))
	}

	fmt.Println("Seeding complete.")
}
