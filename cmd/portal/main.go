// File: cmd/portal/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wifi-loyalty-portal/internal/config"
	pg "wifi-loyalty-portal/internal/infra/db/postgres"
	"wifi-loyalty-portal/internal/infra/encoding"
	"wifi-loyalty-portal/internal/infra/events"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/mail"
	"wifi-loyalty-portal/internal/infra/metrics"
	red "wifi-loyalty-portal/internal/infra/redis"
	"wifi-loyalty-portal/internal/infra/sched"
	"wifi-loyalty-portal/internal/infra/telegram"
	"wifi-loyalty-portal/internal/infra/web"
	"wifi-loyalty-portal/internal/infra/worker"
	"wifi-loyalty-portal/internal/usecase"

	"github.com/alexedwards/argon2id"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister(cfg.Site.ID)
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("site", cfg.Site.ID).Bool("dev", cfg.Runtime.Dev).Msg("starting portal")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional: rate limiting + job leases) ----
	var (
		limiter web.Limiter
		locker  sched.Locker
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		limiter = red.NewRateLimiter(rc)
		locker = red.NewLocker(rc)
	} else {
		logger.Warn().Msg("redis.url not set; rate limiting and job leases disabled")
	}

	// ---- Outbound adapters ----
	notifier, err := telegram.NewAlertNotifier(cfg.Alerts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("alert notifier")
	}
	publisher, err := events.NewPublisher(cfg.Events.NATSURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats")
	}
	defer publisher.Close()
	encoder := encoding.NewEncoder(cfg.Site.Name, cfg.Vouchers)
	mailer := mail.NewMailer(cfg.Mail, cfg.Site.Name, logger)

	// alert fan-out and customer mail
	background := worker.NewPool(cfg.Alerts.Workers, logger)
	background.Start(ctx)
	defer background.Stop()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	voucherRepo := pg.NewVoucherRepo(pool)
	customerRepo := pg.NewCustomerRepo(pool)
	staffRepo := pg.NewStaffRepo(pool)
	auditRepo := pg.NewAuditRepo(pool)

	// ---- Use cases ----
	policy := usecase.PolicyFromConfig(cfg)
	auditUC := usecase.NewAuditUseCase(auditRepo, notifier, publisher, background, policy, logger)
	voucherUC := usecase.NewVoucherUseCase(voucherRepo, customerRepo, encoder, auditUC, publisher, policy, logger).
		WithMailer(mailer, background)
	loyaltyUC := usecase.NewLoyaltyUseCase(customerRepo, tm, auditUC, policy, logger).
		WithMailer(mailer, background)
	redemptionUC := usecase.NewRedemptionUseCase(voucherRepo, voucherUC, loyaltyUC, auditUC, publisher, policy, logger)
	staffUC := usecase.NewStaffUseCase(staffRepo, voucherUC, tm, auditUC, policy, logger)
	authUC := usecase.NewAuthUseCase(staffRepo, auditUC, argon2id.DefaultParams, policy, logger)

	// ---- HTTP ----
	tokens := web.NewAuthManager(cfg.Auth.JWTSecret, !cfg.Runtime.Dev, cfg.Auth.TokenTTL)
	server := web.NewServer(web.Deps{
		Auth:       authUC,
		Vouchers:   voucherUC,
		Redemption: redemptionUC,
		Loyalty:    loyaltyUC,
		Staff:      staffUC,
		Audit:      auditUC,
		Health:     pool.Ping,
	}, tokens, limiter, cfg, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Schedulers ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpirySweepInterval, voucherUC, locker, logger)
	go func() { _ = expiry.Run(ctx) }()

	stats := sched.NewStatsPoller(cfg.Scheduler.PoolStatsInterval, pool, voucherUC, logger)
	go func() { _ = stats.Run(ctx) }()

	retention := sched.NewRetentionJob(cfg.Scheduler.RetentionCron, cfg.Audit.RetentionDays, cfg.Site.Location, auditUC, locker, logger)
	if err := retention.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("retention job")
	}
	defer retention.Stop()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info().Str("signal", s.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	background.Stop() // flush queued alerts and mail before cancelling their context
	cancel()
}
