package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the use cases served over HTTP. Health may be nil.
type Deps struct {
	Auth       usecase.AuthUseCase
	Vouchers   usecase.VoucherUseCase
	Redemption usecase.RedemptionUseCase
	Loyalty    usecase.LoyaltyUseCase
	Staff      usecase.StaffUseCase
	Audit      usecase.AuditUseCase
	Health     func(ctx context.Context) error
}

type Server struct {
	deps    Deps
	tokens  *AuthManager
	limiter Limiter
	cfg     *config.Config
	log     *zerolog.Logger
	srv     *http.Server
}

// NewServer wires the router. limiter may be nil when Redis is not configured.
func NewServer(deps Deps, tokens *AuthManager, limiter Limiter, cfg *config.Config, logger *zerolog.Logger) *Server {
	s := &Server{deps: deps, tokens: tokens, limiter: limiter, cfg: cfg, log: logger}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	auth := s.cfg.Auth

	r := chi.NewRouter()
	r.Use(middleware.RealIP, TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.cfg.HTTP.RequestTimeout))

		r.With(RateLimit(s.limiter, "login", auth.LoginLimit, auth.RateLimitWin, s.log)).
			Post("/auth/login", s.handleLogin)
		r.With(RateLimit(s.limiter, "signup", auth.LoginLimit, auth.RateLimitWin, s.log)).
			Post("/customers", s.handleRegisterCustomer)

		r.Group(func(r chi.Router) {
			r.Use(RequireStaff(s.tokens, model.StaffRoleStaff))

			r.Get("/customers/{id}", s.handleGetCustomer)
			r.Post("/customers/{id}/visits", s.handleRecordVisit)
			r.Get("/customers/{id}/vouchers", s.handleListCustomerVouchers)

			r.Post("/vouchers", s.handleCreateVoucher)
			r.With(RateLimit(s.limiter, "redeem", auth.RedeemLimit, auth.RateLimitWin, s.log)).
				Post("/vouchers/redeem", s.handleRedeem)
			// {voucher} is the code on lookups and the id on status changes
			r.Get("/vouchers/{voucher}", s.handleLookupVoucher)
			r.Get("/vouchers/{voucher}/qr.png", s.handleVoucherImage(imageQR))
			r.Get("/vouchers/{voucher}/barcode.png", s.handleVoucherImage(imageBarcode))

			r.Post("/staff/{id}/wifi-voucher", s.handleIssueStaffVoucher)

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff(s.tokens, model.StaffRoleManager))
				r.Patch("/vouchers/{voucher}/status", s.handleSetVoucherStatus)
				r.Post("/staff/{id}/daily-limit/reset", s.handleResetDailyLimit)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireStaff(s.tokens, model.StaffRoleAdmin))
				r.Post("/staff", s.handleCreateStaff)
				r.Get("/audit", s.handleAuditQuery)
				r.Post("/audit/cleanup", s.handleAuditCleanup)
				r.Get("/security/report", s.handleSecurityReport)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found", "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "method_not_allowed")
	})
	return r
}

// Start serves until Shutdown. It returns nil on a clean shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
