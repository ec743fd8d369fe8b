//go:build !integration

package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/usecase"
)

var errNotMocked = errors.New("not mocked")

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.Port = 0
	cfg.HTTP.RequestTimeout = 5 * time.Second
	cfg.Auth.LoginLimit = 3
	cfg.Auth.RedeemLimit = 3
	cfg.Auth.RateLimitWin = time.Minute
	cfg.Audit.RetentionDays = 90
	return cfg
}

const testSecret = "test-staff-jwt-secret-please-change"

// -----------------------------
// Use case mocks
// -----------------------------

type MockAuthUC struct {
	LoginFunc       func(ctx context.Context, email, password, origin string) (*model.Staff, error)
	CreateStaffFunc func(ctx context.Context, in usecase.NewStaffInput, actor model.Actor) (*model.Staff, error)
}

func (m *MockAuthUC) Login(ctx context.Context, email, password, origin string) (*model.Staff, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, origin)
	}
	return nil, errNotMocked
}

func (m *MockAuthUC) CreateStaff(ctx context.Context, in usecase.NewStaffInput, actor model.Actor) (*model.Staff, error) {
	if m.CreateStaffFunc != nil {
		return m.CreateStaffFunc(ctx, in, actor)
	}
	return nil, errNotMocked
}

type MockVoucherUC struct {
	usecase.VoucherUseCase // unused methods panic

	CreateFunc      func(ctx context.Context, d model.VoucherDraft, actor model.Actor) (*model.Voucher, error)
	LookupFunc      func(ctx context.Context, code string) (*model.Voucher, error)
	ListByOwnerFunc func(ctx context.Context, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error)
	SetStatusFunc   func(ctx context.Context, id string, status model.VoucherStatus, actor model.Actor) (*model.Voucher, error)
}

func (m *MockVoucherUC) Create(ctx context.Context, d model.VoucherDraft, actor model.Actor) (*model.Voucher, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, d, actor)
	}
	return nil, errNotMocked
}

func (m *MockVoucherUC) Lookup(ctx context.Context, code string) (*model.Voucher, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, code)
	}
	return nil, errNotMocked
}

func (m *MockVoucherUC) ListByOwner(ctx context.Context, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID, status)
	}
	return nil, errNotMocked
}

func (m *MockVoucherUC) SetStatus(ctx context.Context, id string, status model.VoucherStatus, actor model.Actor) (*model.Voucher, error) {
	if m.SetStatusFunc != nil {
		return m.SetStatusFunc(ctx, id, status, actor)
	}
	return nil, errNotMocked
}

type MockRedemptionUC struct {
	RedeemFunc        func(ctx context.Context, code string, actor model.Actor) (*usecase.RedeemResult, error)
	CompleteVisitFunc func(ctx context.Context, customerID string) (*usecase.VisitOutcome, error)
}

func (m *MockRedemptionUC) CompleteVisit(ctx context.Context, customerID string) (*usecase.VisitOutcome, error) {
	if m.CompleteVisitFunc != nil {
		return m.CompleteVisitFunc(ctx, customerID)
	}
	return nil, errNotMocked
}

func (m *MockRedemptionUC) Redeem(ctx context.Context, code string, actor model.Actor) (*usecase.RedeemResult, error) {
	if m.RedeemFunc != nil {
		return m.RedeemFunc(ctx, code, actor)
	}
	return nil, errNotMocked
}

type MockLoyaltyUC struct {
	RegisterCustomerFunc func(ctx context.Context, name, email, phone string, actor model.Actor) (*model.Customer, error)
	GetCustomerFunc      func(ctx context.Context, id string) (*model.Customer, error)
	RecordVisitFunc      func(ctx context.Context, customerID string) (*usecase.VisitResult, error)
}

func (m *MockLoyaltyUC) RegisterCustomer(ctx context.Context, name, email, phone string, actor model.Actor) (*model.Customer, error) {
	if m.RegisterCustomerFunc != nil {
		return m.RegisterCustomerFunc(ctx, name, email, phone, actor)
	}
	return nil, errNotMocked
}

func (m *MockLoyaltyUC) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if m.GetCustomerFunc != nil {
		return m.GetCustomerFunc(ctx, id)
	}
	return nil, errNotMocked
}

func (m *MockLoyaltyUC) RecordVisit(ctx context.Context, customerID string) (*usecase.VisitResult, error) {
	if m.RecordVisitFunc != nil {
		return m.RecordVisitFunc(ctx, customerID)
	}
	return nil, errNotMocked
}

type MockStaffUC struct {
	IssueStaffVoucherFunc  func(ctx context.Context, staffID string, actor model.Actor) (*model.Voucher, error)
	OverrideDailyLimitFunc func(ctx context.Context, staffID, managerID, reason, origin string) error
}

func (m *MockStaffUC) GetStaff(context.Context, string) (*model.Staff, error) {
	return nil, errNotMocked
}

func (m *MockStaffUC) IssueStaffVoucher(ctx context.Context, staffID string, actor model.Actor) (*model.Voucher, error) {
	if m.IssueStaffVoucherFunc != nil {
		return m.IssueStaffVoucherFunc(ctx, staffID, actor)
	}
	return nil, errNotMocked
}

func (m *MockStaffUC) OverrideDailyLimit(ctx context.Context, staffID, managerID, reason, origin string) error {
	if m.OverrideDailyLimitFunc != nil {
		return m.OverrideDailyLimitFunc(ctx, staffID, managerID, reason, origin)
	}
	return errNotMocked
}

type MockAuditUC struct {
	usecase.AuditUseCase // Record is not used by the handlers

	QueryFunc          func(ctx context.Context, f model.AuditFilter, page, limit int) ([]*model.AuditEvent, model.Pagination, error)
	SecurityReportFunc func(ctx context.Context, days int) (*model.SecurityReport, error)
	CleanupFunc        func(ctx context.Context, retentionDays int, actor model.Actor) (int64, error)
}

func (m *MockAuditUC) Query(ctx context.Context, f model.AuditFilter, page, limit int) ([]*model.AuditEvent, model.Pagination, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, f, page, limit)
	}
	return nil, model.Pagination{}, errNotMocked
}

func (m *MockAuditUC) SecurityReport(ctx context.Context, days int) (*model.SecurityReport, error) {
	if m.SecurityReportFunc != nil {
		return m.SecurityReportFunc(ctx, days)
	}
	return nil, errNotMocked
}

func (m *MockAuditUC) Cleanup(ctx context.Context, retentionDays int, actor model.Actor) (int64, error) {
	if m.CleanupFunc != nil {
		return m.CleanupFunc(ctx, retentionDays, actor)
	}
	return 0, errNotMocked
}

// MockLimiter allows the first N calls per key.
type MockLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Keys      []string
}

func (m *MockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.Keys = append(m.Keys, key)
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, nil
}

// -----------------------------
// Harness
// -----------------------------

type harness struct {
	auth       *MockAuthUC
	vouchers   *MockVoucherUC
	redemption *MockRedemptionUC
	loyalty    *MockLoyaltyUC
	staff      *MockStaffUC
	audit      *MockAuditUC
	limiter    *MockLimiter
	tokens     *AuthManager
	handler    http.Handler
}

func newHarness() *harness {
	h := &harness{
		auth:       &MockAuthUC{},
		vouchers:   &MockVoucherUC{},
		redemption: &MockRedemptionUC{},
		loyalty:    &MockLoyaltyUC{},
		staff:      &MockStaffUC{},
		audit:      &MockAuditUC{},
		limiter:    &MockLimiter{},
		tokens:     NewAuthManager(testSecret, false, time.Hour),
	}
	srv := NewServer(Deps{
		Auth:       h.auth,
		Vouchers:   h.vouchers,
		Redemption: h.redemption,
		Loyalty:    h.loyalty,
		Staff:      h.staff,
		Audit:      h.audit,
	}, h.tokens, h.limiter, testConfig(), newTestLogger())
	h.handler = srv.Router()
	return h
}

func (h *harness) token(t *testing.T, id string, role model.StaffRole) string {
	t.Helper()
	tok, _, err := h.tokens.Mint(nil, &model.Staff{ID: id, Role: role})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tok
}

// do sends a request; an empty token sends none.
func (h *harness) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "10.0.0.7:51234"
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func sampleVoucher() *model.Voucher {
	owner := "3b1f8a52-6a43-4f8e-9d3e-0c9f2a7b1e10"
	return &model.Voucher{
		ID:         "v-1",
		Code:       "LR7F3A9C21",
		Type:       model.VoucherTypeLoyaltyReward,
		Title:      "Free coffee",
		OwnerID:    &owner,
		Status:     model.VoucherStatusActive,
		ExpiresAt:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		QRPNG:      []byte("\x89PNG-qr"),
		BarcodePNG: []byte("\x89PNG-bar"),
	}
}
