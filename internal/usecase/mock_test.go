//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/worker"
	"wifi-loyalty-portal/internal/usecase"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// fakeClock is a settable clock shared by the policy and the tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testPolicy(clock *fakeClock) usecase.Policy {
	p := usecase.DefaultPolicy()
	p.SiteName = "Test Cafe"
	p.Location = time.UTC
	p.TierRewardValue = 5
	p.Now = clock.Now
	return p
}

func strPtr(s string) *string { return &s }

var seq int64

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Repositories
// =============================

// ---- Vouchers ----

type MockVoucherRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Voucher

	CreateFunc func(ctx context.Context, tx repository.Tx, v *model.Voucher) error
}

var _ repository.VoucherRepository = (*MockVoucherRepo)(nil)

func NewMockVoucherRepo() *MockVoucherRepo {
	return &MockVoucherRepo{byID: make(map[string]*model.Voucher)}
}

func (m *MockVoucherRepo) Create(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, tx, v); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Code == v.Code {
			return domain.ErrDuplicateCode
		}
	}
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *MockVoucherRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *MockVoucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.byID {
		if v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockVoucherRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Voucher
	for _, v := range m.byID {
		if v.OwnerID == nil || *v.OwnerID != ownerID {
			continue
		}
		if status != nil && v.Status != *status {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockVoucherRepo) TransitionToRedeemed(ctx context.Context, tx repository.Tx, id, redeemerID string, now time.Time) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := v.CheckRedeemable(now); err != nil {
		return nil, err
	}
	v.Status = model.VoucherStatusRedeemed
	at := now
	v.RedeemedAt = &at
	if redeemerID != "" {
		v.RedeemedBy = strPtr(redeemerID)
	}
	cp := *v
	return &cp, nil
}

func (m *MockVoucherRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.VoucherStatus) (model.VoucherStatus, *model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return "", nil, domain.ErrNotFound
	}
	if v.Status == model.VoucherStatusRedeemed {
		return "", nil, domain.ErrInvalidTransition
	}
	prev := v.Status
	v.Status = status
	cp := *v
	return prev, &cp, nil
}

func (m *MockVoucherRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.byID {
		if v.Status == model.VoucherStatusActive && !now.Before(v.ExpiresAt) {
			v.Status = model.VoucherStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MockVoucherRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.VoucherStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.VoucherStatus]int)
	for _, v := range m.byID {
		out[v.Status]++
	}
	return out, nil
}

func (m *MockVoucherRepo) All() []*model.Voucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Voucher, 0, len(m.byID))
	for _, v := range m.byID {
		cp := *v
		out = append(out, &cp)
	}
	return out
}

// ---- Customers ----

type MockCustomerRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Customer

	IncrementVisitFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) (int, model.Tier, error)
}

var _ repository.CustomerRepository = (*MockCustomerRepo)(nil)

func NewMockCustomerRepo() *MockCustomerRepo {
	return &MockCustomerRepo{byID: make(map[string]*model.Customer)}
}

func (m *MockCustomerRepo) Save(ctx context.Context, tx repository.Tx, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == c.Email && existing.ID != c.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *MockCustomerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCustomerRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCustomerRepo) IncrementVisit(ctx context.Context, tx repository.Tx, id string, at time.Time) (int, model.Tier, error) {
	if m.IncrementVisitFunc != nil {
		return m.IncrementVisitFunc(ctx, tx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return 0, "", domain.ErrNotFound
	}
	c.VisitCount++
	t := at
	c.LastVisitAt = &t
	return c.VisitCount, c.LoyaltyTier, nil
}

func (m *MockCustomerRepo) SetTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.LoyaltyTier = tier
	return nil
}

// ---- Staff ----

type MockStaffRepo struct {
	mu     sync.Mutex
	byID   map[string]*model.Staff
	Claims int
}

var _ repository.StaffRepository = (*MockStaffRepo)(nil)

func NewMockStaffRepo() *MockStaffRepo {
	return &MockStaffRepo{byID: make(map[string]*model.Staff)}
}

func (m *MockStaffRepo) Save(ctx context.Context, tx repository.Tx, s *model.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == s.Email && existing.ID != s.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *MockStaffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockStaffRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockStaffRepo) ClaimDailyVoucher(ctx context.Context, tx repository.Tx, id string, today time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Claims++
	s, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.DailyLimitReached(today) {
		return false, nil
	}
	d := today
	s.DailyVoucherUsed = true
	s.LastVoucherDate = &d
	return true, nil
}

func (m *MockStaffRepo) ResetDailyVoucher(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.DailyVoucherUsed = false
	return nil
}

// ---- Audit ----

type MockAuditRepo struct {
	mu     sync.Mutex
	events []*model.AuditEvent

	AppendFunc func(ctx context.Context, tx repository.Tx, ev *model.AuditEvent) error
}

var _ repository.AuditRepository = (*MockAuditRepo)(nil)

func NewMockAuditRepo() *MockAuditRepo { return &MockAuditRepo{} }

func (m *MockAuditRepo) Append(ctx context.Context, tx repository.Tx, ev *model.AuditEvent) error {
	if m.AppendFunc != nil {
		if err := m.AppendFunc(ctx, tx, ev); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.events = append(m.events, &cp)
	return nil
}

func matches(ev *model.AuditEvent, f model.AuditFilter) bool {
	if f.ActorKind != "" && ev.ActorKind != f.ActorKind {
		return false
	}
	if f.ActorID != "" && (ev.ActorID == nil || *ev.ActorID != f.ActorID) {
		return false
	}
	if f.Action != "" && ev.Action != f.Action {
		return false
	}
	if f.Resource != "" && (ev.Resource == nil || *ev.Resource != f.Resource) {
		return false
	}
	if f.Origin != "" && (ev.Origin == nil || *ev.Origin != f.Origin) {
		return false
	}
	if f.From != nil && ev.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !ev.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (m *MockAuditRepo) Query(ctx context.Context, tx repository.Tx, f model.AuditFilter, offset, limit int) ([]*model.AuditEvent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []*model.AuditEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if matches(m.events[i], f) {
			hits = append(hits, m.events[i])
		}
	}
	total := len(hits)
	if offset >= total {
		return []*model.AuditEvent{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return hits[offset:end], total, nil
}

func (m *MockAuditRepo) CountByOriginSince(ctx context.Context, tx repository.Tx, action, origin string, since time.Time) (int, error) {
	return m.countWhere(func(ev *model.AuditEvent) bool {
		return ev.Action == action && ev.Origin != nil && *ev.Origin == origin && !ev.CreatedAt.Before(since)
	}), nil
}

func (m *MockAuditRepo) CountByDetailSince(ctx context.Context, tx repository.Tx, action, key, value string, since time.Time) (int, error) {
	return m.countWhere(func(ev *model.AuditEvent) bool {
		return ev.Action == action && ev.Details.GetString(key) == value && !ev.CreatedAt.Before(since)
	}), nil
}

func (m *MockAuditRepo) AlertExistsSince(ctx context.Context, tx repository.Tx, alertType, subject string, since time.Time) (bool, error) {
	return m.countWhere(func(ev *model.AuditEvent) bool {
		return ev.Action == model.ActionSecurityAlert &&
			ev.Details.GetString("alert_type") == alertType &&
			ev.Details.GetString("subject") == subject &&
			!ev.CreatedAt.Before(since)
	}) > 0, nil
}

func (m *MockAuditRepo) CountActionsSince(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range m.events {
		if !ev.CreatedAt.Before(since) {
			out[ev.Action]++
		}
	}
	return out, nil
}

func (m *MockAuditRepo) CountAlertsByTypeSince(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range m.events {
		if ev.Action == model.ActionSecurityAlert && !ev.CreatedAt.Before(since) {
			out[ev.Details.GetString("alert_type")]++
		}
	}
	return out, nil
}

func (m *MockAuditRepo) TopOriginsSince(ctx context.Context, tx repository.Tx, action string, since time.Time, limit int) ([]model.OriginCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, ev := range m.events {
		if ev.Action == action && ev.Origin != nil && !ev.CreatedAt.Before(since) {
			counts[*ev.Origin]++
		}
	}
	out := make([]model.OriginCount, 0, len(counts))
	for o, n := range counts {
		out = append(out, model.OriginCount{Origin: o, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Origin < out[j].Origin
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockAuditRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, ev := range m.events {
		if ev.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return n, nil
}

func (m *MockAuditRepo) countWhere(pred func(ev *model.AuditEvent) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if pred(ev) {
			n++
		}
	}
	return n
}

// ByAction returns stored events for action in insertion order.
func (m *MockAuditRepo) ByAction(action string) []*model.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditEvent
	for _, ev := range m.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// =============================
// Adapters
// =============================

type MockEncoder struct {
	EncodeFunc func(v *model.Voucher) ([]byte, []byte, error)
}

var _ adapter.VoucherEncoder = (*MockEncoder)(nil)

func (m *MockEncoder) Encode(v *model.Voucher) ([]byte, []byte, error) {
	if m.EncodeFunc != nil {
		return m.EncodeFunc(v)
	}
	return []byte("qr:" + v.Code), []byte("bar:" + v.Code), nil
}

type MockNotifier struct {
	mu     sync.Mutex
	Alerts []*model.AuditEvent
}

var _ adapter.AlertNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) NotifyAlert(ctx context.Context, alert *model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

type MockPublisher struct {
	mu       sync.Mutex
	Subjects []string
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, subject string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subjects = append(m.Subjects, subject)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) Count(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type MockMailer struct {
	mu       sync.Mutex
	Vouchers []*model.Voucher
	To       []string
	Welcomed []*model.Customer

	SendVoucherFunc func(ctx context.Context, to *model.Customer, v *model.Voucher) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) SendVoucher(ctx context.Context, to *model.Customer, v *model.Voucher) error {
	if m.SendVoucherFunc != nil {
		if err := m.SendVoucherFunc(ctx, to, v); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Vouchers = append(m.Vouchers, v)
	m.To = append(m.To, to.Email)
	return nil
}

func (m *MockMailer) SendWelcome(ctx context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Welcomed = append(m.Welcomed, c)
	return nil
}

func (m *MockMailer) VoucherCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Vouchers)
}

// MockRunner queues tasks until RunAll; SubmitErr simulates a saturated pool.
type MockRunner struct {
	mu        sync.Mutex
	Tasks     []worker.Task
	SubmitErr error
}

func (r *MockRunner) Submit(task worker.Task) error {
	if r.SubmitErr != nil {
		return r.SubmitErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tasks = append(r.Tasks, task)
	return nil
}

func (r *MockRunner) RunAll(ctx context.Context) {
	r.mu.Lock()
	tasks := r.Tasks
	r.Tasks = nil
	r.mu.Unlock()
	for _, task := range tasks {
		_ = task(ctx)
	}
}

// =============================
// Wiring
// =============================

// fixture wires every use case against in-memory mocks; alert fan-out and mail run inline.
type fixture struct {
	clock     *fakeClock
	policy    usecase.Policy
	vouchers  *MockVoucherRepo
	customers *MockCustomerRepo
	staff     *MockStaffRepo
	auditRepo *MockAuditRepo
	notifier  *MockNotifier
	pub       *MockPublisher
	encoder   *MockEncoder
	mailer    *MockMailer

	audit      usecase.AuditUseCase
	voucher    usecase.VoucherUseCase
	loyalty    usecase.LoyaltyUseCase
	redemption usecase.RedemptionUseCase
	staffUC    usecase.StaffUseCase
}

func newFixture() *fixture {
	f := &fixture{
		clock:     newFakeClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)),
		vouchers:  NewMockVoucherRepo(),
		customers: NewMockCustomerRepo(),
		staff:     NewMockStaffRepo(),
		auditRepo: NewMockAuditRepo(),
		notifier:  &MockNotifier{},
		pub:       &MockPublisher{},
		encoder:   &MockEncoder{},
		mailer:    &MockMailer{},
	}
	f.policy = testPolicy(f.clock)
	log := newTestLogger()
	tm := NewMockTxManager()

	f.audit = usecase.NewAuditUseCase(f.auditRepo, f.notifier, f.pub, nil, f.policy, log)
	f.voucher = usecase.NewVoucherUseCase(f.vouchers, f.customers, f.encoder, f.audit, f.pub, f.policy, log).WithMailer(f.mailer, nil)
	f.loyalty = usecase.NewLoyaltyUseCase(f.customers, tm, f.audit, f.policy, log).WithMailer(f.mailer, nil)
	f.redemption = usecase.NewRedemptionUseCase(f.vouchers, f.voucher, f.loyalty, f.audit, f.pub, f.policy, log)
	f.staffUC = usecase.NewStaffUseCase(f.staff, f.voucher, tm, f.audit, f.policy, log)
	return f
}

func (f *fixture) customer(visits int) *model.Customer {
	c, _ := model.NewCustomer("", "Guest", fmt.Sprintf("guest%d@example.com", atomic.AddInt64(&seq, 1)), "")
	c.VisitCount = visits
	c.LoyaltyTier = model.TierFor(visits)
	_ = f.customers.Save(context.Background(), nil, c)
	return c
}

func (f *fixture) staffMember(role model.StaffRole) *model.Staff {
	s, _ := model.NewStaff("", "Member", fmt.Sprintf("%s%d@example.com", role, atomic.AddInt64(&seq, 1)), role, "hash")
	_ = f.staff.Save(context.Background(), nil, s)
	return s
}

func newRedemptionWith(f *fixture, vouchers repository.VoucherRepository) usecase.RedemptionUseCase {
	return usecase.NewRedemptionUseCase(vouchers, f.voucher, f.loyalty, f.audit, f.pub, f.policy, newTestLogger())
}
