package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
	"wifi-loyalty-portal/internal/infra/worker"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

const (
	defaultAuditLimit  = 50
	maxAuditLimit      = 100
	defaultReportDays  = 7
	maxReportDays      = 365
	reportTopOrigins   = 10
	reportAlertsListed = 100
)

type AuditUseCase interface {
	AuditRecorder
	Query(ctx context.Context, f model.AuditFilter, page, limit int) ([]*model.AuditEvent, model.Pagination, error)
	SecurityReport(ctx context.Context, days int) (*model.SecurityReport, error)
	// Cleanup deletes events older than retentionDays and audits the deletion itself.
	Cleanup(ctx context.Context, retentionDays int, actor model.Actor) (int64, error)
}

// AsyncRunner queues background work; worker.Pool satisfies it.
type AsyncRunner interface {
	Submit(task worker.Task) error
}

type auditUC struct {
	events   repository.AuditRepository
	notifier adapter.AlertNotifier
	pub      adapter.EventPublisher
	runner   AsyncRunner
	policy   Policy
	log      *zerolog.Logger

	// serializes the check-then-append of alerts so a burst raises one alert
	alertMu sync.Mutex
}

func NewAuditUseCase(
	events repository.AuditRepository,
	notifier adapter.AlertNotifier,
	pub adapter.EventPublisher,
	runner AsyncRunner,
	policy Policy,
	logger *zerolog.Logger,
) *auditUC {
	l := logger.With().Str("component", "audit_uc").Logger()
	return &auditUC{events: events, notifier: notifier, pub: pub, runner: runner, policy: policy, log: &l}
}

// Record appends e and evaluates the anomaly rule for its action. It never returns an error:
// a failed write is logged with the full event and counted in audit_write_failures_total.
func (u *auditUC) Record(ctx context.Context, e AuditEntry) {
	defer logging.TraceDuration(u.log, "AuditUC.Record")()

	// the caller's request may already be gone; the audit row must still land
	ctx = context.WithoutCancel(ctx)

	ev, ok := u.append(ctx, e)
	if !ok {
		return
	}
	switch ev.Action {
	case model.ActionLoginFailed:
		u.checkBruteForce(ctx, ev)
	case model.ActionVoucherRedeemed:
		u.checkVoucherAbuse(ctx, ev)
	}
}

func (u *auditUC) append(ctx context.Context, e AuditEntry) (*model.AuditEvent, bool) {
	ev := &model.AuditEvent{
		ID:        ulid.Make().String(),
		ActorKind: e.Actor.Kind,
		ActorID:   optional(e.Actor.ID),
		Action:    e.Action,
		Resource:  optional(e.Resource),
		Details:   e.Details,
		Origin:    optional(e.Actor.Origin),
		CreatedAt: u.policy.now().UTC(),
	}
	if ev.ActorKind == "" {
		ev.ActorKind = model.ActorSystem
	}

	err := model.ValidateDetails(ev.Action, ev.Details)
	if err == nil {
		err = u.events.Append(ctx, repository.NoTX, ev)
	}
	if err != nil {
		metrics.IncAuditWriteFailure()
		u.log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("action", ev.Action).
			Str("actor_kind", string(ev.ActorKind)).
			Str("actor_id", e.Actor.ID).
			Str("resource", e.Resource).
			Str("origin", e.Actor.Origin).
			Interface("details", ev.Details).
			Time("at", ev.CreatedAt).
			Msg("audit write failed")
		return nil, false
	}
	return ev, true
}

func (u *auditUC) checkBruteForce(ctx context.Context, ev *model.AuditEvent) {
	if ev.Origin == nil || *ev.Origin == "" {
		return
	}
	window := u.policy.FailedLoginWindow
	if window <= 0 {
		window = time.Hour
	}
	since := ev.CreatedAt.Add(-window)
	n, err := u.events.CountByOriginSince(ctx, repository.NoTX, model.ActionLoginFailed, *ev.Origin, since)
	if err != nil {
		u.log.Warn().Err(err).Msg("brute-force rule: count failed")
		return
	}
	if n >= u.policy.FailedLoginThreshold {
		u.raise(ctx, model.AlertBruteForce, *ev.Origin, n, since, ev.Origin)
	}
}

func (u *auditUC) checkVoucherAbuse(ctx context.Context, ev *model.AuditEvent) {
	customerID := ev.Details.GetString("customer_id")
	if customerID == "" {
		return
	}
	since := model.StartOfDay(ev.CreatedAt, u.policy.loc())
	n, err := u.events.CountByDetailSince(ctx, repository.NoTX, model.ActionVoucherRedeemed, "customer_id", customerID, since)
	if err != nil {
		u.log.Warn().Err(err).Msg("voucher-abuse rule: count failed")
		return
	}
	if n >= u.policy.DailyRedeemThreshold {
		u.raise(ctx, model.AlertVoucherAbuse, customerID, n, since, ev.Origin)
	}
}

// raise appends a security_alert unless one already exists for the same rule subject
// in the current window. Alerts go through append directly and never re-enter the rules.
func (u *auditUC) raise(ctx context.Context, alertType, subject string, count int, windowStart time.Time, origin *string) {
	u.alertMu.Lock()
	defer u.alertMu.Unlock()

	exists, err := u.events.AlertExistsSince(ctx, repository.NoTX, alertType, subject, windowStart)
	if err != nil {
		u.log.Warn().Err(err).Str("alert_type", alertType).Msg("alert debounce check failed")
		return
	}
	if exists {
		return
	}

	actor := model.SystemActor()
	if origin != nil {
		actor.Origin = *origin
	}
	alert, ok := u.append(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionSecurityAlert,
		Resource: subject,
		Details: details(
			"alert_type", alertType,
			"subject", subject,
			"count", count,
			"window_start", windowStart.UTC().Format(time.RFC3339),
		),
	})
	if !ok {
		return
	}

	metrics.IncSecurityAlert(alertType)
	u.log.Warn().Str("alert_type", alertType).Str("subject", subject).Int("count", count).Msg("security alert raised")
	u.fanOut(alert)
}

func (u *auditUC) fanOut(alert *model.AuditEvent) {
	task := func(ctx context.Context) error {
		if u.notifier != nil {
			if err := u.notifier.NotifyAlert(ctx, alert); err != nil {
				u.log.Warn().Err(err).Str("event_id", alert.ID).Msg("alert notification failed")
			}
		}
		publish(ctx, u.pub, u.log, adapter.SubjectSecurityAlert, alert)
		return nil
	}
	if u.runner == nil {
		_ = task(context.Background())
		return
	}
	if err := u.runner.Submit(task); err != nil {
		u.log.Warn().Err(err).Str("event_id", alert.ID).Msg("alert fan-out dropped")
	}
}

func (u *auditUC) Query(ctx context.Context, f model.AuditFilter, page, limit int) ([]*model.AuditEvent, model.Pagination, error) {
	defer logging.TraceDuration(u.log, "AuditUC.Query")()

	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, model.Pagination{}, fmt.Errorf("%w: 'to' before 'from'", domain.ErrInvalidArgument)
	}

	events, total, err := u.events.Query(ctx, repository.NoTX, f, (page-1)*limit, limit)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	return events, model.NewPagination(page, limit, total), nil
}

func (u *auditUC) SecurityReport(ctx context.Context, days int) (*model.SecurityReport, error) {
	defer logging.TraceDuration(u.log, "AuditUC.SecurityReport")()

	switch {
	case days <= 0:
		days = defaultReportDays
	case days > maxReportDays:
		days = maxReportDays
	}
	since := u.policy.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	actions, err := u.events.CountActionsSince(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	alertCounts, err := u.events.CountAlertsByTypeSince(ctx, repository.NoTX, since)
	if err != nil {
		return nil, err
	}
	top, err := u.events.TopOriginsSince(ctx, repository.NoTX, model.ActionLoginFailed, since, reportTopOrigins)
	if err != nil {
		return nil, err
	}
	alerts, _, err := u.events.Query(ctx, repository.NoTX, model.AuditFilter{Action: model.ActionSecurityAlert, From: &since}, 0, reportAlertsListed)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range actions {
		total += n
	}
	if top == nil {
		top = []model.OriginCount{}
	}
	return &model.SecurityReport{
		Summary: model.SecuritySummary{
			Days:           days,
			Since:          since,
			TotalEvents:    total,
			ActionCounts:   actions,
			AlertCounts:    alertCounts,
			FailedLogins:   actions[model.ActionLoginFailed],
			Redemptions:    actions[model.ActionVoucherRedeemed],
			Rejections:     actions[model.ActionVoucherRejected],
			LimitOverrides: actions[model.ActionStaffLimitOverride],
		},
		Alerts:                alerts,
		TopFailedLoginOrigins: top,
	}, nil
}

func (u *auditUC) Cleanup(ctx context.Context, retentionDays int, actor model.Actor) (int64, error) {
	defer logging.TraceDuration(u.log, "AuditUC.Cleanup")()

	if retentionDays <= 0 {
		return 0, fmt.Errorf("%w: retention days must be positive", domain.ErrInvalidArgument)
	}
	cutoff := u.policy.now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	n, err := u.events.DeleteOlderThan(ctx, repository.NoTX, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AddAuditPruned(n)
	u.log.Info().Int64("deleted", n).Int("retention_days", retentionDays).Msg("audit retention cleanup")
	u.Record(ctx, AuditEntry{
		Actor:   actor,
		Action:  model.ActionRetentionCleanup,
		Details: details("deleted", n, "retention_days", retentionDays),
	})
	return n, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
