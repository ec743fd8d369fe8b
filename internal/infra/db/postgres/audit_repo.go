package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/repository"
)

var _ repository.AuditRepository = (*auditRepo)(nil)

type auditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepo{pool: pool}
}

const auditColumns = `id, actor_kind, actor_id, action, resource, details, origin, created_at`

func scanAudit(row pgx.Row) (*model.AuditEvent, error) {
	var ev model.AuditEvent
	var kind string
	var details []byte
	if err := row.Scan(&ev.ID, &kind, &ev.ActorID, &ev.Action, &ev.Resource, &details, &ev.Origin, &ev.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	ev.ActorKind = model.ActorKind(kind)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &ev.Details); err != nil {
			return nil, fmt.Errorf("%w: audit details: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	return &ev, nil
}

func (r *auditRepo) Append(ctx context.Context, tx repository.Tx, ev *model.AuditEvent) error {
	var details []byte
	if !ev.Details.IsNull() {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("%w: encode details: %v", domain.ErrInvalidArgument, err)
		}
		details = b
	}
	const q = `
INSERT INTO audit_events (id, actor_kind, actor_id, action, resource, details, origin, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		ev.ID, string(ev.ActorKind), ev.ActorID, ev.Action, ev.Resource, details, ev.Origin, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// auditWhere renders f as a WHERE clause with positional args starting at $1.
func auditWhere(f model.AuditFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ActorKind != "" {
		add("actor_kind = $%d", string(f.ActorKind))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Resource != "" {
		add("resource = $%d", f.Resource)
	}
	if f.Origin != "" {
		add("origin = $%d", f.Origin)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *auditRepo) Query(ctx context.Context, tx repository.Tx, f model.AuditFilter, offset, limit int) ([]*model.AuditEvent, int, error) {
	where, args := auditWhere(f)

	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM audit_events`+where+`;`, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, scanErr(err)
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM audit_events%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d;`,
		auditColumns, where, n+1, n+2)
	rows, err := queryRows(ctx, r.pool, tx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	events := make([]*model.AuditEvent, 0, limit)
	for rows.Next() {
		ev, err := scanAudit(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

func (r *auditRepo) count(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, scanErr(err)
	}
	return n, nil
}

func (r *auditRepo) CountByOriginSince(ctx context.Context, tx repository.Tx, action, origin string, since time.Time) (int, error) {
	return r.count(ctx, tx,
		`SELECT COUNT(*) FROM audit_events WHERE action = $1 AND origin = $2 AND created_at >= $3;`,
		action, origin, since)
}

func (r *auditRepo) CountByDetailSince(ctx context.Context, tx repository.Tx, action, key, value string, since time.Time) (int, error) {
	return r.count(ctx, tx,
		`SELECT COUNT(*) FROM audit_events WHERE action = $1 AND details->>($2::text) = $3 AND created_at >= $4;`,
		action, key, value, since)
}

func (r *auditRepo) AlertExistsSince(ctx context.Context, tx repository.Tx, alertType, subject string, since time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM audit_events
   WHERE action = 'security_alert'
     AND details->>'alert_type' = $1
     AND details->>'subject' = $2
     AND created_at >= $3
);`
	row, err := pickRow(ctx, r.pool, tx, q, alertType, subject, since)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, scanErr(err)
	}
	return ok, nil
}

func (r *auditRepo) groupCount(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (map[string]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("group audit: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, scanErr(err)
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (r *auditRepo) CountActionsSince(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	return r.groupCount(ctx, tx,
		`SELECT action, COUNT(*) FROM audit_events WHERE created_at >= $1 GROUP BY action;`, since)
}

func (r *auditRepo) CountAlertsByTypeSince(ctx context.Context, tx repository.Tx, since time.Time) (map[string]int, error) {
	return r.groupCount(ctx, tx, `
SELECT COALESCE(details->>'alert_type', 'unknown'), COUNT(*)
  FROM audit_events
 WHERE action = 'security_alert' AND created_at >= $1
 GROUP BY 1;`, since)
}

func (r *auditRepo) TopOriginsSince(ctx context.Context, tx repository.Tx, action string, since time.Time, limit int) ([]model.OriginCount, error) {
	const q = `
SELECT origin, COUNT(*) AS n
  FROM audit_events
 WHERE action = $1 AND created_at >= $2 AND origin IS NOT NULL
 GROUP BY origin
 ORDER BY n DESC, origin
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, action, since, limit)
	if err != nil {
		return nil, fmt.Errorf("top origins: %w", err)
	}
	defer rows.Close()
	var out []model.OriginCount
	for rows.Next() {
		var oc model.OriginCount
		if err := rows.Scan(&oc.Origin, &oc.Count); err != nil {
			return nil, scanErr(err)
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

func (r *auditRepo) DeleteOlderThan(ctx context.Context, tx repository.Tx, before time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM audit_events WHERE created_at < $1;`, before)
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}
