package repository

import (
	"context"
	"time"

	"wifi-loyalty-portal/internal/domain/model"
)

// AuditRepository is the append-only event log. Nothing updates rows; only
// DeleteOlderThan removes them, and callers audit that separately.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, ev *model.AuditEvent) error
	Query(ctx context.Context, tx Tx, f model.AuditFilter, offset, limit int) ([]*model.AuditEvent, int, error)

	// --- anomaly rule inputs ---
	CountByOriginSince(ctx context.Context, tx Tx, action, origin string, since time.Time) (int, error)
	CountByDetailSince(ctx context.Context, tx Tx, action, key, value string, since time.Time) (int, error)
	AlertExistsSince(ctx context.Context, tx Tx, alertType, subject string, since time.Time) (bool, error)

	// --- reporting ---
	CountActionsSince(ctx context.Context, tx Tx, since time.Time) (map[string]int, error)
	CountAlertsByTypeSince(ctx context.Context, tx Tx, since time.Time) (map[string]int, error)
	TopOriginsSince(ctx context.Context, tx Tx, action string, since time.Time, limit int) ([]model.OriginCount, error)

	DeleteOlderThan(ctx context.Context, tx Tx, before time.Time) (int64, error)
}
