//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"wifi-loyalty-portal/internal/domain/model"
)

func appendEvent(t *testing.T, action, origin string, details model.Value, at time.Time) {
	t.Helper()
	o := origin
	ev := &model.AuditEvent{
		ID:        ulid.Make().String(),
		ActorKind: model.ActorGuest,
		Action:    action,
		Details:   details,
		Origin:    &o,
		CreatedAt: at,
	}
	if err := NewAuditRepo(testPool).Append(context.Background(), nil, ev); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestAuditRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewAuditRepo(testPool)

	t.Run("should count, filter and page events", func(t *testing.T) {
		cleanup(t)
		now := time.Now().UTC()
		failed := model.Object(map[string]model.Value{"email": model.String("x@example.com")})
		for i := 0; i < 3; i++ {
			appendEvent(t, model.ActionLoginFailed, "10.0.0.1", failed, now.Add(-time.Duration(i)*time.Minute))
		}
		appendEvent(t, model.ActionLoginFailed, "10.0.0.2", failed, now)
		appendEvent(t, model.ActionLoginFailed, "10.0.0.1", failed, now.Add(-2*time.Hour))

		n, err := repo.CountByOriginSince(ctx, nil, model.ActionLoginFailed, "10.0.0.1", now.Add(-time.Hour))
		if err != nil || n != 3 {
			t.Errorf("expected 3 recent failures, got %d (%v)", n, err)
		}
		n, err = repo.CountByDetailSince(ctx, nil, model.ActionLoginFailed, "email", "x@example.com", now.Add(-time.Hour))
		if err != nil || n != 4 {
			t.Errorf("expected 4 by detail, got %d (%v)", n, err)
		}

		events, total, err := repo.Query(ctx, nil, model.AuditFilter{Origin: "10.0.0.1"}, 0, 2)
		if err != nil || total != 4 || len(events) != 2 {
			t.Fatalf("query: total=%d len=%d err=%v", total, len(events), err)
		}
		if events[0].CreatedAt.Before(events[1].CreatedAt) {
			t.Error("expected newest first")
		}
		if events[0].Details.GetString("email") != "x@example.com" {
			t.Errorf("details did not round-trip: %v", events[0].Details)
		}

		top, err := repo.TopOriginsSince(ctx, nil, model.ActionLoginFailed, now.Add(-3*time.Hour), 10)
		if err != nil || len(top) != 2 || top[0].Origin != "10.0.0.1" || top[0].Count != 4 {
			t.Errorf("unexpected top origins %v (%v)", top, err)
		}
	})

	t.Run("should find alerts by type and subject", func(t *testing.T) {
		cleanup(t)
		now := time.Now().UTC()
		alert := model.Object(map[string]model.Value{
			"alert_type":   model.String(model.AlertBruteForce),
			"subject":      model.String("10.0.0.1"),
			"count":        model.Int(10),
			"window_start": model.String(now.Add(-time.Hour).Format(time.RFC3339)),
		})
		appendEvent(t, model.ActionSecurityAlert, "10.0.0.1", alert, now)

		ok, err := repo.AlertExistsSince(ctx, nil, model.AlertBruteForce, "10.0.0.1", now.Add(-time.Hour))
		if err != nil || !ok {
			t.Errorf("expected alert to exist, got %v (%v)", ok, err)
		}
		ok, _ = repo.AlertExistsSince(ctx, nil, model.AlertBruteForce, "10.0.0.2", now.Add(-time.Hour))
		if ok {
			t.Error("expected no alert for another subject")
		}
		byType, err := repo.CountAlertsByTypeSince(ctx, nil, now.Add(-time.Hour))
		if err != nil || byType[model.AlertBruteForce] != 1 {
			t.Errorf("unexpected alert counts %v (%v)", byType, err)
		}
	})

	t.Run("should delete only events older than the cutoff", func(t *testing.T) {
		cleanup(t)
		now := time.Now().UTC()
		appendEvent(t, model.ActionLoginSuccess, "o", model.Null(), now.AddDate(0, 0, -100))
		appendEvent(t, model.ActionLoginSuccess, "o", model.Null(), now)

		n, err := repo.DeleteOlderThan(ctx, nil, now.AddDate(0, 0, -90))
		if err != nil || n != 1 {
			t.Fatalf("expected 1 deleted, got %d (%v)", n, err)
		}
		counts, _ := repo.CountActionsSince(ctx, nil, now.AddDate(-1, 0, 0))
		if counts[model.ActionLoginSuccess] != 1 {
			t.Errorf("expected 1 remaining, got %v", counts)
		}
	})
}
