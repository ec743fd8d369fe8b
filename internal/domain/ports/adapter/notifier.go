package adapter

import (
	"context"

	"wifi-loyalty-portal/internal/domain/model"
)

// AlertNotifier pushes security alerts to humans (admin chat, pager, ...).
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *model.AuditEvent) error
}

// EventPublisher emits domain events for downstream services (printing, UniFi, email).
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// Event subjects.
const (
	SubjectVoucherCreated  = "voucher.created"
	SubjectVoucherRedeemed = "voucher.redeemed"
	SubjectSecurityAlert   = "security.alert"
)
