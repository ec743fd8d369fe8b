package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
)

// VoucherEvent is published on voucher.created and voucher.redeemed for the
// printing, UniFi and email services.
type VoucherEvent struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Value      float64    `json:"value"`
	OwnerID    *string    `json:"owner_id,omitempty"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	Site       string     `json:"site"`
}

func newVoucherEvent(v *model.Voucher, site string) VoucherEvent {
	return VoucherEvent{
		ID:         v.ID,
		Code:       v.Code,
		Type:       string(v.Type),
		Title:      v.Title,
		Value:      v.Value,
		OwnerID:    v.OwnerID,
		Status:     string(v.Status),
		ExpiresAt:  v.ExpiresAt.UTC(),
		RedeemedAt: v.RedeemedAt,
		Site:       site,
	}
}

func publish(ctx context.Context, pub adapter.EventPublisher, log *zerolog.Logger, subject string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, payload); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
