package adapter

import (
	"context"

	"wifi-loyalty-portal/internal/domain/model"
)

// Mailer delivers customer email.
type Mailer interface {
	// SendVoucher mails a voucher to its owner with the QR image inline.
	SendVoucher(ctx context.Context, to *model.Customer, v *model.Voucher) error
	SendWelcome(ctx context.Context, c *model.Customer) error
}
