package repository

import (
	"context"
	"time"

	"wifi-loyalty-portal/internal/domain/model"
)

// -----------------------------
// Staff
// -----------------------------

type StaffRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Staff) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Staff, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Staff, error)
	// ClaimDailyVoucher sets the daily flag for today in one conditional update.
	// It returns false when the flag was already set for the same calendar date.
	ClaimDailyVoucher(ctx context.Context, tx Tx, id string, today time.Time) (bool, error)
	ResetDailyVoucher(ctx context.Context, tx Tx, id string) error
}
