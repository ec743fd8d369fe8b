package repository

import (
	"context"
	"time"

	"wifi-loyalty-portal/internal/domain/model"
)

// VoucherRepository is the port for voucher persistence.
type VoucherRepository interface {
	// Create inserts a new voucher. A code collision returns domain.ErrDuplicateCode.
	Create(ctx context.Context, tx Tx, v *model.Voucher) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Voucher, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Voucher, error)
	// ListByOwner returns the owner's vouchers, most recent first. A nil status lists all.
	ListByOwner(ctx context.Context, tx Tx, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error)
	// TransitionToRedeemed marks an active, unexpired voucher as redeemed in a single
	// conditional update. Exactly one concurrent caller succeeds; the others get
	// domain.ErrAlreadyRedeemed, domain.ErrNotActive, domain.ErrExpired or domain.ErrNotFound.
	TransitionToRedeemed(ctx context.Context, tx Tx, id, redeemerID string, now time.Time) (*model.Voucher, error)
	// SetStatus applies an administrative status change and returns the previous status.
	// Redeemed vouchers return domain.ErrInvalidTransition.
	SetStatus(ctx context.Context, tx Tx, id string, status model.VoucherStatus) (model.VoucherStatus, *model.Voucher, error)
	// ExpireOverdue flips active vouchers whose expiry has passed to expired.
	ExpireOverdue(ctx context.Context, tx Tx, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.VoucherStatus]int, error)
}
