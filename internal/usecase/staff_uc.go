package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
)

// Compile-time check
var _ StaffUseCase = (*staffUC)(nil)

type StaffUseCase interface {
	GetStaff(ctx context.Context, id string) (*model.Staff, error)
	// IssueStaffVoucher hands out the member's staff_wifi voucher for the current calendar day.
	// A second request on the same day returns ErrDailyLimitReached.
	IssueStaffVoucher(ctx context.Context, staffID string, actor model.Actor) (*model.Voucher, error)
	// OverrideDailyLimit clears the daily flag. Only managers and admins may do this, with a reason.
	OverrideDailyLimit(ctx context.Context, staffID, managerID, reason, origin string) error
}

type staffUC struct {
	staff   repository.StaffRepository
	voucher VoucherUseCase
	tm      repository.TransactionManager
	audit   AuditRecorder
	policy  Policy
	log     *zerolog.Logger
}

func NewStaffUseCase(staff repository.StaffRepository, voucher VoucherUseCase, tm repository.TransactionManager, audit AuditRecorder, policy Policy, logger *zerolog.Logger) *staffUC {
	l := logger.With().Str("component", "staff_uc").Logger()
	return &staffUC{staff: staff, voucher: voucher, tm: tm, audit: audit, policy: policy, log: &l}
}

func (u *staffUC) GetStaff(ctx context.Context, id string) (*model.Staff, error) {
	defer logging.TraceDuration(u.log, "StaffUC.GetStaff")()
	return u.staff.FindByID(ctx, repository.NoTX, id)
}

func (u *staffUC) IssueStaffVoucher(ctx context.Context, staffID string, actor model.Actor) (*model.Voucher, error) {
	defer logging.TraceDuration(u.log, "StaffUC.IssueStaffVoucher")()

	// members request their own voucher; issuing for someone else needs a manager
	if actor.Kind == model.ActorStaff && actor.ID != staffID {
		if err := u.requireManager(ctx, actor.ID); err != nil {
			return nil, err
		}
	}

	today := model.CalendarDate(u.policy.now(), u.policy.loc())
	member, err := u.staff.FindByID(ctx, repository.NoTX, staffID)
	if err != nil {
		return nil, err
	}
	// the claim below is the gate; this only skips the transaction for a flag that is already set
	if member.DailyLimitReached(today) {
		metrics.IncStaffVoucher("limit_reached")
		return nil, domain.ErrDailyLimitReached
	}

	issuer := staffID
	var v *model.Voucher
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		claimed, err := u.staff.ClaimDailyVoucher(ctx, tx, staffID, today)
		if err != nil {
			return err
		}
		if !claimed {
			return domain.ErrDailyLimitReached
		}
		v, err = u.voucher.CreateInTx(ctx, tx, model.VoucherDraft{
			IssuedBy:      &issuer,
			Type:          model.VoucherTypeStaffWiFi,
			Title:         "Staff WiFi",
			Description:   "Staff WiFi access for " + today.Format("2006-01-02"),
			ValidityHours: u.policy.StaffWiFiHours,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDailyLimitReached) {
			metrics.IncStaffVoucher("limit_reached")
		}
		return nil, err
	}

	metrics.IncStaffVoucher("issued")
	u.voucher.Announce(ctx, v, actor)
	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionStaffVoucherIssued,
		Resource: staffID,
		Details:  details("code", v.Code, "date", today.Format("2006-01-02")),
	})
	return v, nil
}

func (u *staffUC) OverrideDailyLimit(ctx context.Context, staffID, managerID, reason, origin string) error {
	defer logging.TraceDuration(u.log, "StaffUC.OverrideDailyLimit")()

	if err := u.requireManager(ctx, managerID); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: override reason is required", domain.ErrInvalidArgument)
	}
	if err := u.staff.ResetDailyVoucher(ctx, repository.NoTX, staffID); err != nil {
		return err
	}

	metrics.IncStaffVoucher("override")
	u.log.Info().Str("staff_id", staffID).Str("manager_id", managerID).Msg("staff daily limit overridden")
	u.audit.Record(ctx, AuditEntry{
		Actor:    model.Actor{Kind: model.ActorStaff, ID: managerID, Origin: origin},
		Action:   model.ActionStaffLimitOverride,
		Resource: staffID,
		Details:  details("staff_id", staffID, "reason", reason),
	})
	return nil
}

func (u *staffUC) requireManager(ctx context.Context, id string) error {
	m, err := u.staff.FindByID(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrPermissionDenied
	}
	if err != nil {
		return err
	}
	if !m.Role.CanOverride() {
		return domain.ErrPermissionDenied
	}
	return nil
}
