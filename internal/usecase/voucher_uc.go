package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
)

// Compile-time check
var _ VoucherUseCase = (*voucherUC)(nil)

type VoucherUseCase interface {
	// Create issues a voucher, audits voucher_created and publishes voucher.created.
	Create(ctx context.Context, d model.VoucherDraft, actor model.Actor) (*model.Voucher, error)
	// CreateInTx issues a voucher inside tx without side effects; callers announce it after commit.
	CreateInTx(ctx context.Context, tx repository.Tx, d model.VoucherDraft) (*model.Voucher, error)
	Announce(ctx context.Context, v *model.Voucher, actor model.Actor)

	Lookup(ctx context.Context, code string) (*model.Voucher, error)
	ListByOwner(ctx context.Context, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error)
	SetStatus(ctx context.Context, id string, status model.VoucherStatus, actor model.Actor) (*model.Voucher, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[model.VoucherStatus]int, error)
}

type voucherUC struct {
	vouchers  repository.VoucherRepository
	customers repository.CustomerRepository
	encoder   adapter.VoucherEncoder
	audit     AuditRecorder
	events    adapter.EventPublisher
	gen       CodeGenerator
	mail      *mailDispatch
	policy    Policy
	log       *zerolog.Logger
}

func NewVoucherUseCase(
	vouchers repository.VoucherRepository,
	customers repository.CustomerRepository,
	encoder adapter.VoucherEncoder,
	audit AuditRecorder,
	events adapter.EventPublisher,
	policy Policy,
	logger *zerolog.Logger,
) *voucherUC {
	l := logger.With().Str("component", "voucher_uc").Logger()
	return &voucherUC{
		vouchers:  vouchers,
		customers: customers,
		encoder:   encoder,
		audit:     audit,
		events:    events,
		gen:       GenerateCode,
		policy:    policy,
		log:       &l,
	}
}

// WithMailer mails owned vouchers to their customer through runner.
func (u *voucherUC) WithMailer(m adapter.Mailer, runner AsyncRunner) *voucherUC {
	u.mail = &mailDispatch{mailer: m, runner: runner, log: u.log}
	return u
}

// WithCodeGenerator swaps the code source; tests use it to force collisions.
func (u *voucherUC) WithCodeGenerator(gen CodeGenerator) *voucherUC {
	u.gen = gen
	return u
}

func (u *voucherUC) Create(ctx context.Context, d model.VoucherDraft, actor model.Actor) (*model.Voucher, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.Create")()

	v, err := u.CreateInTx(ctx, repository.NoTX, d)
	if err != nil {
		return nil, err
	}
	u.Announce(ctx, v, actor)
	return v, nil
}

func (u *voucherUC) CreateInTx(ctx context.Context, tx repository.Tx, d model.VoucherDraft) (*model.Voucher, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.OwnerID != nil {
		if _, err := u.customers.FindByID(ctx, tx, *d.OwnerID); err != nil {
			return nil, err
		}
	}

	attempts := u.policy.MaxCodeAttempts
	if attempts <= 0 {
		attempts = 5
	}
	now := u.policy.now()
	for attempt := 1; attempt <= attempts; attempt++ {
		code, err := u.gen(d.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: generate code: %v", domain.ErrOperationFailed, err)
		}
		v, err := model.NewVoucher(uuid.NewString(), code, d, now)
		if err != nil {
			return nil, err
		}
		qr, bar, err := u.encoder.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEncodingFailed, err)
		}
		v.QRPNG, v.BarcodePNG = qr, bar

		err = u.vouchers.Create(ctx, tx, v)
		if errors.Is(err, domain.ErrDuplicateCode) {
			u.log.Warn().Int("attempt", attempt).Str("type", string(d.Type)).Msg("voucher code collision, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, domain.ErrCodeSpaceExhausted
}

func (u *voucherUC) Announce(ctx context.Context, v *model.Voucher, actor model.Actor) {
	metrics.IncVoucherCreated(string(v.Type))
	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionVoucherCreated,
		Resource: v.ID,
		Details:  details("code", v.Code, "voucher_type", string(v.Type), "customer_id", v.OwnerID),
	})
	publish(ctx, u.events, u.log, adapter.SubjectVoucherCreated, newVoucherEvent(v, u.policy.SiteName))

	if v.OwnerID != nil {
		owner, sent := *v.OwnerID, *v
		u.mail.send("voucher", func(ctx context.Context, m adapter.Mailer) error {
			c, err := u.customers.FindByID(ctx, repository.NoTX, owner)
			if err != nil {
				return err
			}
			return m.SendVoucher(ctx, c, &sent)
		})
	}
}

// Lookup returns the voucher for a code. An active voucher past its expiry is reported as expired.
func (u *voucherUC) Lookup(ctx context.Context, code string) (*model.Voucher, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.Lookup")()

	code = model.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	v, err := u.vouchers.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	if v.Status == model.VoucherStatusActive && v.IsExpiredAt(u.policy.now()) {
		v.Status = model.VoucherStatusExpired
	}
	return v, nil
}

func (u *voucherUC) ListByOwner(ctx context.Context, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.ListByOwner")()

	if status != nil && !status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.customers.FindByID(ctx, repository.NoTX, ownerID); err != nil {
		return nil, err
	}
	return u.vouchers.ListByOwner(ctx, repository.NoTX, ownerID, status)
}

// SetStatus is the administrative path (cancel, re-activate, force-expire). Redeemed is terminal.
func (u *voucherUC) SetStatus(ctx context.Context, id string, status model.VoucherStatus, actor model.Actor) (*model.Voucher, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.SetStatus")()

	if !status.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if status == model.VoucherStatusRedeemed {
		return nil, fmt.Errorf("%w: use redemption to redeem a voucher", domain.ErrInvalidTransition)
	}
	prev, v, err := u.vouchers.SetStatus(ctx, repository.NoTX, id, status)
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionVoucherStatusChanged,
		Resource: v.ID,
		Details:  details("from", string(prev), "to", string(status)),
	})
	return v, nil
}

func (u *voucherUC) ExpireOverdue(ctx context.Context) (int64, error) {
	defer logging.TraceDuration(u.log, "VoucherUC.ExpireOverdue")()

	n, err := u.vouchers.ExpireOverdue(ctx, repository.NoTX, u.policy.now())
	if err != nil {
		return 0, err
	}
	metrics.AddVouchersExpired(n)
	return n, nil
}

func (u *voucherUC) CountByStatus(ctx context.Context) (map[model.VoucherStatus]int, error) {
	return u.vouchers.CountByStatus(ctx, repository.NoTX)
}
