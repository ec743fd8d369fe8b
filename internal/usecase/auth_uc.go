package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

const minPasswordLen = 8

type NewStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     model.StaffRole
}

type AuthUseCase interface {
	// Login verifies staff credentials. Every failure is audited as login_failed with the
	// caller's origin, which feeds the brute-force rule.
	Login(ctx context.Context, email, password, origin string) (*model.Staff, error)
	// CreateStaff is admin-only; the system actor may bootstrap the first admin.
	CreateStaff(ctx context.Context, in NewStaffInput, actor model.Actor) (*model.Staff, error)
}

type authUC struct {
	staff  repository.StaffRepository
	audit  AuditRecorder
	params *argon2id.Params
	policy Policy
	log    *zerolog.Logger

	// compared against when the email is unknown so both paths cost one hash
	dummyHash string
}

func NewAuthUseCase(staff repository.StaffRepository, audit AuditRecorder, params *argon2id.Params, policy Policy, logger *zerolog.Logger) *authUC {
	if params == nil {
		params = argon2id.DefaultParams
	}
	l := logger.With().Str("component", "auth_uc").Logger()
	dummy, err := argon2id.CreateHash("not-a-real-password", params)
	if err != nil {
		l.Warn().Err(err).Msg("could not prepare dummy hash")
	}
	return &authUC{staff: staff, audit: audit, params: params, policy: policy, log: &l, dummyHash: dummy}
}

func (u *authUC) Login(ctx context.Context, email, password, origin string) (*model.Staff, error) {
	defer logging.TraceDuration(u.log, "AuthUC.Login")()

	email = strings.ToLower(strings.TrimSpace(email))
	guest := model.Actor{Kind: model.ActorGuest, Origin: origin}
	if email == "" || password == "" {
		u.failed(ctx, guest, email, "missing_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	s, err := u.staff.FindByEmail(ctx, repository.NoTX, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if s == nil {
		if u.dummyHash != "" {
			_, _ = argon2id.ComparePasswordAndHash(password, u.dummyHash)
		}
		u.failed(ctx, guest, email, "unknown_email")
		return nil, domain.ErrInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(password, s.PasswordHash)
	if err != nil || !match {
		if err != nil {
			u.log.Warn().Err(err).Str("staff_id", s.ID).Msg("stored password hash unreadable")
		}
		u.failed(ctx, guest, email, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}

	u.audit.Record(ctx, AuditEntry{
		Actor:    model.Actor{Kind: model.ActorStaff, ID: s.ID, Origin: origin},
		Action:   model.ActionLoginSuccess,
		Resource: s.ID,
		Details:  details("email", email),
	})
	return s, nil
}

func (u *authUC) failed(ctx context.Context, actor model.Actor, email, reason string) {
	u.audit.Record(ctx, AuditEntry{
		Actor:   actor,
		Action:  model.ActionLoginFailed,
		Details: details("email", email, "reason", reason),
	})
}

func (u *authUC) CreateStaff(ctx context.Context, in NewStaffInput, actor model.Actor) (*model.Staff, error) {
	defer logging.TraceDuration(u.log, "AuthUC.CreateStaff")()

	if actor.Kind != model.ActorSystem {
		admin, err := u.staff.FindByID(ctx, repository.NoTX, actor.ID)
		if err != nil || admin.Role != model.StaffRoleAdmin {
			return nil, domain.ErrPermissionDenied
		}
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLen)
	}
	hash, err := argon2id.CreateHash(in.Password, u.params)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %v", domain.ErrOperationFailed, err)
	}
	s, err := model.NewStaff("", in.Name, in.Email, in.Role, hash)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = u.policy.now()
	if err := u.staff.Save(ctx, repository.NoTX, s); err != nil {
		return nil, err
	}

	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionStaffCreated,
		Resource: s.ID,
		Details:  details("email", s.Email, "role", string(s.Role)),
	})
	return s, nil
}
