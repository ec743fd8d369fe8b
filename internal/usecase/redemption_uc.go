package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
)

// Compile-time check
var _ RedemptionUseCase = (*redemptionUC)(nil)

type RedeemResult struct {
	Voucher    *model.Voucher `json:"voucher"`
	Visit      *VisitResult   `json:"visit,omitempty"`
	TierReward *model.Voucher `json:"tier_reward,omitempty"`
}

// VisitOutcome is the result of a visit logged without a voucher.
type VisitOutcome struct {
	Visit      *VisitResult   `json:"visit"`
	TierReward *model.Voucher `json:"tier_reward,omitempty"`
}

type RedemptionUseCase interface {
	// Redeem consumes a voucher at most once. Rejections return ErrNotFound, ErrAlreadyRedeemed,
	// ErrExpired or ErrNotActive and are audited as voucher_redeem_rejected.
	Redeem(ctx context.Context, code string, actor model.Actor) (*RedeemResult, error)
	// CompleteVisit records a visit and issues the tier reward when it promotes the customer.
	CompleteVisit(ctx context.Context, customerID string) (*VisitOutcome, error)
}

type redemptionUC struct {
	vouchers repository.VoucherRepository
	voucher  VoucherUseCase
	loyalty  LoyaltyUseCase
	audit    AuditRecorder
	events   adapter.EventPublisher
	policy   Policy
	log      *zerolog.Logger
}

func NewRedemptionUseCase(
	vouchers repository.VoucherRepository,
	voucher VoucherUseCase,
	loyalty LoyaltyUseCase,
	audit AuditRecorder,
	events adapter.EventPublisher,
	policy Policy,
	logger *zerolog.Logger,
) *redemptionUC {
	l := logger.With().Str("component", "redemption_uc").Logger()
	return &redemptionUC{
		vouchers: vouchers,
		voucher:  voucher,
		loyalty:  loyalty,
		audit:    audit,
		events:   events,
		policy:   policy,
		log:      &l,
	}
}

func (u *redemptionUC) Redeem(ctx context.Context, code string, actor model.Actor) (*RedeemResult, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()

	code = model.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := u.policy.now()

	v, err := u.vouchers.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, u.reject(ctx, code, "", actor, err)
	}
	if err := v.CheckRedeemable(now); err != nil {
		return nil, u.reject(ctx, code, v.ID, actor, err)
	}

	// the conditional update is the only gate; the check above just avoids a write
	redeemed, err := u.vouchers.TransitionToRedeemed(ctx, repository.NoTX, v.ID, actor.ID, now)
	if err != nil {
		return nil, u.reject(ctx, code, v.ID, actor, err)
	}
	metrics.IncRedemption("redeemed")
	res := &RedeemResult{Voucher: redeemed}

	if redeemed.Type.CountsAsVisit() && redeemed.OwnerID != nil {
		res.Visit, res.TierReward = u.creditVisit(ctx, *redeemed.OwnerID)
	}

	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionVoucherRedeemed,
		Resource: redeemed.ID,
		Details:  details("code", redeemed.Code, "voucher_type", string(redeemed.Type), "customer_id", redeemed.OwnerID),
	})
	publish(ctx, u.events, u.log, adapter.SubjectVoucherRedeemed, newVoucherEvent(redeemed, u.policy.SiteName))

	u.log.Info().
		Str("voucher_id", redeemed.ID).
		Str("type", string(redeemed.Type)).
		Bool("tier_changed", res.Visit != nil && res.Visit.TierChanged).
		Msg("voucher redeemed")
	return res, nil
}

func (u *redemptionUC) CompleteVisit(ctx context.Context, customerID string) (*VisitOutcome, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.CompleteVisit")()

	visit, err := u.loyalty.RecordVisit(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &VisitOutcome{Visit: visit, TierReward: u.tierReward(ctx, visit)}, nil
}

// creditVisit runs after the redemption is committed. Failures here are logged, not returned,
// because the voucher is already consumed.
func (u *redemptionUC) creditVisit(ctx context.Context, customerID string) (*VisitResult, *model.Voucher) {
	visit, err := u.loyalty.RecordVisit(ctx, customerID)
	if err != nil {
		u.log.Error().Err(err).Str("customer_id", customerID).Msg("record visit after redemption failed")
		return nil, nil
	}
	return visit, u.tierReward(ctx, visit)
}

// tierReward issues the reward voucher for a promotion. The visit is already stored, so a failure is logged.
func (u *redemptionUC) tierReward(ctx context.Context, visit *VisitResult) *model.Voucher {
	if !visit.TierChanged {
		return nil
	}
	owner := visit.CustomerID
	reward, err := u.voucher.Create(ctx, model.VoucherDraft{
		OwnerID:       &owner,
		Type:          model.VoucherTypeLoyaltyReward,
		Title:         fmt.Sprintf("%s tier reward", visit.Tier.Title()),
		Description:   fmt.Sprintf("Welcome to %s: reached %d visits.", visit.Tier.Title(), visit.VisitCount),
		Value:         u.policy.TierRewardValue,
		ValidityHours: u.policy.TierRewardHours,
	}, model.SystemActor())
	if err != nil {
		u.log.Error().Err(err).Str("customer_id", owner).Str("tier", string(visit.Tier)).Msg("tier reward voucher failed")
		return nil
	}
	return reward
}

func (u *redemptionUC) reject(ctx context.Context, code, voucherID string, actor model.Actor, cause error) error {
	reason := rejectReason(cause)
	metrics.IncRedemption(reason)
	if reason == "error" {
		u.log.Error().Err(cause).Str("code", logging.Redact(code, false)).Msg("redemption failed")
		return cause
	}
	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionVoucherRejected,
		Resource: voucherID,
		Details:  details("code", code, "reason", reason),
	})
	return cause
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, domain.ErrExpired):
		return "expired"
	case errors.Is(err, domain.ErrNotActive):
		return "not_active"
	default:
		return "error"
	}
}
