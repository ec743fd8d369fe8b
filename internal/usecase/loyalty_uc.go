package usecase

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/domain/ports/repository"
	"wifi-loyalty-portal/internal/infra/logging"
	"wifi-loyalty-portal/internal/infra/metrics"
)

// Compile-time check
var _ LoyaltyUseCase = (*loyaltyUC)(nil)

// VisitResult reports the customer's standing after a recorded visit.
type VisitResult struct {
	CustomerID   string     `json:"customer_id"`
	VisitCount   int        `json:"visit_count"`
	Tier         model.Tier `json:"tier"`
	PreviousTier model.Tier `json:"previous_tier"`
	TierChanged  bool       `json:"tier_changed"`
}

type LoyaltyUseCase interface {
	RegisterCustomer(ctx context.Context, name, email, phone string, actor model.Actor) (*model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	// RecordVisit adds one visit and re-derives the tier. It creates no rewards.
	RecordVisit(ctx context.Context, customerID string) (*VisitResult, error)
}

type loyaltyUC struct {
	customers repository.CustomerRepository
	tm        repository.TransactionManager
	audit     AuditRecorder
	mail      *mailDispatch
	policy    Policy
	log       *zerolog.Logger
}

func NewLoyaltyUseCase(customers repository.CustomerRepository, tm repository.TransactionManager, audit AuditRecorder, policy Policy, logger *zerolog.Logger) *loyaltyUC {
	l := logger.With().Str("component", "loyalty_uc").Logger()
	return &loyaltyUC{customers: customers, tm: tm, audit: audit, policy: policy, log: &l}
}

// WithMailer sends the welcome mail after signup through runner.
func (u *loyaltyUC) WithMailer(m adapter.Mailer, runner AsyncRunner) *loyaltyUC {
	u.mail = &mailDispatch{mailer: m, runner: runner, log: u.log}
	return u
}

func (u *loyaltyUC) RegisterCustomer(ctx context.Context, name, email, phone string, actor model.Actor) (*model.Customer, error) {
	defer logging.TraceDuration(u.log, "LoyaltyUC.RegisterCustomer")()

	c, err := model.NewCustomer("", name, email, phone)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = u.policy.now()
	if err := u.customers.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	if actor.Kind == model.ActorGuest && actor.ID == "" {
		actor = model.Actor{Kind: model.ActorCustomer, ID: c.ID, Origin: actor.Origin}
	}
	u.audit.Record(ctx, AuditEntry{
		Actor:    actor,
		Action:   model.ActionCustomerSignup,
		Resource: c.ID,
		Details:  details("email", c.Email),
	})
	welcome := *c
	u.mail.send("welcome", func(ctx context.Context, m adapter.Mailer) error {
		return m.SendWelcome(ctx, &welcome)
	})
	return c, nil
}

func (u *loyaltyUC) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	defer logging.TraceDuration(u.log, "LoyaltyUC.GetCustomer")()
	return u.customers.FindByID(ctx, repository.NoTX, id)
}

func (u *loyaltyUC) RecordVisit(ctx context.Context, customerID string) (*VisitResult, error) {
	defer logging.TraceDuration(u.log, "LoyaltyUC.RecordVisit")()

	var res VisitResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		count, prev, err := u.customers.IncrementVisit(ctx, tx, customerID, u.policy.now())
		if err != nil {
			return err
		}
		tier := model.TierFor(count)
		if tier != prev {
			if err := u.customers.SetTier(ctx, tx, customerID, tier); err != nil {
				return err
			}
		}
		res = VisitResult{
			CustomerID:   customerID,
			VisitCount:   count,
			Tier:         tier,
			PreviousTier: prev,
			TierChanged:  tier != prev,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncLoyaltyVisit()
	if res.TierChanged {
		metrics.IncTierChange(string(res.Tier))
		u.log.Info().Str("customer_id", customerID).Str("tier", string(res.Tier)).Int("visits", res.VisitCount).Msg("customer promoted")
	}
	u.audit.Record(ctx, AuditEntry{
		Actor:    model.Actor{Kind: model.ActorCustomer, ID: customerID},
		Action:   model.ActionVisitRecorded,
		Resource: customerID,
		Details:  details("visit_count", res.VisitCount, "tier", string(res.Tier), "tier_changed", res.TierChanged),
	})
	return &res, nil
}
