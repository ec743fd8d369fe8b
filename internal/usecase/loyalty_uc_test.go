//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
)

func TestLoyaltyUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("should register a bronze customer and audit the signup as the customer", func(t *testing.T) {
		f := newFixture()
		c, err := f.loyalty.RegisterCustomer(ctx, " Ada ", "Ada@Example.com", "+100", model.Actor{Kind: model.ActorGuest, Origin: "192.168.1.7"})
		if err != nil {
			t.Fatalf("register failed: %v", err)
		}
		if c.Email != "ada@example.com" || c.VisitCount != 0 || c.LoyaltyTier != model.TierBronze {
			t.Errorf("unexpected customer %+v", c)
		}
		signups := f.auditRepo.ByAction(model.ActionCustomerSignup)
		if len(signups) != 1 {
			t.Fatalf("expected one signup event, got %d", len(signups))
		}
		ev := signups[0]
		if ev.ActorKind != model.ActorCustomer || ev.ActorID == nil || *ev.ActorID != c.ID || ev.Origin == nil || *ev.Origin != "192.168.1.7" {
			t.Errorf("unexpected signup actor %+v", ev)
		}
	})

	t.Run("should reject duplicate emails and bad input", func(t *testing.T) {
		f := newFixture()
		guest := model.Actor{Kind: model.ActorGuest}
		if _, err := f.loyalty.RegisterCustomer(ctx, "Bo", "bo@example.com", "", guest); err != nil {
			t.Fatalf("register: %v", err)
		}
		if _, err := f.loyalty.RegisterCustomer(ctx, "Bo", "BO@example.com", "", guest); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		if _, err := f.loyalty.RegisterCustomer(ctx, "Bo", "not-an-email", "", guest); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.loyalty.RegisterCustomer(ctx, "", "x@example.com", "", guest); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty name, got %v", err)
		}
	})

	t.Run("should walk the tiers as visits accumulate", func(t *testing.T) {
		f := newFixture()
		c := f.customer(0)
		var promotions []model.Tier
		for i := 0; i < 30; i++ {
			res, err := f.loyalty.RecordVisit(ctx, c.ID)
			if err != nil {
				t.Fatalf("visit %d: %v", i+1, err)
			}
			if res.Tier != model.TierFor(res.VisitCount) {
				t.Fatalf("tier %s does not match count %d", res.Tier, res.VisitCount)
			}
			if res.TierChanged {
				promotions = append(promotions, res.Tier)
			}
		}
		want := []model.Tier{model.TierSilver, model.TierGold, model.TierPlatinum}
		if len(promotions) != len(want) {
			t.Fatalf("expected promotions %v, got %v", want, promotions)
		}
		for i := range want {
			if promotions[i] != want[i] {
				t.Errorf("promotion %d: want %s, got %s", i, want[i], promotions[i])
			}
		}
		got, _ := f.loyalty.GetCustomer(ctx, c.ID)
		if got.VisitCount != 30 || got.LoyaltyTier != model.TierPlatinum {
			t.Errorf("expected 30 / platinum, got %d / %s", got.VisitCount, got.LoyaltyTier)
		}
	})

	t.Run("should fail for an unknown customer", func(t *testing.T) {
		f := newFixture()
		if _, err := f.loyalty.RecordVisit(ctx, "ghost"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
