package repository

import (
	"context"
	"time"

	"wifi-loyalty-portal/internal/domain/model"
)

// -----------------------------
// Customers
// -----------------------------

type CustomerRepository interface {
	// Save inserts a customer. A duplicate email returns domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, c *model.Customer) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Customer, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Customer, error)
	// IncrementVisit atomically adds one visit and returns the new count together
	// with the tier stored before the increment.
	IncrementVisit(ctx context.Context, tx Tx, id string, at time.Time) (int, model.Tier, error)
	SetTier(ctx context.Context, tx Tx, id string, tier model.Tier) error
}
