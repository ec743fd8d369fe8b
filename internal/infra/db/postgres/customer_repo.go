package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/repository"
)

var _ repository.CustomerRepository = (*customerRepo)(nil)

type customerRepo struct {
	pool *pgxpool.Pool
}

func NewCustomerRepo(pool *pgxpool.Pool) repository.CustomerRepository {
	return &customerRepo{pool: pool}
}

const customerColumns = `id, name, email, phone, visit_count, loyalty_tier, last_visit_at, created_at`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	var tier string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.VisitCount, &tier, &c.LastVisitAt, &c.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	c.LoyaltyTier = model.Tier(tier)
	return &c, nil
}

func (r *customerRepo) Save(ctx context.Context, tx repository.Tx, c *model.Customer) error {
	const q = `
INSERT INTO customers (id, name, email, phone, visit_count, loyalty_tier, last_visit_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.Name, c.Email, c.Phone, c.VisitCount, string(c.LoyaltyTier), c.LastVisitAt, c.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (r *customerRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Customer, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+customerColumns+` FROM customers WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanCustomer(row)
}

func (r *customerRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Customer, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+customerColumns+` FROM customers WHERE email = $1;`, email)
	if err != nil {
		return nil, err
	}
	return scanCustomer(row)
}

// IncrementVisit bumps the counter in place; RETURNING sees the tier before SetTier runs.
func (r *customerRepo) IncrementVisit(ctx context.Context, tx repository.Tx, id string, at time.Time) (int, model.Tier, error) {
	const q = `
UPDATE customers
   SET visit_count = visit_count + 1, last_visit_at = $2
 WHERE id = $1
RETURNING visit_count, loyalty_tier;`
	row, err := pickRow(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return 0, "", err
	}
	var n int
	var tier string
	if err := row.Scan(&n, &tier); err != nil {
		return 0, "", scanErr(err)
	}
	return n, model.Tier(tier), nil
}

func (r *customerRepo) SetTier(ctx context.Context, tx repository.Tx, id string, tier model.Tier) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE customers SET loyalty_tier = $2 WHERE id = $1;`, id, string(tier))
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
