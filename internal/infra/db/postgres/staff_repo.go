package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/repository"
)

var _ repository.StaffRepository = (*staffRepo)(nil)

type staffRepo struct {
	pool *pgxpool.Pool
}

func NewStaffRepo(pool *pgxpool.Pool) repository.StaffRepository {
	return &staffRepo{pool: pool}
}

const staffColumns = `id, name, email, role, password_hash, daily_voucher_used, last_voucher_date, created_at`

func scanStaff(row pgx.Row) (*model.Staff, error) {
	var s model.Staff
	var role string
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &role, &s.PasswordHash, &s.DailyVoucherUsed, &s.LastVoucherDate, &s.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	s.Role = model.StaffRole(role)
	return &s, nil
}

func (r *staffRepo) Save(ctx context.Context, tx repository.Tx, s *model.Staff) error {
	const q = `
INSERT INTO staff (id, name, email, role, password_hash, daily_voucher_used, last_voucher_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  role = EXCLUDED.role,
  password_hash = EXCLUDED.password_hash;`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.Name, s.Email, string(s.Role), s.PasswordHash, s.DailyVoucherUsed, s.LastVoucherDate, s.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save staff: %w", err)
	}
	return nil
}

func (r *staffRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Staff, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+staffColumns+` FROM staff WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanStaff(row)
}

func (r *staffRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Staff, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+staffColumns+` FROM staff WHERE email = $1;`, email)
	if err != nil {
		return nil, err
	}
	return scanStaff(row)
}

// ClaimDailyVoucher flips the flag only when it is unset or belongs to another date.
// A flag left over from a previous day counts as unset.
func (r *staffRepo) ClaimDailyVoucher(ctx context.Context, tx repository.Tx, id string, today time.Time) (bool, error) {
	const q = `
UPDATE staff
   SET daily_voucher_used = TRUE, last_voucher_date = $2
 WHERE id = $1
   AND (daily_voucher_used = FALSE OR last_voucher_date IS DISTINCT FROM $2::date)
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, id, today)
	if err != nil {
		return false, err
	}
	var got string
	if err := row.Scan(&got); err != nil {
		err = scanErr(err)
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		if _, ferr := r.FindByID(ctx, tx, id); ferr != nil {
			return false, ferr
		}
		return false, nil
	}
	return true, nil
}

func (r *staffRepo) ResetDailyVoucher(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE staff SET daily_voucher_used = FALSE WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("reset daily voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
