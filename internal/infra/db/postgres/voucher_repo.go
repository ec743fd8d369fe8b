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

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct {
	pool *pgxpool.Pool
}

func NewVoucherRepo(pool *pgxpool.Pool) repository.VoucherRepository {
	return &voucherRepo{pool: pool}
}

const voucherColumns = `id, code, type, title, description, owner_id, issued_by, value::float8, status,
       expires_at, created_at, redeemed_at, redeemed_by, qr_png, barcode_png`

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	var typ, status string
	if err := row.Scan(
		&v.ID, &v.Code, &typ, &v.Title, &v.Description, &v.OwnerID, &v.IssuedBy, &v.Value, &status,
		&v.ExpiresAt, &v.CreatedAt, &v.RedeemedAt, &v.RedeemedBy, &v.QRPNG, &v.BarcodePNG,
	); err != nil {
		return nil, scanErr(err)
	}
	v.Type = model.VoucherType(typ)
	v.Status = model.VoucherStatus(status)
	return &v, nil
}

func (r *voucherRepo) Create(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (id, code, type, title, description, owner_id, issued_by, value, status,
                      expires_at, created_at, qr_png, barcode_png)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`
	args := []interface{}{
		v.ID, v.Code, string(v.Type), v.Title, v.Description, v.OwnerID, v.IssuedBy, v.Value, string(v.Status),
		v.ExpiresAt, v.CreatedAt, v.QRPNG, v.BarcodePNG,
	}

	var err error
	if outer, ok := tx.(pgx.Tx); ok {
		// savepoint, so a code collision leaves the caller's transaction usable for a retry
		err = insertInSavepoint(ctx, outer, q, args...)
	} else {
		_, err = execSQL(ctx, r.pool, tx, q, args...)
	}
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if constraint == "vouchers_code_key" {
				return domain.ErrDuplicateCode
			}
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

func insertInSavepoint(ctx context.Context, outer pgx.Tx, q string, args ...interface{}) error {
	sp, err := outer.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := sp.Exec(ctx, q, args...); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (r *voucherRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Voucher, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+voucherColumns+` FROM vouchers WHERE code = $1;`, code)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string, status *model.VoucherStatus) ([]*model.Voucher, error) {
	q := `SELECT ` + voucherColumns + ` FROM vouchers WHERE owner_id = $1`
	args := []interface{}{ownerID}
	if status != nil {
		q += ` AND status = $2`
		args = append(args, string(*status))
	}
	q += ` ORDER BY created_at DESC, id;`

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var out []*model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// TransitionToRedeemed is the single place a voucher becomes redeemed. The WHERE clause
// carries the whole precondition, so concurrent callers serialize on the row lock and
// only the first sees a returned row.
func (r *voucherRepo) TransitionToRedeemed(ctx context.Context, tx repository.Tx, id, redeemerID string, now time.Time) (*model.Voucher, error) {
	const q = `
UPDATE vouchers
   SET status = 'redeemed', redeemed_at = $2, redeemed_by = $3
 WHERE id = $1 AND status = 'active' AND expires_at > $2
RETURNING ` + voucherColumns + `;`
	var redeemer *string
	if redeemerID != "" {
		redeemer = &redeemerID
	}
	row, err := pickRow(ctx, r.pool, tx, q, id, now, redeemer)
	if err != nil {
		return nil, err
	}
	v, err := scanVoucher(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// nothing updated: explain why
	cur, err := r.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reason := cur.CheckRedeemable(now); reason != nil {
		return nil, reason
	}
	return nil, domain.ErrNotActive
}

func (r *voucherRepo) SetStatus(ctx context.Context, tx repository.Tx, id string, status model.VoucherStatus) (model.VoucherStatus, *model.Voucher, error) {
	if !status.Valid() || status == model.VoucherStatusRedeemed {
		return "", nil, domain.ErrInvalidTransition
	}
	q := `
WITH prev AS (
    SELECT id, status FROM vouchers WHERE id = $1 FOR UPDATE
)
UPDATE vouchers v
   SET status = $2
  FROM prev
 WHERE v.id = prev.id AND prev.status <> 'redeemed'
RETURNING prev.status, ` + prefixed("v", voucherColumns) + `;`

	row, err := pickRow(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		return "", nil, err
	}
	var v model.Voucher
	var prev, typ, st string
	err = row.Scan(&prev,
		&v.ID, &v.Code, &typ, &v.Title, &v.Description, &v.OwnerID, &v.IssuedBy, &v.Value, &st,
		&v.ExpiresAt, &v.CreatedAt, &v.RedeemedAt, &v.RedeemedBy, &v.QRPNG, &v.BarcodePNG,
	)
	if err != nil {
		err = scanErr(err)
		if !errors.Is(err, domain.ErrNotFound) {
			return "", nil, err
		}
		if _, ferr := r.FindByID(ctx, tx, id); ferr != nil {
			return "", nil, ferr
		}
		return "", nil, domain.ErrInvalidTransition
	}
	v.Type = model.VoucherType(typ)
	v.Status = model.VoucherStatus(st)
	return model.VoucherStatus(prev), &v, nil
}

func (r *voucherRepo) ExpireOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE vouchers SET status = 'expired' WHERE status = 'active' AND expires_at <= $1;`, now)
	if err != nil {
		return 0, fmt.Errorf("expire vouchers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *voucherRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.VoucherStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM vouchers GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count vouchers: %w", err)
	}
	defer rows.Close()
	out := make(map[model.VoucherStatus]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, scanErr(err)
		}
		out[model.VoucherStatus(s)] = n
	}
	return out, rows.Err()
}
