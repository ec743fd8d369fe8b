package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// VoucherExpirer is the part of the voucher use case the sweeper needs.
type VoucherExpirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpiryWorker periodically flips active vouchers past their expiry to expired.
// Redemption never depends on it; it keeps stored statuses and reports honest.
type ExpiryWorker struct {
	interval time.Duration
	vouchers VoucherExpirer
	locker   Locker
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, vouchers VoucherExpirer, locker Locker, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		vouchers: vouchers,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass.
func (w *ExpiryWorker) Sweep(ctx context.Context) {
	runLeased(ctx, w.locker, "voucher_expiry", w.interval, w.log, func(ctx context.Context) {
		n, err := w.vouchers.ExpireOverdue(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("expiry worker error")
			return
		}
		if n > 0 {
			w.log.Info().Int64("count", n).Msg("overdue vouchers expired")
		}
	})
}
