package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/infra/metrics"
)

type VoucherCounter interface {
	CountByStatus(ctx context.Context) (map[model.VoucherStatus]int, error)
}

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// StatsPoller refreshes the gauges that are read from storage rather than counted inline.
type StatsPoller struct {
	interval time.Duration
	pool     PoolStater
	vouchers VoucherCounter
	log      *zerolog.Logger
}

func NewStatsPoller(interval time.Duration, pool PoolStater, vouchers VoucherCounter, logger *zerolog.Logger) *StatsPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l := logger.With().Str("component", "StatsPoller").Logger()
	return &StatsPoller{interval: interval, pool: pool, vouchers: vouchers, log: &l}
}

func (p *StatsPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

func (p *StatsPoller) Poll(ctx context.Context) {
	if p.pool != nil {
		s := p.pool.Stat()
		metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns(), s.MaxConns())
	}
	if p.vouchers == nil {
		return
	}
	counts, err := p.vouchers.CountByStatus(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("voucher status count failed")
		return
	}
	byName := make(map[string]int, len(counts))
	for status, n := range counts {
		byName[string(status)] = n
	}
	metrics.SetVouchersByStatus(byName)
}
