package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/infra/metrics"
)

// mailDispatch hands customer mail to the background runner. A nil runner sends inline.
// Delivery errors are logged and counted; they never reach the caller.
type mailDispatch struct {
	mailer adapter.Mailer
	runner AsyncRunner
	log    *zerolog.Logger
}

func (d *mailDispatch) send(kind string, fn func(ctx context.Context, m adapter.Mailer) error) {
	if d == nil || d.mailer == nil {
		return
	}
	task := func(ctx context.Context) error {
		if err := fn(ctx, d.mailer); err != nil {
			metrics.IncMail(kind, "failed")
			d.log.Warn().Err(err).Str("kind", kind).Msg("customer mail failed")
			return nil
		}
		metrics.IncMail(kind, "sent")
		return nil
	}
	if d.runner == nil {
		_ = task(context.Background())
		return
	}
	if err := d.runner.Submit(task); err != nil {
		metrics.IncMail(kind, "dropped")
		d.log.Warn().Err(err).Str("kind", kind).Msg("customer mail dropped")
	}
}
