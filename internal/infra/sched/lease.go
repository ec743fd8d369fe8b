package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/infra/redis"
)

// Locker grants a short lease so only one replica runs a job. redis.RedisLocker satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// runLeased runs fn while holding the job lease. A nil locker runs fn directly.
func runLeased(ctx context.Context, locker Locker, job string, ttl time.Duration, log *zerolog.Logger, fn func(ctx context.Context)) {
	if locker == nil {
		fn(ctx)
		return
	}
	key := redis.JobKey(job)
	token, err := locker.TryLock(ctx, key, ttl)
	if errors.Is(err, redis.ErrLockHeld) {
		log.Debug().Str("job", job).Msg("lease held by another replica, skipping run")
		return
	}
	if err != nil {
		// a broken lease store must not stop housekeeping
		log.Warn().Err(err).Str("job", job).Msg("lease unavailable, running without it")
		fn(ctx)
		return
	}
	defer func() {
		if err := locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn().Err(err).Str("job", job).Msg("lease release failed")
		}
	}()
	fn(ctx)
}
