package sched

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/domain/model"
)

// AuditCleaner is the part of the audit use case the retention job needs.
type AuditCleaner interface {
	Cleanup(ctx context.Context, retentionDays int, actor model.Actor) (int64, error)
}

// RetentionJob deletes audit events older than the retention window on a cron schedule.
type RetentionJob struct {
	cron     *cron.Cron
	schedule string
	days     int
	cleaner  AuditCleaner
	locker   Locker
	log      *zerolog.Logger
}

func NewRetentionJob(schedule string, days int, loc *time.Location, cleaner AuditCleaner, locker Locker, logger *zerolog.Logger) *RetentionJob {
	l := logger.With().Str("component", "RetentionJob").Logger()
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{log: &l}
	return &RetentionJob{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		schedule: schedule,
		days:     days,
		cleaner:  cleaner,
		locker:   locker,
		log:      &l,
	}
}

// Start validates the schedule and starts the cron loop in the background.
func (j *RetentionJob) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info().Str("schedule", j.schedule).Int("retention_days", j.days).Msg("audit retention scheduled")
	return nil
}

// Stop stops scheduling and waits for a running cleanup to finish.
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}

func (j *RetentionJob) RunOnce(ctx context.Context) {
	runLeased(ctx, j.locker, "audit_retention", time.Hour, j.log, func(ctx context.Context) {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := j.cleaner.Cleanup(runCtx, j.days, model.SystemActor()); err != nil {
			j.log.Error().Err(err).Msg("audit retention cleanup failed")
		}
	})
}

// cronLogger routes cron's own messages into zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
