package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

const purgeTimeout = time.Minute

// RetentionJob periodically deletes read notifications older than the
// retention period.
type RetentionJob struct {
	notifications *services.NotificationService
	retention     time.Duration
	logger        *applog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
}

func NewRetentionJob(notifications *services.NotificationService, retention time.Duration, logger *applog.Logger) *RetentionJob {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RetentionJob{
		notifications: notifications,
		retention:     retention,
		logger:        logger.WithComponent(applog.ComponentScheduler),
	}
}

// Start schedules the purge with a standard five field cron spec.
func (j *RetentionJob) Start(ctx context.Context, schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return fmt.Errorf("retention job is already running")
	}

	cl := cronLogger{j.logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(schedule, j.run); err != nil {
		return fmt.Errorf("schedule retention job %q: %w", schedule, err)
	}
	j.baseCtx = ctx
	j.cron = c
	c.Start()

	j.logger.InfoContext(ctx, "Retention job scheduled",
		"schedule", schedule,
		"retention", j.retention.String())
	return nil
}

// Stop stops the scheduler and waits for a running purge to finish.
func (j *RetentionJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		j.logger.WarnContext(ctx, "Retention job stop timed out")
		return ctx.Err()
	}
}

// RunOnce purges immediately.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	return j.notifications.Purge(ctx, j.retention)
}

func (j *RetentionJob) run() {
	j.mu.Lock()
	base := j.baseCtx
	j.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, purgeTimeout)
	defer cancel()
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.ErrorContext(ctx, "Notification purge failed", applog.FieldError, err)
	}
}

// cronLogger routes scheduler logs through the application logger.
type cronLogger struct {
	logger *applog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, applog.FieldError, err)...)
}
