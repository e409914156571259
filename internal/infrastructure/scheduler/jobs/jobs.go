// Package jobs adapts the attendance commands to scheduler jobs.
package jobs

import (
	"context"

	"github.com/academy-hub/attendance-hub/internal/application/command"
	"github.com/academy-hub/attendance-hub/pkg/logger"
)

// Locker serializes a job across worker processes. fn runs only when the
// named lock was acquired; ran reports whether it did.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (ran bool, err error)
}

// localLocker runs everything; used when no shared lock is configured.
type localLocker struct{}

func (localLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) (bool, error) {
	return true, fn(ctx)
}

func orLocal(l Locker) Locker {
	if l == nil {
		return localLocker{}
	}
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTO CHECKOUT
// ══════════════════════════════════════════════════════════════════════════════

// AutoCheckoutJob runs the end-of-day checkout sweep.
type AutoCheckoutJob struct {
	handler *command.AutoCheckoutHandler
	locker  Locker
	logger  *logger.Logger
}

// NewAutoCheckoutJob creates the sweep job. locker may be nil.
func NewAutoCheckoutJob(handler *command.AutoCheckoutHandler, locker Locker, log *logger.Logger) *AutoCheckoutJob {
	if log == nil {
		log = logger.Nop()
	}
	return &AutoCheckoutJob{handler: handler, locker: orLocal(locker), logger: log}
}

// Name implements scheduler.Job.
func (j *AutoCheckoutJob) Name() string { return "auto_checkout" }

// Description implements scheduler.Job.
func (j *AutoCheckoutJob) Description() string {
	return "closes today's student check-ins that have no checkout"
}

// Run implements scheduler.Job.
func (j *AutoCheckoutJob) Run(ctx context.Context) error {
	ran, err := j.locker.WithLock(ctx, j.Name(), func(ctx context.Context) error {
		_, err := j.handler.Handle(ctx, command.AutoCheckoutCommand{})
		return err
	})
	if !ran && err == nil {
		j.logger.Info("auto checkout skipped, another worker holds the lock")
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// CLEANUP DUPLICATES
// ══════════════════════════════════════════════════════════════════════════════

// CleanupDuplicatesJob merges duplicate ledger entries across the whole ledger.
type CleanupDuplicatesJob struct {
	handler *command.CleanupDuplicatesHandler
	locker  Locker
	logger  *logger.Logger
}

// NewCleanupDuplicatesJob creates the cleanup job. locker may be nil.
func NewCleanupDuplicatesJob(handler *command.CleanupDuplicatesHandler, locker Locker, log *logger.Logger) *CleanupDuplicatesJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CleanupDuplicatesJob{handler: handler, locker: orLocal(locker), logger: log}
}

// Name implements scheduler.Job.
func (j *CleanupDuplicatesJob) Name() string { return "cleanup_duplicates" }

// Description implements scheduler.Job.
func (j *CleanupDuplicatesJob) Description() string {
	return "merges attendance records sharing a person and a day"
}

// Run implements scheduler.Job.
func (j *CleanupDuplicatesJob) Run(ctx context.Context) error {
	ran, err := j.locker.WithLock(ctx, j.Name(), func(ctx context.Context) error {
		res, err := j.handler.Handle(ctx, command.CleanupDuplicatesCommand{})
		if err != nil {
			return err
		}
		if res.RecordsDeleted > 0 {
			j.logger.Warn("duplicate attendance records merged",
				logger.Int("groups", res.GroupsMerged),
				logger.Int("deleted", res.RecordsDeleted),
			)
		}
		return nil
	})
	if !ran && err == nil {
		j.logger.Info("cleanup skipped, another worker holds the lock")
	}
	return err
}
