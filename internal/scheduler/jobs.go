package scheduler

import (
	"context"
	"errors"

	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	obsmetrics "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"go.uber.org/zap"
)

// OverdueSweepJob flags past-due fees and queues their reminders. A sweep already
// running on another instance defers this one to the next tick.
func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobOverdueSweep, 0)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()

	result, err := s.feeSvc.SweepOverdue(ctx)
	if errors.Is(err, feedomain.ErrSweepInProgress) {
		schedMetrics.IncBatchDeferred(JobOverdueSweep, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.logger(ctx).Info("scheduler.sweep.deferred", zap.String("reason", obsmetrics.SchedulerBatchDeferredReasonLockHeld))
		return nil
	}
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.sweep.failed", JobOverdueSweep, err)
		return err
	}

	run.AddProcessed(result.NewlyOverdue)
	schedMetrics.AddBatchProcessed(JobOverdueSweep, obsmetrics.ResourceFeeRecords, result.NewlyOverdue)
	schedMetrics.AddBatchProcessed(JobOverdueSweep, obsmetrics.ResourceReminders, result.RemindersSent)
	if result.ReminderFailures > 0 {
		run.IncError()
	}
	s.logger(ctx).Info("scheduler.sweep.done",
		zap.Int("overdue_found", result.OverdueFound),
		zap.Int("newly_overdue", result.NewlyOverdue),
		zap.Int("reminders_sent", result.RemindersSent),
		zap.Int("reminder_failures", result.ReminderFailures),
	)
	return nil
}

// NotificationOutboxJob drains deliverable notifications batch by batch until a
// short batch shows the outbox is empty.
func (s *Scheduler) NotificationOutboxJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobNotificationOutbox, s.cfg.OutboxBatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := s.notificationSvc.DeliverPending(ctx, s.cfg.OutboxBatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.outbox.failed", JobNotificationOutbox, err)
			return err
		}
		run.AddProcessed(report.Sent)
		schedMetrics.AddBatchProcessed(JobNotificationOutbox, obsmetrics.ResourceNotifications, report.Sent)
		for i := 0; i < report.Failed; i++ {
			run.IncError()
		}

		if report.Attempted < s.cfg.OutboxBatchSize {
			return nil
		}
	}
}
