package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	obsmetrics "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
	ErrUnknownJob    = errors.New("unknown_job")
)

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	FeeSvc          feedomain.Service
	NotificationSvc notificationdomain.Service
	Config          Config `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	feeSvc          feedomain.Service
	notificationSvc notificationdomain.Service

	mu      sync.Mutex
	nextDue map[string]time.Time
}

type job struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	batch    int
	run      func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.FeeSvc == nil || p.NotificationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		feeSvc:          p.FeeSvc,
		notificationSvc: p.NotificationSvc,
		nextDue:         make(map[string]time.Time),
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{JobOverdueSweep, s.cfg.SweepInterval, s.cfg.SweepTimeout, 0, s.OverdueSweepJob},
		{JobNotificationOutbox, s.cfg.OutboxInterval, s.cfg.OutboxTimeout, s.cfg.OutboxBatchSize, s.NotificationOutboxJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout: the next tick picks up where this one stopped.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job whose interval has elapsed since its last run.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	now := s.clock.Now()

	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) || !s.claimDue(j.name, now, j.interval) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.batch, j.timeout, j.run))
	}
	return err
}

// RunJob runs one job immediately, regardless of its interval.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, j := range s.jobs() {
		if strings.EqualFold(j.name, name) {
			return s.runJob(ctx, j.name, j.batch, j.timeout, j.run)
		}
	}
	return ErrUnknownJob
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := time.Now().Add(interval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) claimDue(name string, now time.Time, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if due, ok := s.nextDue[name]; ok && now.Before(due) {
		return false
	}
	s.nextDue[name] = now.Add(interval)
	return true
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
