package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	feedomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	notificationdomain "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	obsmetrics "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubFeeSvc struct {
	feedomain.Service
	result feedomain.SweepResult
	err    error
	calls  int
}

func (s *stubFeeSvc) SweepOverdue(context.Context) (feedomain.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

type stubNotificationSvc struct {
	notificationdomain.Service
	reports []notificationdomain.DeliveryReport
	calls   int
}

func (s *stubNotificationSvc) DeliverPending(context.Context, int) (notificationdomain.DeliveryReport, error) {
	s.calls++
	if len(s.reports) == 0 {
		return notificationdomain.DeliveryReport{}, nil
	}
	report := s.reports[0]
	s.reports = s.reports[1:]
	return report, nil
}

type fixture struct {
	sched    *Scheduler
	fees     *stubFeeSvc
	outbox   *stubNotificationSvc
	clock    *clock.FakeClock
	registry *prometheus.Registry
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	registry := prometheus.NewRegistry()
	t.Cleanup(swapPrometheusRegistry(registry))
	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "feefriend", Environment: "test"})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		fees:     &stubFeeSvc{},
		outbox:   &stubNotificationSvc{},
		clock:    clock.NewFakeClock(time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)),
		registry: registry,
	}
	f.sched, err = New(Params{
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           f.clock,
		FeeSvc:          f.fees,
		NotificationSvc: f.outbox,
		Config:          cfg,
	})
	require.NoError(t, err)
	return f
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.sched.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "feefriend",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, f.registry, "feefriend_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "feefriend",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, f.registry, "feefriend_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunOnceHonoursJobIntervals(t *testing.T) {
	f := newFixture(t, Config{SweepInterval: time.Hour, OutboxInterval: time.Minute})
	ctx := context.Background()

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.fees.calls)
	assert.Equal(t, 1, f.outbox.calls)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.fees.calls)
	assert.Equal(t, 1, f.outbox.calls)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.fees.calls)
	assert.Equal(t, 2, f.outbox.calls)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 2, f.fees.calls)
	assert.Equal(t, 3, f.outbox.calls)
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"NOTIFICATION_OUTBOX"}})

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Zero(t, f.fees.calls)
	assert.Equal(t, 1, f.outbox.calls)
}

func TestOverdueSweepDeferredWhileLockHeld(t *testing.T) {
	f := newFixture(t, Config{})
	f.fees.err = feedomain.ErrSweepInProgress

	require.NoError(t, f.sched.RunJob(context.Background(), JobOverdueSweep))

	labels := map[string]string{
		"service": "feefriend",
		"env":     "test",
		"job":     JobOverdueSweep,
		"reason":  obsmetrics.SchedulerBatchDeferredReasonLockHeld,
	}
	assert.Equal(t, float64(1), getCounterValue(t, f.registry, "feefriend_scheduler_batch_deferred_total", labels))
}

func TestOverdueSweepRecordsProcessedFees(t *testing.T) {
	f := newFixture(t, Config{})
	f.fees.result = feedomain.SweepResult{OverdueFound: 3, NewlyOverdue: 2, RemindersSent: 3}

	require.NoError(t, f.sched.RunJob(context.Background(), JobOverdueSweep))

	labels := map[string]string{
		"service":  "feefriend",
		"env":      "test",
		"job":      JobOverdueSweep,
		"resource": obsmetrics.ResourceFeeRecords,
	}
	assert.Equal(t, float64(2), getCounterValue(t, f.registry, "feefriend_scheduler_batch_processed_total", labels))
	labels["resource"] = obsmetrics.ResourceReminders
	assert.Equal(t, float64(3), getCounterValue(t, f.registry, "feefriend_scheduler_batch_processed_total", labels))
}

func TestOverdueSweepFailureIsWrapped(t *testing.T) {
	f := newFixture(t, Config{})
	f.fees.err = errors.New("db down")

	err := f.sched.RunJob(context.Background(), JobOverdueSweep)
	require.Error(t, err)
	assert.Equal(t, "overdue_sweep: db down", err.Error())
}

func TestOutboxDrainsUntilShortBatch(t *testing.T) {
	f := newFixture(t, Config{OutboxBatchSize: 2})
	f.outbox.reports = []notificationdomain.DeliveryReport{
		{Attempted: 2, Sent: 2},
		{Attempted: 2, Sent: 1, Failed: 1},
		{Attempted: 1, Sent: 1},
	}

	require.NoError(t, f.sched.RunJob(context.Background(), JobNotificationOutbox))
	assert.Equal(t, 3, f.outbox.calls)

	labels := map[string]string{
		"service":  "feefriend",
		"env":      "test",
		"job":      JobNotificationOutbox,
		"resource": obsmetrics.ResourceNotifications,
	}
	assert.Equal(t, float64(4), getCounterValue(t, f.registry, "feefriend_scheduler_batch_processed_total", labels))
}

func TestRunJobRejectsUnknownJob(t *testing.T) {
	f := newFixture(t, Config{})
	assert.ErrorIs(t, f.sched.RunJob(context.Background(), "invoice"), ErrUnknownJob)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigAppliesDefaults(t *testing.T) {
	cfg := Config{OutboxInterval: 30 * time.Second}.withDefaults()
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, 30*time.Second, cfg.tick())
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
