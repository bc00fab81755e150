package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("sweep: %w", &pgconn.PgError{Code: "40001"}), want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestClassifySchedulerErrorType(t *testing.T) {
	if got := ClassifySchedulerErrorType(gorm.ErrRecordNotFound); got != SchedulerErrorTypeBusinessRule {
		t.Fatalf("record not found should be a business rule error, got %q", got)
	}
	if got := ClassifySchedulerErrorType(&pgconn.PgError{Code: "08006"}); got != SchedulerErrorTypeDB {
		t.Fatalf("expected db error type, got %q", got)
	}
	if !IsSchedulerErrorRetryable(context.Canceled) {
		t.Fatalf("canceled runs should be retryable")
	}
}

func TestJobCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{ServiceName: "feefriend", Environment: "test"})

	metrics.IncJobRun("overdue_sweep")
	metrics.IncJobError("overdue_sweep", &pgconn.PgError{Code: "55P03"})
	metrics.AddBatchProcessed("overdue_sweep", ResourceFeeRecords, 3)
	metrics.AddBatchProcessed("overdue_sweep", ResourceFeeRecords, 0)
	metrics.IncBatchDeferred("overdue_sweep", SchedulerBatchDeferredReasonLockHeld)
	metrics.ObserveJobDuration("overdue_sweep", 50*time.Millisecond)

	if got := testutil.ToFloat64(metrics.jobRuns.WithLabelValues("overdue_sweep")); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.jobErrors.WithLabelValues("overdue_sweep", SchedulerJobReasonDBLockTimeout)); got != 1 {
		t.Fatalf("expected 1 lock timeout error, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("overdue_sweep", ResourceFeeRecords)); got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.batchDeferred.WithLabelValues("overdue_sweep", SchedulerBatchDeferredReasonLockHeld)); got != 1 {
		t.Fatalf("expected 1 deferral, got %v", got)
	}
}
