package logger

import (
	"context"
	"testing"

	obscontext "github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsRequestAndActor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "system", "scheduler")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "system", fields["actor_type"])
		assert.Equal(t, "scheduler", fields["actor_id"])
		assert.NotContains(t, fields, "trace_id")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT id FROM students":                         "SELECT",
		"  update fee_records set status = 'overdue'":     "UPDATE",
		"WITH due AS (SELECT 1) DELETE FROM notifications": "SELECT",
		"VACUUM":                                          "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "console", normalizeFormat(" Console "))
	assert.Equal(t, "json", normalizeFormat("logfmt"))
}
