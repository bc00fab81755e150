package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("type", "payment_reminder"),
		attribute.String("student_id", "456"),
		attribute.String("status", "sent"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "student_id" {
			t.Fatalf("student_id must not be used as a metric label")
		}
	}
}

func TestMetricsAreNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordFeesAssigned(context.Background(), 2)
	m.RecordNotification(context.Background(), "fee_assigned", "sent")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordFeesAssigned(context.Background(), 3)
	m.RecordFeeSettled(context.Background(), "webhook")
	m.RecordImportRows(context.Background(), "invalid", 1)
}
