package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled            bool
	ExporterEndpoint   string
	ExporterProtocol   string
	ServiceName        string
	Environment        string
	// ResourceAttributes label every exported series, next to service.name.
	ResourceAttributes []attribute.KeyValue
}

// Metrics exposes fee lifecycle instruments.
type Metrics struct {
	feesAssigned    metric.Int64Counter
	feesOverdue     metric.Int64Counter
	feesSettled     metric.Int64Counter
	notifications   metric.Int64Counter
	paymentWebhooks metric.Int64Counter
	importRows      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
	res := sdkresource.NewWithAttributes("", append([]attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("deployment.environment", cfg.Environment),
	}, cfg.ResourceAttributes...)...)
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "feefriend"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	if m.feesAssigned, err = meter.Int64Counter("feefriend_fees_assigned_total"); err != nil {
		return nil, err
	}
	if m.feesOverdue, err = meter.Int64Counter("feefriend_fees_overdue_total"); err != nil {
		return nil, err
	}
	if m.feesSettled, err = meter.Int64Counter("feefriend_fees_settled_total"); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("feefriend_notifications_total"); err != nil {
		return nil, err
	}
	if m.paymentWebhooks, err = meter.Int64Counter("feefriend_payment_webhooks_total"); err != nil {
		return nil, err
	}
	if m.importRows, err = meter.Int64Counter("feefriend_import_rows_total"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordFeesAssigned(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.feesAssigned.Add(ctx, int64(count))
}

func (m *Metrics) RecordFeesOverdue(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.feesOverdue.Add(ctx, int64(count))
}

// RecordFeeSettled counts settlements by path: "manual" or "webhook".
func (m *Metrics) RecordFeeSettled(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.feesSettled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordNotification(ctx context.Context, notificationType, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("type", strings.TrimSpace(notificationType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.notifications.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPaymentWebhook(ctx context.Context, providerStatus, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider_status", strings.TrimSpace(providerStatus)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.paymentWebhooks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordImportRows(ctx context.Context, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.importRows.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":          {},
	"type":            {},
	"status":          {},
	"provider_status": {},
	"outcome":         {},
}

// FilterAttributes strips labels outside the allow list to keep cardinality low.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
