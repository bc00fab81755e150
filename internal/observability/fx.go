package observability

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/logger"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/metrics"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	fx.Invoke(ensureTracingProvider),
	fx.Invoke(ensureSchedulerMetrics),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		InstanceID:          cfg.InstanceID,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:            cfg.OtelEnabled,
		ServiceName:        cfg.ServiceName,
		ServiceVersion:     cfg.Version,
		Environment:        cfg.Environment,
		ExporterEndpoint:   cfg.OtelExporterEndpoint,
		ExporterProtocol:   cfg.OtelExporterProtocol,
		SamplingRatio:      cfg.OtelSamplingRatio,
		ResourceAttributes: cfg.Attributes(),
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:            cfg.OtelEnabled,
		ExporterEndpoint:   cfg.OtelExporterEndpoint,
		ExporterProtocol:   cfg.OtelExporterProtocol,
		ServiceName:        cfg.ServiceName,
		Environment:        cfg.Environment,
		ResourceAttributes: cfg.Attributes(),
	}
}

func ensureSchedulerMetrics(cfg metrics.Config) {
	metrics.SchedulerWithConfig(cfg)
}
