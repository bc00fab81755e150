package observability

import (
	"testing"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "production", OTLPEndpoint: "collector:4317"})

	assert.Equal(t, "feefriend", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestDebugFollowsEnvironment(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}

func TestLoadConfigResourceAttributes(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "school=wafa, service.namespace=kids,broken,=x")

	cfg := LoadConfig(config.Config{
		NodeID:      7,
		SMSProvider: "log",
		Scheduler:   config.SchedulerConfig{Enabled: true},
	})

	assert.Equal(t, "7", cfg.InstanceID)
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("feefriend.redis_enabled", "false"),
		attribute.String("feefriend.scheduler_enabled", "true"),
		attribute.String("feefriend.sms_provider", "log"),
		attribute.String("school", "wafa"),
		attribute.String("service.instance.id", "7"),
		attribute.String("service.namespace", "kids"),
	}, cfg.Attributes())
}

func TestAttributesDropEmptyValues(t *testing.T) {
	cfg := Config{ResourceAttributes: map[string]string{"feefriend.sms_provider": "", "service.namespace": "preschool"}}
	assert.Equal(t, []attribute.KeyValue{attribute.String("service.namespace", "preschool")}, cfg.Attributes())
}
