package observability

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

const serviceNamespace = "preschool"

// Config holds observability configuration derived from environment variables.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	// InstanceID is the snowflake node id, so spans and ids from one replica line up.
	InstanceID string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	// ResourceAttributes are attached to every span and exported metric.
	ResourceAttributes map[string]string
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "feefriend"
	}
	otlpProtocol := strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))
	if tracesProtocol := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); tracesProtocol != "" {
		otlpProtocol = strings.ToLower(tracesProtocol)
	}

	instanceID := strconv.FormatInt(cfg.NodeID, 10)
	attrs := map[string]string{
		"service.namespace":           serviceNamespace,
		"service.instance.id":         instanceID,
		"feefriend.sms_provider":      strings.TrimSpace(cfg.SMSProvider),
		"feefriend.scheduler_enabled": strconv.FormatBool(cfg.Scheduler.Enabled),
		"feefriend.redis_enabled":     strconv.FormatBool(cfg.Redis.Enabled()),
	}
	// Operator supplied attributes win over the built-in ones.
	for key, value := range parseResourceAttributes(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")) {
		attrs[key] = value
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          getenv("DEPLOYMENT_ENV", cfg.Environment),
		Version:              getenv("SERVICE_VERSION", cfg.AppVersion),
		InstanceID:           instanceID,
		LogLevel:             strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(getenv("LOG_FORMAT", "json")),
		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: otlpProtocol,
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		ResourceAttributes:   attrs,
	}
}

// Attributes returns ResourceAttributes sorted by key. Empty values are dropped.
func (c Config) Attributes() []attribute.KeyValue {
	keys := make([]string, 0, len(c.ResourceAttributes))
	for key, value := range c.ResourceAttributes {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		out = append(out, attribute.String(key, c.ResourceAttributes[key]))
	}
	return out
}

func (c Config) Debug() bool {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if level == "debug" {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	switch env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// parseResourceAttributes reads the OTEL_RESOURCE_ATTRIBUTES form "k1=v1,k2=v2".
// Malformed pairs are skipped.
func parseResourceAttributes(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
