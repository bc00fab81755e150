package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// AdminAPIToken guards /api/admin when set.
	AdminAPIToken string
	// PaymentWebhookSecret enables HMAC verification of payment webhooks when set.
	PaymentWebhookSecret string
	WebhookRateLimit     float64
	WebhookRateBurst     int

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	Redis RedisConfig

	SMSProvider string
	NodeID      int64

	Scheduler SchedulerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type SchedulerConfig struct {
	Enabled        bool
	SweepInterval  time.Duration
	OutboxInterval time.Duration
	OutboxBatch    int
	EnabledJobs    []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:              getenv("APP_SERVICE", "feefriend"),
		AppVersion:           getenv("APP_VERSION", "0.1.0"),
		Environment:          getenv("ENVIRONMENT", "development"),
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		AdminAPIToken:        strings.TrimSpace(getenv("ADMIN_API_TOKEN", "")),
		PaymentWebhookSecret: strings.TrimSpace(getenv("PAYMENT_WEBHOOK_SECRET", "")),
		WebhookRateLimit:     getenvFloat("WEBHOOK_RATE_LIMIT", 5),
		WebhookRateBurst:     getenvInt("WEBHOOK_RATE_BURST", 20),
		OTLPEndpoint:         getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:               getenv("DATABASE_TYPE", "postgres"),
		DBHost:               getenv("DATABASE_HOST", "localhost"),
		DBPort:               getenv("DATABASE_PORT", "5432"),
		DBName:               getenv("DATABASE_NAME", "feefriend"),
		DBUser:               getenv("DATABASE_USER", "postgres"),
		DBPassword:           getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:            getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:        getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:        getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:    getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:    getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:        getenvBool("DATABASE_AUTO_MIGRATE", true),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		SMSProvider: strings.ToLower(getenv("SMS_PROVIDER", "log")),
		NodeID:      getenvInt64("NODE_ID", 1),
		Scheduler: SchedulerConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			SweepInterval:  getenvDuration("SWEEP_INTERVAL", time.Hour),
			OutboxInterval: getenvDuration("OUTBOX_INTERVAL", time.Minute),
			OutboxBatch:    getenvInt("OUTBOX_BATCH_SIZE", 50),
			EnabledJobs:    splitList(getenv("SCHEDULER_JOBS", "")),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using default %d", key, value, def)
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("[config] invalid %s=%q, using default %s", key, value, def)
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
