package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	SettingsFile  string
	SettingsWatch bool

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// SchedulerInterval is the status sweep period; zero disables it.
	SchedulerInterval time.Duration

	Redis     RedisConfig
	Export    ExportConfig
	RateLimit RateLimitConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Enabled reports whether a redis server was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// TelemetryConfig feeds logging, tracing and OTel metrics.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	Environment   string
	Version       string
	OTelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int
}

type ExportConfig struct {
	Driver     string
	Dir        string
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string
	S3Key      string
	S3Secret   string
}

const (
	ExportDriverLocal = "local"
	ExportDriverS3    = "s3"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "jobtrack"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            getenvInt64("NODE_ID", 1),
		SettingsFile:      strings.TrimSpace(getenv("SETTINGS_FILE", "")),
		SettingsWatch:     getenvBool("SETTINGS_WATCH", true),
		Telemetry:         loadTelemetry(),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "jobtrack"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "jobtrack.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		SchedulerInterval: time.Duration(getenvInt("SCHEDULER_INTERVAL_SECONDS", 900)) * time.Second,
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
			Channel:  getenv("REDIS_CHANGES_CHANNEL", "jobtrack:changes"),
		},
		Export: ExportConfig{
			Driver:     normalizeExportDriver(getenv("EXPORT_DRIVER", ExportDriverLocal)),
			Dir:        getenv("EXPORT_DIR", "exports"),
			S3Bucket:   strings.TrimSpace(getenv("EXPORT_S3_BUCKET", "")),
			S3Region:   getenv("EXPORT_S3_REGION", "us-east-1"),
			S3Endpoint: strings.TrimSpace(getenv("EXPORT_S3_ENDPOINT", "")),
			S3Prefix:   strings.Trim(getenv("EXPORT_S3_PREFIX", "invoices"), "/"),
			S3Key:      strings.TrimSpace(getenv("EXPORT_S3_ACCESS_KEY", "")),
			S3Secret:   strings.TrimSpace(getenv("EXPORT_S3_SECRET_KEY", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", false),
			Rate:    getenvFloat("RATE_LIMIT_RPS", 20),
			Burst:   getenvInt("RATE_LIMIT_BURST", 40),
		},
	}

	return cfg
}

func loadTelemetry() TelemetryConfig {
	protocol := getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		protocol = traces
	}
	return TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		Environment:   strings.TrimSpace(os.Getenv("DEPLOYMENT_ENV")),
		Version:       strings.TrimSpace(os.Getenv("SERVICE_VERSION")),
		OTelEnabled:   getenvBool("OTEL_ENABLED", false),
		OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:  strings.ToLower(strings.TrimSpace(protocol)),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeExportDriver(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ExportDriverS3:
		return ExportDriverS3
	default:
		return ExportDriverLocal
	}
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

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
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
