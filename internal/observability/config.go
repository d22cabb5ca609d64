package observability

import (
	"strings"

	"github.com/lightningshop/jobtrack/internal/config"
)

// Config is the resolved telemetry setup shared by logger, tracing and metrics.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

// LoadConfig fills telemetry gaps from the process config: the deployment
// environment and version fall back to the app's own.
func LoadConfig(cfg config.Config) Config {
	tel := cfg.Telemetry
	out := Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "jobtrack"),
		Environment:          firstNonEmpty(tel.Environment, cfg.Environment),
		Version:              firstNonEmpty(tel.Version, cfg.AppVersion),
		LogLevel:             firstNonEmpty(strings.ToLower(tel.LogLevel), "info"),
		LogFormat:            firstNonEmpty(strings.ToLower(tel.LogFormat), "json"),
		OtelEnabled:          tel.OTelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(tel.OTLPEndpoint),
		OtelExporterProtocol: firstNonEmpty(strings.ToLower(tel.OTLPProtocol), "grpc"),
		OtelSamplingRatio:    tel.SamplingRatio,
	}
	if out.OtelSamplingRatio <= 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = 0.1
	}
	return out
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
