package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	invoicedomain "github.com/lightningshop/jobtrack/internal/invoice/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the domain instruments.
type Metrics struct {
	statusTransitions metric.Int64Counter
	exports           metric.Int64Counter
	exportBytes       metric.Int64Histogram
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

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "jobtrack"
	}
	meter := provider.Meter(name)

	statusTransitions, err := meter.Int64Counter("jobtrack_invoice_status_transitions_total",
		metric.WithDescription("Invoice status changes made by the reconciler."))
	if err != nil {
		return nil, err
	}
	exports, err := meter.Int64Counter("jobtrack_invoice_exports_total",
		metric.WithDescription("Invoice PDF exports by store driver and outcome."))
	if err != nil {
		return nil, err
	}
	exportBytes, err := meter.Int64Histogram("jobtrack_invoice_export_bytes",
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		statusTransitions: statusTransitions,
		exports:           exports,
		exportBytes:       exportBytes,
	}, nil
}

func (m *Metrics) RecordStatusTransition(ctx context.Context, from, to invoicedomain.InvoiceStatus) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordExport(ctx context.Context, driver string, size int64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := FilterAttributes(
		attribute.String("driver", strings.TrimSpace(driver)),
		attribute.String("outcome", outcome),
	)
	m.exports.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err == nil {
		m.exportBytes.Record(ctx, size, metric.WithAttributes(attrs...))
	}
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
	"from":    {},
	"to":      {},
	"driver":  {},
	"outcome": {},
	"route":   {},
	"method":  {},
	"status":  {},
}

// FilterAttributes keeps only low-cardinality labels. Entity ids never
// become labels.
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
