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

// Metrics exposes application-level instruments.
type Metrics struct {
	billingsGenerated  metric.Int64Counter
	generationFailures metric.Int64Counter
	paymentsRecorded   metric.Int64Counter
	meterReadings      metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "propline"
	}
	meter := provider.Meter(name)

	billingsGenerated, err := meter.Int64Counter("propline_billings_generated_total")
	if err != nil {
		return nil, err
	}
	generationFailures, err := meter.Int64Counter("propline_billing_generation_failures_total")
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("propline_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	meterReadings, err := meter.Int64Counter("propline_meter_readings_recorded_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billingsGenerated:  billingsGenerated,
		generationFailures: generationFailures,
		paymentsRecorded:   paymentsRecorded,
		meterReadings:      meterReadings,
	}, nil
}

// RecordBillingGenerated increments generated billing counts.
func (m *Metrics) RecordBillingGenerated(ctx context.Context, billingMonth string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("billing_month", strings.TrimSpace(billingMonth)))
	m.billingsGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGenerationFailure increments per-lease generation failure counts.
func (m *Metrics) RecordGenerationFailure(ctx context.Context, billingMonth, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("billing_month", strings.TrimSpace(billingMonth)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.generationFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment increments recorded payment counts.
func (m *Metrics) RecordPayment(ctx context.Context, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("method", strings.TrimSpace(method)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMeterReading increments recorded meter reading counts.
func (m *Metrics) RecordMeterReading(ctx context.Context, feeCode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("fee_code", strings.TrimSpace(feeCode)))
	m.meterReadings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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
	"billing_month": {},
	"fee_code":      {},
	"method":        {},
	"reason":        {},
	"route":         {},
	"http_method":   {},
	"status_code":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
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
