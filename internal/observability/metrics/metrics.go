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
	documentsCompiled metric.Int64Counter
	numberCollisions  metric.Int64Counter
	taxFallbacks      metric.Int64Counter
	currencyFallbacks metric.Int64Counter
	backfillOutcomes  metric.Int64Counter
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
		name = "repairdesk"
	}
	meter := provider.Meter(name)

	documentsCompiled, err := meter.Int64Counter("repairdesk_documents_compiled_total")
	if err != nil {
		return nil, err
	}
	numberCollisions, err := meter.Int64Counter("repairdesk_document_number_collisions_total")
	if err != nil {
		return nil, err
	}
	taxFallbacks, err := meter.Int64Counter("repairdesk_tax_fallbacks_total")
	if err != nil {
		return nil, err
	}
	currencyFallbacks, err := meter.Int64Counter("repairdesk_currency_fallbacks_total")
	if err != nil {
		return nil, err
	}
	backfillOutcomes, err := meter.Int64Counter("repairdesk_backfill_outcomes_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentsCompiled: documentsCompiled,
		numberCollisions:  numberCollisions,
		taxFallbacks:      taxFallbacks,
		currencyFallbacks: currencyFallbacks,
		backfillOutcomes:  backfillOutcomes,
	}, nil
}

// RecordDocumentCompiled counts compiled quotes and invoices by tax source.
func (m *Metrics) RecordDocumentCompiled(ctx context.Context, kind, taxSource string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("tax_source", strings.TrimSpace(taxSource)),
	)
	m.documentsCompiled.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNumberCollision counts document number retries.
func (m *Metrics) RecordNumberCollision(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.numberCollisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTaxFallback counts documents issued without any applicable tax rate.
func (m *Metrics) RecordTaxFallback(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.taxFallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCurrencyFallback counts resolutions that did not use an explicit code.
func (m *Metrics) RecordCurrencyFallback(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.currencyFallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBackfill counts per-organization backfill outcomes.
func (m *Metrics) RecordBackfill(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.backfillOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"org_id":      {},
	"kind":        {},
	"tax_source":  {},
	"source":      {},
	"outcome":     {},
	"status_code": {},
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
