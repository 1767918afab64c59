package cli

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/corvidworks/ndbg/message"
	ndbgotel "github.com/corvidworks/ndbg/otel"
)

// handlerRecorder adapts an otel handler's Handle(message.Message) method to
// bus.Recorder, letting tracing/metrics ride the same Publish fan-out path
// as the SQLite audit log.
type handlerRecorder struct {
	handle func(message.Message)
}

func (r handlerRecorder) Record(msg message.Message) { r.handle(msg) }

// telemetry bundles the constructed handlers and their shutdown hook.
type telemetry struct {
	tracing  *ndbgotel.TracingHandler
	metrics  *ndbgotel.MetricsHandler
	shutdown func(context.Context) error
}

// recorders exposes the telemetry handlers as bus.Recorder adapters, in a
// stable order (tracing, then metrics).
func (t *telemetry) recorders() []handlerRecorder {
	out := make([]handlerRecorder, 0, 2)
	if t.tracing != nil {
		out = append(out, handlerRecorder{handle: t.tracing.Handle})
	}
	if t.metrics != nil {
		out = append(out, handlerRecorder{handle: t.metrics.Handle})
	}
	return out
}

// setupTelemetry builds tracer/meter providers and the engine's
// TracingHandler/MetricsHandler bound to them. Spans export to an OTLP
// collector over HTTP (go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp,
// default endpoint localhost:4318); the exporter's batcher retries in the
// background rather than blocking startup on a reachable collector.
func setupTelemetry(ctx context.Context, logger *slog.Logger) *telemetry {
	meterProvider := sdkmetric.NewMeterProvider()
	metricsHandler, err := ndbgotel.NewMetricsHandler(meterProvider.Meter("ndbg"))
	if err != nil {
		logger.Warn("metrics handler disabled", "error", err)
		metricsHandler = nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		logger.Warn("otlp trace exporter disabled, tracing is a no-op", "error", err)
		return &telemetry{
			metrics:  metricsHandler,
			shutdown: func(ctx context.Context) error { return meterProvider.Shutdown(ctx) },
		}
	}

	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	tracingHandler := ndbgotel.NewTracingHandler(tracerProvider.Tracer("ndbg"))

	return &telemetry{
		tracing: tracingHandler,
		metrics: metricsHandler,
		shutdown: func(ctx context.Context) error {
			if err := tracerProvider.Shutdown(ctx); err != nil {
				return err
			}
			return meterProvider.Shutdown(ctx)
		},
	}
}
