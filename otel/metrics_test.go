package otel_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/corvidworks/ndbg/message"
	ndbgotel "github.com/corvidworks/ndbg/otel"
)

func newTestMeter() (*metric.ManualReader, *metric.MeterProvider) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetricsHandlerRecordsThreadLifecycle(t *testing.T) {
	reader, mp := newTestMeter()
	h, err := ndbgotel.NewMetricsHandler(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}

	h.Handle(message.NewThreadStarted("t1", "main"))
	h.Handle(message.NewThreadSuspended("t1", "prog", 2))
	h.Handle(message.NewThreadEnded("t1"))

	rm := collectMetrics(t, reader)

	if m := findMetric(rm, "ndbg.messages.published"); m == nil {
		t.Fatal("expected ndbg.messages.published to be recorded")
	}
	if m := findMetric(rm, "ndbg.threads.active"); m == nil {
		t.Fatal("expected ndbg.threads.active to be recorded")
	}
	if m := findMetric(rm, "ndbg.breakpoints.hit"); m == nil {
		t.Fatal("expected ndbg.breakpoints.hit to be recorded")
	}
}
