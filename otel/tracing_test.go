package otel_test

import (
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/corvidworks/ndbg/message"
	ndbgotel "github.com/corvidworks/ndbg/otel"
)

func newTestTracer() (*tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	return exporter, tp
}

func TestTracingHandlerOpensAndClosesSpanPerThread(t *testing.T) {
	exporter, tp := newTestTracer()
	tracer := tp.Tracer("test")
	h := ndbgotel.NewTracingHandler(tracer)

	h.Handle(message.NewThreadStarted("t1", "main"))
	if sc := h.ActiveSpanContext("t1"); !sc.IsValid() {
		t.Fatal("expected an active span right after ThreadStarted")
	}

	h.Handle(message.NewThreadSuspended("t1", "prog", 2))
	h.Handle(message.NewThreadEnded("t1"))

	if sc := h.ActiveSpanContext("t1"); sc.IsValid() {
		t.Fatal("expected no active span after ThreadEnded")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected exactly one ended span, got %d", len(spans))
	}
	if spans[0].Name != "thread:main" {
		t.Fatalf("unexpected span name: %q", spans[0].Name)
	}
	if len(spans[0].Events) != 1 || spans[0].Events[0].Name != "suspended" {
		t.Fatalf("expected a suspended event, got %+v", spans[0].Events)
	}
}

func TestTracingHandlerIgnoresUnknownThreadOnSuspend(t *testing.T) {
	_, tp := newTestTracer()
	h := ndbgotel.NewTracingHandler(tp.Tracer("test"))

	// No panic, no span created, for a thread never announced.
	h.Handle(message.NewThreadSuspended("ghost", "prog", 1))
	if sc := h.ActiveSpanContext("ghost"); sc.IsValid() {
		t.Fatal("expected no span for an unknown thread")
	}
}
