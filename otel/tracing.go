// Package otel translates engine lifecycle messages into OpenTelemetry
// spans and metrics, grounded on the teacher's otel.TracingHandler /
// otel.MetricsHandler pattern.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/corvidworks/ndbg/message"
)

// TracingHandler opens a span when a thread starts and closes it when the
// thread ends, recording each suspension site as a span event.
type TracingHandler struct {
	tracer trace.Tracer

	mu          sync.RWMutex
	threadSpans map[string]trace.Span
}

// NewTracingHandler returns a handler that creates spans via tracer.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:      tracer,
		threadSpans: make(map[string]trace.Span),
	}
}

// Handle processes one message, implementing a message.Message consumer.
func (h *TracingHandler) Handle(msg message.Message) {
	switch msg.Kind {
	case message.ThreadStarted:
		h.handleThreadStarted(msg)
	case message.ThreadSuspended:
		h.handleThreadSuspended(msg)
	case message.ThreadEnded:
		h.handleThreadEnded(msg)
	}
}

func (h *TracingHandler) handleThreadStarted(msg message.Message) {
	_, span := h.tracer.Start(context.Background(), "thread:"+msg.ThreadName,
		trace.WithAttributes(
			attribute.String("ndbg.thread_id", msg.ThreadID),
			attribute.String("ndbg.thread_name", msg.ThreadName),
		),
	)

	h.mu.Lock()
	h.threadSpans[msg.ThreadID] = span
	h.mu.Unlock()
}

func (h *TracingHandler) handleThreadSuspended(msg message.Message) {
	h.mu.RLock()
	span, ok := h.threadSpans[msg.ThreadID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	span.AddEvent("suspended", trace.WithAttributes(
		attribute.String("ndbg.file_path", msg.FilePath),
		attribute.Int("ndbg.line_number", msg.LineNumber),
	))
}

func (h *TracingHandler) handleThreadEnded(msg message.Message) {
	h.mu.Lock()
	span, ok := h.threadSpans[msg.ThreadID]
	if ok {
		delete(h.threadSpans, msg.ThreadID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	span.SetStatus(codes.Ok, "")
	span.End()
}

// ActiveSpanContext returns the SpanContext of a thread's active span, or
// an empty SpanContext if the thread is unknown or already ended.
func (h *TracingHandler) ActiveSpanContext(threadID string) trace.SpanContext {
	h.mu.RLock()
	defer h.mu.RUnlock()
	span, ok := h.threadSpans[threadID]
	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}
