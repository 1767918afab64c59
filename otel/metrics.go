package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/corvidworks/ndbg/message"
)

// MetricsHandler records counters from the engine's message stream:
// active thread count, suspensions (ndbg.breakpoints.hit counts every
// ThreadSuspended, whether from a breakpoint or a step), and total messages
// published. Grounded on the teacher's MetricsHandler (named instruments
// via a Meter, one Handle method dispatching by kind).
type MetricsHandler struct {
	threadsActive     metric.Int64UpDownCounter
	breakpointsHit    metric.Int64Counter
	messagesPublished metric.Int64Counter
}

// NewMetricsHandler creates a MetricsHandler using meter to build its
// instruments.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	threadsActive, err := meter.Int64UpDownCounter("ndbg.threads.active",
		metric.WithDescription("Number of currently tracked threads"),
	)
	if err != nil {
		return nil, err
	}

	breakpointsHit, err := meter.Int64Counter("ndbg.breakpoints.hit",
		metric.WithDescription("Number of times a thread suspended (at a breakpoint or after a step)"),
	)
	if err != nil {
		return nil, err
	}

	messagesPublished, err := meter.Int64Counter("ndbg.messages.published",
		metric.WithDescription("Number of messages published on the session bus"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		threadsActive:     threadsActive,
		breakpointsHit:    breakpointsHit,
		messagesPublished: messagesPublished,
	}, nil
}

// Handle processes one message and records the corresponding metrics.
func (h *MetricsHandler) Handle(msg message.Message) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("ndbg.thread_id", msg.ThreadID))

	h.messagesPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ndbg.kind", string(msg.Kind)),
	))

	switch msg.Kind {
	case message.ThreadStarted:
		h.threadsActive.Add(ctx, 1, attrs)
	case message.ThreadEnded:
		h.threadsActive.Add(ctx, -1, attrs)
	case message.ThreadSuspended:
		h.breakpointsHit.Add(ctx, 1, attrs)
	}
}
