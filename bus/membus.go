package bus

import (
	"sync"

	"github.com/corvidworks/ndbg/message"
)

// MemBusConfig configures a MemBus.
type MemBusConfig struct {
	// Recorders receive every published message, in publish order, in
	// addition to it being enqueued for draining. A recorder must not
	// block; MemBus does not protect against a slow recorder.
	Recorders []Recorder
}

// MemBus is an in-process, FIFO, drain-on-read message queue. A single
// publisher set (the engine's controllers and coordinator) calls Publish
// concurrently; a single reader (the RPC layer) calls Drain periodically.
// Both are safe for concurrent use; Drain never blocks on an empty queue,
// it simply returns an empty slice.
type MemBus struct {
	mu        sync.Mutex
	queue     []message.Message
	recorders []Recorder
}

// NewMemBus returns an empty MemBus.
func NewMemBus(cfg MemBusConfig) *MemBus {
	return &MemBus{recorders: append([]Recorder(nil), cfg.Recorders...)}
}

// Publish enqueues msg and fans it out to any configured recorders. It
// never blocks on downstream consumers.
func (b *MemBus) Publish(msg message.Message) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	recorders := b.recorders
	b.mu.Unlock()

	for _, r := range recorders {
		r.Record(msg)
	}
}

// Drain removes and returns every message enqueued since the last Drain,
// in publish order. The returned slice is owned by the caller.
func (b *MemBus) Drain() []message.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	out := b.queue
	b.queue = nil
	return out
}
