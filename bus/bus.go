// Package bus carries Message values from the engine to whatever is polling
// for them (typically the RPC layer's get_messages handler). The bus is a
// drain queue, not a pub/sub fanout: there is exactly one logical reader,
// matching the CommandInterface's get_messages contract in spec.md §6.
package bus

import "github.com/corvidworks/ndbg/message"

// Bus is the publish/drain contract the engine depends on. Publish never
// blocks and never drops a message; Drain atomically removes and returns
// everything queued so far, preserving publish order.
type Bus interface {
	Publish(msg message.Message)
	Drain() []message.Message
}

// Recorder observes every published message, independently of draining.
// It is used to build optional durable side-channels (see SQLiteRecorder)
// without making them part of the engine's read path.
type Recorder interface {
	Record(msg message.Message)
}

var _ Bus = (*MemBus)(nil)
