// Package message defines the lifecycle events the debug engine streams to
// a connected client. Messages are value-typed, immutable once constructed,
// and freely copyable; ordering is defined only by enqueue order on the bus
// that carries them (see package bus).
package message

// Kind identifies which variant of Message this is.
type Kind string

const (
	// NoOp is a keepalive / test message carrying no information.
	NoOp Kind = "no_op"

	// ThreadStarted announces a newly observed thread.
	ThreadStarted Kind = "thread_started"

	// ThreadSuspended announces a thread halted at a tracepoint.
	ThreadSuspended Kind = "thread_suspended"

	// ThreadEnded announces a thread's termination.
	ThreadEnded Kind = "thread_ended"
)

// Message is a tagged record describing one lifecycle event. Only the
// fields relevant to Kind are populated; the zero value of the rest is not
// meaningful.
type Message struct {
	Kind Kind `json:"kind"`

	ThreadID   string `json:"thread_id,omitempty"`
	ThreadName string `json:"thread_name,omitempty"`

	FilePath   string `json:"file_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
}

// NewNoOp returns a keepalive message.
func NewNoOp() Message {
	return Message{Kind: NoOp}
}

// NewThreadStarted returns a ThreadStarted message for the given thread.
func NewThreadStarted(threadID, threadName string) Message {
	return Message{Kind: ThreadStarted, ThreadID: threadID, ThreadName: threadName}
}

// NewThreadSuspended returns a ThreadSuspended message pinpointing where the
// thread halted.
func NewThreadSuspended(threadID, filePath string, lineNumber int) Message {
	return Message{
		Kind:       ThreadSuspended,
		ThreadID:   threadID,
		FilePath:   filePath,
		LineNumber: lineNumber,
	}
}

// NewThreadEnded returns a ThreadEnded message for the given thread.
func NewThreadEnded(threadID string) Message {
	return Message{Kind: ThreadEnded, ThreadID: threadID}
}
