package engine

import (
	"context"
	"fmt"
)

// CodeExecutor runs the debuggee's program under the trace hook the
// TraceBridge installs. It is an external collaborator (spec.md §4.7): the
// engine never parses or interprets the debuggee's source, it only reacts
// to the call/line/return/exception events the executor's host produces.
type CodeExecutor interface {
	// Run executes the target program to completion (or until ctx is
	// canceled), invoking the installed trace hook for every traced
	// event along the way.
	Run(ctx context.Context) error
}

// Record is what a Serializer produces from an evaluate/execute result: a
// transport-safe rendering, never the live value itself.
type Record struct {
	Key     string `json:"key"`
	Source  string `json:"source"`
	Kind    string `json:"kind"` // "value" or "error"
	Display string `json:"display"`
	Err     string `json:"error,omitempty"`
}

// Serializer converts an evaluation result (or failure) into a Record
// suitable for the RPC response envelope. Grounded on the original
// source's serialize.GenericSerializer contract.
type Serializer interface {
	Serialize(key, source string, value any, err error) Record
}

// DefaultSerializer is the engine's built-in Serializer: %v formatting,
// never panics on unprintable values. Hosts with richer type systems can
// supply their own Serializer to CommandInterface instead.
type DefaultSerializer struct{}

// Serialize implements Serializer.
func (DefaultSerializer) Serialize(key, source string, value any, err error) (rec Record) {
	rec = Record{Key: key, Source: source}
	if err != nil {
		rec.Kind = "error"
		rec.Err = err.Error()
		return rec
	}
	rec.Kind = "value"
	rec.Display = safeFormat(value)
	return rec
}

func safeFormat(value any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<unprintable: %v>", r)
		}
	}()
	return fmt.Sprintf("%v", value)
}

var _ Serializer = DefaultSerializer{}
