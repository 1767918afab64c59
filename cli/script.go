package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/corvidworks/ndbg/engine"
)

// ScriptHost is the reference engine.Host wired into the CLI: it has no
// real interpreter behind it, just a single stored trace callback invoked
// by ScriptExecutor. Grounded on spec.md's own framing of the code loader
// as an external collaborator (spec.md §1) — this is the minimal stand-in
// that makes the engine runnable end to end from the command line.
type ScriptHost struct {
	hook engine.HostTraceFunc
}

// NewScriptHost returns a Host with no trace callback installed.
func NewScriptHost() *ScriptHost { return &ScriptHost{} }

// SetGlobalTrace implements engine.Host.
func (h *ScriptHost) SetGlobalTrace(hook engine.HostTraceFunc) { h.hook = hook }

// ClearTrace implements engine.Host.
func (h *ScriptHost) ClearTrace() { h.hook = nil }

func (h *ScriptHost) trace(threadID, threadName string, frame engine.Frame, event engine.TraceEvent) {
	if h.hook == nil {
		return
	}
	h.hook(threadID, threadName, frame, event)
}

var _ engine.Host = (*ScriptHost)(nil)

// ScriptExecutor is a minimal engine.CodeExecutor that treats every
// non-blank line of the target file as one executable line event on a
// single "main" thread, with no call/function nesting. It exists so
// cmd/ndbg has something real to drive the engine against (§4.8's "BasicFrame
// ... used by tests and the reference CLI demo"); a genuine implementation
// of the target language's loader is out of scope (spec.md §1(b)).
type ScriptExecutor struct {
	Host       *ScriptHost
	Path       string
	ThreadID   string
	ThreadName string
}

// NewScriptExecutor returns an executor for path on a single "main" thread.
func NewScriptExecutor(host *ScriptHost, path string) *ScriptExecutor {
	return &ScriptExecutor{Host: host, Path: path, ThreadID: "main", ThreadName: "main"}
}

// Run implements engine.CodeExecutor.
func (e *ScriptExecutor) Run(ctx context.Context) error {
	lines, err := executableLines(e.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", e.Path, err)
	}

	frame := engine.NewBasicFrame(e.Path, 0)
	e.Host.trace(e.ThreadID, e.ThreadName, frame, engine.EventCall)

	for _, line := range lines {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		frame.SetLine(line)
		e.Host.trace(e.ThreadID, e.ThreadName, frame, engine.EventLine)
	}

	e.Host.trace(e.ThreadID, e.ThreadName, frame, engine.EventReturn)
	return nil
}

// executableLines returns the 1-based line numbers of every non-blank line
// in path.
func executableLines(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []int
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		lines = append(lines, lineNo)
	}
	return lines, scanner.Err()
}
