package engine

import (
	"testing"
	"time"

	"github.com/corvidworks/ndbg/breakpoint"
	"github.com/corvidworks/ndbg/bus"
)

// newTestCoordinator builds a coordinator wired to a fresh in-memory bus and
// breakpoint table, already started (SessionRunning), ready to receive
// synthetic trace events from a BasicFrame chain.
func newTestCoordinator(t *testing.T) *SessionCoordinator {
	t.Helper()
	c := NewSessionCoordinator(CoordinatorConfig{
		SourcePath:  "prog",
		Bus:         bus.NewMemBus(bus.MemBusConfig{}),
		Breakpoints: breakpoint.NewRegistry(),
	})
	c.Start()
	return c
}

// waitForThreadState polls until the named thread reaches want, or fails the
// test after a bounded timeout. Mirrors the teacher's polling style in
// concurrency-heavy tests (e.g. sse/handler_test.go).
func waitForThreadState(t *testing.T, c *SessionCoordinator, threadID string, want State, timeout time.Duration) *ThreadController {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctrl, err := c.GetThread(threadID)
		if err == nil && ctrl.State() == want {
			return ctrl
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("thread %s did not reach state %s in time", threadID, want)
	return nil
}

func drainUntil(t *testing.T, c *SessionCoordinator, want func(msgs []drainedMsg) bool, timeout time.Duration) []drainedMsg {
	t.Helper()
	var all []drainedMsg
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, m := range c.GetMessages() {
			all = append(all, drainedMsg{kind: string(m.Kind), threadID: m.ThreadID, filePath: m.FilePath, line: m.LineNumber})
		}
		if want(all) {
			return all
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before timeout, messages so far: %+v", all)
	return all
}

type drainedMsg struct {
	kind     string
	threadID string
	filePath string
	line     int
}
