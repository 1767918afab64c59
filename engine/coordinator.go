package engine

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/corvidworks/ndbg/breakpoint"
	"github.com/corvidworks/ndbg/bus"
	"github.com/corvidworks/ndbg/message"
)

// SessionState is the SessionCoordinator's own lifecycle state, distinct
// from any individual thread's State.
type SessionState string

const (
	SessionInitialized SessionState = "initialized"
	SessionRunning     SessionState = "running"
	SessionTerminated  SessionState = "terminated"
)

// ThreadInfo is a read-only summary of a tracked thread, returned by
// ListThreads.
type ThreadInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State State  `json:"state"`
}

// defaultIgnoreSet names the engine's own source files: trace events
// originating from the engine's own machinery are never of interest to a
// user debugging their program. Extendable (not replaceable) via
// config.Config.ExtraIgnoreFiles. Grounded on the original source's
// _IGNORE_FILES list — reproduced here as two distinct entries, resolving
// the Open Question about its missing list separator (see SPEC_FULL.md §9).
var defaultIgnoreSet = []string{
	"controller.go",
	"coordinator.go",
}

// SessionCoordinator multiplexes trace events across every thread of one
// debug session, per spec.md §4.4. It owns the breakpoint table and the
// message bus for the session's lifetime.
type SessionCoordinator struct {
	sourcePath string
	bus        bus.Bus
	breakpoints *breakpoint.Registry
	ignoreSet  map[string]struct{}

	stateMu   sync.Mutex
	stateCond *sync.Cond
	state     SessionState

	controllersMu   sync.Mutex
	controllersCond *sync.Cond
	controllers     map[string]*ThreadController
}

// CoordinatorConfig configures a new SessionCoordinator.
type CoordinatorConfig struct {
	SourcePath       string
	Bus              bus.Bus
	Breakpoints      *breakpoint.Registry
	ExtraIgnoreFiles []string
}

// NewSessionCoordinator constructs a coordinator in SessionInitialized
// state. It does not start tracing; call Run to do that.
func NewSessionCoordinator(cfg CoordinatorConfig) *SessionCoordinator {
	if cfg.Bus == nil {
		cfg.Bus = bus.NewMemBus(bus.MemBusConfig{})
	}
	if cfg.Breakpoints == nil {
		cfg.Breakpoints = breakpoint.NewRegistry()
	}

	ignore := make(map[string]struct{}, len(defaultIgnoreSet)+len(cfg.ExtraIgnoreFiles))
	for _, name := range defaultIgnoreSet {
		ignore[name] = struct{}{}
	}
	for _, name := range cfg.ExtraIgnoreFiles {
		ignore[name] = struct{}{}
	}

	c := &SessionCoordinator{
		sourcePath:  cfg.SourcePath,
		bus:         cfg.Bus,
		breakpoints: cfg.Breakpoints,
		ignoreSet:   ignore,
		state:       SessionInitialized,
		controllers: make(map[string]*ThreadController),
	}
	c.stateCond = sync.NewCond(&c.stateMu)
	c.controllersCond = sync.NewCond(&c.controllersMu)
	return c
}

// SourcePath returns the target program path the session was created for.
func (c *SessionCoordinator) SourcePath() string { return c.sourcePath }

// Bus returns the session's message bus.
func (c *SessionCoordinator) Bus() bus.Bus { return c.bus }

// State returns the coordinator's current lifecycle state.
func (c *SessionCoordinator) State() SessionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Start transitions the session to Running, allowing Run to proceed past
// its initial wait. Idempotent once Terminated.
func (c *SessionCoordinator) Start() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == SessionTerminated {
		return
	}
	c.state = SessionRunning
	c.stateCond.Broadcast()
}

// Resume sets every tracked thread running again.
func (c *SessionCoordinator) Resume() {
	for _, ctrl := range c.snapshotControllers() {
		ctrl.Resume()
	}
}

// Stop terminates the session and every tracked thread. Fire-and-forget:
// it does not wait for an in-flight evaluate/execute call to finish.
func (c *SessionCoordinator) Stop() {
	c.stateMu.Lock()
	c.state = SessionTerminated
	c.stateCond.Broadcast()
	c.stateMu.Unlock()

	for _, ctrl := range c.snapshotControllers() {
		ctrl.Stop()
	}
}

// SetBreakpoint registers a breakpoint and returns the table's current
// snapshot.
func (c *SessionCoordinator) SetBreakpoint(path string, line int) (map[string][]int, error) {
	if path == "" {
		return nil, newError(ErrInvalidArgument, "path must not be empty")
	}
	if line < 1 {
		return nil, newError(ErrInvalidArgument, "line must be >= 1, got %d", line)
	}
	if err := c.breakpoints.Add(path, line); err != nil {
		return nil, wrapError(ErrInvalidArgument, err, "could not set breakpoint")
	}
	return c.breakpoints.Snapshot(), nil
}

// IsBreakpoint reports whether path:line currently carries a breakpoint.
func (c *SessionCoordinator) IsBreakpoint(path string, line int) bool {
	return c.breakpoints.Contains(path, line)
}

// GetMessages drains and returns every message queued since the last call.
func (c *SessionCoordinator) GetMessages() []message.Message {
	return c.bus.Drain()
}

// GetThread looks up a tracked thread by ID.
func (c *SessionCoordinator) GetThread(id string) (*ThreadController, error) {
	c.controllersMu.Lock()
	defer c.controllersMu.Unlock()
	ctrl, ok := c.controllers[id]
	if !ok {
		return nil, newError(ErrUnknownThread, "no such thread: %s", id)
	}
	return ctrl, nil
}

// ListThreads returns a snapshot summary of every tracked thread.
func (c *SessionCoordinator) ListThreads() []ThreadInfo {
	ctrls := c.snapshotControllers()
	out := make([]ThreadInfo, 0, len(ctrls))
	for _, ctrl := range ctrls {
		out = append(out, ThreadInfo{ID: ctrl.ID(), Name: ctrl.Name(), State: ctrl.State()})
	}
	return out
}

// Dispatch is the session's root trace dispatch (spec.md §4.4). A Host
// adapter calls this for every trace event, identifying the originating
// thread explicitly (threadID/threadName) since Go exposes no ambient
// thread-local identity the way the original relied on.
func (c *SessionCoordinator) Dispatch(threadID, threadName string, frame Frame, event TraceEvent) TraceHook {
	if c.State() == SessionTerminated {
		return nil
	}
	if !validEvent(event) {
		return nil
	}
	if event == EventCall && c.isIgnored(frame.FilePath()) {
		return nil
	}

	c.controllersMu.Lock()
	ctrl, exists := c.controllers[threadID]
	if !exists {
		ctrl = newThreadController(threadID, threadName, frame, c.bus, c.breakpoints, c.ignoreSet, c.removeController)
		c.controllers[threadID] = ctrl
		c.controllersMu.Unlock()
		return nil
	}
	c.controllersMu.Unlock()

	return ctrl.OnTrace(frame, event)
}

// Run installs the trace bridge against host, executes the target program
// via executor, and waits for every thread to finish before returning.
// CommandInterface/rpc server lifecycle is not Run's concern: a caller
// (typically cmd/ndbg) starts that independently around the call to Run.
func (c *SessionCoordinator) Run(ctx context.Context, host Host, executor CodeExecutor) error {
	c.stateMu.Lock()
	for c.state == SessionInitialized {
		c.stateCond.Wait()
	}
	terminated := c.state == SessionTerminated
	c.stateMu.Unlock()
	if terminated {
		return nil
	}

	bridge := NewTraceBridge(c, host)
	bridge.Install()
	defer bridge.Uninstall()

	err := executor.Run(ctx)

	c.controllersMu.Lock()
	for len(c.controllers) > 0 {
		c.controllersCond.Wait()
	}
	c.controllersMu.Unlock()

	c.stateMu.Lock()
	c.state = SessionTerminated
	c.stateMu.Unlock()

	return err
}

func (c *SessionCoordinator) snapshotControllers() []*ThreadController {
	c.controllersMu.Lock()
	defer c.controllersMu.Unlock()
	out := make([]*ThreadController, 0, len(c.controllers))
	for _, ctrl := range c.controllers {
		out = append(out, ctrl)
	}
	return out
}

// removeController is the atomic "remove + enqueue ThreadEnded" operation
// every controller's Stop() funnels through, guaranteeing the table never
// holds a terminated controller past the message that announces it (see
// SPEC_FULL.md §5's deterministic-reclamation note).
func (c *SessionCoordinator) removeController(id string) {
	c.controllersMu.Lock()
	delete(c.controllers, id)
	c.bus.Publish(message.NewThreadEnded(id))
	c.controllersCond.Broadcast()
	c.controllersMu.Unlock()
}

func (c *SessionCoordinator) isIgnored(path string) bool {
	_, ok := c.ignoreSet[filepath.Base(path)]
	return ok
}

func validEvent(event TraceEvent) bool {
	switch event {
	case EventCall, EventLine, EventReturn, EventException:
		return true
	default:
		return false
	}
}
