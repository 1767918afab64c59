package engine

import "github.com/corvidworks/ndbg/message"

// CommandInterface is the engine's RPC-facing surface (spec.md §4.5,
// C6). It has no transport knowledge of its own: rpc.Server wraps one of
// these behind an explicit method-name dispatch table. Keeping the two
// separate means the same CommandInterface can be driven directly from a
// test without going through HTTP/JSON at all.
type CommandInterface struct {
	coordinator *SessionCoordinator
	serializer  Serializer
}

// NewCommandInterface wraps coordinator, using serializer to render
// evaluate/execute results. A nil serializer defaults to DefaultSerializer.
func NewCommandInterface(coordinator *SessionCoordinator, serializer Serializer) *CommandInterface {
	if serializer == nil {
		serializer = DefaultSerializer{}
	}
	return &CommandInterface{coordinator: coordinator, serializer: serializer}
}

// Ping is a liveness check; it requires no session state.
func (c *CommandInterface) Ping() string { return "pong" }

// Start transitions the session to running.
func (c *CommandInterface) Start() { c.coordinator.Start() }

// Stop terminates the session.
func (c *CommandInterface) Stop() { c.coordinator.Stop() }

// Resume resumes a single thread.
func (c *CommandInterface) Resume(threadID string) error {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return err
	}
	ctrl.Resume()
	return nil
}

// ResumeAll resumes every tracked thread.
func (c *CommandInterface) ResumeAll() { c.coordinator.Resume() }

// StepOver steps a single thread over its current line.
func (c *CommandInterface) StepOver(threadID string) error {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return err
	}
	return ctrl.StepOver()
}

// StepInto steps a single thread into its current line's call, if any.
func (c *CommandInterface) StepInto(threadID string) error {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return err
	}
	return ctrl.StepInto()
}

// StepOut steps a single thread until its current frame returns.
func (c *CommandInterface) StepOut(threadID string) error {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return err
	}
	return ctrl.StepOut()
}

// GetStack returns the call stack of a suspended thread.
func (c *CommandInterface) GetStack(threadID string) ([]StackFrame, error) {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return nil, err
	}
	return ctrl.Stack()
}

// SetBreakpoint registers path:line and returns the table's snapshot.
func (c *CommandInterface) SetBreakpoint(path string, line int) (map[string][]int, error) {
	return c.coordinator.SetBreakpoint(path, line)
}

// Evaluate evaluates a read-only expression against a suspended thread.
func (c *CommandInterface) Evaluate(threadID, expression string) (Record, error) {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return Record{}, err
	}
	return ctrl.Evaluate(expression, c.serializer)
}

// Execute executes statements, with side effects, against a suspended
// thread.
func (c *CommandInterface) Execute(threadID, statements string) (Record, error) {
	ctrl, err := c.coordinator.GetThread(threadID)
	if err != nil {
		return Record{}, err
	}
	return ctrl.Execute(statements, c.serializer)
}

// ListThreads returns a summary of every tracked thread.
func (c *CommandInterface) ListThreads() []ThreadInfo {
	return c.coordinator.ListThreads()
}

// GetMessages drains the session's message bus.
func (c *CommandInterface) GetMessages() []message.Message {
	return c.coordinator.GetMessages()
}
