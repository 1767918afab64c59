package engine

import (
	"path/filepath"
	"sync"

	"github.com/corvidworks/ndbg/breakpoint"
	"github.com/corvidworks/ndbg/bus"
	"github.com/corvidworks/ndbg/message"
)

// Command is the stepping mode a ThreadController is currently executing.
type Command string

const (
	CommandRun      Command = "run"
	CommandStepOver Command = "step_over"
	CommandStepInto Command = "step_into"
	CommandStepOut  Command = "step_out"
)

// State is a ThreadController's lifecycle state.
type State string

const (
	StateRunning    State = "running"
	StatePaused     State = "paused"
	StateTerminated State = "terminated"
)

// TraceEvent is the kind of trace callback the host invoked for a frame.
type TraceEvent string

const (
	EventCall      TraceEvent = "call"
	EventLine      TraceEvent = "line"
	EventReturn    TraceEvent = "return"
	EventException TraceEvent = "exception"
)

// TraceHook is what OnTrace/Dispatch return to tell the host which hook to
// invoke for the next event on the same activation (or nil to stop tracing
// it). The hosts in this repository (ScriptHost and the test fixtures)
// ignore the returned hook and send every event through Dispatch.
type TraceHook func(frame Frame, event TraceEvent) TraceHook

// StackFrame is a read-only snapshot of one activation, returned by
// ThreadController.Stack.
type StackFrame struct {
	FilePath   string         `json:"file_path"`
	LineNumber int            `json:"line_number"`
	Locals     map[string]any `json:"locals"`
	Globals    map[string]any `json:"globals"`
}

// ThreadController owns the suspend/resume state machine for exactly one
// traced thread, per spec.md §4.3. It is never constructed directly by
// callers outside this package; SessionCoordinator.Dispatch creates one the
// first time it observes a new thread ID.
type ThreadController struct {
	id   string
	name string

	originToken ActivationToken

	mu   sync.Mutex
	cond *sync.Cond

	currentFrame Frame
	stopFrame    Frame
	command      Command
	state        State

	bus         bus.Bus
	breakpoints *breakpoint.Registry
	ignoreSet   map[string]struct{}
	onStopped   func(id string)
}

func newThreadController(
	id, name string,
	origin Frame,
	b bus.Bus,
	breakpoints *breakpoint.Registry,
	ignoreSet map[string]struct{},
	onStopped func(id string),
) *ThreadController {
	c := &ThreadController{
		id:           id,
		name:         name,
		originToken:  origin.Token(),
		currentFrame: origin,
		command:      CommandRun,
		state:        StateRunning,
		bus:          b,
		breakpoints:  breakpoints,
		ignoreSet:    ignoreSet,
		onStopped:    onStopped,
	}
	c.cond = sync.NewCond(&c.mu)
	b.Publish(message.NewThreadStarted(id, name))
	return c
}

// ID returns the thread identifier this controller was created for.
func (c *ThreadController) ID() string { return c.id }

// Name returns the thread's display name.
func (c *ThreadController) Name() string { return c.name }

// State returns the controller's current lifecycle state.
func (c *ThreadController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnTrace is the controller's own trace dispatch, implementing spec.md
// §4.3's stop/continue algorithm. It is invoked by SessionCoordinator.Dispatch
// for every trace event belonging to this thread once the controller exists.
func (c *ThreadController) OnTrace(frame Frame, event TraceEvent) TraceHook {
	if event == EventReturn && sameToken(frame, c.originToken) {
		c.Stop()
		return nil
	}

	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return nil
	}

	c.currentFrame = frame
	target := c.stopTarget(frame, event)
	if target == nil {
		c.mu.Unlock()
		return c.OnTrace
	}

	c.state = StatePaused
	c.mu.Unlock()

	c.bus.Publish(message.NewThreadSuspended(c.id, target.FilePath(), target.LineNumber()))

	c.mu.Lock()
	for c.state == StatePaused {
		c.cond.Wait()
	}
	terminated := c.state == StateTerminated
	c.mu.Unlock()

	if terminated {
		return nil
	}
	return c.OnTrace
}

// stopTarget implements the per-event decision of whether this activation
// should suspend the thread, and if so at which frame. Must be called with
// c.mu held.
func (c *ThreadController) stopTarget(frame Frame, event TraceEvent) Frame {
	var target Frame

	switch event {
	case EventReturn:
		switch c.command {
		case CommandStepInto:
			if parent, ok := frame.Parent(); ok {
				target = parent
				c.currentFrame = parent
			}
		case CommandStepOver, CommandStepOut:
			if sameFrame(frame, c.stopFrame) {
				if parent, ok := frame.Parent(); ok {
					target = parent
					c.currentFrame = parent
				}
			}
		}
	case EventLine:
		switch c.command {
		case CommandStepInto:
			target = frame
		case CommandStepOver:
			if sameFrame(frame, c.stopFrame) {
				target = frame
			}
		}
	}

	if target == nil && (event == EventLine || event == EventReturn) &&
		c.breakpoints.Contains(frame.FilePath(), frame.LineNumber()) {
		target = frame
	}
	return target
}

// Resume sets the controller to run to completion or the next breakpoint.
func (c *ThreadController) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTerminated {
		return
	}
	c.command = CommandRun
	c.stopFrame = nil
	c.state = StateRunning
	c.cond.Broadcast()
}

// StepOver resumes until control returns to the current frame's line, or
// that frame returns to its caller.
func (c *ThreadController) StepOver() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return newError(ErrNotSuspended, "thread %s is not suspended", c.id)
	}
	c.command = CommandStepOver
	c.stopFrame = c.currentFrame
	c.state = StateRunning
	c.cond.Broadcast()
	return nil
}

// StepInto resumes until the very next line event, in this frame or any
// frame it calls into.
func (c *ThreadController) StepInto() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return newError(ErrNotSuspended, "thread %s is not suspended", c.id)
	}
	c.command = CommandStepInto
	c.stopFrame = nil
	c.state = StateRunning
	c.cond.Broadcast()
	return nil
}

// StepOut resumes until the current frame returns to its caller.
func (c *ThreadController) StepOut() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return newError(ErrNotSuspended, "thread %s is not suspended", c.id)
	}
	c.command = CommandStepOut
	c.stopFrame = c.currentFrame
	c.state = StateRunning
	c.cond.Broadcast()
	return nil
}

// Stop terminates the controller. Idempotent: a controller that has
// already terminated ignores a second Stop. The coordinator-provided
// onStopped callback is responsible for the atomic removal-plus-ThreadEnded
// publish (see SessionCoordinator.removeController).
func (c *ThreadController) Stop() {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.state = StateTerminated
	c.currentFrame = nil
	c.stopFrame = nil
	c.mu.Unlock()

	if c.onStopped != nil {
		c.onStopped(c.id)
	}

	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()
}

// Stack returns a snapshot of the activation chain starting at the frame
// the thread is currently suspended at, outermost frame first (spec.md
// §4.3/§6), with file paths reduced to basenames and the engine's own
// frames (ignoreSet) filtered out, matching ndb.py's get_stack.
func (c *ThreadController) Stack() ([]StackFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return nil, newError(ErrNotSuspended, "thread %s is not suspended", c.id)
	}

	var frames []StackFrame
	cur := c.currentFrame
	for cur != nil {
		base := filepath.Base(cur.FilePath())
		if _, ignored := c.ignoreSet[base]; !ignored {
			frames = append([]StackFrame{{
				FilePath:   base,
				LineNumber: cur.LineNumber(),
				Locals:     cur.Locals(),
				Globals:    cur.Globals(),
			}}, frames...)
		}
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return frames, nil
}

// Evaluate runs a read-only expression against the suspended frame's
// scope. The frame must implement Evaluator or this fails with
// ErrEvaluationFailure.
func (c *ThreadController) Evaluate(expression string, serializer Serializer) (Record, error) {
	return c.runOnFrame(expression, serializer, false)
}

// Execute runs one or more statements, permitting side effects, against the
// suspended frame's scope.
func (c *ThreadController) Execute(statements string, serializer Serializer) (Record, error) {
	return c.runOnFrame(statements, serializer, true)
}

func (c *ThreadController) runOnFrame(source string, serializer Serializer, exec bool) (Record, error) {
	c.mu.Lock()
	if c.state != StatePaused {
		c.mu.Unlock()
		return Record{}, newError(ErrNotSuspended, "thread %s is not suspended", c.id)
	}
	frame := c.currentFrame
	c.mu.Unlock()

	evaluator, ok := frame.(Evaluator)
	if !ok {
		err := newError(ErrEvaluationFailure, "frame does not support evaluation")
		return serializer.Serialize(source, source, nil, err), err
	}

	var value any
	var err error
	if exec {
		value, err = evaluator.ExecStmts(source)
	} else {
		value, err = evaluator.EvalExpr(source)
	}
	if err != nil {
		wrapped := wrapError(ErrEvaluationFailure, err, "evaluation failed")
		return serializer.Serialize(source, source, nil, wrapped), wrapped
	}
	return serializer.Serialize(source, source, value, nil), nil
}

func sameToken(frame Frame, token ActivationToken) bool {
	return frame != nil && frame.Token() == token
}
