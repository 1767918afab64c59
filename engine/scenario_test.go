package engine

import (
	"testing"
	"time"
)

// TestScenarioHelloBreakpoint exercises S1 from spec.md §8: a single
// thread stops at a breakpoint, its stack matches the stop location, and
// resuming lets it run to completion.
func TestScenarioHelloBreakpoint(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.SetBreakpoint("prog", 2); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	frame := NewBasicFrame("prog", 1)
	go func() {
		c.Dispatch("main", "main", frame, EventCall)
		frame.SetLine(2)
		c.Dispatch("main", "main", frame, EventLine)
		c.Dispatch("main", "main", frame, EventReturn)
	}()

	ctrl := waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, err := ctrl.Stack()
	if err != nil {
		t.Fatalf("Stack: %v", err)
	}
	if len(stack) != 1 || stack[0].FilePath != "prog" || stack[0].LineNumber != 2 {
		t.Fatalf("unexpected stack: %+v", stack)
	}

	ctrl.Resume()

	drainUntil(t, c, func(msgs []drainedMsg) bool {
		for _, m := range msgs {
			if m.kind == "thread_ended" && m.threadID == "main" {
				return true
			}
		}
		return false
	}, time.Second)
}

// TestScenarioStepOver exercises S2: stepping over line 1 (x = 1) and line
// 2 (f()) lands on line 3 without ever suspending inside f.
func TestScenarioStepOver(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.SetBreakpoint("prog", 1); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	outer := NewBasicFrame("prog", 1)
	inner := outer.Call("prog", 10) // f()'s first line

	go func() {
		c.Dispatch("main", "main", outer, EventCall)
		c.Dispatch("main", "main", outer, EventLine) // breakpoint at line 1
		// first step_over resumed us; advance to line 2 (calls f)
		outer.SetLine(2)
		c.Dispatch("main", "main", outer, EventLine)
		// second step_over resumed us; f is entered and returns without stopping
		c.Dispatch("main", "main", inner, EventCall)
		c.Dispatch("main", "main", inner, EventLine)
		c.Dispatch("main", "main", inner, EventReturn)
		outer.SetLine(3)
		c.Dispatch("main", "main", outer, EventLine)
		c.Dispatch("main", "main", outer, EventReturn)
	}()

	ctrl := waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ := ctrl.Stack()
	if stack[0].LineNumber != 1 {
		t.Fatalf("expected first stop at line 1, got %d", stack[0].LineNumber)
	}

	if err := ctrl.StepOver(); err != nil {
		t.Fatalf("StepOver: %v", err)
	}
	ctrl = waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ = ctrl.Stack()
	if stack[0].LineNumber != 2 {
		t.Fatalf("expected second stop at line 2, got %d", stack[0].LineNumber)
	}

	if err := ctrl.StepOver(); err != nil {
		t.Fatalf("StepOver: %v", err)
	}
	ctrl = waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ = ctrl.Stack()
	if stack[0].LineNumber != 3 {
		t.Fatalf("expected third stop at line 3 (never inside f), got %d", stack[0].LineNumber)
	}

	ctrl.Resume()
}

// TestScenarioStepInto exercises S3: stepping into line 1 lands on the
// first executable line of f.
func TestScenarioStepInto(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.SetBreakpoint("prog", 1); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	outer := NewBasicFrame("prog", 1)
	inner := outer.Call("prog", 10)

	go func() {
		c.Dispatch("main", "main", outer, EventCall)
		c.Dispatch("main", "main", outer, EventLine)
		outer.SetLine(2)
		c.Dispatch("main", "main", outer, EventLine)
		c.Dispatch("main", "main", inner, EventCall)
		c.Dispatch("main", "main", inner, EventLine)
		c.Dispatch("main", "main", inner, EventReturn)
		outer.SetLine(3)
		c.Dispatch("main", "main", outer, EventLine)
		c.Dispatch("main", "main", outer, EventReturn)
	}()

	ctrl := waitForThreadState(t, c, "main", StatePaused, time.Second)

	if err := ctrl.StepInto(); err != nil {
		t.Fatalf("StepInto: %v", err)
	}
	// The step_into command means the very next line event stops,
	// whichever frame it belongs to: line 2 of outer.
	ctrl = waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ := ctrl.Stack()
	if stack[0].FilePath != "prog" || stack[0].LineNumber != 2 {
		t.Fatalf("unexpected stop: %+v", stack[0])
	}

	if err := ctrl.StepInto(); err != nil {
		t.Fatalf("StepInto: %v", err)
	}
	ctrl = waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ = ctrl.Stack()
	if len(stack) != 2 {
		t.Fatalf("expected to be inside f (2 frames deep), got %d", len(stack))
	}
	if stack[len(stack)-1].LineNumber != 10 {
		t.Fatalf("expected to stop at f's first line (10), got %d", stack[len(stack)-1].LineNumber)
	}

	ctrl.Resume()
}

// TestScenarioStepOut exercises S4: stepping out while suspended inside f
// suspends at the caller's next line.
func TestScenarioStepOut(t *testing.T) {
	c := newTestCoordinator(t)

	// A breakpoint at f's first line gives the scenario a deterministic
	// entry point into "suspended inside f".
	if _, err := c.SetBreakpoint("prog", 10); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	outer := NewBasicFrame("prog", 2)
	inner := outer.Call("prog", 10)

	go func() {
		c.Dispatch("main", "main", outer, EventCall)
		c.Dispatch("main", "main", inner, EventCall)
		c.Dispatch("main", "main", inner, EventLine)
		c.Dispatch("main", "main", inner, EventReturn)
		outer.SetLine(3)
		c.Dispatch("main", "main", outer, EventLine)
		c.Dispatch("main", "main", outer, EventReturn)
	}()

	ctrl := waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ := ctrl.Stack()
	if len(stack) != 2 || stack[len(stack)-1].LineNumber != 10 {
		t.Fatalf("expected suspension inside f at line 10, got %+v", stack)
	}

	if err := ctrl.StepOut(); err != nil {
		t.Fatalf("StepOut: %v", err)
	}
	ctrl = waitForThreadState(t, c, "main", StatePaused, time.Second)
	stack, _ = ctrl.Stack()
	if len(stack) != 1 || stack[0].LineNumber != 3 {
		t.Fatalf("expected stop at caller's line 3, got %+v", stack)
	}

	ctrl.Resume()
}

// TestScenarioEvaluate exercises S5: a successful evaluation returns the
// expected value, and a failing one reports an error without tearing down
// the session.
func TestScenarioEvaluate(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.SetBreakpoint("prog", 1); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	frame := NewBasicFrame("prog", 1)
	frame.Locals()["x"] = 41
	frame.WithEval(
		func(expr string) (any, error) {
			if expr == "x + 1" {
				return 42, nil
			}
			return nil, &Error{Kind: ErrEvaluationFailure, Message: "syntax error"}
		},
		nil,
	)

	go func() {
		c.Dispatch("main", "main", frame, EventCall)
		c.Dispatch("main", "main", frame, EventLine)
		c.Dispatch("main", "main", frame, EventReturn)
	}()

	ctrl := waitForThreadState(t, c, "main", StatePaused, time.Second)

	rec, err := ctrl.Evaluate("x + 1", DefaultSerializer{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.Kind != "value" || rec.Display != "42" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	badRec, err := ctrl.Evaluate("+/", DefaultSerializer{})
	if err == nil {
		t.Fatal("expected an error for a malformed expression")
	}
	if badRec.Kind != "error" {
		t.Fatalf("expected error record, got %+v", badRec)
	}
	if ctrl.State() != StatePaused {
		t.Fatalf("a failed evaluation must not terminate the session")
	}

	ctrl.Resume()
}

// TestScenarioTwoThreads exercises S6: two threads are tracked and can be
// suspended, resumed, and torn down independently.
func TestScenarioTwoThreads(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.SetBreakpoint("prog", 1); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}
	if _, err := c.SetBreakpoint("worker", 1); err != nil {
		t.Fatalf("SetBreakpoint: %v", err)
	}

	mainFrame := NewBasicFrame("prog", 1)
	workerFrame := NewBasicFrame("worker", 1)

	go func() {
		c.Dispatch("main", "main", mainFrame, EventCall)
		c.Dispatch("main", "main", mainFrame, EventLine)
		c.Dispatch("main", "main", mainFrame, EventReturn)
	}()
	go func() {
		c.Dispatch("worker-1", "worker", workerFrame, EventCall)
		c.Dispatch("worker-1", "worker", workerFrame, EventLine)
		c.Dispatch("worker-1", "worker", workerFrame, EventReturn)
	}()

	mainCtrl := waitForThreadState(t, c, "main", StatePaused, time.Second)
	workerCtrl := waitForThreadState(t, c, "worker-1", StatePaused, time.Second)

	threads := c.ListThreads()
	if len(threads) != 2 {
		t.Fatalf("expected 2 threads listed, got %d", len(threads))
	}

	mainCtrl.Resume()
	workerCtrl.Resume()

	drainUntil(t, c, func(msgs []drainedMsg) bool {
		ended := map[string]bool{}
		for _, m := range msgs {
			if m.kind == "thread_ended" {
				ended[m.threadID] = true
			}
		}
		return ended["main"] && ended["worker-1"]
	}, time.Second)
}
