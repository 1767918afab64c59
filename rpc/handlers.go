package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/corvidworks/ndbg/engine"
)

// methodTable returns the explicit method-name dispatch table described in
// SPEC_FULL.md §4.11: one entry per method in spec.md §6, never a
// prefix-based convention (see spec.md §9's "Method-export prefix" redesign
// flag).
func methodTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		"ping":           handlePing,
		"start":          handleStart,
		"stop":           handleStop,
		"resume":         handleResume,
		"resume_all":     handleResumeAll,
		"step_over":      handleStepOver,
		"step_into":      handleStepInto,
		"step_out":       handleStepOut,
		"get_stack":      handleGetStack,
		"set_breakpoint": handleSetBreakpoint,
		"evaluate":       handleEvaluate,
		"execute":        handleExecute,
		"list_threads":   handleListThreads,
		"get_messages":   handleGetMessages,
	}
}

type threadIDParams struct {
	ThreadID string `json:"thread_id"`
}

type breakpointParams struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

type evaluateParams struct {
	ThreadID   string `json:"thread_id"`
	Expression string `json:"expression"`
}

type executeParams struct {
	ThreadID   string `json:"thread_id"`
	Statements string `json:"statements"`
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func handlePing(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	return c.Ping(), nil
}

func handleStart(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	c.Start()
	return "OK", nil
}

func handleStop(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	c.Stop()
	return "OK", nil
}

func handleResume(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p threadIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := c.Resume(p.ThreadID); err != nil {
		return nil, err
	}
	return p.ThreadID, nil
}

func handleResumeAll(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	c.ResumeAll()
	return "OK", nil
}

func handleStepOver(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p threadIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := c.StepOver(p.ThreadID); err != nil {
		return nil, err
	}
	return p.ThreadID, nil
}

func handleStepInto(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p threadIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := c.StepInto(p.ThreadID); err != nil {
		return nil, err
	}
	return p.ThreadID, nil
}

func handleStepOut(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p threadIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	if err := c.StepOut(p.ThreadID); err != nil {
		return nil, err
	}
	return p.ThreadID, nil
}

func handleGetStack(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p threadIDParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	return c.GetStack(p.ThreadID)
}

func handleSetBreakpoint(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p breakpointParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	return c.SetBreakpoint(p.File, p.Line)
}

// handleEvaluate follows spec.md §4.5/§8 scenario S5: a syntax or runtime
// error in the evaluated expression is a successful RPC call whose result
// carries an error-kind Record, not an RPC-level failure. Only a
// transport-boundary failure (unknown thread, not suspended) is surfaced as
// an RPC error.
func handleEvaluate(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p evaluateParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	record, err := c.Evaluate(p.ThreadID, p.Expression)
	return evaluationResult(record, err)
}

func handleExecute(c *engine.CommandInterface, raw json.RawMessage) (any, error) {
	var p executeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, invalidParams(err)
	}
	record, err := c.Execute(p.ThreadID, p.Statements)
	return evaluationResult(record, err)
}

func evaluationResult(record engine.Record, err error) (any, error) {
	if err != nil && engine.KindOf(err) != engine.ErrEvaluationFailure {
		return nil, err
	}
	return record, nil
}

func handleListThreads(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	return c.ListThreads(), nil
}

func handleGetMessages(c *engine.CommandInterface, _ json.RawMessage) (any, error) {
	return c.GetMessages(), nil
}

func invalidParams(cause error) error {
	return &engine.Error{Kind: engine.ErrInvalidArgument, Message: "malformed params", Cause: cause}
}

// statusForKind maps an engine.ErrorKind onto an HTTP status, per
// SPEC_FULL.md §7.
func statusForKind(kind engine.ErrorKind) int {
	switch kind {
	case engine.ErrUnknownThread:
		return http.StatusNotFound
	case engine.ErrNotSuspended:
		return http.StatusConflict
	case engine.ErrInvalidArgument:
		return http.StatusBadRequest
	case engine.ErrEvaluationFailure:
		return http.StatusUnprocessableEntity
	case engine.ErrTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
