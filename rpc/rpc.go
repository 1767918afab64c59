package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/corvidworks/ndbg/engine"
)

const shutdownGrace = 5 * time.Second

// request is the JSON-RPC-shaped envelope accepted by POST /rpc (spec.md
// §6 method table, wire format per SPEC_FULL.md §6).
type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// response is the envelope returned on success.
type response struct {
	Result any `json:"result"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	// Every call gets its own correlation id so a slow or failing method
	// can be traced through the logs without the transport needing any
	// notion of a persistent client session.
	requestID := uuid.NewString()
	logger := s.logger.With("request_id", requestID)

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("malformed rpc request body", "error", err)
		writeError(w, http.StatusBadRequest, string(engine.ErrInvalidArgument), "malformed request body")
		return
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		logger.Warn("unknown rpc method", "method", req.Method)
		writeError(w, http.StatusNotFound, string(engine.ErrInvalidArgument), "unknown method: "+req.Method)
		return
	}

	result, err := handler(s.engine, req.Params)
	if err != nil {
		s.writeEngineError(w, logger, req.Method, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Result: result})
}

func (s *Server) writeEngineError(w http.ResponseWriter, logger *slog.Logger, method string, err error) {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		logger.Warn("rpc method failed", "method", method, "kind", engErr.Kind, "message", engErr.Message)
		writeError(w, statusForKind(engErr.Kind), string(engErr.Kind), engErr.Error())
		return
	}
	logger.Error("rpc method failed with an unclassified error", "method", method, "error", err)
	writeError(w, http.StatusInternalServerError, string(engine.ErrSessionFatal), err.Error())
}

// ListenAndServe binds to s.Addr and serves until ctx is canceled, at which
// point it shuts the HTTP server down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
