// Package rpc exposes an engine.CommandInterface over a single loopback
// HTTP route, grounded on the teacher's server.Server (ServerConfig struct,
// NewServer, Handler()/RegisterRoutes(mux), writeJSON/writeError helpers,
// CORS/max-body middleware).
package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/corvidworks/ndbg/engine"
)

// ServerConfig configures a Server instance.
type ServerConfig struct {
	Engine     *engine.CommandInterface
	Addr       string
	CORSOrigin string
	MaxBody    int64
	Logger     *slog.Logger
}

// Server is the debugger's HTTP/JSON-RPC-shaped API server.
type Server struct {
	engine     *engine.CommandInterface
	addr       string
	corsOrigin string
	maxBody    int64
	logger     *slog.Logger
	methods    map[string]handlerFunc
}

// DefaultAddr is the loopback address/port the server binds to absent an
// explicit ServerConfig.Addr.
const DefaultAddr = "127.0.0.1:8765"

// handlerFunc is one method's dispatch target: decode params, call the
// engine, return a JSON-encodable result or an error.
type handlerFunc func(c *engine.CommandInterface, params json.RawMessage) (any, error)

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = 1 << 20 // 1 MB default
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	s := &Server{
		engine:     cfg.Engine,
		addr:       addr,
		corsOrigin: corsOrigin,
		maxBody:    maxBody,
		logger:     logger,
	}
	s.methods = methodTable()
	return s
}

// Addr returns the address this server is configured to bind to.
func (s *Server) Addr() string { return s.addr }

// Handler returns an http.Handler with all routes and middleware wired.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.maxBodyMiddleware(handler)

	return handler
}

// RegisterRoutes mounts the RPC route onto an existing mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /rpc", s.handleRPC)
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		next.ServeHTTP(w, r)
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// rpcError is the standard JSON-RPC-shaped error envelope (SPEC_FULL.md §6):
// `{"error": {"kind": string, "message": string}}`.
type rpcError struct {
	Error rpcErrorBody `json:"error"`
}

type rpcErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, rpcError{Error: rpcErrorBody{Kind: kind, Message: message}})
}
