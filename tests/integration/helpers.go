//go:build integration

// Package integration exercises the full CLI+RPC round trip (engine,
// rpc, cli wired together) the way a real client would drive them, rather
// than unit-testing one package in isolation. Excluded from normal `go test
// ./...` runs, grounded on the teacher's tests/integration convention:
//
//	go test -tags=integration ./tests/integration/... -v -count=1
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTarget(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// rpcClient is a minimal JSON-RPC-shaped client for the /rpc route,
// mirroring what a real IDE client would do against SPEC_FULL.md §6's wire
// format.
type rpcClient struct {
	server *httptest.Server
}

func newRPCClient(handler http.Handler) *rpcClient {
	return &rpcClient{server: httptest.NewServer(handler)}
}

func (c *rpcClient) close() { c.server.Close() }

func (c *rpcClient) call(t *testing.T, method string, params any) map[string]any {
	t.Helper()
	body := map[string]any{"method": method}
	if params != nil {
		body["params"] = params
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	resp, err := http.Post(c.server.URL+"/rpc", "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST /rpc %s: %v", method, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decoding response for %s: %v", method, err)
	}
	return decoded
}

// pollMessages repeatedly calls get_messages until pred returns true over
// the accumulated set, or timeout elapses.
func (c *rpcClient) pollMessages(t *testing.T, timeout time.Duration, pred func([]map[string]any) bool) []map[string]any {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var all []map[string]any
	for time.Now().Before(deadline) {
		resp := c.call(t, "get_messages", nil)
		if result, ok := resp["result"].([]any); ok {
			for _, raw := range result {
				if msg, ok := raw.(map[string]any); ok {
					all = append(all, msg)
				}
			}
		}
		if pred(all) {
			return all
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for expected messages, got %v", all)
	return nil
}
