// Package mcp implements the stdio-framed JSON-RPC tool transport
// described in SPEC_FULL.md §6 ("Tool transport (MCP-like)"). It is
// grounded directly on
// _examples/theRebelliousNerd-codenerd/internal/mcp/transport_stdio.go:
// a subprocess speaking newline-delimited JSON-RPC over stdin/stdout,
// with pending-request correlation by numeric id.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ToolSchema mirrors the wire shape of one entry in list_tools().
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallResult is the transport-level result of call_tool(name, args): the
// raw "text" payload plus round-trip latency, before any skill-response
// JSON inside it has been interpreted.
type CallResult struct {
	Text    string
	Latency time.Duration
}

// Timeouts bundles the per-operation timeout configuration named in
// SPEC_FULL.md §6: connect, session-init, tool-list, tool-call, disconnect.
type Timeouts struct {
	Connect     time.Duration
	SessionInit time.Duration
	ToolList    time.Duration
	ToolCall    time.Duration
	Disconnect  time.Duration
}

// DefaultTimeouts returns the spec's stated defaults: 5s for every
// timeout except disconnect, which defaults to 2s.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Connect:     5 * time.Second,
		SessionInit: 5 * time.Second,
		ToolList:    5 * time.Second,
		ToolCall:    5 * time.Second,
		Disconnect:  2 * time.Second,
	}
}

// Transport is the minimal surface the Effector Gateway depends on. A
// stdio-backed implementation lives in transport_stdio.go and an
// in-process one over a skill registry in transport_inprocess.go; the
// effector tests use a fake Transport.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	ListTools(ctx context.Context) ([]ToolSchema, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
}

// ErrNotConnected is returned by calls made before a successful Connect.
var ErrNotConnected = fmt.Errorf("mcp: transport not connected")
