package mcp

import (
	"context"
	"fmt"
	"time"

	"cotsmith/internal/skill"
)

// InProcessTransport satisfies Transport by dispatching directly to a
// skill registry in the same process, used in place of StdioTransport
// when skills run compiled-in or yaegi-interpreted rather than behind a
// subprocess boundary (SPEC_FULL.md §4.D's discovery rules: core-pool
// skills are ordinary compiled Go, sandbox-pool skills are yaegi
// values — neither speaks JSON-RPC over a pipe, so this transport
// closes the gap between the Effector Gateway's mcp.Transport
// dependency and an in-memory skill.Registry).
type InProcessTransport struct {
	registry  *skill.Registry
	connected bool
}

// NewInProcessTransport constructs a transport over registry.
func NewInProcessTransport(registry *skill.Registry) *InProcessTransport {
	return &InProcessTransport{registry: registry}
}

func (t *InProcessTransport) Connect(ctx context.Context) error {
	t.connected = true
	return nil
}

func (t *InProcessTransport) Disconnect(ctx context.Context) error {
	t.connected = false
	return nil
}

func (t *InProcessTransport) IsConnected() bool { return t.connected }

func (t *InProcessTransport) ListTools(ctx context.Context) ([]ToolSchema, error) {
	if !t.connected {
		return nil, ErrNotConnected
	}
	names := t.registry.Names()
	out := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		out = append(out, ToolSchema{Name: name})
	}
	return out, nil
}

func (t *InProcessTransport) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	if !t.connected {
		return nil, ErrNotConnected
	}
	s := t.registry.Get(name)
	if s == nil {
		return nil, fmt.Errorf("mcp: unknown tool %q", name)
	}

	start := time.Now()
	text, err := s.Execute(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("mcp: tool %q: %w", name, err)
	}
	return &CallResult{Text: text, Latency: time.Since(start)}, nil
}
