// Package effector implements the Effector Gateway (SPEC_FULL.md §4.C):
// a stateful synchronous façade over the asynchronous MCP tool
// transport, normalizing structured skill responses into Deltas.
//
// Grounded on _examples/theRebelliousNerd-codenerd/internal/mcp/client.go
// (connection state machine, updateServerStatus) and
// internal/tactile/types.go (tagged ExecutionResult shape).
package effector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cotsmith/internal/fact"
	"cotsmith/internal/mcp"
)

// ConnState is the per-connection state machine named in §4.C.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is the tagged-variant discriminant for ExecutionResult, per
// the design note preferring explicit variants over ad-hoc bags.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeTimeout
	OutcomeUnknownSkill
)

// ExecutionResult is the Effector Gateway's public result type.
type ExecutionResult struct {
	Outcome Outcome
	Message string
	Delta   fact.Delta
	Err     error
}

// Success reports whether the invocation succeeded.
func (r ExecutionResult) Success() bool { return r.Outcome == OutcomeSuccess }

// ParamMapper maps positional invocation arguments to a skill's named
// parameter dictionary, per the registered Parameter Mapping in §4.C.
// Unknown skills fall back to genericMapper.
type ParamMapper func(args []string) map[string]any

func genericMapper(args []string) map[string]any {
	m := make(map[string]any, len(args))
	for i, a := range args {
		m[fmt.Sprintf("arg%d", i)] = a
	}
	return m
}

// skillResponse mirrors the wire shape in SPEC_FULL.md §6 ("Skill
// response schema").
type skillResponse struct {
	HumanReadable string `json:"human_readable"`
	Metadata      struct {
		Status    string `json:"status"`
		Message   string `json:"message"`
		PDDLDelta string `json:"pddl_delta"`
		Error     string `json:"error"`
	} `json:"metadata"`
}

// Gateway is the Effector Gateway. One Gateway owns one tool-transport
// connection and one execution history.
type Gateway struct {
	transport mcp.Transport
	timeout   time.Duration
	mappers   map[string]ParamMapper

	mu      sync.Mutex
	state   ConnState
	history []string // lower-cased action names, in call order
}

// New constructs a Gateway over transport with the given per-call
// timeout (default 5s per §4.C item 3).
func New(transport mcp.Transport, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		transport: transport,
		timeout:   timeout,
		mappers:   make(map[string]ParamMapper),
		state:     StateDisconnected,
	}
}

// RegisterMapper installs a per-skill parameter mapping.
func (g *Gateway) RegisterMapper(skillName string, m ParamMapper) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mappers[skillName] = m
}

// State returns the gateway's current connection state.
func (g *Gateway) State() ConnState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// ensureConnected reconnects on first call after disconnect; reconnect
// is idempotent when already connected.
func (g *Gateway) ensureConnected(ctx context.Context) error {
	g.mu.Lock()
	if g.state == StateConnected && g.transport.IsConnected() {
		g.mu.Unlock()
		return nil
	}
	g.state = StateConnecting
	g.mu.Unlock()

	if err := g.transport.Connect(ctx); err != nil {
		g.mu.Lock()
		g.state = StateError
		g.mu.Unlock()
		return fmt.Errorf("effector: connect: %w", err)
	}

	g.mu.Lock()
	g.state = StateConnected
	g.mu.Unlock()
	return nil
}

// Disconnect is idempotent; failures after its timeout force a state
// reset without propagating, per §4.C.
func (g *Gateway) Disconnect(ctx context.Context) {
	if err := g.transport.Disconnect(ctx); err != nil {
		// swallow: disconnect failures reset state without propagating
		_ = err
	}
	g.mu.Lock()
	g.state = StateDisconnected
	g.mu.Unlock()
}

// Execute parses invocation ("name arg1 arg2 ..."), dispatches it
// through the tool transport, and normalizes the structured response
// into an ExecutionResult, per the five responsibilities of §4.C.
func (g *Gateway) Execute(ctx context.Context, invocation string) (*ExecutionResult, error) {
	name, args := parseInvocation(invocation)
	if name == "" {
		return &ExecutionResult{Outcome: OutcomeUnknownSkill, Err: fmt.Errorf("effector: empty invocation")}, nil
	}

	if err := g.ensureConnected(ctx); err != nil {
		return &ExecutionResult{Outcome: OutcomeError, Err: err}, nil
	}

	g.mu.Lock()
	mapper, ok := g.mappers[name]
	g.mu.Unlock()
	if !ok {
		mapper = genericMapper
	}
	mappedArgs := mapper(args)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.transport.CallTool(callCtx, name, mappedArgs)
	if err != nil {
		if callCtx.Err() != nil {
			return &ExecutionResult{Outcome: OutcomeTimeout, Err: fmt.Errorf("effector: timeout calling %s", name)}, nil
		}
		return &ExecutionResult{Outcome: OutcomeError, Err: err}, nil
	}

	g.recordHistory(name)

	var resp skillResponse
	if err := json.Unmarshal([]byte(result.Text), &resp); err != nil {
		return &ExecutionResult{Outcome: OutcomeError, Err: fmt.Errorf("effector: decode skill response: %w", err)}, nil
	}

	if resp.Metadata.Status != "success" {
		msg := resp.Metadata.Error
		if msg == "" {
			msg = resp.HumanReadable
		}
		return &ExecutionResult{Outcome: OutcomeError, Message: msg, Err: fmt.Errorf("effector: skill %s reported error: %s", name, msg)}, nil
	}

	delta, err := fact.ParseDelta(resp.Metadata.PDDLDelta)
	if err != nil {
		return &ExecutionResult{Outcome: OutcomeError, Err: fmt.Errorf("effector: malformed delta from %s: %w", name, err)}, nil
	}

	msg := resp.Metadata.Message
	if msg == "" {
		msg = resp.HumanReadable
	}
	return &ExecutionResult{Outcome: OutcomeSuccess, Message: msg, Delta: delta}, nil
}

func (g *Gateway) recordHistory(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, strings.ToLower(name))
}

// History returns a snapshot of the ordered execution history.
func (g *Gateway) History() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.history))
	copy(out, g.history)
	return out
}

// HistoryLen returns the current history length, used by the Evolution
// Loop as the audit baseline (§4.M step 6).
func (g *Gateway) HistoryLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.history)
}

// ClearHistory resets the execution history.
func (g *Gateway) ClearHistory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = nil
}

// Snapshot returns a defensive copy of the history, identical to History;
// kept as a distinct name per the §4.C contract ("support clear_history()
// and snapshot()").
func (g *Gateway) Snapshot() []string { return g.History() }

// parseInvocation splits "name arg1 arg2 ..." into a name and arg list,
// stripping outer parens if present.
func parseInvocation(invocation string) (string, []string) {
	s := strings.TrimSpace(invocation)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
