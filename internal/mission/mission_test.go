package mission

import (
	"context"
	"errors"
	"testing"
	"time"

	"cotsmith/internal/effector"
	"cotsmith/internal/llm"
	"cotsmith/internal/mcp"
	"cotsmith/internal/recorder"
	"cotsmith/internal/role/analysis"
	"cotsmith/internal/role/brain"
	"cotsmith/internal/role/nerves"
	"cotsmith/internal/router"
)

// scriptedTransport answers CallTool by skill name, mirroring
// internal/effector's own fakeTransport test double.
type scriptedTransport struct {
	connected bool
	responses map[string]string
}

func (s *scriptedTransport) Connect(ctx context.Context) error    { s.connected = true; return nil }
func (s *scriptedTransport) Disconnect(ctx context.Context) error { s.connected = false; return nil }
func (s *scriptedTransport) IsConnected() bool                    { return s.connected }
func (s *scriptedTransport) ListTools(ctx context.Context) ([]mcp.ToolSchema, error) {
	return nil, nil
}
func (s *scriptedTransport) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error) {
	resp, ok := s.responses[name]
	if !ok {
		return nil, errors.New("scriptedTransport: no response scripted for " + name)
	}
	return &mcp.CallResult{Text: resp, Latency: time.Millisecond}, nil
}

func newGenerator(t *testing.T, transport *scriptedTransport, nervesClient, brainClient, analysisClient *llm.FakeClient, cfg Config) *Generator {
	t.Helper()
	gw := effector.New(transport, time.Second)
	rec, err := recorder.New(t.TempDir())
	if err != nil {
		t.Fatalf("recorder.New: %v", err)
	}
	filter := router.New(router.DefaultConfig())
	brainRole := brain.New(brainClient)
	nervesRole := nerves.New(nervesClient)
	analysisRole := analysis.New(analysisClient)
	return New(filter, brainRole, nervesRole, analysisRole, gw, rec, nil, cfg)
}

func TestGenerateNervesOnlySuccess(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"get_admin": `{"human_readable":"admin rights acquired","metadata":{"status":"success","message":"admin rights acquired","pddl_delta":"(has_admin_rights)"}}`,
		"scan":      `{"human_readable":"scanned","metadata":{"status":"success","message":"scanned","pddl_delta":"(is_created root) (at file1 root)"}}`,
		"move":      `{"human_readable":"moved","metadata":{"status":"success","message":"moved","pddl_delta":"-(at file1 root) (at file1 backup)"}}`,
	}}

	nervesClient := &llm.FakeClient{Responses: []string{"(move file1 root backup)"}}
	brainClient := &llm.FakeClient{}
	analysisClient := &llm.FakeClient{}

	gen := newGenerator(t, transport, nervesClient, brainClient, analysisClient, Config{})

	result, err := gen.Generate(context.Background(), "move file1 to backup")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if result.Route != "Route_To_Nerves" {
		t.Fatalf("expected Route_To_Nerves, got %s", result.Route)
	}
	if !result.Success {
		t.Fatalf("expected success, got errors: %v", result.ErrorMessages)
	}
	if len(result.ErrorMessages) != 0 {
		t.Fatalf("expected no error messages, got %v", result.ErrorMessages)
	}

	data := gen.rec.CurrentData()
	if len(data.Nerves) != 1 {
		t.Fatalf("expected 1 recorded nerves step, got %d", len(data.Nerves))
	}
	if len(data.Nerves[0].ChainOfAction) != 1 || data.Nerves[0].ChainOfAction[0] != "(move file1 root backup)" {
		t.Fatalf("unexpected recorded chain: %v", data.Nerves[0].ChainOfAction)
	}
}

func TestGenerateBrainNervesExhaustsRetryBudget(t *testing.T) {
	transport := &scriptedTransport{responses: map[string]string{
		"get_admin": `{"human_readable":"admin rights acquired","metadata":{"status":"success","message":"admin rights acquired","pddl_delta":"(has_admin_rights)"}}`,
		"scan":      `{"human_readable":"scanned","metadata":{"status":"success","message":"scanned","pddl_delta":"(is_created root)"}}`,
	}}

	nervesClient := &llm.FakeClient{}
	brainClient := &llm.FakeClient{Err: errors.New("llm unavailable")}
	analysisClient := &llm.FakeClient{Responses: []string{"retry with a smaller scope", "retry with a smaller scope", "retry with a smaller scope"}}

	gen := newGenerator(t, transport, nervesClient, brainClient, analysisClient, Config{BrainFalseLimit: 2, NervesFalseLimit: 2})

	task := "if the archive folder has old files then compress and remove them"
	result, err := gen.Generate(context.Background(), task)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if result.Route != "Route_To_Brain" {
		t.Fatalf("expected Route_To_Brain, got %s", result.Route)
	}
	if result.Success {
		t.Fatal("expected failure once the brain retry budget is exhausted")
	}
	if len(result.ErrorMessages) == 0 {
		t.Fatal("expected accumulated error messages")
	}

	data := gen.rec.CurrentData()
	if len(data.BrainError) != 2 {
		t.Fatalf("expected 2 recorded brain errors, got %d", len(data.BrainError))
	}
	if len(brainClient.Calls) == 0 {
		t.Fatal("expected the brain client to have been invoked")
	}
	if len(analysisClient.Calls) != 2 {
		t.Fatalf("expected analysis to be consulted once per brain failure, got %d", len(analysisClient.Calls))
	}
}

func TestDefaultAvailableActionsUnknownDomain(t *testing.T) {
	if actions := DefaultAvailableActions("unknown_domain"); actions != nil {
		t.Fatalf("expected nil actions for an unknown domain, got %v", actions)
	}
	if actions := DefaultAvailableActions("file_management"); len(actions) != 11 {
		t.Fatalf("expected 11 file_management actions, got %d", len(actions))
	}
}
