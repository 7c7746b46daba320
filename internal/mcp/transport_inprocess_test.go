package mcp

import (
	"context"
	"testing"

	"cotsmith/internal/skill"
)

func TestInProcessTransportCallsRegisteredSkill(t *testing.T) {
	registry := skill.NewRegistry()
	registry.MustRegister(&skill.Skill{
		Name: "scan",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return `{"human_readable":"scanned","metadata":{"status":"success"}}`, nil
		},
	})

	transport := NewInProcessTransport(registry)
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if !transport.IsConnected() {
		t.Fatal("expected connected state after Connect")
	}

	tools, err := transport.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "scan" {
		t.Fatalf("unexpected tools: %+v", tools)
	}

	result, err := transport.CallTool(context.Background(), "scan", map[string]any{"folder": "root"})
	if err != nil {
		t.Fatalf("CallTool error: %v", err)
	}
	if result.Text == "" {
		t.Fatal("expected non-empty tool response text")
	}
}

func TestInProcessTransportCallToolUnknownSkillErrors(t *testing.T) {
	transport := NewInProcessTransport(skill.NewRegistry())
	transport.Connect(context.Background())
	_, err := transport.CallTool(context.Background(), "nope", nil)
	if err == nil {
		t.Fatal("expected error for unknown skill")
	}
}

func TestInProcessTransportRejectsCallsBeforeConnect(t *testing.T) {
	transport := NewInProcessTransport(skill.NewRegistry())
	_, err := transport.CallTool(context.Background(), "scan", nil)
	if err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
