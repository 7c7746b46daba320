package analysis

import (
	"context"
	"testing"

	"cotsmith/internal/fact"
	"cotsmith/internal/llm"
)

func TestBrainFailureReturnsTrimmedHint(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"  use create_folder before move  \n"}}
	role := New(fake)

	hint, err := role.BrainFailure(context.Background(), "move file1 to backup",
		[]fact.Fact{fact.MustParse("(at file1 root)")},
		[]string{"(move file1 root backup)"}, "planner", "backup folder does not exist")
	if err != nil {
		t.Fatalf("BrainFailure error: %v", err)
	}
	if hint != "use create_folder before move" {
		t.Fatalf("expected trimmed hint, got %q", hint)
	}
	if len(fake.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(fake.Calls))
	}
}

func TestNervesFailurePropagatesError(t *testing.T) {
	fake := &llm.FakeClient{Err: errBoom}
	role := New(fake)
	_, err := role.NervesFailure(context.Background(), "(scan root)", nil, nil, "executor", "timeout")
	if err == nil {
		t.Fatal("expected error propagated from client")
	}
}

func TestSyntaxFailureIncludesLayer(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"add a missing closing paren"}}
	role := New(fake)

	hint, err := role.SyntaxFailure(context.Background(), "(:action scan ...", "unexpected EOF", "brain")
	if err != nil {
		t.Fatalf("SyntaxFailure error: %v", err)
	}
	if hint != "add a missing closing paren" {
		t.Fatalf("unexpected hint: %q", hint)
	}
	if len(fake.Calls) != 1 || fake.Calls[0].UserPrompt == "" {
		t.Fatal("expected prompt to be built and sent")
	}
}

var errBoom = fakeErr("boom")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
