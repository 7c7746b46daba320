package nerves

import (
	"context"
	"testing"

	"cotsmith/internal/fact"
	"cotsmith/internal/llm"
)

func TestDecomposeActionSucceedsFirstTry(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"(get_admin)\n(scan root)\n"}}
	role := New(fake)

	facts := []fact.Fact{fact.MustParse("(at file1 root)")}
	actions := []string{"(get_admin)", "(scan ?d)"}

	chain, err := role.DecomposeAction(context.Background(), "(scan root)", facts, "file_management", actions, "")
	if err != nil {
		t.Fatalf("DecomposeAction error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 actions, got %v", chain)
	}
}

func TestDecomposeActionRejectsUnknownObjectThenRetries(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{
		"(move file9 root backup)\n",
		"(move file1 root root)\n",
	}}
	role := New(fake)

	facts := []fact.Fact{fact.MustParse("(at file1 root)")}
	actions := []string{"(move ?f ?src ?dst)"}

	chain, err := role.DecomposeAction(context.Background(), "(move file1 root root)", facts, "file_management", actions, "")
	if err != nil {
		t.Fatalf("DecomposeAction error: %v", err)
	}
	if len(chain) != 1 {
		t.Fatalf("unexpected chain: %v", chain)
	}
	if len(fake.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.Calls))
	}
}

func TestDecomposeActionNoAvailableActionsErrors(t *testing.T) {
	fake := &llm.FakeClient{}
	role := New(fake)
	_, err := role.DecomposeAction(context.Background(), "(scan root)", nil, "empty_domain", nil, "")
	if err == nil {
		t.Fatal("expected error when domain has no available actions")
	}
}

func TestIsLiteral(t *testing.T) {
	if !isLiteral("42") {
		t.Fatal("expected digits to be literal")
	}
	if !isLiteral("true") {
		t.Fatal("expected true to be literal")
	}
	if isLiteral("file1") {
		t.Fatal("expected object identifier to not be literal")
	}
}
