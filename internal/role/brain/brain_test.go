package brain

import (
	"context"
	"testing"

	"cotsmith/internal/fact"
	"cotsmith/internal/llm"
)

func TestDecomposeTaskSucceedsFirstTry(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"(scan root)\n(move file1 root backup)\n"}}
	role := New(fake)

	facts := []fact.Fact{fact.MustParse("(at file1 root)")}
	actions := []string{"(scan ?d)", "(move ?f ?src ?dst)"}

	chain, err := role.DecomposeTask(context.Background(), "move file1 to backup", facts, actions, "")
	if err != nil {
		t.Fatalf("DecomposeTask error: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 tasks, got %v", chain)
	}
	if len(fake.Calls) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(fake.Calls))
	}
}

func TestDecomposeTaskRejectsUnknownActionThenRetries(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{
		"(teleport file1 backup)\n",
		"(move file1 root backup)\n",
	}}
	role := New(fake)

	chain, err := role.DecomposeTask(context.Background(), "move file1 to backup", nil, []string{"(move ?f ?src ?dst)"}, "")
	if err != nil {
		t.Fatalf("DecomposeTask error: %v", err)
	}
	if len(chain) != 1 || chain[0] != "(move file1 root backup)" {
		t.Fatalf("unexpected chain: %v", chain)
	}
	if len(fake.Calls) != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", len(fake.Calls))
	}
	if fake.Calls[1].UserPrompt == fake.Calls[0].UserPrompt {
		t.Fatal("expected second prompt to differ (carry failure hint)")
	}
}

func TestDecomposeTaskExhaustsRetriesOnPersistentGarbage(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"not pddl at all", "still not pddl", "nope"}}
	role := New(fake)

	_, err := role.DecomposeTask(context.Background(), "do something", nil, []string{"(scan ?d)"}, "")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestValidateChainRejectsEmpty(t *testing.T) {
	ok, reason := validateChain(nil, []string{"(scan ?d)"})
	if ok {
		t.Fatal("expected empty chain to be rejected")
	}
	if reason == "" {
		t.Fatal("expected a rejection reason")
	}
}

func TestHeadSymbol(t *testing.T) {
	cases := map[string]string{
		"(scan root)":             "scan",
		"(move file1 root dst)":   "move",
		"(get_admin)":             "get_admin",
		"not-a-task":              "",
	}
	for input, want := range cases {
		if got := headSymbol(input); got != want {
			t.Errorf("headSymbol(%q) = %q, want %q", input, got, want)
		}
	}
}
