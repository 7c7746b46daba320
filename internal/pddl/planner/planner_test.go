package planner

import "testing"

func TestClassifyFailureUnreachable(t *testing.T) {
	outcome, msg := classifyFailure("Search stopped without finding a solution", "")
	if outcome != OutcomeUnreachable {
		t.Fatalf("expected OutcomeUnreachable, got %v", outcome)
	}
	if msg == "" {
		t.Fatal("expected a non-empty message")
	}
}

func TestClassifyFailureSyntaxError(t *testing.T) {
	outcome, _ := classifyFailure("", "syntax error near line 12")
	if outcome != OutcomeSyntaxError {
		t.Fatalf("expected OutcomeSyntaxError, got %v", outcome)
	}
}

func TestClassifyFailureUndefined(t *testing.T) {
	outcome, _ := classifyFailure("predicate undefined: at", "")
	if outcome != OutcomeUndefined {
		t.Fatalf("expected OutcomeUndefined, got %v", outcome)
	}
}

func TestClassifyFailureUnknown(t *testing.T) {
	outcome, _ := classifyFailure("something else entirely", "")
	if outcome != OutcomeSystemError {
		t.Fatalf("expected OutcomeSystemError, got %v", outcome)
	}
}

func TestResultSuccess(t *testing.T) {
	r := Result{Outcome: OutcomeSuccess, Steps: []Step{{Action: "move file1 root backup", Index: 1}}}
	if !r.Success() {
		t.Fatal("expected Success() true for OutcomeSuccess")
	}
	failed := Result{Outcome: OutcomeTimeout}
	if failed.Success() {
		t.Fatal("expected Success() false for OutcomeTimeout")
	}
}
