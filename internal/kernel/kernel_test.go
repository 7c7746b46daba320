package kernel

import (
	"context"
	"testing"

	"cotsmith/internal/fact"
)

type stubTranslator struct {
	domain    string
	responses []string // popped in order, one per Translate call
}

func (s *stubTranslator) RouteDomain(ctx context.Context, userGoal string) (string, error) {
	return s.domain, nil
}

func (s *stubTranslator) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if len(s.responses) == 0 {
		return "", nil
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

type stubPlanner struct {
	outcomes []PlanOutcome
}

func (s *stubPlanner) Plan(ctx context.Context, domainContent, problemContent string) PlanOutcome {
	if len(s.outcomes) == 0 {
		return PlanOutcome{Status: PlanFailed, Error: "no outcomes configured"}
	}
	o := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return o
}

type stubExecutor struct {
	results []StepResult
	history []string
}

func (s *stubExecutor) Execute(ctx context.Context, actionStr string) StepResult {
	s.history = append(s.history, actionStr)
	if len(s.results) == 0 {
		return StepResult{Success: true}
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r
}

func (s *stubExecutor) ExecutionHistory() []string { return s.history }

type stubStorage struct {
	domainContent string
}

func (s *stubStorage) ReadDomain(ctx context.Context, domainName string) (string, error) {
	return s.domainContent, nil
}

func (s *stubStorage) WriteProblem(ctx context.Context, content string) error { return nil }

func TestRunGoalAlreadySatisfiedSentinel(t *testing.T) {
	tr := &stubTranslator{domain: "file-manager", responses: []string{Sentinel}}
	k := New(tr, &stubPlanner{}, &stubExecutor{}, &stubStorage{}, 5, nil)

	outcome, err := k.Run(context.Background(), "move file1 to backup")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != OutcomeGoalAlreadySatisfied {
		t.Fatalf("expected OutcomeGoalAlreadySatisfied, got %v", outcome)
	}
}

func TestRunPlanEmptyMeansSatisfied(t *testing.T) {
	problem := "(define (problem p) (:domain file-manager) (:objects file1 - file root - folder) (:init (at file1 root) (= (total-cost) 0)) (:goal (at file1 root)))"
	tr := &stubTranslator{domain: "file-manager", responses: []string{problem}}
	pl := &stubPlanner{outcomes: []PlanOutcome{{Status: PlanFoundEmpty}}}
	k := New(tr, pl, &stubExecutor{}, &stubStorage{}, 5, nil)

	outcome, err := k.Run(context.Background(), "file1 should be in root")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != OutcomePlanEmptySatisfied {
		t.Fatalf("expected OutcomePlanEmptySatisfied, got %v", outcome)
	}
}

func TestRunExecutesChainAndUpdatesMemory(t *testing.T) {
	problem := "(define (problem p) (:domain file-manager) (:objects file1 - file root backup - folder) (:init (at file1 root) (= (total-cost) 0)) (:goal (at file1 backup)))"
	tr := &stubTranslator{domain: "file-manager", responses: []string{problem}}
	pl := &stubPlanner{outcomes: []PlanOutcome{
		{Status: PlanFoundSteps, Steps: []PlanStep{{Action: "move file1 root backup", Step: 1}}},
	}}
	ex := &stubExecutor{results: []StepResult{
		{
			Success:  true,
			AddFacts: []fact.Fact{fact.MustParse("(at file1 backup)")},
			DelFacts: []fact.Fact{fact.MustParse("(at file1 root)")},
		},
	}}
	k := New(tr, pl, ex, &stubStorage{}, 1, nil)

	outcome, err := k.Run(context.Background(), "move file1 to backup")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != OutcomeExhausted {
		// only one iteration configured and it completes the chain then the loop ends
		t.Fatalf("expected OutcomeExhausted after single-iteration chain, got %v", outcome)
	}
	if _, ok := k.State().MemoryFacts[fact.MustParse("(at file1 backup)")]; !ok {
		t.Fatal("expected memory facts updated with add_facts")
	}
	if _, ok := k.State().MemoryFacts[fact.MustParse("(at file1 root)")]; ok {
		t.Fatal("expected del_facts removed from memory")
	}
}

func TestRunGoalPredicatesAlreadyInMemory(t *testing.T) {
	problem := "(define (problem p) (:domain file-manager) (:objects file1 - file root - folder) (:init (at file1 root) (= (total-cost) 0)) (:goal (at file1 root)))"
	tr := &stubTranslator{domain: "file-manager", responses: []string{problem}}
	k := New(tr, &stubPlanner{}, &stubExecutor{}, &stubStorage{}, 5, nil)
	k.State().MemoryFacts[fact.MustParse("(at file1 root)")] = struct{}{}

	outcome, err := k.Run(context.Background(), "file1 should be in root")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome != OutcomeGoalAlreadySatisfied {
		t.Fatalf("expected OutcomeGoalAlreadySatisfied, got %v", outcome)
	}
}
