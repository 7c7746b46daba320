package synth

import (
	"context"
	"strings"
	"testing"

	"cotsmith/internal/fact"
	"cotsmith/internal/kernel"
	"cotsmith/internal/llm"
)

type fakeStorage struct{ domains map[string]string }

func (s fakeStorage) ReadDomain(ctx context.Context, name string) (string, error) {
	return s.domains[name], nil
}

func TestRouteDomainSkipsLLMWhenSingleDomain(t *testing.T) {
	fake := &llm.FakeClient{}
	s := New(fake, fakeStorage{}, []string{"file-management"}, nil)

	domain, err := s.RouteDomain(context.Background(), "move a file")
	if err != nil {
		t.Fatalf("RouteDomain error: %v", err)
	}
	if domain != "file-management" {
		t.Fatalf("unexpected domain: %q", domain)
	}
	if len(fake.Calls) != 0 {
		t.Fatalf("expected no LLM call for a single configured domain, got %d", len(fake.Calls))
	}
}

func TestRouteDomainAsksLLMWhenMultipleDomains(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"calendar"}}
	s := New(fake, fakeStorage{}, []string{"file-management", "calendar"}, nil)

	domain, err := s.RouteDomain(context.Background(), "schedule a meeting")
	if err != nil {
		t.Fatalf("RouteDomain error: %v", err)
	}
	if domain != "calendar" {
		t.Fatalf("unexpected domain: %q", domain)
	}
}

func TestTranslateIteration0ReturnsSentinelWhenGoalSatisfied(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"GOAL_FINISHED_ALREADY"}}
	storage := fakeStorage{domains: map[string]string{"file-management": "(define (domain file-management))"}}
	s := New(fake, storage, []string{"file-management"}, nil)

	resp, err := s.Translate(context.Background(), kernel.TranslateRequest{
		UserGoal: "scan root", Domain: "file-management", MemoryFacts: map[fact.Fact]struct{}{},
	})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if resp != Sentinel {
		t.Fatalf("expected sentinel, got %q", resp)
	}
}

func TestTranslateIteration0ReturnsFullProblem(t *testing.T) {
	full := "(define (problem p0) (:domain file-management) (:objects root - folder) (:init (= (total-cost) 0)) (:goal (scanned root)) (:metric minimize (total-cost)))"
	fake := &llm.FakeClient{Responses: []string{"```pddl\n" + full + "\n```"}}
	storage := fakeStorage{domains: map[string]string{"file-management": "(define (domain file-management))"}}
	s := New(fake, storage, []string{"file-management"}, nil)

	resp, err := s.Translate(context.Background(), kernel.TranslateRequest{
		UserGoal: "scan root", Domain: "file-management", MemoryFacts: map[fact.Fact]struct{}{},
	})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if !strings.Contains(resp, ":objects") {
		t.Fatalf("expected fence stripped and full problem returned, got %q", resp)
	}
}

func TestTranslateIncrementalComposesDeterministicSections(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"(:goal (scanned backup))"}}
	s := New(fake, fakeStorage{}, []string{"file-management"}, map[string]TypeMapping{
		"file-management": {"scanned": {0: "folder"}},
	})

	objects := map[string]string{"root": "folder"}
	resp, err := s.Translate(context.Background(), kernel.TranslateRequest{
		UserGoal:      "scan backup",
		Domain:        "file-management",
		Iteration:     1,
		MemoryFacts:   map[fact.Fact]struct{}{fact.MustParse("(scanned root)"): {}},
		Objects:       objects,
		BaseInitFacts: []string{"(scanned root)"},
	})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if !strings.Contains(resp, "backup") || !strings.Contains(resp, "- folder") {
		t.Fatalf("expected newly referenced object merged into :objects, got %q", resp)
	}
	if objects["backup"] != "folder" {
		t.Fatalf("expected Objects map mutated in place, got %v", objects)
	}
	if !strings.Contains(resp, "(:goal (scanned backup))") {
		t.Fatalf("expected goal clause embedded verbatim, got %q", resp)
	}
}

func TestTranslateIncrementalWrapsBareGoalPredicate(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"(scanned root)"}}
	s := New(fake, fakeStorage{}, []string{"file-management"}, nil)

	resp, err := s.Translate(context.Background(), kernel.TranslateRequest{
		UserGoal:    "scan root",
		Domain:      "file-management",
		Iteration:   1,
		MemoryFacts: map[fact.Fact]struct{}{},
		Objects:     map[string]string{},
	})
	if err != nil {
		t.Fatalf("Translate error: %v", err)
	}
	if !strings.Contains(resp, "(:goal (and (scanned root)))") {
		t.Fatalf("expected bare predicate wrapped in :goal/and, got %q", resp)
	}
}
