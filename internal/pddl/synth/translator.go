package synth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cotsmith/internal/fact"
	"cotsmith/internal/kernel"
)

// llm is the subset of llm.Client the Synthesizer depends on, kept
// local so this package never imports a concrete provider.
type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// domainReader supplies domain PDDL text by name, satisfied by the same
// storage backend the Kernel itself uses.
type domainReader interface {
	ReadDomain(ctx context.Context, domainName string) (string, error)
}

const routeSystemPrompt = "You route a user's filesystem request to exactly one domain name. Reply with only the domain name, nothing else."

const synthSystemPrompt = "You are a PDDL problem author. Follow the instructions exactly and emit nothing but the requested content."

// Synthesizer implements kernel.Translator, combining the deterministic
// compose steps in this file with LLM calls for the parts SPEC_FULL.md
// §4.E assigns to the model: a full problem on iteration 0, a bare goal
// clause thereafter, or the domain name itself when routing a goal.
type Synthesizer struct {
	client  llm
	storage domainReader
	domains []string
	types   map[string]TypeMapping // domain name -> type mapping
}

// New constructs a Synthesizer. domains lists every routable domain
// name; when exactly one is configured, RouteDomain skips the LLM call
// entirely and returns it directly.
func New(client llm, storage domainReader, domains []string, types map[string]TypeMapping) *Synthesizer {
	return &Synthesizer{client: client, storage: storage, domains: domains, types: types}
}

var _ kernel.Translator = (*Synthesizer)(nil)

// RouteDomain implements kernel.Translator.
func (s *Synthesizer) RouteDomain(ctx context.Context, userGoal string) (string, error) {
	if len(s.domains) == 0 {
		return "", fmt.Errorf("synth: no domains configured")
	}
	if len(s.domains) == 1 {
		return s.domains[0], nil
	}

	prompt := fmt.Sprintf("Available domains: %s\n\nUser request: %s\n\nWhich domain?", strings.Join(s.domains, ", "), userGoal)
	resp, err := s.client.Complete(ctx, routeSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("synth: route domain: %w", err)
	}
	chosen := strings.TrimSpace(resp)
	for _, d := range s.domains {
		if strings.EqualFold(d, chosen) {
			return d, nil
		}
	}
	return s.domains[0], nil
}

// Translate implements kernel.Translator.
func (s *Synthesizer) Translate(ctx context.Context, req kernel.TranslateRequest) (string, error) {
	if req.Iteration == 0 {
		return s.synthesizeFull(ctx, req)
	}
	return s.synthesizeIncremental(ctx, req)
}

func (s *Synthesizer) synthesizeFull(ctx context.Context, req kernel.TranslateRequest) (string, error) {
	domainContent, err := s.storage.ReadDomain(ctx, req.Domain)
	if err != nil {
		return "", fmt.Errorf("synth: read domain %s: %w", req.Domain, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Domain rules:\n%s\n\n", domainContent)
	fmt.Fprintf(&b, "Current known facts:\n%s\n\n", formatFacts(req.MemoryFacts))
	fmt.Fprintf(&b, "Execution history so far: %v\n\n", req.ExecutionHistory)
	fmt.Fprintf(&b, "User goal: %s\n\n", req.UserGoal)
	b.WriteString("If every goal condition is already satisfied by the known facts, reply with exactly GOAL_FINISHED_ALREADY and nothing else.\n")
	b.WriteString("Otherwise emit a complete PDDL problem: (define (problem ...) (:domain ...) (:objects ...) (:init ...) (:goal ...) (:metric minimize (total-cost))).\n")
	b.WriteString("Every object referenced in :init or :goal must be declared in :objects with a type. Include (= (total-cost) 0) in :init. Never introduce an existential or universal quantifier.")

	resp, err := s.client.Complete(ctx, synthSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("synth: synthesize full problem: %w", err)
	}
	resp = stripFence(resp)
	if strings.Contains(resp, Sentinel) {
		return Sentinel, nil
	}
	return resp, nil
}

func (s *Synthesizer) synthesizeIncremental(ctx context.Context, req kernel.TranslateRequest) (string, error) {
	mapping := s.types[req.Domain]

	var b strings.Builder
	fmt.Fprintf(&b, "Current known facts:\n%s\n\n", formatFacts(req.MemoryFacts))
	fmt.Fprintf(&b, "Execution history so far: %v\n\n", req.ExecutionHistory)
	fmt.Fprintf(&b, "User goal: %s\n\n", req.UserGoal)
	b.WriteString("If every goal condition is already satisfied by the known facts, reply with exactly GOAL_FINISHED_ALREADY and nothing else.\n")
	b.WriteString("Otherwise emit only the PDDL goal clause: (:goal (and ...)) or (:goal <predicate>). No objects, no init, no prose.")

	resp, err := s.client.Complete(ctx, synthSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("synth: synthesize goal clause: %w", err)
	}
	resp = stripFence(resp)
	if strings.Contains(resp, Sentinel) {
		return Sentinel, nil
	}

	goalClause := escapeDots(resp)
	if !strings.Contains(goalClause, ":goal") {
		goalClause = fmt.Sprintf("(:goal (and %s))", goalClause)
	}

	newObjects := extractObjectsFromGoal(goalClause, mapping)
	MergeObjects(req.Objects, newObjects)

	objectsSection := BuildObjectsSection(req.Objects)
	initSection := BuildInitSection(req.MemoryFacts, req.BaseInitFacts)
	return ComposeFullProblem(problemName(req.Iteration), req.Domain, objectsSection, initSection, goalClause), nil
}

func problemName(iteration int) string {
	return fmt.Sprintf("iteration-%d", iteration)
}

func formatFacts(facts map[fact.Fact]struct{}) string {
	lines := make([]string, 0, len(facts))
	for f := range facts {
		lines = append(lines, f.String())
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```pddl")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func escapeDots(s string) string {
	return strings.ReplaceAll(s, ".", "_dot_")
}

// extractObjectsFromGoal scans a goal clause's tokens for identifiers
// appearing at a predicate-argument position the type mapping declares,
// the same rule BuildInitSection's callers already apply to facts.
func extractObjectsFromGoal(goalClause string, mapping TypeMapping) map[string]string {
	objects := make(map[string]string)
	if mapping == nil {
		return objects
	}
	forms := allParenForms(goalClause)
	for _, form := range forms {
		inner := strings.TrimSuffix(strings.TrimPrefix(form, "("), ")")
		fields := strings.Fields(inner)
		if len(fields) == 0 {
			continue
		}
		predMap, ok := mapping[fields[0]]
		if !ok {
			continue
		}
		args := fields[1:]
		for pos, typ := range predMap {
			if pos >= len(args) {
				continue
			}
			if _, seen := objects[args[pos]]; !seen {
				objects[args[pos]] = typ
			}
		}
	}
	return objects
}

// allParenForms extracts every balanced "(...)" form found anywhere in
// s, at any nesting depth, by paren-counting rather than regex: each
// '(' pushes its index, each ')' pops the most recent one and emits the
// span between them.
func allParenForms(s string) []string {
	var forms []string
	var stack []int
	for i, r := range s {
		switch r {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			forms = append(forms, s[start:i+1])
		}
	}
	return forms
}
