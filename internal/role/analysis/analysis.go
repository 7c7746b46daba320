// Package analysis implements the Analysis LLM role: given a Brain or
// Nerves failure (or a PDDL syntax error), produce a free-text repair
// hint. The hint is never parsed structurally — it is fed back
// verbatim as the next retry's failure_hint and recorded into the
// CoT Data Point's error array.
//
// Grounded on
// _examples/original_source/infrastructure/llm/analysis_llm.py.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cotsmith/internal/fact"
)

type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Role analyzes execution failures and returns repair guidance.
type Role struct {
	client llm
}

// New constructs a Role backed by client.
func New(client llm) *Role {
	return &Role{client: client}
}

const systemPrompt = "You are a failure analyst. Diagnose the error and give a short, actionable repair suggestion in plain text, no JSON."

// BrainFailure analyzes a rejected Brain-layer task chain.
func (r *Role) BrainFailure(ctx context.Context, userGoal string, currentFacts []fact.Fact, chainOfTask []string, errorLocation, errorMessage string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %q\n\n", userGoal)
	writeFacts(&b, currentFacts)
	writeChain(&b, "Task chain attempted", chainOfTask)
	fmt.Fprintf(&b, "\nFailure location: %s\nError: %s\n\nWhat should be changed to fix this?", errorLocation, errorMessage)

	resp, err := r.client.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("analysis: brain failure: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// NervesFailure analyzes a rejected Nerves-layer action chain.
func (r *Role) NervesFailure(ctx context.Context, task string, currentFacts []fact.Fact, chainOfAction []string, errorLocation, errorMessage string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	writeFacts(&b, currentFacts)
	writeChain(&b, "Action chain attempted", chainOfAction)
	fmt.Fprintf(&b, "\nFailure location: %s\nError: %s\n\nWhat should be changed to fix this?", errorLocation, errorMessage)

	resp, err := r.client.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("analysis: nerves failure: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

// SyntaxFailure analyzes a PDDL syntax error raised while validating
// generated or patched domain content for layer ("brain" or "nerves").
func (r *Role) SyntaxFailure(ctx context.Context, pddlContent, errorMessage, layer string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Layer: %s\n\nPDDL content:\n%s\n\nSyntax error: %s\n\nWhat should be changed to fix this?", layer, pddlContent, errorMessage)

	resp, err := r.client.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("analysis: syntax failure: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func writeFacts(b *strings.Builder, facts []fact.Fact) {
	if len(facts) == 0 {
		return
	}
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.String())
	}
	sort.Strings(out)
	b.WriteString("Environment facts:\n")
	for _, f := range out {
		fmt.Fprintf(b, "  %s\n", f)
	}
}

func writeChain(b *strings.Builder, label string, chain []string) {
	fmt.Fprintf(b, "\n%s:\n", label)
	for _, step := range chain {
		fmt.Fprintf(b, "  %s\n", step)
	}
}
