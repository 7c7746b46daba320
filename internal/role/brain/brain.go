// Package brain implements the Brain LLM role: decomposing a
// high-level user goal into a chain of domain-level task invocations.
//
// Grounded on _examples/original_source/infrastructure/llm/brain_llm.py
// (prompt structure, object-extraction-from-facts, per-line parse and
// head-symbol validation, retry-with-failure-reason loop) and the
// teacher's internal/types/interfaces.go LLMClient contract, reduced
// to the llm.Client interface every role depends on.
package brain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cotsmith/internal/fact"
	"cotsmith/internal/role/retryhint"
)

// MaxRetries is the per-invocation retry budget for decomposition.
const MaxRetries = 3

// Role decomposes user goals into task chains for one or more domains'
// action templates.
type Role struct {
	client llm
}

type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// New constructs a Role backed by client.
func New(client llm) *Role {
	return &Role{client: client}
}

const systemPrompt = "You are a task planner. Decompose the given goal into a sequence of PDDL-format tasks, one invocation per line, no numbering, no extra prose."

// DecomposeTask turns userGoal into an ordered chain of task
// invocations drawn from availableActions (PDDL action templates with
// "?"-prefixed parameter placeholders), using currentFacts to infer
// concrete objects. failureHint carries the previous attempt's
// rejection reason, or is empty on the first call.
func (r *Role) DecomposeTask(ctx context.Context, userGoal string, currentFacts []fact.Fact, availableActions []string, failureHint string) ([]string, error) {
	return retryhint.Run(ctx, MaxRetries, func(ctx context.Context, hint string) ([]string, bool, string, error) {
		if hint == "" {
			hint = failureHint
		}
		prompt := buildPrompt(userGoal, currentFacts, availableActions, hint)
		response, err := r.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, false, "", fmt.Errorf("brain: complete: %w", err)
		}

		chain := parseResponse(response)
		if ok, reason := validateChain(chain, availableActions); !ok {
			return nil, false, reason, nil
		}
		return chain, true, "", nil
	})
}

func buildPrompt(userGoal string, currentFacts []fact.Fact, availableActions []string, failureHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %q\n\n", userGoal)

	b.WriteString("Current environment facts:\n")
	sorted := sortedFactStrings(currentFacts)
	for _, f := range sorted {
		fmt.Fprintf(&b, "  %s\n", f)
	}

	b.WriteString("\nAvailable objects (extracted from facts):\n")
	objects := extractObjects(currentFacts)
	for _, kind := range []string{"folder", "file", "archive", "filename"} {
		if objs := objects[kind]; len(objs) > 0 {
			fmt.Fprintf(&b, "  %s: %s\n", kind, strings.Join(objs, ", "))
		}
	}

	b.WriteString("\nAvailable action templates (? marks a parameter placeholder, substitute with a concrete object):\n")
	for _, a := range availableActions {
		fmt.Fprintf(&b, "  %s\n", a)
	}

	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Only use the action templates above, with placeholders replaced by concrete objects.\n")
	b.WriteString("2. Each task must be a complete PDDL invocation, e.g. \"(scan root)\" or \"(move file1 root workspace)\".\n")
	b.WriteString("3. Consider each action's preconditions.\n")
	b.WriteString("4. One task per line, no numbering, no extra prose.\n")
	b.WriteString("5. The sequence must achieve the goal.\n")

	if failureHint != "" {
		fmt.Fprintf(&b, "\nNote: the previous plan was rejected: %s\nRevise the plan accordingly.\n", failureHint)
	}

	b.WriteString("\nTask sequence:")
	return b.String()
}

func sortedFactStrings(facts []fact.Fact) []string {
	out := make([]string, 0, len(facts))
	for _, f := range facts {
		out = append(out, f.String())
	}
	sort.Strings(out)
	return out
}

// extractObjects infers a rough type→objects map from fact shapes,
// mirroring the source's regex-per-predicate extraction but driven by
// fact.Fact's already-parsed head/args instead of re-matching text.
func extractObjects(facts []fact.Fact) map[string][]string {
	objects := map[string][]string{
		"folder": {"root"},
	}
	seen := map[string]map[string]bool{"folder": {"root": true}}
	add := func(kind, value string) {
		if seen[kind] == nil {
			seen[kind] = map[string]bool{}
		}
		if seen[kind][value] {
			return
		}
		seen[kind][value] = true
		objects[kind] = append(objects[kind], value)
	}

	for _, f := range facts {
		args := f.Args()
		switch f.Head() {
		case "at":
			if len(args) >= 2 {
				add("file", args[0])
				add("folder", args[1])
			}
		case "connected":
			if len(args) >= 2 {
				add("folder", args[0])
				add("folder", args[1])
			}
		case "has_name":
			if len(args) >= 2 {
				add("file", args[0])
				add("filename", args[1])
			}
		}
	}
	return objects
}

// parseResponse extracts one balanced top-level invocation per
// non-empty, non-comment line.
func parseResponse(response string) []string {
	var tasks []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
			tasks = append(tasks, line)
		}
	}
	return tasks
}

// validateChain checks every invocation's head symbol against the
// available action templates' head symbols.
func validateChain(chain []string, availableActions []string) (bool, string) {
	if len(chain) == 0 {
		return false, "empty task chain"
	}
	heads := make(map[string]bool, len(availableActions))
	for _, a := range availableActions {
		if h := headSymbol(a); h != "" {
			heads[h] = true
		}
	}
	for _, task := range chain {
		h := headSymbol(task)
		if h == "" {
			return false, fmt.Sprintf("malformed invocation %q", task)
		}
		if !heads[h] {
			return false, fmt.Sprintf("action %q is not among the available templates", h)
		}
	}
	return true, ""
}

func headSymbol(invocation string) string {
	invocation = strings.TrimSpace(invocation)
	if !strings.HasPrefix(invocation, "(") {
		return ""
	}
	rest := invocation[1:]
	end := strings.IndexAny(rest, " )")
	if end < 0 {
		return ""
	}
	return rest[:end]
}
