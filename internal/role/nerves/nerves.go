// Package nerves implements the Nerves LLM role: decomposing a single
// domain-level task invocation into a chain of atomic action
// invocations expressed at physical granularity.
//
// Grounded on _examples/original_source/infrastructure/llm/nerves_llm.py
// (object extraction from both the task and the current facts, the
// same per-line-parse/validate/retry discipline as Brain). The
// retry-with-hint loop itself is factored into internal/role/retryhint
// and shared with Brain rather than duplicated here.
package nerves

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

type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Role decomposes one task invocation into an atomic action chain.
type Role struct {
	client llm
}

// New constructs a Role backed by client.
func New(client llm) *Role {
	return &Role{client: client}
}

const systemPrompt = "You are an action planner. Decompose the given task into a sequence of atomic PDDL-format actions, one invocation per line, no numbering, no extra prose."

// DecomposeAction turns taskInvocation into an ordered chain of atomic
// action invocations for domain, using currentFacts and the task's own
// arguments as the pool of referenceable objects. failureHint carries
// the previous attempt's rejection reason, or is empty on first call.
func (r *Role) DecomposeAction(ctx context.Context, taskInvocation string, currentFacts []fact.Fact, domain string, availableActions []string, failureHint string) ([]string, error) {
	if len(availableActions) == 0 {
		return nil, fmt.Errorf("nerves: domain %q has no available actions", domain)
	}

	taskObjects := extractObjectsFromInvocation(taskInvocation)
	envObjects := extractObjectsFromFacts(currentFacts)
	allObjects := unionSet(taskObjects, envObjects)

	return retryhint.Run(ctx, MaxRetries, func(ctx context.Context, hint string) ([]string, bool, string, error) {
		if hint == "" {
			hint = failureHint
		}
		prompt := buildPrompt(taskInvocation, currentFacts, availableActions, allObjects, domain, hint)
		response, err := r.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, false, "", fmt.Errorf("nerves: complete: %w", err)
		}

		chain := parseResponse(response)
		if ok, reason := validateChain(chain, availableActions, allObjects); !ok {
			return nil, false, reason, nil
		}
		return chain, true, "", nil
	})
}

func buildPrompt(taskInvocation string, currentFacts []fact.Fact, availableActions []string, availableObjects map[string]bool, domain, failureHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\nDomain: %s\n\n", taskInvocation, domain)

	b.WriteString("Current environment facts:\n")
	for _, f := range sortedFactStrings(currentFacts) {
		fmt.Fprintf(&b, "  %s\n", f)
	}

	b.WriteString("\nAvailable objects (only these may be used):\n")
	for _, o := range sortedKeys(availableObjects) {
		fmt.Fprintf(&b, "  %s\n", o)
	}

	b.WriteString("\nAvailable actions (only these may be used):\n")
	for _, a := range availableActions {
		fmt.Fprintf(&b, "  %s\n", a)
	}

	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Only use the available actions and objects above.\n")
	b.WriteString("2. Each action must be a complete PDDL invocation, e.g. \"(get_admin)\" or \"(scan root)\".\n")
	b.WriteString("3. Consider each action's preconditions.\n")
	b.WriteString("4. One action per line, no numbering, no extra prose.\n")
	b.WriteString("5. The sequence must be minimal and valid.\n")

	if failureHint != "" {
		fmt.Fprintf(&b, "\nNote: the previous plan was rejected: %s\nRevise the plan accordingly.\n", failureHint)
	}

	b.WriteString("\nAtomic action sequence:")
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

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unionSet(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func extractObjectsFromFacts(facts []fact.Fact) map[string]bool {
	objects := map[string]bool{}
	for _, f := range facts {
		for _, arg := range f.Args() {
			objects[arg] = true
		}
	}
	return objects
}

func extractObjectsFromInvocation(invocation string) map[string]bool {
	objects := map[string]bool{}
	content := strings.Trim(strings.TrimSpace(invocation), "()")
	parts := strings.Fields(content)
	for _, p := range parts[minInt(1, len(parts)):] {
		p = strings.TrimPrefix(p, "?")
		if p != "" {
			objects[p] = true
		}
	}
	return objects
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func parseResponse(response string) []string {
	var actions []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
			actions = append(actions, line)
		}
	}
	return actions
}

func validateChain(chain []string, availableActions []string, availableObjects map[string]bool) (bool, string) {
	if len(chain) == 0 {
		return false, "empty action chain"
	}
	heads := make(map[string]bool, len(availableActions))
	for _, a := range availableActions {
		if h := headSymbol(a); h != "" {
			heads[h] = true
		}
	}

	for _, action := range chain {
		h := headSymbol(action)
		if h == "" {
			return false, fmt.Sprintf("malformed invocation %q", action)
		}
		if !heads[h] {
			return false, fmt.Sprintf("action %q is not among the available actions", h)
		}

		content := strings.Trim(strings.TrimSpace(action), "()")
		parts := strings.Fields(content)
		for _, arg := range parts[minInt(1, len(parts)):] {
			arg = strings.TrimPrefix(arg, "?")
			if arg == "" || isLiteral(arg) {
				continue
			}
			if !availableObjects[arg] {
				return false, fmt.Sprintf("action %q references unknown object %q", action, arg)
			}
		}
	}
	return true, ""
}

func isLiteral(s string) bool {
	if s == "true" || s == "false" || s == "null" {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
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
