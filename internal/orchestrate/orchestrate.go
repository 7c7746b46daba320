// Package orchestrate bridges the otherwise-decoupled collaborator
// packages (planner, effector, sandbox storage) into the narrow
// interfaces internal/kernel and internal/evolve depend on, so
// cmd/cotsmith can wire a real run without any package depending
// directly on another's concrete type.
//
// Grounded on internal/evolve/evolve.go's own kernelPlannerAdapter and
// gatewayExecutor (unexported there, reimplemented here for reuse by
// the top-level CLI, which needs the same bridge outside an evolution
// attempt).
package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cotsmith/internal/effector"
	"cotsmith/internal/fact"
	"cotsmith/internal/kernel"
	"cotsmith/internal/pddl/planner"
)

// PlannerAdapter bridges *planner.Planner to kernel.Planner.
type PlannerAdapter struct{ Planner *planner.Planner }

func (a PlannerAdapter) Plan(ctx context.Context, domainContent, problemContent string) kernel.PlanOutcome {
	result := a.Planner.Plan(ctx, domainContent, problemContent)
	switch {
	case result.Success() && len(result.Steps) == 0:
		return kernel.PlanOutcome{Status: kernel.PlanFoundEmpty}
	case result.Success():
		steps := make([]kernel.PlanStep, len(result.Steps))
		for i, s := range result.Steps {
			steps[i] = kernel.PlanStep{Action: s.Action, Step: s.Index}
		}
		return kernel.PlanOutcome{Status: kernel.PlanFoundSteps, Steps: steps}
	default:
		return kernel.PlanOutcome{Status: kernel.PlanFailed, Error: result.Error}
	}
}

// ExecutorAdapter bridges *effector.Gateway to kernel.Executor.
type ExecutorAdapter struct{ Gateway *effector.Gateway }

func (a ExecutorAdapter) Execute(ctx context.Context, actionStr string) kernel.StepResult {
	res, err := a.Gateway.Execute(ctx, actionStr)
	if err != nil || res == nil || !res.Success() {
		msg := ""
		if res != nil {
			msg = res.Message
		}
		if err != nil && msg == "" {
			msg = err.Error()
		}
		return kernel.StepResult{Success: false, Message: msg}
	}
	add := make([]fact.Fact, 0, len(res.Delta.Add))
	for f := range res.Delta.Add {
		add = append(add, f)
	}
	del := make([]fact.Fact, 0, len(res.Delta.Del))
	for f := range res.Delta.Del {
		del = append(del, f)
	}
	return kernel.StepResult{Success: true, Message: res.Message, AddFacts: add, DelFacts: del}
}

func (a ExecutorAdapter) ExecutionHistory() []string { return a.Gateway.History() }

// FileStorage implements kernel.Storage over a sandbox's domain file
// and a problem-file path, the two artifacts the Kernel reads/writes
// each iteration.
type FileStorage struct {
	DomainPaths map[string]string // domain name -> file path
	ProblemPath string
}

func (s FileStorage) ReadDomain(ctx context.Context, domainName string) (string, error) {
	path, ok := s.DomainPaths[domainName]
	if !ok {
		return "", fmt.Errorf("orchestrate: no domain file registered for %q", domainName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("orchestrate: read domain %s: %w", path, err)
	}
	return string(data), nil
}

func (s FileStorage) WriteProblem(ctx context.Context, content string) error {
	if err := os.MkdirAll(filepath.Dir(s.ProblemPath), 0o755); err != nil {
		return fmt.Errorf("orchestrate: create problem dir: %w", err)
	}
	if err := os.WriteFile(s.ProblemPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("orchestrate: write problem %s: %w", s.ProblemPath, err)
	}
	return nil
}
