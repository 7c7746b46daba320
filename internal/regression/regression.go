// Package regression implements the Regression Guard (SPEC_FULL.md
// §4.N): a registry of previously-learned (goal, setup_actions) cases
// replayed against a candidate domain+skill pair before it is promoted,
// so a new Evolution Loop patch cannot silently break an older one.
//
// Grounded directly on
// _examples/original_source/algorithm/regression.py
// (RegressionAlgorithm: load_tests/save_new_test JSON registry,
// run_regression_suite's per-case reset+setup-replay+kernel-run,
// fail-fast on first failure) and
// _examples/theRebelliousNerd-codenerd/internal/regression/battery.go
// (Result shape, fail-fast loop, DefaultBatteryPath-style path helper).
package regression

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cotsmith/internal/kernel"
	"cotsmith/internal/sandbox"
)

// Case is one registered regression test, the Go counterpart of the
// original's task_data dict entries (task_name/goal/setup_actions).
type Case struct {
	TaskName     string     `json:"task_name"`
	Goal         string     `json:"goal"`
	SetupActions [][]string `json:"setup_actions"`
}

// CaseResult is the per-case outcome of one suite run.
type CaseResult struct {
	Case    Case
	Outcome kernel.Outcome
	Err     error
}

// Success reports whether this case passed.
func (r CaseResult) Success() bool { return r.Err == nil && r.Outcome.Success() }

// SuiteResult is the overall verdict of one RunSuite call.
type SuiteResult struct {
	Passed bool
	Cases  []CaseResult
}

// Registry owns the on-disk JSON registry of regression cases.
type Registry struct {
	path string
}

// NewRegistry constructs a Registry backed by the JSON file at path.
// The file is created lazily on first SaveCase call.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// DefaultRegistryPath mirrors the teacher's DefaultBatteryPath
// convention for where a workspace's regression registry lives.
func DefaultRegistryPath(workspace string) string {
	return filepath.Join(workspace, "regression_registry.json")
}

// LoadCases reads every registered case; a missing registry file is not
// an error, matching load_tests' os.path.exists guard.
func (r *Registry) LoadCases() ([]Case, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("regression: read registry: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("regression: parse registry: %w", err)
	}
	return cases, nil
}

// SaveCase appends a newly-learned task to the registry, deduping on
// goal text exactly as save_new_test does.
func (r *Registry) SaveCase(c Case) error {
	cases, err := r.LoadCases()
	if err != nil {
		return err
	}
	if c.TaskName == "" {
		c.TaskName = "Unknown_Action"
	}
	for _, existing := range cases {
		if existing.Goal == c.Goal {
			return nil // already registered, matches the original's skip-on-duplicate
		}
	}
	cases = append(cases, c)

	data, err := json.MarshalIndent(cases, "", "    ")
	if err != nil {
		return fmt.Errorf("regression: marshal registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("regression: write registry: %w", err)
	}
	return nil
}

// TranslatorFactory, PlannerFactory and ExecutorFactory let the caller
// supply a freshly-wired collaborator per regression case, mirroring
// the original's translator_factory/planner_factory/executor_factory
// closures (each case gets isolated executor state, e.g. a reset
// Effector Gateway history).
type TranslatorFactory func() kernel.Translator
type PlannerFactory func() kernel.Planner
type ExecutorFactory func() kernel.Executor

// InitialScanAction is the setup action run before every case to seed
// memory facts, matching the original's hardcoded "scan root" call.
const InitialScanAction = "scan root"

// RunSuite replays every registered case against the candidate domain
// in regressionSandbox, returning as soon as one case fails (fail-fast,
// matching the original's "break" on first FAIL/ERROR).
func (r *Registry) RunSuite(
	ctx context.Context,
	regressionSandbox *sandbox.Manager,
	candidateDomainPath string,
	storage kernel.Storage,
	maxIterations int,
	translatorFactory TranslatorFactory,
	plannerFactory PlannerFactory,
	executorFactory ExecutorFactory,
) (SuiteResult, error) {
	cases, err := r.LoadCases()
	if err != nil {
		return SuiteResult{}, err
	}
	if len(cases) == 0 {
		return SuiteResult{Passed: true}, nil
	}

	paths, err := regressionSandbox.Paths()
	if err != nil {
		return SuiteResult{}, fmt.Errorf("regression: sandbox paths: %w", err)
	}
	candidate, err := os.ReadFile(candidateDomainPath)
	if err != nil {
		return SuiteResult{}, fmt.Errorf("regression: read candidate domain: %w", err)
	}
	if err := os.WriteFile(paths.DomainFile, candidate, 0o644); err != nil {
		return SuiteResult{}, fmt.Errorf("regression: install candidate domain: %w", err)
	}

	result := SuiteResult{Passed: true}
	for _, c := range cases {
		if err := regressionSandbox.ResetStorage(); err != nil {
			return result, fmt.Errorf("regression: reset sandbox storage: %w", err)
		}

		executor := executorFactory()
		for _, action := range c.SetupActions {
			if len(action) == 0 {
				continue
			}
			verb := action[0]
			args := strings.Join(action[1:], " ")
			invocation := verb
			if args != "" {
				invocation = verb + " " + args
			}
			executor.Execute(ctx, invocation)
		}

		testKernel := kernel.New(translatorFactory(), plannerFactory(), executor, storage, maxIterations, nil)

		if scan := executor.Execute(ctx, InitialScanAction); scan.Success {
			for _, f := range scan.AddFacts {
				testKernel.State().MemoryFacts[f] = struct{}{}
			}
		}

		outcome, runErr := testKernel.Run(ctx, c.Goal)
		cr := CaseResult{Case: c, Outcome: outcome, Err: runErr}
		result.Cases = append(result.Cases, cr)

		if !cr.Success() {
			result.Passed = false
			break
		}
	}

	return result, nil
}
