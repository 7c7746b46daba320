// Package kernel implements the Iterative Kernel (SPEC_FULL.md §4.L):
// the outer run loop that alternates problem synthesis, planning, and
// plan-chain execution until a user goal is satisfied or the iteration
// budget is exhausted.
//
// Grounded directly on
// _examples/original_source/algorithm/kernel.py (AxiomLabsKernel.run,
// _extract_goal_predicates, _check_goals_achieved,
// _update_objects_from_problem, _update_objects_from_facts). The two
// separate success exits in the original (the translator's
// GOAL_FINISHED_ALREADY sentinel, and the planner reporting an empty
// action list) are unified here into one Outcome type per the Open
// Question decision recorded in SPEC_FULL.md §9: they return the
// distinct values OutcomeGoalAlreadySatisfied and
// OutcomePlanEmptySatisfied, and Success reports true for both.
package kernel

import (
	"context"
	"fmt"
	"strings"

	"cotsmith/internal/fact"
)

// Translator is the subset of the Problem Synthesizer's behavior the
// Kernel depends on, mirroring interface/translator.py's ITranslator.
type Translator interface {
	RouteDomain(ctx context.Context, userGoal string) (string, error)
	Translate(ctx context.Context, req TranslateRequest) (string, error)
}

// TranslateRequest bundles one translate() call's parameters, replacing
// the original's long positional-argument list with a named struct.
type TranslateRequest struct {
	UserGoal         string
	MemoryFacts      map[fact.Fact]struct{}
	Domain           string
	ExecutionHistory []string
	Iteration        int
	Objects          map[string]string // nil on iteration 0
	BaseInitFacts    []string          // nil on iteration 0
}

// Planner is the subset of the Planner Adapter's behavior the Kernel
// depends on, mirroring interface/planner.py's IPlanner.
type Planner interface {
	Plan(ctx context.Context, domainContent, problemContent string) PlanOutcome
}

// PlanOutcome mirrors PlanningResult, using a tagged Status instead of
// a bare success bool plus optional error string.
type PlanOutcome struct {
	Status PlanStatus
	Steps  []PlanStep
	Error  string
}

type PlanStatus int

const (
	PlanFailed PlanStatus = iota
	PlanFoundSteps
	PlanFoundEmpty // goal already satisfied per the planner itself
)

// PlanStep is one action in a found plan chain.
type PlanStep struct {
	Action string
	Step   int
}

// Executor is the subset of the Effector Gateway's behavior the Kernel
// depends on, mirroring interface/executor.py's IExecutor.
type Executor interface {
	Execute(ctx context.Context, actionStr string) StepResult
	ExecutionHistory() []string
}

// StepResult mirrors ExecutionResult: the outcome of one executed step.
type StepResult struct {
	Success  bool
	Message  string
	AddFacts []fact.Fact
	DelFacts []fact.Fact
}

// Storage is the subset of the storage layer's behavior the Kernel
// depends on, mirroring interface/storage.py's IStorage.
type Storage interface {
	ReadDomain(ctx context.Context, domainName string) (string, error)
	WriteProblem(ctx context.Context, content string) error
}

// Outcome is the single success/failure signal the Kernel's Run method
// returns, replacing the original's two independent exit paths.
type Outcome int

const (
	OutcomeExhausted Outcome = iota // ran out of iterations without reaching the goal
	OutcomeGoalAlreadySatisfied     // translator signaled GOAL_FINISHED_ALREADY, or goal predicates were already in memory
	OutcomePlanEmptySatisfied       // planner reported an empty action chain: already satisfied
	OutcomeChainCompleted           // a non-empty plan chain executed in full
)

func (o Outcome) Success() bool { return o != OutcomeExhausted }

// Sentinel is the literal marker a translator returns instead of PDDL
// when the goal is already satisfied by known facts.
const Sentinel = "GOAL_FINISHED_ALREADY"

// State is the Kernel's mutable working memory across iterations.
type State struct {
	MemoryFacts   map[fact.Fact]struct{}
	Objects       map[string]string
	BaseInitFacts []string
	Domain        string
}

func newState() *State {
	return &State{
		MemoryFacts: make(map[fact.Fact]struct{}),
		Objects:     make(map[string]string),
	}
}

// Kernel is the pure orchestration loop: it holds no PDDL or LLM logic
// of its own, only the four collaborator interfaces above.
type Kernel struct {
	translator    Translator
	planner       Planner
	executor      Executor
	storage       Storage
	maxIterations int
	typeMapping   map[string]map[int]string // predicate -> arg position -> type

	state *State
}

// New constructs a Kernel. typeMapping is the per-domain
// predicate-position-to-type table described in SPEC_FULL.md §9's
// resolution of the type-inference Open Question.
func New(translator Translator, planner Planner, executor Executor, storage Storage, maxIterations int, typeMapping map[string]map[int]string) *Kernel {
	return &Kernel{
		translator:    translator,
		planner:       planner,
		executor:      executor,
		storage:       storage,
		maxIterations: maxIterations,
		typeMapping:   typeMapping,
		state:         newState(),
	}
}

// State exposes the Kernel's working memory for inspection (e.g. by
// the CoT Recorder, which needs the final fact set).
func (k *Kernel) State() *State { return k.state }

// Run executes the iterative loop for one user goal, returning the
// unified Outcome described above.
func (k *Kernel) Run(ctx context.Context, userGoal string) (Outcome, error) {
	if k.state.Domain == "" {
		domain, err := k.translator.RouteDomain(ctx, userGoal)
		if err != nil {
			return OutcomeExhausted, fmt.Errorf("kernel: route domain: %w", err)
		}
		k.state.Domain = domain
	}

	for i := 0; i < k.maxIterations; i++ {
		req := TranslateRequest{
			UserGoal:         userGoal,
			MemoryFacts:      k.state.MemoryFacts,
			Domain:           k.state.Domain,
			ExecutionHistory: k.executor.ExecutionHistory(),
			Iteration:        i,
		}
		if i > 0 {
			req.Objects = k.state.Objects
			req.BaseInitFacts = k.state.BaseInitFacts
		}

		problemPDDL, err := k.translator.Translate(ctx, req)
		if err != nil {
			return OutcomeExhausted, fmt.Errorf("kernel: translate iteration %d: %w", i, err)
		}

		if strings.Contains(problemPDDL, Sentinel) {
			return OutcomeGoalAlreadySatisfied, nil
		}

		goalPredicates := extractGoalPredicates(problemPDDL)
		if len(goalPredicates) > 0 && k.goalsAchieved(goalPredicates) {
			return OutcomeGoalAlreadySatisfied, nil
		}

		if i == 0 {
			k.updateObjectsFromProblem(problemPDDL)
		}

		if err := k.storage.WriteProblem(ctx, problemPDDL); err != nil {
			return OutcomeExhausted, fmt.Errorf("kernel: write problem: %w", err)
		}

		domainContent, err := k.storage.ReadDomain(ctx, k.state.Domain)
		if err != nil {
			return OutcomeExhausted, fmt.Errorf("kernel: read domain: %w", err)
		}

		planResult := k.planner.Plan(ctx, domainContent, problemPDDL)
		if planResult.Status == PlanFailed {
			k.state.MemoryFacts[fact.MustParse(fmt.Sprintf("(; logic-feedback %s)", sanitizeComment(planResult.Error)))] = struct{}{}
			continue
		}
		if planResult.Status == PlanFoundEmpty || len(planResult.Steps) == 0 {
			return OutcomePlanEmptySatisfied, nil
		}

		chainSuccess := true
		for _, step := range planResult.Steps {
			result := k.executor.Execute(ctx, step.Action)
			if !result.Success {
				k.state.MemoryFacts[fact.MustParse(fmt.Sprintf("(; error %s)", sanitizeComment(result.Message)))] = struct{}{}
				chainSuccess = false
				break
			}
			for _, df := range result.DelFacts {
				delete(k.state.MemoryFacts, df)
			}
			if len(result.AddFacts) > 0 {
				for _, af := range result.AddFacts {
					k.state.MemoryFacts[af] = struct{}{}
				}
				k.updateObjectsFromFacts(result.AddFacts)
			}
		}

		if chainSuccess {
			continue
		}
	}

	return OutcomeExhausted, nil
}

// sanitizeComment strips characters that would break the degenerate
// comment-fact encoding used to carry planner/executor diagnostics
// inside the fact set (parens and newlines aren't legal inside a
// single-token PDDL argument).
func sanitizeComment(s string) string {
	r := strings.NewReplacer("(", "_", ")", "_", "\n", "_", " ", "_")
	return r.Replace(s)
}

// extractGoalPredicates pulls the individual predicate forms out of a
// problem's (:goal ...) clause using paren-counting, per this module's
// standing rule against regex-based PDDL parsing (see internal/fact).
func extractGoalPredicates(problemPDDL string) []fact.Fact {
	idx := strings.Index(problemPDDL, ":goal")
	if idx == -1 {
		return nil
	}
	// Walk back to the '(' opening this :goal form, then scan forward
	// collecting every balanced top-level '(' form found inside it.
	open := strings.LastIndex(problemPDDL[:idx], "(")
	if open == -1 {
		return nil
	}
	depth := 0
	end := -1
	for i := open; i < len(problemPDDL); i++ {
		switch problemPDDL[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil
	}
	goalBody := problemPDDL[open+1 : end]

	var predicates []fact.Fact
	depth = 0
	start := -1
	for i, r := range goalBody {
		switch r {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start != -1 {
				if f, err := fact.Parse(goalBody[start : i+1]); err == nil {
					predicates = append(predicates, f)
				}
				start = -1
			}
		}
	}
	return predicates
}

func (k *Kernel) goalsAchieved(goals []fact.Fact) bool {
	for _, g := range goals {
		if _, ok := k.state.MemoryFacts[g]; !ok {
			return false
		}
	}
	return true
}

// updateObjectsFromProblem extracts the ":objects" section and base
// ":init" facts from the first iteration's problem text, storing them
// for use composing subsequent iterations' problems.
func (k *Kernel) updateObjectsFromProblem(problemPDDL string) {
	if objSection, ok := extractSection(problemPDDL, ":objects"); ok {
		for _, line := range strings.Split(objSection, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, ";") {
				continue
			}
			idx := strings.LastIndex(line, " - ")
			if idx == -1 {
				continue
			}
			typ := strings.TrimSpace(line[idx+3:])
			for _, obj := range strings.Fields(line[:idx]) {
				k.state.Objects[obj] = typ
			}
		}
	}

	if initSection, ok := extractSection(problemPDDL, ":init"); ok {
		facts := splitBalancedForms(initSection)
		var baseInit []string
		for _, f := range facts {
			f = strings.TrimSpace(f)
			if f != "" && !strings.HasPrefix(f, ";") {
				baseInit = append(baseInit, f)
			}
		}
		k.state.BaseInitFacts = baseInit
	}
}

// updateObjectsFromFacts folds newly observed facts into the object
// table using the configured type mapping, matching
// _update_objects_from_facts (deletions never remove an object: an
// object may still be referenced by other surviving facts).
func (k *Kernel) updateObjectsFromFacts(addFacts []fact.Fact) {
	for _, f := range addFacts {
		mapping, ok := k.typeMapping[f.Head()]
		if !ok {
			continue
		}
		args := f.Args()
		for pos, typ := range mapping {
			if pos >= len(args) || args[pos] == "" {
				continue
			}
			k.state.Objects[args[pos]] = typ
		}
	}
}

// extractSection finds "(<keyword> ...)" within pddl and returns the
// inner content between the keyword and its matching close paren, by
// walking back from the keyword to its opening '(' and forward by
// depth.
func extractSection(pddl, keyword string) (string, bool) {
	idx := strings.Index(pddl, keyword)
	if idx == -1 {
		return "", false
	}
	open := strings.LastIndex(pddl[:idx], "(")
	if open == -1 {
		return "", false
	}
	depth := 0
	for i := open; i < len(pddl); i++ {
		switch pddl[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				inner := pddl[open+1 : i]
				inner = strings.TrimPrefix(strings.TrimSpace(inner), keyword)
				return strings.TrimSpace(inner), true
			}
		}
	}
	return "", false
}

// splitBalancedForms splits a whitespace-separated run of top-level
// "(...)" forms into individual strings, by paren-counting (the same
// technique internal/fact.Delta's parser uses).
func splitBalancedForms(s string) []string {
	var forms []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '(':
			if depth == 0 {
				start = i
			}
			depth++
		case ')':
			depth--
			if depth == 0 && start != -1 {
				forms = append(forms, s[start:i+1])
				start = -1
			}
		}
	}
	return forms
}
