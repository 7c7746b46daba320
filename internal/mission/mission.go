// Package mission implements the top-level mission pipeline driven by
// `cotsmith run` (SPEC_FULL.md §2 data-flow summary): a user goal enters
// the Hypothalamus Filter, simple goals go straight through Nerves,
// complex goals flow Brain -> per-task Nerves, every atomic action is
// carried out through the Effector Gateway, and the Recorder captures
// the resulting Chain-of-Thought trail throughout.
//
// This is distinct from the Iterative Kernel (internal/kernel), which
// is reserved for PDDL-plan validation inside the Evolution Loop and
// Regression Guard. The mission pipeline never calls the classical
// planner; it executes Brain/Nerves-authored chains directly against
// the Effector Gateway and treats a skill's own reported failure as the
// reachability signal, rather than dry-running a separate PDDL
// reachability checker first (see DESIGN.md's Open Question entry on
// this point).
//
// Grounded directly on
// _examples/original_source/algorithm/cot_data_generator.py
// (CoTDataGenerator.generate/_process_nerves_only/_process_brain_nerves/
// _process_single_task/_scan_environment/_get_available_actions); the
// Analysis-role hint wiring is a supplement this simplified original
// skips ("简化：仅记录" / "简化：继续循环" — analysis was never actually
// called), reintroduced here per the Analysis role's own contract
// (internal/role/analysis) so repair hints feed back into the retry
// loop instead of being discarded.
package mission

import (
	"context"
	"fmt"
	"strings"

	"cotsmith/internal/effector"
	"cotsmith/internal/fact"
	"cotsmith/internal/logging"
	"cotsmith/internal/recorder"
	"cotsmith/internal/role/analysis"
	"cotsmith/internal/role/brain"
	"cotsmith/internal/role/nerves"
	"cotsmith/internal/router"
)

// Config tunes the retry budgets and domain fixed point of a Generator,
// matching brian_false_limit/nerves_false_limit in the original.
type Config struct {
	Domain           string
	NervesFalseLimit int
	BrainFalseLimit  int
	ArchiveName      string
}

func (c Config) withDefaults() Config {
	if c.Domain == "" {
		c.Domain = "file_management"
	}
	if c.NervesFalseLimit <= 0 {
		c.NervesFalseLimit = 3
	}
	if c.BrainFalseLimit <= 0 {
		c.BrainFalseLimit = 3
	}
	return c
}

// Result is one Generate call's outcome, summarizing what the full
// DataPoint recorded under MissionID describes.
type Result struct {
	MissionID     string
	Route         string
	Success       bool
	ErrorMessages []string
}

// Generator wires the Hypothalamus Filter, Brain/Nerves/Analysis roles,
// the Effector Gateway, and the CoT Recorder into one mission pipeline.
type Generator struct {
	filter   *router.Filter
	brainer  *brain.Role
	nerver   *nerves.Role
	analyzer *analysis.Role
	gateway  *effector.Gateway
	rec      *recorder.Recorder
	log      *logging.Logger
	cfg      Config
}

// New constructs a Generator. log may be nil (category-disabled stub is
// acceptable for tests).
func New(filter *router.Filter, brainer *brain.Role, nerver *nerves.Role, analyzer *analysis.Role, gateway *effector.Gateway, rec *recorder.Recorder, log *logging.Logger, cfg Config) *Generator {
	return &Generator{
		filter:   filter,
		brainer:  brainer,
		nerver:   nerver,
		analyzer: analyzer,
		gateway:  gateway,
		rec:      rec,
		log:      log,
		cfg:      cfg.withDefaults(),
	}
}

// DefaultAvailableActions returns the PDDL action schemas Brain/Nerves
// may choose from in domain, matching _get_available_actions's
// file_management table. Unknown domains return nil, same as the
// original's fallback.
func DefaultAvailableActions(domain string) []string {
	if domain != "file_management" {
		return nil
	}
	return []string{
		"(scan ?d)",
		"(move ?f ?src ?dst)",
		"(remove ?f ?d)",
		"(rename ?f ?old_name ?new_name ?d)",
		"(copy ?src ?dst ?src_folder ?dst_folder)",
		"(compress ?f ?d ?a)",
		"(uncompress ?a ?d ?f)",
		"(create_file ?f ?name ?d)",
		"(create_folder ?d ?parent)",
		"(get_admin)",
		"(connect_folders ?d1 ?d2)",
	}
}

// Generate routes userTask, records one full CoT DataPoint in the
// Recorder, and returns the mission's overall Result. The DataPoint
// itself can be retrieved from the Recorder via CurrentData or saved via
// SaveAndReset.
func (g *Generator) Generate(ctx context.Context, userTask string) (Result, error) {
	decision := g.filter.Filter(userTask)
	missionID := g.rec.StartNewRecording(userTask, g.cfg.Domain)
	result := Result{MissionID: missionID, Route: decision.String()}

	if g.log != nil {
		g.log.Info("mission %s routed %s: %q", missionID, result.Route, userTask)
	}

	var success bool
	var errs []string
	if decision == router.RouteToNerves {
		success, errs = g.processNervesOnly(ctx, userTask)
	} else {
		success, errs = g.processBrainNerves(ctx, userTask)
	}
	result.Success = success
	result.ErrorMessages = errs
	return result, nil
}

// scanEnvironment mirrors _scan_environment: acquire admin rights, then
// scan the sandbox root, folding every returned fact into a fresh state.
func (g *Generator) scanEnvironment(ctx context.Context) fact.State {
	env := fact.NewState()

	adminResult, err := g.gateway.Execute(ctx, "(get_admin)")
	if err == nil && adminResult.Success() {
		env = adminResult.Delta.Apply(env)
	} else if g.log != nil {
		g.log.Warn("get_admin failed during environment scan: %v", err)
	}

	scanResult, err := g.gateway.Execute(ctx, "(scan .)")
	if err != nil || !scanResult.Success() {
		if g.log != nil {
			g.log.Error("scan failed during environment scan: %v", err)
		}
		return env
	}
	return scanResult.Delta.Apply(env)
}

// executeChain runs chain in order against the Effector Gateway,
// threading the environment forward action by action and stopping at
// the first failure (the original's reachability precheck is replaced
// by this direct execute-and-observe approach; see the package doc).
func (g *Generator) executeChain(ctx context.Context, chain []string, env fact.State) (fact.State, []string, bool, string) {
	trace := make([]string, 0, len(chain))
	for i, action := range chain {
		res, err := g.gateway.Execute(ctx, action)
		if err != nil {
			return env, trace, false, fmt.Sprintf("action %d %q: %v", i, action, err)
		}
		trace = append(trace, fmt.Sprintf("%s -> %s", action, res.Message))
		if !res.Success() {
			msg := res.Message
			if res.Err != nil {
				msg = res.Err.Error()
			}
			return env, trace, false, fmt.Sprintf("action %d %q failed: %s", i, action, msg)
		}
		env = res.Delta.Apply(env)
	}
	return env, trace, true, ""
}

// processNervesOnly implements _process_nerves_only: no Brain layer,
// Nerves decomposes the whole user task into one action chain.
func (g *Generator) processNervesOnly(ctx context.Context, userTask string) (bool, []string) {
	var errs []string
	hint := ""
	availableActions := DefaultAvailableActions(g.cfg.Domain)

	for attempt := 0; attempt < g.cfg.NervesFalseLimit; attempt++ {
		env := g.scanEnvironment(ctx)
		envFacts := env.SortedFacts()
		envStr := factsString(envFacts)

		chain, err := g.nerver.DecomposeAction(ctx, userTask, envFacts, g.cfg.Domain, availableActions, hint)
		if err != nil {
			errs = append(errs, fmt.Sprintf("nerves layer failed %d: %v", attempt+1, err))
			hint, _ = g.analyzer.NervesFailure(ctx, userTask, envFacts, nil, "decompose", err.Error())
			_ = g.rec.RecordNervesError(userTask, envStr, nil, err.Error())
			continue
		}

		_, trace, ok, failMsg := g.executeChain(ctx, chain, env)
		if !ok {
			errs = append(errs, fmt.Sprintf("nerves layer failed %d: %s", attempt+1, failMsg))
			hint, _ = g.analyzer.NervesFailure(ctx, userTask, envFacts, chain, "execution", failMsg)
			_ = g.rec.RecordNervesError(userTask, envStr, chain, failMsg)
			continue
		}

		if g.log != nil {
			g.log.Info("nerves-only mission completed in %d step(s): %v", len(trace), trace)
		}
		_ = g.rec.RecordNervesSuccess(userTask, envStr, chain)
		return true, errs
	}

	errs = append(errs, "nerves layer retry budget exhausted")
	return false, errs
}

// processBrainNerves implements _process_brain_nerves and
// _process_single_task: Brain decomposes the goal into a task chain,
// then each task is individually handed to Nerves.
func (g *Generator) processBrainNerves(ctx context.Context, userTask string) (bool, []string) {
	var errs []string
	brainHint := ""
	availableActions := DefaultAvailableActions(g.cfg.Domain)

	for attempt := 0; attempt < g.cfg.BrainFalseLimit; attempt++ {
		env := g.scanEnvironment(ctx)
		envFacts := env.SortedFacts()
		envStr := factsString(envFacts)

		chainOfTask, err := g.brainer.DecomposeTask(ctx, userTask, envFacts, availableActions, brainHint)
		if err != nil {
			errs = append(errs, fmt.Sprintf("brain layer failed %d: %v", attempt+1, err))
			brainHint, _ = g.analyzer.BrainFailure(ctx, userTask, envFacts, nil, "decompose", err.Error())
			_ = g.rec.RecordBrainError(envStr, nil, err.Error())
			continue
		}
		_ = g.rec.RecordBrainSuccess(envStr, chainOfTask, brainHint)

		taskSuccess := true
		var taskFailMsg string
		for i, task := range chainOfTask {
			ok, failMsg := g.processSingleTask(ctx, task, &env)
			if !ok {
				taskSuccess = false
				taskFailMsg = fmt.Sprintf("task %d %q: %s", i, task, failMsg)
				break
			}
		}
		if taskSuccess {
			return true, errs
		}

		errs = append(errs, fmt.Sprintf("brain layer failed %d: %s", attempt+1, taskFailMsg))
		brainHint, _ = g.analyzer.BrainFailure(ctx, userTask, envFacts, chainOfTask, "nerves", taskFailMsg)
		continue
	}

	errs = append(errs, "brain layer retry budget exhausted")
	return false, errs
}

// processSingleTask implements _process_single_task: hand one Brain
// task to Nerves, retrying within its own nerves_false_limit budget
// before bubbling failure back up to the Brain retry loop.
func (g *Generator) processSingleTask(ctx context.Context, task string, env *fact.State) (bool, string) {
	var lastFail string
	hint := ""
	availableActions := DefaultAvailableActions(g.cfg.Domain)

	for attempt := 0; attempt < g.cfg.NervesFalseLimit; attempt++ {
		envFacts := env.SortedFacts()
		envStr := factsString(envFacts)

		chain, err := g.nerver.DecomposeAction(ctx, task, envFacts, g.cfg.Domain, availableActions, hint)
		if err != nil {
			lastFail = err.Error()
			hint, _ = g.analyzer.NervesFailure(ctx, task, envFacts, nil, "decompose", lastFail)
			_ = g.rec.RecordNervesError(task, envStr, nil, lastFail)
			continue
		}

		newEnv, _, ok, failMsg := g.executeChain(ctx, chain, *env)
		if !ok {
			lastFail = failMsg
			hint, _ = g.analyzer.NervesFailure(ctx, task, envFacts, chain, "execution", lastFail)
			_ = g.rec.RecordNervesError(task, envStr, chain, lastFail)
			continue
		}

		*env = newEnv
		_ = g.rec.RecordNervesSuccess(task, envStr, chain)
		return true, ""
	}
	return false, lastFail
}

func factsString(facts []fact.Fact) string {
	parts := make([]string, 0, len(facts))
	for _, f := range facts {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " ")
}
