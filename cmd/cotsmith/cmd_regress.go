package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cotsmith/internal/kernel"
	"cotsmith/internal/orchestrate"
)

var regressDomainPath string

// regressCmd replays every registered regression case against a
// candidate domain file, failing fast on the first case that no longer
// passes, matching regression.py's run_regression_suite.
var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Replay the registered regression suite against a candidate domain file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sys, err := buildSystem(ctx)
		if err != nil {
			return err
		}

		candidate := regressDomainPath
		if candidate == "" {
			candidate = sys.paths.DomainFile
		}

		translatorFactory := func() kernel.Translator { return sys.synthesizer }
		plannerFactory := func() kernel.Planner { return orchestrate.PlannerAdapter{Planner: sys.pddlPlanner} }
		executorFactory := func() kernel.Executor { return orchestrate.ExecutorAdapter{Gateway: sys.gateway} }

		result, err := sys.regRegistry.RunSuite(
			ctx,
			sys.sandboxMgr,
			candidate,
			sys.storage,
			sys.cfg.Kernel.MaxIterations,
			translatorFactory,
			plannerFactory,
			executorFactory,
		)
		if ctx.Err() != nil {
			return errInterrupted
		}
		if err != nil {
			return fmt.Errorf("run regression suite: %w", err)
		}

		for _, cr := range result.Cases {
			status := "PASS"
			if !cr.Success() {
				status = "FAIL"
			}
			cmd.Printf("[%s] %s: %s\n", status, cr.Case.TaskName, cr.Case.Goal)
		}

		if !result.Passed {
			return fmt.Errorf("regression suite failed")
		}
		cmd.Printf("regression suite passed: %d case(s)\n", len(result.Cases))
		return nil
	},
}

func init() {
	regressCmd.Flags().StringVar(&regressDomainPath, "domain", "", "Candidate domain PDDL file to validate (default: this run's sandbox domain)")
}
