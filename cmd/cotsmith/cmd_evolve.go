package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cotsmith/internal/evolve"
)

var (
	evolveMaxRetries       int
	evolveKernelIterations int
)

// evolveCmd drives the Evolution Loop against one user goal the
// current action set cannot satisfy, asking the LLM for a PDDL action
// plus a Go skill body and validating the patch in the run's sandbox.
var evolveCmd = &cobra.Command{
	Use:   "evolve <goal>",
	Short: "Author and validate a new PDDL action and Go skill for a goal the current domain cannot reach",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sys, err := buildSystem(ctx)
		if err != nil {
			return err
		}

		loop := evolve.New(evolve.Config{
			MaxRetries:       evolveMaxRetries,
			KernelIterations: evolveKernelIterations,
		}, sys.gateway, sys.pddlPlanner, sys.pddlMod, sys.llmClient, sys.registry, autopoieticBuild)

		goal := joinTaskArgs(args)
		result, err := loop.Run(ctx, goal, sys.sandboxMgr, evolve.TaskData{}, sys.synthesizer, sys.storage)
		if ctx.Err() != nil {
			return errInterrupted
		}
		if err != nil {
			return fmt.Errorf("evolution loop: %w", err)
		}

		if result.Outcome == evolve.OutcomeExhaustedRetries {
			cmd.Printf("evolution exhausted its retry budget (%d attempts)\n", evolveMaxRetries)
			for _, e := range result.HistoryErrors {
				cmd.Printf("  - %s\n", e)
			}
			return fmt.Errorf("evolution did not converge")
		}

		cmd.Printf("evolved action %q, skill written to %s\n", result.Patch.ActionName, result.SkillPath)
		if err := sys.regRegistry.SaveCase(caseFromEvolution(goal, result)); err != nil {
			cmd.Printf("warning: could not register regression case: %v\n", err)
		}
		return nil
	},
}

func init() {
	evolveCmd.Flags().IntVar(&evolveMaxRetries, "max-retries", 4, "Evolution attempt budget")
	evolveCmd.Flags().IntVar(&evolveKernelIterations, "kernel-iterations", 5, "Iterations given to the validation kernel per attempt")
}
