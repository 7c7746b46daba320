package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var proposeGoal string

// proposeCmd asks the Curriculum Proposer for the next learning task,
// either freely (propose_next) or anchored to a user-supplied goal text
// (propose_specific), matching curriculum.py's two entry points. This
// is a diagnostic companion to `evolve`/`regress`, not part of the
// mission pipeline itself.
var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Ask the Curriculum Proposer for the next learning task",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sys, err := buildSystem(ctx)
		if err != nil {
			return err
		}

		domainContent, err := os.ReadFile(sys.paths.DomainFile)
		if err != nil {
			return fmt.Errorf("read domain file: %w", err)
		}

		priorGoals, err := priorMissionGoals(sys)
		if err != nil {
			return err
		}

		if proposeGoal != "" {
			p, err := sys.curriculumRole.ProposeSpecific(ctx, proposeGoal, string(domainContent), sys.registry.Names(), sys.paths.StorageDir, priorGoals)
			if ctx.Err() != nil {
				return errInterrupted
			}
			if err != nil {
				return fmt.Errorf("propose specific task: %w", err)
			}
			cmd.Printf("task_name=%s\ngoal=%s\nrationale=%s\nsetup_actions=%v\n", p.TaskName, p.Goal, p.Rationale, p.SetupActions)
			return nil
		}

		p, err := sys.curriculumRole.ProposeNext(ctx, string(domainContent), sys.registry.Names(), sys.paths.StorageDir, priorGoals)
		if ctx.Err() != nil {
			return errInterrupted
		}
		if err != nil {
			return fmt.Errorf("propose next task: %w", err)
		}
		cmd.Printf("task_name=%s\ngoal=%s\nrationale=%s\nsetup_actions=%v\n", p.TaskName, p.Goal, p.Rationale, p.SetupActions)
		return nil
	},
}

// priorMissionGoals collects the goal text of every registered
// regression case, used as the Curriculum Proposer's novelty baseline.
func priorMissionGoals(sys *system) ([]string, error) {
	cases, err := sys.regRegistry.LoadCases()
	if err != nil {
		return nil, fmt.Errorf("load regression cases: %w", err)
	}
	goals := make([]string, 0, len(cases))
	for _, c := range cases {
		goals = append(goals, c.Goal)
	}
	return goals, nil
}

func init() {
	proposeCmd.Flags().StringVar(&proposeGoal, "goal", "", "Anchor the proposal to this goal text instead of proposing freely")
	rootCmd.AddCommand(proposeCmd)
}
