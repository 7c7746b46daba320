package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cotsmith/internal/mission"
)

var (
	runNervesFalseLimit int
	runBrainFalseLimit  int
	runArchiveName      string
	runRecordingName    string

	batchOutputDir string
)

// runCmd carries out exactly one mission end to end: filter, decompose,
// execute, record.
var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Generate and execute one Chain-of-Thought mission from a natural-language task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		sys, err := buildSystem(ctx)
		if err != nil {
			return err
		}
		rec, err := sys.buildRecorder()
		if err != nil {
			return err
		}

		gen := mission.New(sys.filter, sys.brainRole, sys.nervesRole, sys.analysisRole, sys.gateway, rec, sys.log, mission.Config{
			Domain:           fileManagementDomain,
			NervesFalseLimit: runNervesFalseLimit,
			BrainFalseLimit:  runBrainFalseLimit,
			ArchiveName:      runArchiveName,
		})

		task := joinTaskArgs(args)
		result, err := gen.Generate(ctx, task)
		if ctx.Err() != nil {
			return errInterrupted
		}
		if err != nil {
			return fmt.Errorf("generate mission: %w", err)
		}

		filename := runRecordingName
		if filename == "" {
			filename = result.MissionID + ".json"
		}
		path, err := rec.SaveAndReset(filename)
		if err != nil {
			return fmt.Errorf("save recording: %w", err)
		}

		cmd.Printf("mission %s: route=%s success=%v\nrecorded at %s\n", result.MissionID, result.Route, result.Success, path)
		for _, msg := range result.ErrorMessages {
			cmd.Printf("  - %s\n", msg)
		}
		if !result.Success {
			return fmt.Errorf("mission did not complete successfully")
		}
		return nil
	},
}

// batchCmd runs one mission per line of a task-list file, each with its
// own BatchRecorder-managed recording subdirectory.
var batchCmd = &cobra.Command{
	Use:   "batch <task-list-file>",
	Short: "Run one mission per task line in a file, recording each separately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		tasks, err := readTaskLines(args[0])
		if err != nil {
			return err
		}

		sys, err := buildSystem(ctx)
		if err != nil {
			return err
		}

		outDir := batchOutputDir
		if outDir == "" {
			outDir = sys.cfg.Paths.OutputDir
		}
		batch, err := newBatchRecorderAt(sys, outDir)
		if err != nil {
			return err
		}

		successCount := 0
		for i, task := range tasks {
			if ctx.Err() != nil {
				return errInterrupted
			}
			taskID := fmt.Sprintf("task-%03d", i)
			rec, err := batch.StartTask(taskID, task, fileManagementDomain)
			if err != nil {
				return fmt.Errorf("start task %s: %w", taskID, err)
			}

			gen := mission.New(sys.filter, sys.brainRole, sys.nervesRole, sys.analysisRole, sys.gateway, rec, sys.log, mission.Config{
				Domain:           fileManagementDomain,
				NervesFalseLimit: runNervesFalseLimit,
				BrainFalseLimit:  runBrainFalseLimit,
				ArchiveName:      runArchiveName,
			})
			result, err := gen.Generate(ctx, task)
			if err != nil {
				cmd.Printf("%s: generate error: %v\n", taskID, err)
				continue
			}
			if result.Success {
				successCount++
			}
			path, err := batch.CompleteTask(taskID, taskID+".json")
			if err != nil {
				return fmt.Errorf("complete task %s: %w", taskID, err)
			}
			cmd.Printf("%s: route=%s success=%v recorded at %s\n", taskID, result.Route, result.Success, path)
		}

		summary := batch.Summary()
		cmd.Printf("batch complete: %d/%d tasks, %.1f%% recorded success rate\n", successCount, summary.TotalTasks, summary.SuccessRate)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runNervesFalseLimit, "nerves-retry-limit", 3, "Nerves-layer retry budget")
	runCmd.Flags().IntVar(&runBrainFalseLimit, "brain-retry-limit", 3, "Brain-layer retry budget")
	runCmd.Flags().StringVar(&runArchiveName, "archive-name", "", "Archive name stored in the mission config (the mission pipeline does not read it)")
	runCmd.Flags().StringVar(&runRecordingName, "output", "", "Recording output filename (default: <mission-id>.json)")

	batchCmd.Flags().IntVar(&runNervesFalseLimit, "nerves-retry-limit", 3, "Nerves-layer retry budget")
	batchCmd.Flags().IntVar(&runBrainFalseLimit, "brain-retry-limit", 3, "Brain-layer retry budget")
	batchCmd.Flags().StringVar(&runArchiveName, "archive-name", "", "Archive name stored in the mission config (the mission pipeline does not read it)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "Batch recordings directory (default: configured output dir)")
}

func joinTaskArgs(args []string) string {
	task := args[0]
	for _, a := range args[1:] {
		task += " " + a
	}
	return task
}
