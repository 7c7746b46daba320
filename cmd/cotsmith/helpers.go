package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cotsmith/internal/evolve"
	"cotsmith/internal/recorder"
	"cotsmith/internal/regression"
)

// readTaskLines reads one task description per non-blank, non-comment
// line of path, matching the plain task-list convention batch mode
// consumes.
func readTaskLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open task list: %w", err)
	}
	defer f.Close()

	var tasks []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tasks = append(tasks, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read task list: %w", err)
	}
	return tasks, nil
}

func newBatchRecorderAt(sys *system, outDir string) (*recorder.BatchRecorder, error) {
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(sys.workspace, outDir)
	}
	return recorder.NewBatch(outDir)
}

// caseFromEvolution registers a newly-evolved action as a regression
// case so a later patch can't silently break it, matching evolution.py's
// own post-evolve save_new_test call.
func caseFromEvolution(goal string, result evolve.Result) regression.Case {
	return regression.Case{
		TaskName: result.Patch.ActionName,
		Goal:     goal,
	}
}
