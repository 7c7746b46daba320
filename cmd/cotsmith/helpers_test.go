package main

import (
	"os"
	"path/filepath"
	"testing"

	"cotsmith/internal/evolve"
)

func TestReadTaskLinesSkipsBlankAndComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.txt")
	content := "move a.txt from docs to archive\n\n# a comment\nscan downloads\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tasks, err := readTaskLines(path)
	if err != nil {
		t.Fatalf("readTaskLines: %v", err)
	}
	want := []string{"move a.txt from docs to archive", "scan downloads"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d: %v", len(tasks), len(want), tasks)
	}
	for i, w := range want {
		if tasks[i] != w {
			t.Errorf("task %d = %q, want %q", i, tasks[i], w)
		}
	}
}

func TestReadTaskLinesMissingFile(t *testing.T) {
	if _, err := readTaskLines(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected an error for a missing task list")
	}
}

func TestCaseFromEvolution(t *testing.T) {
	result := evolve.Result{Patch: evolve.Patch{ActionName: "archive_folder"}}
	c := caseFromEvolution("archive every folder older than a year", result)
	if c.TaskName != "archive_folder" {
		t.Errorf("TaskName = %q, want %q", c.TaskName, "archive_folder")
	}
	if c.Goal != "archive every folder older than a year" {
		t.Errorf("Goal = %q", c.Goal)
	}
}
