package synth

import (
	"strings"
	"testing"

	"cotsmith/internal/fact"
)

func TestExtractObjectsFromState(t *testing.T) {
	facts := map[fact.Fact]struct{}{
		fact.MustParse("(at file1 root)"):    {},
		fact.MustParse("(scanned root)"):     {},
		fact.MustParse("(is_created file2)"): {},
	}
	objects := ExtractObjectsFromState(facts, DefaultFileManagementTypes)

	want := map[string]string{
		"file1": "file",
		"root":  "folder",
		"file2": "file",
	}
	for obj, typ := range want {
		if objects[obj] != typ {
			t.Errorf("objects[%q] = %q, want %q", obj, objects[obj], typ)
		}
	}
}

func TestMergeObjectsDoesNotOverwrite(t *testing.T) {
	objects := map[string]string{"a": "file"}
	MergeObjects(objects, map[string]string{"a": "archive", "b": "folder"})
	if objects["a"] != "file" {
		t.Fatalf("expected existing entry preserved, got %q", objects["a"])
	}
	if objects["b"] != "folder" {
		t.Fatalf("expected new entry merged, got %q", objects["b"])
	}
}

func TestBuildObjectsSectionGroupsByType(t *testing.T) {
	section := BuildObjectsSection(map[string]string{
		"file1": "file",
		"file2": "file",
		"root":  "folder",
	})
	if !strings.Contains(section, "file1 file2 - file") {
		t.Errorf("expected grouped file line, got %q", section)
	}
	if !strings.Contains(section, "root - folder") {
		t.Errorf("expected folder line, got %q", section)
	}
}

func TestBuildInitSectionAlwaysHasTotalCost(t *testing.T) {
	current := map[fact.Fact]struct{}{fact.MustParse("(at file1 root)"): {}}
	section := BuildInitSection(current, nil)
	if !strings.Contains(section, "(= (total-cost) 0)") {
		t.Fatalf("expected total-cost fact present, got %q", section)
	}
	if !strings.Contains(section, "(at file1 root)") {
		t.Fatalf("expected current fact present, got %q", section)
	}
}

func TestBuildInitSectionSkipsNegatedBaseFacts(t *testing.T) {
	section := BuildInitSection(nil, []string{"(not (at file1 root))", "(at file2 root)"})
	if strings.Contains(section, "(not") {
		t.Fatalf("expected negated base facts filtered out, got %q", section)
	}
	if !strings.Contains(section, "(at file2 root)") {
		t.Fatalf("expected positive base fact retained, got %q", section)
	}
}

func TestComposeFullProblem(t *testing.T) {
	problem := ComposeFullProblem("mission_1", "file-manager", "file1 - file", "(at file1 root)", "(:goal (at file1 backup))")
	if !strings.HasPrefix(problem, "(define (problem mission_1)") {
		t.Fatalf("unexpected problem header: %q", problem)
	}
	if !strings.Contains(problem, "(:domain file-manager)") {
		t.Fatalf("expected domain clause, got %q", problem)
	}
	if !strings.Contains(problem, "(:goal (at file1 backup))") {
		t.Fatalf("expected goal clause, got %q", problem)
	}
}
