package translate

import (
	"testing"

	"cotsmith/internal/fact"
)

func TestNerves2BrainSimpleRules(t *testing.T) {
	facts := map[fact.Fact]struct{}{
		fact.MustParse("(scanned root)"):        {},
		fact.MustParse("(has_admin_rights)"):     {},
		fact.MustParse("(is_created file1)"):     {},
	}
	out := Nerves2Brain(facts, nil)

	for _, want := range []string{"(known root)", "(has_permission)", "(exists file1)"} {
		if _, ok := out[want]; !ok {
			t.Errorf("expected %q in translated set, got %v", want, out)
		}
	}
}

func TestNerves2BrainClustersManyAtFacts(t *testing.T) {
	facts := map[fact.Fact]struct{}{
		fact.MustParse("(at a root)"): {},
		fact.MustParse("(at b root)"): {},
		fact.MustParse("(at c root)"): {},
		fact.MustParse("(at d root)"): {},
	}
	out := Nerves2Brain(facts, nil)
	if _, ok := out["(contains root multiple_files)"]; !ok {
		t.Fatalf("expected clustered contains fact, got %v", out)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the clustered fact, got %v", out)
	}
}

func TestNerves2BrainKeepsFewAtFactsUnclustered(t *testing.T) {
	facts := map[fact.Fact]struct{}{
		fact.MustParse("(at a root)"): {},
		fact.MustParse("(at b root)"): {},
	}
	out := Nerves2Brain(facts, nil)
	if _, ok := out["(located a root)"]; !ok {
		t.Fatalf("expected located fact for a, got %v", out)
	}
	if _, ok := out["(located b root)"]; !ok {
		t.Fatalf("expected located fact for b, got %v", out)
	}
}

func TestNerves2BrainUpgradesErrors(t *testing.T) {
	out := Nerves2Brain(nil, []string{"error_file_not_found"})
	if _, ok := out["(not (exists ?obj))"]; !ok {
		t.Fatalf("expected error upgrade fact, got %v", out)
	}
}

func TestBrain2NervesRoundTrip(t *testing.T) {
	brainFacts := map[string]struct{}{
		"(located file1 root)": {},
		"(has_permission)":     {},
		"(known root)":         {},
	}
	out := Brain2Nerves(brainFacts, Brain2NervesContext{})
	for _, want := range []string{"(at file1 root)", "(has_admin_rights)", "(scanned root)"} {
		if _, ok := out[want]; !ok {
			t.Errorf("expected %q, got %v", want, out)
		}
	}
}

func TestBrain2NervesCompressedUsesArchiveContext(t *testing.T) {
	brainFacts := map[string]struct{}{"(compressed file1)": {}}
	out := Brain2Nerves(brainFacts, Brain2NervesContext{ArchiveName: "archive_42"})
	if _, ok := out["(is_compressed file1 archive_42)"]; !ok {
		t.Fatalf("expected archive-contextualized fact, got %v", out)
	}
}

func TestBrain2NervesDropsMultipleFilesSentinel(t *testing.T) {
	brainFacts := map[string]struct{}{"(contains root multiple_files)": {}}
	out := Brain2Nerves(brainFacts, Brain2NervesContext{})
	if len(out) != 0 {
		t.Fatalf("expected sentinel fact dropped, got %v", out)
	}
}
