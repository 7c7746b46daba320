package curriculum

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cotsmith/internal/llm"
)

const sampleDomain = `(define (domain file-manager)
  (:action scan :parameters (?d) :precondition (and) :effect (and))
  (:action move :parameters (?f ?src ?dst) :precondition (and) :effect (and))
)`

func TestProposeNextParsesValidJSON(t *testing.T) {
	storageRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(storageRoot, "workspace"), 0o755); err != nil {
		t.Fatal(err)
	}

	resp := `{"task_name":"chmod-readonly","goal":"make a_dot_txt read-only","rationale":"no chmod action exists","setup_actions":[["create_file","a_dot_txt","root"]]}`
	fake := &llm.FakeClient{Responses: []string{resp}}
	role := New(fake)

	proposal, err := role.ProposeNext(context.Background(), sampleDomain, []string{"scan", "move"}, storageRoot, nil)
	if err != nil {
		t.Fatalf("ProposeNext error: %v", err)
	}
	if proposal.TaskName != "chmod-readonly" {
		t.Fatalf("unexpected task name: %q", proposal.TaskName)
	}
	if len(proposal.SetupActions) != 1 || proposal.SetupActions[0][0] != "create_file" {
		t.Fatalf("unexpected setup actions: %v", proposal.SetupActions)
	}
}

func TestProposeNextRejectsDisallowedSetupAction(t *testing.T) {
	storageRoot := t.TempDir()
	bad := `{"task_name":"x","goal":"y","rationale":"z","setup_actions":[["scan","root"]]}`
	good := `{"task_name":"x","goal":"y","rationale":"z","setup_actions":[["create_folder","backup","root"]]}`
	fake := &llm.FakeClient{Responses: []string{bad, good}}
	role := New(fake)

	proposal, err := role.ProposeNext(context.Background(), sampleDomain, nil, storageRoot, nil)
	if err != nil {
		t.Fatalf("ProposeNext error: %v", err)
	}
	if proposal.SetupActions[0][0] != "create_folder" {
		t.Fatalf("expected retry to yield the valid proposal, got %v", proposal.SetupActions)
	}
	if len(fake.Calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(fake.Calls))
	}
}

func TestProposeNextStripsJSONFence(t *testing.T) {
	storageRoot := t.TempDir()
	resp := "```json\n{\"task_name\":\"x\",\"goal\":\"y\",\"rationale\":\"z\",\"setup_actions\":[]}\n```"
	fake := &llm.FakeClient{Responses: []string{resp}}
	role := New(fake)

	proposal, err := role.ProposeNext(context.Background(), sampleDomain, nil, storageRoot, nil)
	if err != nil {
		t.Fatalf("ProposeNext error: %v", err)
	}
	if proposal.Goal != "y" {
		t.Fatalf("unexpected goal: %q", proposal.Goal)
	}
}

func TestExtractLearnedActions(t *testing.T) {
	got := extractLearnedActions(sampleDomain)
	if len(got) != 2 || got[0] != "scan" || got[1] != "move" {
		t.Fatalf("unexpected learned actions: %v", got)
	}
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vectors[text], nil
}

func TestProposeNextRejectsNearDuplicateGoal(t *testing.T) {
	storageRoot := t.TempDir()
	dup := `{"task_name":"x","goal":"duplicate goal","rationale":"z","setup_actions":[]}`
	fresh := `{"task_name":"x","goal":"fresh goal","rationale":"z","setup_actions":[]}`
	fake := &llm.FakeClient{Responses: []string{dup, fresh}}

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"duplicate goal": {1, 0, 0},
		"prior goal":     {1, 0, 0},
		"fresh goal":     {0, 1, 0},
	}}
	role := New(fake, WithEmbedder(embedder))

	proposal, err := role.ProposeNext(context.Background(), sampleDomain, nil, storageRoot, []string{"prior goal"})
	if err != nil {
		t.Fatalf("ProposeNext error: %v", err)
	}
	if proposal.Goal != "fresh goal" {
		t.Fatalf("expected near-duplicate to be rejected in favor of fresh goal, got %q", proposal.Goal)
	}
	if len(fake.Calls) != 2 {
		t.Fatalf("expected 2 calls (one rejected by novelty check), got %d", len(fake.Calls))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("expected identical vectors to have similarity ~1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got > 0.001 {
		t.Fatalf("expected orthogonal vectors to have similarity ~0, got %v", got)
	}
}
