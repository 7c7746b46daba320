// Package curriculum implements the Curriculum Proposer: an LLM role
// that proposes the next learning task given the system's current
// PDDL capabilities, registered skills, and sandbox storage contents.
//
// Grounded on _examples/original_source/algorithm/curriculum.py
// (prompt assembly, learned-action-name extraction via regex over the
// domain file, storage-tree snapshot, JSON-retry loop). The novelty
// check is strengthened beyond the source's purely prompt-based
// constraint by embedding the proposed goal against prior mission
// goals and rejecting near-duplicates, grounded on the teacher's
// internal/embedding/genai.go client construction.
package curriculum

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// MaxRetries is the JSON-output retry budget per proposal call.
const MaxRetries = 3

// DefaultNoveltyThreshold rejects a proposal whose goal text is at
// least this cosine-similar to any already-solved mission goal.
const DefaultNoveltyThreshold = 0.92

type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder turns text into a fixed-size vector for novelty comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Proposal is a proposed learning task, matching the registry Case
// shape closely enough to be saved directly once accepted.
type Proposal struct {
	TaskName     string     `json:"task_name"`
	Goal         string     `json:"goal"`
	Rationale    string     `json:"rationale"`
	SetupActions [][]string `json:"setup_actions"`
}

// Role proposes next-task curriculum entries.
type Role struct {
	client    llm
	embedder  Embedder // optional; novelty check is skipped when nil
	threshold float64
}

// Option configures a Role.
type Option func(*Role)

// WithEmbedder enables the embedding-based novelty check.
func WithEmbedder(e Embedder) Option {
	return func(r *Role) { r.embedder = e }
}

// WithNoveltyThreshold overrides DefaultNoveltyThreshold.
func WithNoveltyThreshold(t float64) Option {
	return func(r *Role) { r.threshold = t }
}

// New constructs a Role backed by client.
func New(client llm, opts ...Option) *Role {
	r := &Role{client: client, threshold: DefaultNoveltyThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const systemPrompt = "You only output a JSON object describing one task definition."

// ProposeNext proposes a task currently unachievable with the system's
// learned skills, rejecting any proposal whose goal is a near-duplicate
// of a prior mission goal (when an Embedder is configured).
func (r *Role) ProposeNext(ctx context.Context, domainContent string, availableSkills []string, storageRoot string, priorGoals []string) (*Proposal, error) {
	learned := extractLearnedActions(domainContent)
	snapshot, err := snapshotStorage(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("curriculum: snapshot storage: %w", err)
	}

	prompt := buildAutoPrompt(learned, snapshot, domainContent, availableSkills)
	return r.callWithRetry(ctx, prompt, priorGoals)
}

// ProposeSpecific designs a task aligned with taskGoal.
func (r *Role) ProposeSpecific(ctx context.Context, taskGoal, domainContent string, availableSkills []string, storageRoot string, priorGoals []string) (*Proposal, error) {
	learned := extractLearnedActions(domainContent)
	snapshot, err := snapshotStorage(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("curriculum: snapshot storage: %w", err)
	}

	prompt := buildSpecificPrompt(taskGoal, learned, snapshot, domainContent, availableSkills)
	return r.callWithRetry(ctx, prompt, priorGoals)
}

func (r *Role) callWithRetry(ctx context.Context, prompt string, priorGoals []string) (*Proposal, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		response, err := r.client.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			lastErr = fmt.Errorf("curriculum: complete: %w", err)
			continue
		}

		var proposal Proposal
		if err := json.Unmarshal([]byte(strings.TrimSpace(stripFence(response))), &proposal); err != nil {
			lastErr = fmt.Errorf("curriculum: parse proposal: %w", err)
			continue
		}
		if proposal.Goal == "" {
			lastErr = fmt.Errorf("curriculum: proposal missing goal")
			continue
		}
		if err := validateSetupActions(proposal.SetupActions); err != nil {
			lastErr = err
			continue
		}

		if r.embedder != nil {
			novel, err := r.isNovel(ctx, proposal.Goal, priorGoals)
			if err != nil {
				return nil, err
			}
			if !novel {
				lastErr = fmt.Errorf("curriculum: proposal too similar to a previously solved goal")
				continue
			}
		}

		return &proposal, nil
	}
	return nil, fmt.Errorf("curriculum: exhausted %d attempts: %w", MaxRetries, lastErr)
}

func (r *Role) isNovel(ctx context.Context, goal string, priorGoals []string) (bool, error) {
	if len(priorGoals) == 0 {
		return true, nil
	}
	goalVec, err := r.embedder.Embed(ctx, goal)
	if err != nil {
		return false, fmt.Errorf("curriculum: embed proposed goal: %w", err)
	}
	for _, prior := range priorGoals {
		priorVec, err := r.embedder.Embed(ctx, prior)
		if err != nil {
			return false, fmt.Errorf("curriculum: embed prior goal: %w", err)
		}
		if cosineSimilarity(goalVec, priorVec) >= r.threshold {
			return false, nil
		}
	}
	return true, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var learnedActionPattern = regexp.MustCompile(`\(:action\s+([^\s)]+)`)

func extractLearnedActions(domainContent string) []string {
	matches := learnedActionPattern.FindAllStringSubmatch(domainContent, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func snapshotStorage(storageRoot string) (string, error) {
	info, err := os.Stat(storageRoot)
	if err != nil || !info.IsDir() {
		return "storage is empty.", nil
	}

	var lines []string
	err = filepath.WalkDir(storageRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(storageRoot, path)
		if relErr != nil {
			return relErr
		}
		logicalPath := rel
		if rel == "." {
			logicalPath = "root"
		}

		entries, readErr := os.ReadDir(path)
		if readErr != nil {
			return readErr
		}
		var dirs, files []string
		for _, e := range entries {
			name := strings.ReplaceAll(e.Name(), ".", "_dot_")
			if e.IsDir() {
				dirs = append(dirs, name)
			} else {
				files = append(files, name)
			}
		}
		sort.Strings(dirs)
		sort.Strings(files)
		lines = append(lines, fmt.Sprintf("- directory [%s] contains folders: %v, contains files: %v", logicalPath, dirs, files))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func buildAutoPrompt(learned []string, snapshot, domainContent string, availableSkills []string) string {
	var b strings.Builder
	b.WriteString("You are AIOS's chief training officer.\n\n")
	fmt.Fprintf(&b, "Skills already mastered, strictly forbidden to repeat: %v\n\n", learned)
	fmt.Fprintf(&b, "Current sandbox physical environment:\n%s\n\n", snapshot)
	fmt.Fprintf(&b, "Current system capabilities (PDDL domain):\n%s\n\n", domainContent)
	fmt.Fprintf(&b, "Available setup actions: %v\n\n", availableSkills)
	b.WriteString("Your task: propose a new filesystem task the system currently cannot complete.\n\n")
	b.WriteString("Core requirements:\n")
	b.WriteString("1. Never propose a task solvable with an already-mastered skill.\n")
	b.WriteString("2. The new task must be as simple as possible, requiring exactly one new capability.\n")
	b.WriteString("3. Base it on directories that genuinely exist in the physical environment.\n")
	b.WriteString("4. Escape every dot in a filename, e.g. \"test.log\" becomes \"test_dot_log\".\n")
	b.WriteString("5. setup_actions may only use create_file or create_folder.\n")
	b.WriteString("6. Never include scan or get_admin in setup_actions.\n\n")
	b.WriteString(jsonShapeHint())
	return b.String()
}

func buildSpecificPrompt(taskGoal string, learned []string, snapshot, domainContent string, availableSkills []string) string {
	var b strings.Builder
	b.WriteString("You are AIOS's chief training officer.\n\n")
	fmt.Fprintf(&b, "User-specified learning goal:\n%s\n\n", taskGoal)
	fmt.Fprintf(&b, "Skills already mastered: %v\n\n", learned)
	fmt.Fprintf(&b, "Current sandbox physical environment:\n%s\n\n", snapshot)
	fmt.Fprintf(&b, "Current system capabilities (PDDL domain):\n%s\n\n", domainContent)
	fmt.Fprintf(&b, "Available setup actions: %v\n\n", availableSkills)
	b.WriteString("Your task: design a concrete learning task aligned with the user's specified goal.\n\n")
	b.WriteString("Requirements:\n")
	b.WriteString("1. The task must relate to the user's specified goal.\n")
	b.WriteString("2. The task should be as simple as possible to learn.\n")
	b.WriteString("3. Base it on directories that genuinely exist in the physical environment.\n")
	b.WriteString("4. Escape every dot in a filename, e.g. \"test.log\" becomes \"test_dot_log\".\n")
	b.WriteString("5. setup_actions may only use create_file or create_folder.\n")
	b.WriteString("6. Never include scan or get_admin in setup_actions.\n\n")
	b.WriteString(jsonShapeHint())
	return b.String()
}

func jsonShapeHint() string {
	return `Output JSON:
{
    "task_name": "short task name",
    "goal": "natural language instruction",
    "rationale": "why this task is currently unachievable",
    "setup_actions": [
        ["create_file", "a_dot_txt", "root"]
    ]
}`
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func validateSetupActions(actions [][]string) error {
	for _, action := range actions {
		if len(action) == 0 {
			return fmt.Errorf("curriculum: empty setup action")
		}
		verb := action[0]
		if verb != "create_file" && verb != "create_folder" {
			return fmt.Errorf("curriculum: setup action %q is not allowed (only create_file/create_folder)", verb)
		}
	}
	return nil
}
