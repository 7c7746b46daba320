package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cotsmith/internal/fact"
	"cotsmith/internal/skill"
)

func decode(t *testing.T, text string) wireResponse {
	t.Helper()
	var resp wireResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("decode response: %v, text=%q", err, text)
	}
	return resp
}

func TestRegisterInstallsAllFourteenSkills(t *testing.T) {
	r := skill.NewRegistry()
	Register(r, t.TempDir())

	want := []string{
		"move", "copy", "scan", "compress", "uncompress",
		"create_file", "create_folder", "get_admin", "rename",
		"remove", "delete", "read", "write", "connect_folders",
	}
	for _, name := range want {
		if !r.Has(name) {
			t.Errorf("expected skill %q to be registered", name)
		}
	}
	if r.Count() != len(want) {
		t.Fatalf("expected %d skills, got %d", len(want), r.Count())
	}
}

func TestCreateFileThenReadRoundTrips(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "root"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := skill.NewRegistry()
	Register(r, root)
	ctx := context.Background()

	createResp, err := r.Get("create_file").Execute(ctx, map[string]any{
		"filename": "doc_dot_txt", "folder": "root", "content": "hello",
	})
	if err != nil {
		t.Fatalf("create_file error: %v", err)
	}
	resp := decode(t, createResp)
	if resp.Metadata.Status != "success" {
		t.Fatalf("expected success, got %+v", resp.Metadata)
	}
	if _, err := fact.Parse(extractFirstFact(resp.Metadata.PDDLDelta)); err != nil {
		t.Fatalf("expected a parseable fact in delta %q: %v", resp.Metadata.PDDLDelta, err)
	}

	readResp, err := r.Get("read").Execute(ctx, map[string]any{
		"file_name": "doc_dot_txt", "folder": "root",
	})
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if decode(t, readResp).Metadata.Status != "success" {
		t.Fatalf("expected read success, got %q", readResp)
	}

	data, err := os.ReadFile(filepath.Join(root, "root", "doc.txt"))
	if err != nil {
		t.Fatalf("expected real file on disk: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("expected content %q, got %q", "hello", data)
	}
}

func TestCreateFileRejectsDuplicate(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)
	os.WriteFile(filepath.Join(root, "root", "doc.txt"), []byte("x"), 0o644)

	r := skill.NewRegistry()
	Register(r, root)

	out, err := r.Get("create_file").Execute(context.Background(), map[string]any{
		"filename": "doc_dot_txt", "folder": "root",
	})
	if err != nil {
		t.Fatalf("unexpected transport-level error: %v", err)
	}
	if decode(t, out).Metadata.Status != "error" {
		t.Fatalf("expected error status for duplicate file, got %q", out)
	}
}

func TestMoveRelocatesFileAndEmitsDelta(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)
	os.MkdirAll(filepath.Join(root, "backup"), 0o755)
	os.WriteFile(filepath.Join(root, "root", "a.txt"), []byte("x"), 0o644)

	r := skill.NewRegistry()
	Register(r, root)

	out, err := r.Get("move").Execute(context.Background(), map[string]any{
		"file_name": "a_dot_txt", "from_folder": "root", "to_folder": "backup",
	})
	if err != nil {
		t.Fatalf("move error: %v", err)
	}
	resp := decode(t, out)
	if resp.Metadata.Status != "success" {
		t.Fatalf("expected success, got %+v", resp.Metadata)
	}

	delta, err := fact.ParseDelta(resp.Metadata.PDDLDelta)
	if err != nil {
		t.Fatalf("ParseDelta error on %q: %v", resp.Metadata.PDDLDelta, err)
	}
	if len(delta.Add) != 1 || len(delta.Del) != 1 {
		t.Fatalf("expected exactly one add and one del, got add=%d del=%d", len(delta.Add), len(delta.Del))
	}
	if _, ok := delta.Add[fact.MustParse("(at a_dot_txt backup)")]; !ok {
		t.Fatalf("expected (at a_dot_txt backup) in add set, got %v", delta.Add)
	}
	if _, ok := delta.Del[fact.MustParse("(at a_dot_txt root)")]; !ok {
		t.Fatalf("expected (at a_dot_txt root) in del set, got %v", delta.Del)
	}

	if _, err := os.Stat(filepath.Join(root, "backup", "a.txt")); err != nil {
		t.Fatalf("expected file relocated on disk: %v", err)
	}
}

func TestMoveMissingSourceReportsErrorResponse(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)
	os.MkdirAll(filepath.Join(root, "backup"), 0o755)

	r := skill.NewRegistry()
	Register(r, root)

	out, err := r.Get("move").Execute(context.Background(), map[string]any{
		"file_name": "missing_dot_txt", "from_folder": "root", "to_folder": "backup",
	})
	if err != nil {
		t.Fatalf("unexpected transport-level error: %v", err)
	}
	if decode(t, out).Metadata.Status != "error" {
		t.Fatalf("expected error status for missing source, got %q", out)
	}
}

func TestScanEmitsAtFactsAndScannedMarker(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)
	os.WriteFile(filepath.Join(root, "root", "a.txt"), []byte("x"), 0o644)
	os.MkdirAll(filepath.Join(root, "root", "sub"), 0o755)

	r := skill.NewRegistry()
	Register(r, root)

	out, err := r.Get("scan").Execute(context.Background(), map[string]any{"folder": "root"})
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	resp := decode(t, out)
	if resp.Metadata.Status != "success" {
		t.Fatalf("expected success, got %+v", resp.Metadata)
	}

	delta, err := fact.ParseDelta(resp.Metadata.PDDLDelta)
	if err != nil {
		t.Fatalf("ParseDelta error: %v", err)
	}
	if _, ok := delta.Add[fact.MustParse("(scanned root)")]; !ok {
		t.Fatalf("expected (scanned root) fact, got %v", delta.Add)
	}
	if _, ok := delta.Add[fact.MustParse("(at a_dot_txt root)")]; !ok {
		t.Fatalf("expected (at a_dot_txt root) fact, got %v", delta.Add)
	}
	if _, ok := delta.Add[fact.MustParse("(is_created sub)")]; !ok {
		t.Fatalf("expected (is_created sub) fact, got %v", delta.Add)
	}
}

func TestRemoveAndDeleteAreIndependentlyRegisteredAliases(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)
	os.WriteFile(filepath.Join(root, "root", "a.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(root, "root", "b.txt"), []byte("x"), 0o644)

	r := skill.NewRegistry()
	Register(r, root)

	if _, err := r.Get("remove").Execute(context.Background(), map[string]any{"file_name": "a_dot_txt", "folder": "root"}); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "root", "a.txt")); !os.IsNotExist(err) {
		t.Fatal("expected file removed by 'remove' skill")
	}

	if _, err := r.Get("delete").Execute(context.Background(), map[string]any{"file_name": "b_dot_txt", "folder": "root"}); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "root", "b.txt")); !os.IsNotExist(err) {
		t.Fatal("expected file removed by 'delete' skill")
	}
}

func TestConnectFoldersRequiresBothFoldersToExist(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "root"), 0o755)

	r := skill.NewRegistry()
	Register(r, root)

	out, err := r.Get("connect_folders").Execute(context.Background(), map[string]any{
		"folder_a": "root", "folder_b": "missing",
	})
	if err != nil {
		t.Fatalf("unexpected transport-level error: %v", err)
	}
	if decode(t, out).Metadata.Status != "error" {
		t.Fatalf("expected error for missing folder_b, got %q", out)
	}
}

func TestGetAdminAlwaysSucceeds(t *testing.T) {
	r := skill.NewRegistry()
	Register(r, t.TempDir())

	out, err := r.Get("get_admin").Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("get_admin error: %v", err)
	}
	resp := decode(t, out)
	if resp.Metadata.Status != "success" || resp.Metadata.PDDLDelta != "(has_admin_rights)" {
		t.Fatalf("unexpected get_admin response: %+v", resp.Metadata)
	}
}

// extractFirstFact trims a possibly multi-fact delta string down to its
// first balanced form, for tests that only need one fact to validate.
func extractFirstFact(delta string) string {
	depth := 0
	for i, r := range delta {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return delta[:i+1]
			}
		}
	}
	return delta
}
