package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestCreateAndReset(t *testing.T) {
	base := t.TempDir()
	domain := filepath.Join(base, "domain.pddl")
	if err := os.WriteFile(domain, []byte("(define (domain d))"), 0o644); err != nil {
		t.Fatal(err)
	}
	storage := filepath.Join(base, "storage")
	if err := os.MkdirAll(filepath.Join(storage, "root"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(storage, "root", "file1.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(domain, storage).WithClock(fixedClock{time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})

	outBase := t.TempDir()
	root, err := mgr.Create(outBase)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if root == "" {
		t.Fatal("expected non-empty root")
	}

	paths, err := mgr.Paths()
	if err != nil {
		t.Fatalf("Paths error: %v", err)
	}
	if _, err := os.Stat(paths.DomainFile); err != nil {
		t.Fatalf("domain file not cloned: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.StorageDir, "root", "file1.txt")); err != nil {
		t.Fatalf("storage tree not mirrored: %v", err)
	}

	// Mutate a file inside the sandbox's mirrored storage, then reset.
	if err := os.WriteFile(filepath.Join(paths.StorageDir, "root", "new.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.ResetStorage(); err != nil {
		t.Fatalf("ResetStorage error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(paths.StorageDir, "root", "new.txt")); !os.IsNotExist(err) {
		t.Fatal("expected new.txt to be gone after reset")
	}
	if _, err := os.Stat(paths.DomainFile); err != nil {
		t.Fatalf("domain file should survive ResetStorage: %v", err)
	}
}
