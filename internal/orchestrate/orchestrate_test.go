package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	domainPath := filepath.Join(dir, "domain.pddl")
	if err := os.WriteFile(domainPath, []byte("(define (domain file-management))"), 0o644); err != nil {
		t.Fatal(err)
	}

	storage := FileStorage{
		DomainPaths: map[string]string{"file-management": domainPath},
		ProblemPath: filepath.Join(dir, "problem.pddl"),
	}

	content, err := storage.ReadDomain(context.Background(), "file-management")
	if err != nil {
		t.Fatalf("ReadDomain error: %v", err)
	}
	if content != "(define (domain file-management))" {
		t.Fatalf("unexpected domain content: %q", content)
	}

	if err := storage.WriteProblem(context.Background(), "(define (problem p0))"); err != nil {
		t.Fatalf("WriteProblem error: %v", err)
	}
	written, err := os.ReadFile(storage.ProblemPath)
	if err != nil {
		t.Fatalf("read written problem: %v", err)
	}
	if string(written) != "(define (problem p0))" {
		t.Fatalf("unexpected written problem: %q", written)
	}
}

func TestFileStorageReadDomainUnknownNameErrors(t *testing.T) {
	storage := FileStorage{DomainPaths: map[string]string{}}
	_, err := storage.ReadDomain(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for unregistered domain name")
	}
}
