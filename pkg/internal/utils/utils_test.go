package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateUniqueHash(t *testing.T) {
	a, b := GenerateUniqueHash(), GenerateUniqueHash()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected hashes %q %q", a, b)
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("session id %q is not a uuid: %v", id, err)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("expected directory %s: %v", dir, err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir on existing dir: %v", err)
	}
	if err := EnsureDir(""); err != nil {
		t.Fatalf("EnsureDir empty: %v", err)
	}
}

func TestContains(t *testing.T) {
	in := []int{1, 0, 3}
	if !Contains(in, 3) || Contains(in, 7) {
		t.Fatalf("Contains mismatch")
	}
}
