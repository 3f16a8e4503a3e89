package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing")

	if !Exists(present) {
		t.Error("Exists(present) = false, want true")
	}
	if Exists(missing) {
		t.Error("Exists(missing) = true, want false")
	}
}

func TestBothExists(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	missing := filepath.Join(dir, "missing")
	os.WriteFile(a, []byte("x"), 0o600)
	os.WriteFile(b, []byte("x"), 0o600)

	if !BothExists(a, b) {
		t.Error("BothExists(a, b) = false, want true")
	}
	if BothExists(a, missing) {
		t.Error("BothExists(a, missing) = true, want false")
	}
}

func TestBothNotExists(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	present := filepath.Join(dir, "present")
	os.WriteFile(present, []byte("x"), 0o600)
	missing := filepath.Join(dir, "missing")

	if !BothNotExists(a, missing) {
		t.Error("BothNotExists(a, missing) = false, want true")
	}
	if BothNotExists(a, present) {
		t.Error("BothNotExists(a, present) = true, want false")
	}
}
