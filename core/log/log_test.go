package log

import (
	"path/filepath"
	"testing"
)

func TestNewDisabledDiscardsOutput(t *testing.T) {
	b, err := New("", "DEBUG", true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := b.GetLogger("test")
	l.Notice("should be discarded")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	b, err := New(path, "INFO", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := b.GetLogger("test")
	l.Info("hello")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("", "BOGUS", true); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestNewDefaultsToNoticeOnEmptyLevel(t *testing.T) {
	lvl, err := logLevelFromString("")
	if err != nil {
		t.Fatalf("logLevelFromString: %v", err)
	}
	notice, err := logLevelFromString("NOTICE")
	if err != nil {
		t.Fatalf("logLevelFromString: %v", err)
	}
	if lvl != notice {
		t.Errorf("empty level = %v, want %v", lvl, notice)
	}
}
