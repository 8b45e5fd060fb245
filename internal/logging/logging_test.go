package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewWritesRunFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2025, 6, 23, 9, 42, 11, 0, time.Local)

	logger, path, err := New(Options{Dir: dir, Level: "debug"}, now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if filepath.Base(path) != "sslverify_20250623_094211.log" {
		t.Fatalf("log file = %s", path)
	}

	logger.Info("Checking domain")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"msg":"Checking domain"`) {
		t.Fatalf("log file content: %s", raw)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}, time.Now()); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestCleanupOld(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.Local)

	files := map[string]bool{
		FileName(now.Add(-31 * 24 * time.Hour)): false,
		FileName(now.Add(-40 * 24 * time.Hour)): false,
		FileName(now.Add(-29 * 24 * time.Hour)): true,
		FileName(now):                           true,
		"sslverify_garbage.log":                 true,
		"other_20200101_000000.log":             true,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanupOld(dir, 0, now)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed %d files, want 2", removed)
	}
	for name, keep := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != keep {
			t.Errorf("%s exists = %v, want %v", name, exists, keep)
		}
	}
}

func TestCleanupOldMissingDir(t *testing.T) {
	removed, err := CleanupOld(filepath.Join(t.TempDir(), "none"), time.Hour, time.Now())
	if err != nil || removed != 0 {
		t.Fatalf("got %d, %v", removed, err)
	}
}
