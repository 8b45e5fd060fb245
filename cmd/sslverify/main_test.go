package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leozw/ssl-verifier/internal/core"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	ok := write("ok.csv", "id,domain\n1,example.com\n")
	empty := write("empty.csv", "")
	badHeader := write("bad.csv", "id,dominio\n1,example.com\n")

	if err := checkInput(ok); err != nil {
		t.Errorf("valid input: %v", err)
	}
	if err := checkInput(empty); !errors.Is(err, errEmptyInput) {
		t.Errorf("empty input err = %v", err)
	}
	if err := checkInput(badHeader); !errors.Is(err, tabular.ErrStructuralInput) {
		t.Errorf("bad header err = %v", err)
	}
	if err := checkInput(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing input err = %v", err)
	}
	if err := checkInput(dir); err == nil {
		t.Errorf("directory accepted as input")
	}
}

func TestReadLine(t *testing.T) {
	tests := map[string]string{
		"secret\n":   "secret",
		"secret\r\n": "secret",
		"secret":     "secret",
		"":           "",
	}
	for in, want := range tests {
		got, err := readLine(strings.NewReader(in))
		if err != nil || got != want {
			t.Errorf("readLine(%q) = %q, %v", in, got, err)
		}
	}
}

func TestReportsCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	reports := filepath.Join(dir, "reports")
	b := core.NewBatchResult(time.Date(2025, 6, 23, 9, 42, 11, 0, time.Local))
	b.Valid = append(b.Valid, core.ResultRow{ID: "1", Domain: "ok.com", DaysRemaining: 40})
	if err := tabular.NewWriter(reports, nil).Save(t.Context(), b); err != nil {
		t.Fatal(err)
	}

	cfgFile := filepath.Join(dir, "sslverify.yaml")
	if err := os.WriteFile(cfgFile, []byte("output:\n  dir: "+reports+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgFile, "reports"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("reports: %v", err)
	}

	if !strings.Contains(out.String(), "20250623_094211") {
		t.Fatalf("output:\n%s", out.String())
	}
}
