package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupReturnsNilWhenNoLogRequested(t *testing.T) {
	l, err := Setup(t.TempDir(), false, true, []string{"dashredact"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if l != nil {
		t.Fatal("expected nil logger when noLog is true")
	}
	l.Info("should not panic on nil receiver")
}

func TestSetupCreatesLogFileWithExpectedPrefix(t *testing.T) {
	dir := t.TempDir()
	l, err := Setup(dir, false, false, []string{"dashredact", "--engine", "seg"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer l.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d log files, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "dashredact_run_") {
		t.Fatalf("log file name = %q, want dashredact_run_ prefix", entries[0].Name())
	}
}

func TestDebugSuppressedWithoutVerbose(t *testing.T) {
	dir := t.TempDir()
	l, err := Setup(dir, false, false, []string{"dashredact"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	l.Debug("should not appear")
	l.Close()

	entries, _ := os.ReadDir(dir)
	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(content), "should not appear") {
		t.Fatal("debug message logged despite verbose=false")
	}
}
