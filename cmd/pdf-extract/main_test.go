package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunRequiresInputDir(t *testing.T) {
	code, _, stderr := runCLI(t, "-db", filepath.Join(t.TempDir(), "r.db"))
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr, "input directory is required") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunRejectsConflictingModes(t *testing.T) {
	code, _, _ := runCLI(t, "-db", filepath.Join(t.TempDir(), "r.db"), "-text-only", "-ocr-only", t.TempDir())
	if code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
}

func TestRunMissingDirectoryIsFatal(t *testing.T) {
	tmp := t.TempDir()
	code, _, _ := runCLI(t, "-db", filepath.Join(tmp, "r.db"), "-log-level", "error", "-text-only", filepath.Join(tmp, "nope"))
	if code != exitFatal {
		t.Fatalf("exit = %d, want %d", code, exitFatal)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(tmp, "report.txt")
	code, stdout, _ := runCLI(t,
		"-db", filepath.Join(tmp, "r.db"),
		"-log-level", "error",
		"-text-only", "-direct", "native",
		"-export-txt", report,
		"-dir", in,
	)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d\n%s", code, exitOK, stdout)
	}
	if !strings.Contains(stdout, "Discovered:        0") {
		t.Errorf("summary missing discovered count:\n%s", stdout)
	}
	if _, err := os.Stat(report); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRunCorruptPDFExitsWithFailures(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "in")
	if err := os.Mkdir(in, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "broken.pdf"), []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := runCLI(t,
		"-db", filepath.Join(tmp, "r.db"),
		"-log-level", "error",
		"-text-only", "-direct", "native",
		"-list-failures",
		in,
	)
	if code != exitWithErrors {
		t.Fatalf("exit = %d, want %d\n%s", code, exitWithErrors, stdout)
	}
	if !strings.Contains(stdout, "broken.pdf") {
		t.Errorf("failure list missing broken.pdf:\n%s", stdout)
	}
}
