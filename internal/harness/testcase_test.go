package harness_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/js-808/cc-cli/internal/harness"
	appErr "github.com/js-808/cc-cli/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDirPairsByConvention(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "b.in", "2\n")
	writeFile(t, dir, "b.ans", "4\n")
	writeFile(t, dir, "a.in", "1\n")
	writeFile(t, dir, "a.out", "2\n")
	writeFile(t, dir, "notes.md", "ignored")

	cases, err := harness.LoadDir(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Name != "a" || cases[1].Name != "b" {
		t.Fatalf("cases out of order: %s, %s", cases[0].Name, cases[1].Name)
	}
	for _, c := range cases {
		if !c.HasExpected {
			t.Fatalf("case %s lost its expected output", c.Name)
		}
	}
	if string(cases[1].Input) != "2\n" || string(cases[1].Expected) != "4\n" {
		t.Fatalf("case b content mismatch: in=%q ans=%q", cases[1].Input, cases[1].Expected)
	}
}

func TestLoadDirNumberedTxtConvention(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "input1.txt", "x\n")
	writeFile(t, dir, "output1.txt", "y\n")
	writeFile(t, dir, "input2.txt", "z\n")

	cases, err := harness.LoadDir(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if !cases[0].HasExpected {
		t.Fatal("case 1 should have expected output")
	}
	if cases[1].HasExpected {
		t.Fatal("case 2 without output file must run in report-only mode")
	}
}

func TestLoadDirDescendsIntoSampleFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sub := filepath.Join(dir, "sample_files")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "1.in", "in\n")
	writeFile(t, sub, "1.ans", "out\n")
	// A stray file at the top level is ignored once samples exist below.
	writeFile(t, dir, "9.in", "stray\n")

	cases, err := harness.LoadDir(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cases) != 1 || cases[0].Name != "1" {
		t.Fatalf("expected the one sample case, got %v", cases)
	}
}

func TestLoadDirMissing(t *testing.T) {
	t.Parallel()
	_, err := harness.LoadDir(filepath.Join(t.TempDir(), "no-such-dir"))
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if code := appErr.GetCode(err); code != appErr.TestDirUnreadable {
		t.Fatalf("expected TestDirUnreadable, got %d", code)
	}
}

func TestLoadDirEmptyIsEmpty(t *testing.T) {
	t.Parallel()
	cases, err := harness.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cases) != 0 {
		t.Fatalf("expected no cases, got %d", len(cases))
	}
}
