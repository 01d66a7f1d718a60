//go:build integration

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildBinary compiles the trialbook CLI into a temp dir.
func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "trialbook")
	c := exec.Command("go", "build", "-o", bin, ".")
	if out, err := c.CombinedOutput(); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	return bin
}

func TestSQLiteRoundTripIntegration(t *testing.T) {
	if os.Getenv("TRIALBOOK_INTEGRATION_TESTS") == "" {
		t.Skip("set TRIALBOOK_INTEGRATION_TESTS=1 to run integration tests")
	}

	bin := buildBinary(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "trialbook.yaml")
	body := "store:\n  backend: sqlite\n  path: " + filepath.Join(dir, "trialbook.db") + "\nreport:\n  format: csv\n"
	if err := os.WriteFile(cfg, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	run := func(args ...string) string {
		t.Helper()
		c := exec.CommandContext(ctx, bin, append([]string{"--config", cfg}, args...)...)
		out, err := c.Output()
		if err != nil {
			t.Fatalf("trialbook %v: %v", args, err)
		}
		return string(out)
	}

	if out := run("import", "testdata/experiment.yaml"); !strings.Contains(out, "imported branin_sweep") {
		t.Errorf("import: got %q", out)
	}
	if out := run("genrun", "--save", "branin_sweep", "testdata/genrun.yaml"); !strings.Contains(out, "saved ") {
		t.Errorf("genrun: got %q", out)
	}

	out := run("best", "--experiment", "branin_sweep")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "1_0") {
		t.Errorf("best: got %q", out)
	}

	out = run("list", "branin_sweep")
	if n := strings.Count(strings.TrimSpace(out), "\n"); n != 1 {
		t.Errorf("list: expected 1 stored generator run, got %d in %q", n, out)
	}
}
