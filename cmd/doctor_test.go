package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
)

func TestExecute_Doctor_Healthy(t *testing.T) {
	setupGraph(t)
	createNode(t, "Dog", "rex")

	out := mustRun(t, "doctor")
	if !strings.Contains(out, "All checks passed.") {
		t.Errorf("doctor output: %q", out)
	}
}

func TestExecute_Doctor_MissingDataDir(t *testing.T) {
	setupGraph(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv(graph.DataDirEnv, dataDir)

	out := mustRun(t, "doctor")
	if !strings.Contains(out, "Data directory does not exist") {
		t.Errorf("doctor output: %q", out)
	}

	out = mustRun(t, "doctor", "--fix")
	if !strings.Contains(out, "FIXED") {
		t.Errorf("doctor --fix output: %q", out)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestExecute_Doctor_BadSchema(t *testing.T) {
	dir := setupGraph(t)
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("classes:\n  - labels: [X]\n"), 0644)
	t.Setenv(schemafile.Env, bad)

	out, err := run(t, "doctor")
	if err == nil {
		t.Fatal("doctor should fail on an invalid schema")
	}
	if !strings.Contains(out, "Found 1 critical issue(s)") {
		t.Errorf("doctor output: %q", out)
	}
}

func TestExecute_Doctor_UnknownClass(t *testing.T) {
	dir := setupGraph(t)
	createNode(t, "Dog", "rex")

	narrow := filepath.Join(dir, "narrow.yaml")
	os.WriteFile(narrow, []byte("classes:\n  - name: Person\n"), 0644)
	t.Setenv(schemafile.Env, narrow)

	out := mustRun(t, "doctor")
	if !strings.Contains(out, "missing from the schema: Dog") {
		t.Errorf("doctor output: %q", out)
	}
}
