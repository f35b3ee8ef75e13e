package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
)

func TestExecute_Import_Usage(t *testing.T) {
	if _, err := run(t, "import"); err == nil {
		t.Fatal("import without args should return error")
	}
}

func TestExecute_ExportImport(t *testing.T) {
	dir := setupGraph(t)
	alice := createNode(t, "Person", "alice")
	rex := createNode(t, "Dog", "rex")
	mustRun(t, "relate", alice, "pets", rex)

	snap := filepath.Join(dir, "pets.neoa")
	out := mustRun(t, "export", snap, "--name", "pets")
	if !strings.Contains(out, "Exported 2 nodes and 1 edges") {
		t.Errorf("export output: %q", out)
	}

	out = mustRun(t, "import", snap, "--dry-run")
	if !strings.Contains(out, "Snapshot: pets") || !strings.Contains(out, "Classes: Person, Dog") {
		t.Errorf("dry-run output: %q", out)
	}

	// Import into a fresh data dir.
	t.Setenv(graph.DataDirEnv, t.TempDir())
	out = mustRun(t, "import", snap)
	if !strings.Contains(out, "Nodes added: 2 of 2") || !strings.Contains(out, "Edges added: 1 of 1") {
		t.Errorf("import output: %q", out)
	}

	out = mustRun(t, "import", snap)
	if !strings.Contains(out, "Nodes added: 0 of 2") {
		t.Errorf("second import output: %q", out)
	}

	owner := mustRun(t, "get", rex, "owner")
	if !strings.Contains(owner, alice) {
		t.Errorf("owner after import: %q", owner)
	}
}

func TestExecute_Export_DefaultName(t *testing.T) {
	dir := setupGraph(t)
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	mustRun(t, "export")
	matches, _ := filepath.Glob(filepath.Join(dir, "neoalchemy-*.neoa"))
	if len(matches) != 1 {
		t.Errorf("expected one default export, got %v", matches)
	}
}

func TestExecute_Import_NotASnapshot(t *testing.T) {
	dir := setupGraph(t)
	bad := filepath.Join(dir, "bad.neoa")
	os.WriteFile(bad, []byte("not a snapshot"), 0644)
	if _, err := run(t, "import", bad); err == nil {
		t.Fatal("expected error for invalid snapshot")
	}
}
