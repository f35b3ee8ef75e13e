package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecute_Version(t *testing.T) {
	out := mustRun(t, "version")
	if out == "" {
		t.Error("version should print to stdout")
	}
	if !strings.Contains(out, "neoalchemy") {
		t.Errorf("version output should contain 'neoalchemy': %q", out)
	}
}

func TestExecute_Status(t *testing.T) {
	setupGraph(t)
	createNode(t, "Person", "alice")

	out := mustRun(t, "status")
	if !strings.Contains(out, "NeoAlchemy Graph Status") {
		t.Errorf("status output: %q", out)
	}
	if !strings.Contains(out, "Nodes: 1") || !strings.Contains(out, "Edges: 0") {
		t.Errorf("status counts: %q", out)
	}
}

func TestExecute_Serve(t *testing.T) {
	dir := setupGraph(t)

	requests := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"nodes/create","params":{"class":"Dog","properties":{"name":"rex"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"unknown"}`,
	}, "\n") + "\n"
	inPath := filepath.Join(dir, "requests.jsonl")
	if err := os.WriteFile(inPath, []byte(requests), 0644); err != nil {
		t.Fatal(err)
	}
	in, err := os.Open(inPath)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	oldStdin := os.Stdin
	os.Stdin = in
	defer func() { os.Stdin = oldStdin }()

	oldStderr := os.Stderr
	os.Stderr, _ = os.Open(os.DevNull)
	defer func() { os.Stderr = oldStderr }()

	out := mustRun(t, "serve")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %d: %q", len(lines), out)
	}

	var resp struct {
		ID    int `json:"id"`
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != 2 || resp.Error != nil {
		t.Errorf("nodes/create response: %s", lines[1])
	}
	if err := json.Unmarshal([]byte(lines[2]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Errorf("unknown method response: %s", lines[2])
	}
}

func TestExecute_ServeWithoutSchema(t *testing.T) {
	setupGraph(t)
	t.Setenv("NEOALCHEMY_SCHEMA", "")
	if _, err := run(t, "serve"); err == nil {
		t.Fatal("serve without a schema should fail")
	}
}
