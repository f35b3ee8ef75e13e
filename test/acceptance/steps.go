package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/mapper"
	"github.com/jaxbulsara/NeoAlchemy/internal/rpc"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
	"github.com/jaxbulsara/NeoAlchemy/internal/snapshot"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// TestContext holds state between steps
type TestContext struct {
	ctx    context.Context
	dir    string
	schema *ogm.Schema
	store  *graph.Store
	mapper *mapper.Mapper

	// nodes maps scenario names to node IDs.
	nodes map[string]string

	lastResponse rpc.Response
	nextID       int

	importedNodes int
	importedEdges int
	importErr     error
}

func (tc *TestContext) close() {
	if tc.store != nil {
		tc.store.Close()
		tc.store = nil
	}
	if tc.dir != "" {
		os.RemoveAll(tc.dir)
		tc.dir = ""
	}
}

func (tc *TestContext) graphWithSchema(doc *godog.DocString) error {
	f, err := schemafile.Parse(strings.NewReader(doc.Content))
	if err != nil {
		return err
	}
	schema, err := f.Build(nil)
	if err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "neoalchemy-acceptance-*")
	if err != nil {
		return err
	}
	tc.dir = dir
	tc.schema = schema
	return tc.openStore(filepath.Join(dir, graph.DatabaseFile))
}

func (tc *TestContext) openStore(path string) error {
	store, err := graph.Open(path, nil)
	if err != nil {
		return err
	}
	tc.store = store
	tc.mapper = mapper.New(tc.schema, store, nil)
	return nil
}

// call sends one JSON-RPC request through a fresh server and keeps the
// response.
func (tc *TestContext) call(method string, params map[string]any) error {
	tc.nextID++
	req, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      tc.nextID,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}

	var out bytes.Buffer
	server := rpc.NewServer(tc.mapper, bytes.NewReader(append(req, '\n')), &out, nil)
	if err := server.Start(tc.ctx); err != nil {
		return err
	}

	tc.lastResponse = rpc.Response{}
	if err := json.Unmarshal(out.Bytes(), &tc.lastResponse); err != nil {
		return fmt.Errorf("invalid response %q: %w", out.String(), err)
	}
	return nil
}

// result decodes the last successful result into v.
func (tc *TestContext) result(v any) error {
	if e := tc.lastResponse.Error; e != nil {
		return fmt.Errorf("request failed: %d %s: %s", e.Code, e.Message, e.Data)
	}
	raw, err := json.Marshal(tc.lastResponse.Result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (tc *TestContext) id(name string) (string, error) {
	id, ok := tc.nodes[name]
	if !ok {
		return "", fmt.Errorf("no node named %q", name)
	}
	return id, nil
}

func (tc *TestContext) name(id string) string {
	for n, v := range tc.nodes {
		if v == id {
			return n
		}
	}
	return id
}

func (tc *TestContext) createNode(class, name string) error {
	if err := tc.call("nodes/create", map[string]any{
		"class":      class,
		"properties": map[string]any{"name": name},
	}); err != nil {
		return err
	}
	var rec graph.Record
	if err := tc.result(&rec); err != nil {
		return err
	}
	tc.nodes[name] = rec.ID
	return nil
}

func (tc *TestContext) edgeCall(method, from, field, to string) error {
	fromID, err := tc.id(from)
	if err != nil {
		return err
	}
	toID, err := tc.id(to)
	if err != nil {
		return err
	}
	return tc.call(method, map[string]any{"node": fromID, "field": field, "related": toID})
}

func (tc *TestContext) relate(from, field, to string) error {
	return tc.edgeCall("relations/create", from, field, to)
}

func (tc *TestContext) merge(from, field, to string) error {
	return tc.edgeCall("relations/merge", from, field, to)
}

func (tc *TestContext) unrelate(from, field, to string) error {
	if err := tc.edgeCall("relations/delete", from, field, to); err != nil {
		return err
	}
	return tc.requestSucceeds()
}

func (tc *TestContext) edgeIs(edgeType, from, to string) error {
	var e ogm.Edge
	if err := tc.result(&e); err != nil {
		return err
	}
	if e.Type != edgeType {
		return fmt.Errorf("edge type %q, want %q", e.Type, edgeType)
	}
	if tc.name(e.StartID) != from || tc.name(e.EndID) != to {
		return fmt.Errorf("edge %s -> %s, want %s -> %s", tc.name(e.StartID), tc.name(e.EndID), from, to)
	}
	return nil
}

// expectNames compares the names of the returned nodes with a
// comma-separated list.
func (tc *TestContext) expectNames(nodes []graph.Record, want string) error {
	got := make([]string, len(nodes))
	for i, n := range nodes {
		got[i] = tc.name(n.ID)
	}
	var expected []string
	for _, w := range strings.Split(want, ",") {
		if w = strings.TrimSpace(w); w != "" {
			expected = append(expected, w)
		}
	}
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		return fmt.Errorf("got nodes %v, want %v", got, expected)
	}
	return nil
}

func (tc *TestContext) fieldNodesAre(field, of, want string) error {
	id, err := tc.id(of)
	if err != nil {
		return err
	}
	if err := tc.call("fields/get", map[string]any{"node": id, "field": field}); err != nil {
		return err
	}
	var res struct {
		Nodes []graph.Record `json:"nodes"`
	}
	if err := tc.result(&res); err != nil {
		return err
	}
	return tc.expectNames(res.Nodes, want)
}

func (tc *TestContext) match(field, of string, labels []string, props map[string]any, want string) error {
	id, err := tc.id(of)
	if err != nil {
		return err
	}
	if err := tc.call("relations/match", map[string]any{
		"node": id, "field": field, "labels": labels, "properties": props,
	}); err != nil {
		return err
	}
	var res struct {
		Nodes []graph.Record `json:"nodes"`
	}
	if err := tc.result(&res); err != nil {
		return err
	}
	return tc.expectNames(res.Nodes, want)
}

func (tc *TestContext) matchLabel(field, of, label, want string) error {
	return tc.match(field, of, []string{label}, nil, want)
}

func (tc *TestContext) matchName(field, of, name, want string) error {
	return tc.match(field, of, nil, map[string]any{"name": name}, want)
}

func (tc *TestContext) readField(field, of string) error {
	id, err := tc.id(of)
	if err != nil {
		return err
	}
	return tc.call("fields/get", map[string]any{"node": id, "field": field})
}

func (tc *TestContext) assignField(field, of, value string) error {
	id, err := tc.id(of)
	if err != nil {
		return err
	}
	v, err := tc.id(value)
	if err != nil {
		return err
	}
	return tc.call("fields/set", map[string]any{"node": id, "field": field, "value": v})
}

func (tc *TestContext) resultIsNode(name string) error {
	var res struct {
		Node graph.Record `json:"node"`
	}
	if err := tc.result(&res); err != nil {
		return err
	}
	if got := tc.name(res.Node.ID); got != name {
		return fmt.Errorf("got node %q, want %q", got, name)
	}
	return nil
}

func (tc *TestContext) requestSucceeds() error {
	if e := tc.lastResponse.Error; e != nil {
		return fmt.Errorf("request failed: %d %s: %s", e.Code, e.Message, e.Data)
	}
	return nil
}

func (tc *TestContext) requestFailsWithCode(code int) error {
	e := tc.lastResponse.Error
	if e == nil {
		return fmt.Errorf("request succeeded, want error code %d", code)
	}
	if e.Code != code {
		return fmt.Errorf("error code %d (%s), want %d", e.Code, e.Data, code)
	}
	return nil
}

func (tc *TestContext) errorMentions(text string) error {
	e := tc.lastResponse.Error
	if e == nil {
		return fmt.Errorf("request succeeded, want error mentioning %q", text)
	}
	if !strings.Contains(e.Data, text) {
		return fmt.Errorf("error %q does not mention %q", e.Data, text)
	}
	return nil
}

func (tc *TestContext) graphHasEdges(want int) error {
	_, edges, err := tc.store.Count(tc.ctx)
	if err != nil {
		return err
	}
	if edges != want {
		return fmt.Errorf("graph has %d edges, want %d", edges, want)
	}
	return nil
}

func (tc *TestContext) schemaDeclares(field, class, edgeType string) error {
	if err := tc.call("schema/describe", nil); err != nil {
		return err
	}
	var res struct {
		Classes []mapper.ClassInfo `json:"classes"`
	}
	if err := tc.result(&res); err != nil {
		return err
	}
	for _, c := range res.Classes {
		if c.Name != class {
			continue
		}
		for _, f := range c.Fields {
			if f.Name == field {
				if f.Type != edgeType {
					return fmt.Errorf("%s.%s has edge type %q, want %q", class, field, f.Type, edgeType)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("%s.%s is not declared", class, field)
}

func (tc *TestContext) exportGraph(file string) error {
	p, err := snapshot.Capture(tc.ctx, tc.store, snapshot.Manifest{Name: file})
	if err != nil {
		return err
	}
	return snapshot.Package(p, filepath.Join(tc.dir, file))
}

func (tc *TestContext) switchToEmptyGraph() error {
	tc.store.Close()
	return tc.openStore(filepath.Join(tc.dir, "empty.db"))
}

func (tc *TestContext) importSnapshot(file string) error {
	tc.importedNodes, tc.importedEdges, tc.importErr = 0, 0, nil
	p, err := snapshot.Unpack(filepath.Join(tc.dir, file))
	if err != nil {
		tc.importErr = err
		return nil
	}
	tc.importedNodes, tc.importedEdges, tc.importErr = snapshot.Apply(tc.ctx, tc.store, p)
	return nil
}

func (tc *TestContext) importedCounts(nodes, edges int) error {
	if tc.importErr != nil {
		return tc.importErr
	}
	if tc.importedNodes != nodes || tc.importedEdges != edges {
		return fmt.Errorf("imported %d nodes and %d edges, want %d and %d", tc.importedNodes, tc.importedEdges, nodes, edges)
	}
	return nil
}

func (tc *TestContext) writeFile(file, content string) error {
	return os.WriteFile(filepath.Join(tc.dir, file), []byte(content), 0644)
}

func (tc *TestContext) importFailsWith(text string) error {
	if tc.importErr == nil {
		return fmt.Errorf("import succeeded, want error mentioning %q", text)
	}
	if !strings.Contains(tc.importErr.Error(), text) {
		return fmt.Errorf("import error %q does not mention %q", tc.importErr, text)
	}
	return nil
}
