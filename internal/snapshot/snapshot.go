// Package snapshot reads and writes portable graph snapshots: four magic
// bytes, a version byte, then a gzip-compressed JSON payload.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// MagicBytes open every snapshot file: NEOA
var MagicBytes = []byte{0x4E, 0x45, 0x4F, 0x41}

// Version is the current format version.
const Version = 1

// Manifest describes a snapshot.
type Manifest struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	Classes     []string  `json:"classes"`
}

// Payload is the JSON content inside the gzip stream
type Payload struct {
	Manifest Manifest       `json:"manifest"`
	Nodes    []graph.Record `json:"nodes"`
	Edges    []ogm.Edge     `json:"edges"`
}

// Capture reads the whole store into a payload. The manifest's counts,
// classes, ID and timestamp are filled in.
func Capture(ctx context.Context, store *graph.Store, manifest Manifest) (*Payload, error) {
	nodes, err := store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	edges, err := store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}

	p := &Payload{Manifest: manifest, Nodes: make([]graph.Record, 0, len(nodes)), Edges: edges}
	if p.Edges == nil {
		p.Edges = []ogm.Edge{}
	}
	seen := map[string]bool{}
	p.Manifest.Classes = nil
	for _, n := range nodes {
		p.Nodes = append(p.Nodes, n.Record())
		if !seen[n.Class] {
			seen[n.Class] = true
			p.Manifest.Classes = append(p.Manifest.Classes, n.Class)
		}
	}
	if p.Manifest.ID == "" {
		p.Manifest.ID = uuid.NewString()
	}
	if p.Manifest.CreatedAt.IsZero() {
		p.Manifest.CreatedAt = time.Now()
	}
	p.Manifest.NodeCount = len(p.Nodes)
	p.Manifest.EdgeCount = len(p.Edges)
	return p, nil
}

// Apply imports the payload into store, skipping nodes and edges that are
// already present.
func Apply(ctx context.Context, store *graph.Store, p *Payload) (nodes, edges int, err error) {
	ns := make([]*graph.Node, len(p.Nodes))
	for i, r := range p.Nodes {
		ns[i] = graph.FromRecord(r)
	}
	return store.Import(ctx, ns, p.Edges)
}

// Write encodes p to w.
func Write(w io.Writer, p *Payload) error {
	if _, err := w.Write(MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(Version)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(p); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return gz.Close()
}

// Read decodes a payload from r.
func Read(r io.Reader) (*Payload, error) {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, MagicBytes) {
		return nil, fmt.Errorf("invalid file format: not a snapshot")
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != Version {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", version, Version)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var payload Payload
	if err := json.NewDecoder(gz).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &payload, nil
}

// Package writes p to outputPath.
func Package(p *Payload, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Unpack reads the snapshot at inputPath.
func Unpack(inputPath string) (*Payload, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Inspect returns the manifest of the snapshot at inputPath. The whole
// payload is decompressed to reach it.
func Inspect(inputPath string) (*Manifest, error) {
	payload, err := Unpack(inputPath)
	if err != nil {
		return nil, err
	}
	return &payload.Manifest, nil
}
