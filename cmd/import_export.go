package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/snapshot"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import a graph snapshot",
	Long: `Import the nodes and edges of a snapshot file. Nodes and edges that are
already present (same ID) are skipped, so importing twice is harmless.

Examples:
  neoalchemy import pets.neoa
  neoalchemy import pets.neoa --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runImport(args[0], dryRun)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [output]",
	Short: "Export the graph as a snapshot",
	Long: `Export every node and edge to a snapshot file.

If no output path is given, a default filename is generated.

Examples:
  neoalchemy export
  neoalchemy export pets.neoa --name pets --description "before migration"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := ""
		if len(args) == 1 {
			output = args[0]
		}
		name, _ := cmd.Flags().GetString("name")
		desc, _ := cmd.Flags().GetString("description")
		return runExport(output, name, desc)
	},
}

func init() {
	importCmd.Flags().Bool("dry-run", false, "Only print the snapshot manifest")
	exportCmd.Flags().String("name", "graph", "Snapshot name")
	exportCmd.Flags().String("description", "", "Snapshot description")
}

func runImport(path string, dryRun bool) error {
	if dryRun {
		m, err := snapshot.Inspect(path)
		if err != nil {
			return err
		}
		printManifest(m)
		return nil
	}

	payload, err := snapshot.Unpack(path)
	if err != nil {
		return err
	}

	store, err := graph.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}
	defer store.Close()

	start := time.Now()
	nodes, edges, err := snapshot.Apply(context.Background(), store, payload)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("✅ Import Complete!\n")
	fmt.Printf("   Snapshot: %s (%s)\n", payload.Manifest.Name, payload.Manifest.ID)
	fmt.Printf("   Nodes added: %d of %d\n", nodes, len(payload.Nodes))
	fmt.Printf("   Edges added: %d of %d\n", edges, len(payload.Edges))
	fmt.Printf("   Duration: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runExport(output, name, description string) error {
	store, err := graph.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}
	defer store.Close()

	payload, err := snapshot.Capture(context.Background(), store, snapshot.Manifest{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if output == "" {
		output = fmt.Sprintf("neoalchemy-%s.neoa", time.Now().Format("20060102-150405"))
	}
	if err := snapshot.Package(payload, output); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("✅ Exported %d nodes and %d edges to %s\n", payload.Manifest.NodeCount, payload.Manifest.EdgeCount, output)
	return nil
}

func printManifest(m *snapshot.Manifest) {
	fmt.Printf("Snapshot: %s\n", m.Name)
	fmt.Printf("  ID: %s\n", m.ID)
	if m.Description != "" {
		fmt.Printf("  Description: %s\n", m.Description)
	}
	fmt.Printf("  Created: %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Nodes: %d\n", m.NodeCount)
	fmt.Printf("  Edges: %d\n", m.EdgeCount)
	fmt.Printf("  Classes: %s\n", strings.Join(m.Classes, ", "))
}
