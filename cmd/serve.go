package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/rpc"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"rpc"},
	Short:   "Start JSON-RPC server on stdio (default)",
	Long: `Start the JSON-RPC 2.0 server using stdio transport.

Each line on stdin is one request; each response is written as one line on
stdout. Methods: initialize, schema/describe, nodes/create, nodes/get,
relations/create, relations/merge, relations/delete, relations/match,
fields/get, fields/set.

Examples:
  neoalchemy serve --schema pets.yaml
  NEOALCHEMY_SCHEMA=pets.yaml neoalchemy`,
	RunE: func(cmd *cobra.Command, args []string) error { return runServe() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("neoalchemy %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph statistics",
	Long: `Show the number of nodes and edges and the database size.

Examples:
  neoalchemy status`,
	RunE: func(cmd *cobra.Command, args []string) error { return runStatus() },
}

func runServe() error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Fprintln(os.Stderr, "NeoAlchemy JSON-RPC server (stdio transport)")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop. Run 'neoalchemy help' for available commands.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := rpc.NewServer(m, os.Stdin, os.Stdout, nil)
	server.SetVersion(Version)
	return server.Start(ctx)
}

func runStatus() error {
	store, err := graph.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}
	defer store.Close()

	nodes, edges, err := store.Count(context.Background())
	if err != nil {
		return fmt.Errorf("failed to count graph: %w", err)
	}
	size, _ := store.Size()

	fmt.Printf("NeoAlchemy Graph Status:\n")
	fmt.Printf("  Database: %s\n", store.Path())
	fmt.Printf("  Nodes: %d\n", nodes)
	fmt.Printf("  Edges: %d\n", edges)
	fmt.Printf("  Database Size: %s\n", size)
	return nil
}
