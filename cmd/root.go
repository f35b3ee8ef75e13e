package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/mapper"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
	"github.com/spf13/cobra"
)

// Build-time variables
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// SetVersion sets the version info from main
func SetVersion(v, c, d string) {
	Version = v
	Commit = c
	Date = d
}

var (
	schemaPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "neoalchemy",
	Short: "NeoAlchemy - typed relations over a graph store",
	Long: `NeoAlchemy declares node classes and typed relations in a YAML schema and
runs them against a local SQLite graph.

The schema is read from --schema or $` + schemafile.Env + `; the graph lives in
$` + graph.DataDirEnv + ` (default ~/.neoalchemy).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the neoalchemy command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path of the YAML schema (default $"+schemafile.Env+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	// serve, version, status (defined in serve.go)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)

	// schema (defined in schema.go)
	rootCmd.AddCommand(schemaCmd)

	// node (defined in node.go)
	rootCmd.AddCommand(nodeCmd)

	// relate, merge, unrelate, match, get, set (defined in relations.go)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(unrelateCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)

	// import, export (defined in import_export.go)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)

	// doctor (defined in doctor.go)
	rootCmd.AddCommand(doctorCmd)
}

// resolveSchemaPath returns the --schema flag, falling back to the
// environment.
func resolveSchemaPath() (string, error) {
	if schemaPath != "" {
		return schemaPath, nil
	}
	if p := os.Getenv(schemafile.Env); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("no schema: pass --schema or set %s", schemafile.Env)
}

// openMapper loads the schema and opens the store. The returned function
// closes the store.
func openMapper() (*mapper.Mapper, func(), error) {
	path, err := resolveSchemaPath()
	if err != nil {
		return nil, nil, err
	}
	schema, err := schemafile.Load(path, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load schema: %w", err)
	}
	store, err := graph.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	return mapper.New(schema, store, slog.Default()), func() { store.Close() }, nil
}
