package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose schema and graph issues",
	Long: `Diagnose schema and graph issues and optionally fix them.

Examples:
  neoalchemy doctor        # check for issues
  neoalchemy doctor --fix  # check and create a missing data directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")
		return runDoctor(cmd.Context(), fix)
	},
}

func init() {
	doctorCmd.Flags().Bool("fix", false, "Attempt to automatically fix issues")
}

// runDoctor diagnoses common setup issues
func runDoctor(ctx context.Context, fix bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Println("NeoAlchemy Doctor")
	if fix {
		fmt.Println("Auto-fix enabled")
	}
	fmt.Println()

	issues := 0
	warnings := 0
	fixed := 0

	// 1. Data directory
	fmt.Print("- Checking data directory... ")
	dataDir, err := graph.DataDir()
	if err != nil {
		fmt.Println("FAILED")
		fmt.Printf("  Issue: %v\n", err)
		issues++
	} else if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if fix {
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				fmt.Printf("FAILED: %v\n", err)
				issues++
			} else {
				fmt.Println("FIXED")
				fixed++
			}
		} else {
			fmt.Println("WARNING")
			fmt.Printf("  Data directory does not exist: %s\n", dataDir)
			fmt.Println("  It will be created on first run")
			warnings++
		}
	} else {
		fmt.Printf("OK (%s)\n", dataDir)
	}

	// 2. Schema
	fmt.Print("- Checking schema... ")
	var schema *ogm.Schema
	if path, err := resolveSchemaPath(); err != nil {
		fmt.Println("FAILED")
		fmt.Printf("  Issue: %v\n", err)
		issues++
	} else if schema, err = schemafile.Load(path, nil); err != nil {
		fmt.Println("FAILED")
		fmt.Printf("  Issue: %v\n", err)
		issues++
	} else {
		fmt.Printf("OK (%d classes)\n", len(schema.Classes()))
	}

	// 3. Database
	fmt.Print("- Checking graph database... ")
	var store *graph.Store
	if dataDir != "" {
		dbPath := filepath.Join(dataDir, graph.DatabaseFile)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			fmt.Println("WARNING")
			fmt.Printf("  Database not found: %s\n", dbPath)
			fmt.Println("  It will be created on first run")
			warnings++
		} else if store, err = graph.Open(dbPath, nil); err != nil {
			fmt.Println("FAILED")
			fmt.Printf("  Issue: cannot open %s: %v\n", dbPath, err)
			issues++
		} else {
			defer store.Close()
			fmt.Println("OK")
		}
	} else {
		fmt.Println("SKIPPED")
	}

	// 4. Stored classes against the schema
	fmt.Print("- Checking stored classes... ")
	if store == nil || schema == nil {
		fmt.Println("SKIPPED")
	} else if unknown, err := unknownClasses(ctx, store, schema); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		issues++
	} else if len(unknown) > 0 {
		fmt.Println("WARNING")
		fmt.Printf("  Nodes of classes missing from the schema: %s\n", strings.Join(unknown, ", "))
		warnings++
	} else {
		fmt.Println("OK")
	}

	fmt.Printf("- Checking environment... OK (%s/%s)\n", runtime.GOOS, runtime.GOARCH)

	// Summary
	fmt.Println()
	if issues == 0 && warnings == 0 {
		fmt.Println("All checks passed.")
	} else {
		if fixed > 0 {
			fmt.Printf("Auto-fixed %d issue(s)\n", fixed)
		}
		if issues > 0 {
			fmt.Printf("Found %d critical issue(s)\n", issues)
		}
		if warnings > 0 {
			fmt.Printf("Found %d warning(s)\n", warnings)
		}
	}

	if issues > 0 {
		return fmt.Errorf("found %d critical issue(s)", issues)
	}
	return nil
}

// unknownClasses lists stored node classes the schema does not define.
func unknownClasses(ctx context.Context, store *graph.Store, schema *ogm.Schema) ([]string, error) {
	nodes, err := store.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var unknown []string
	for _, n := range nodes {
		if seen[n.Class] {
			continue
		}
		seen[n.Class] = true
		if _, ok := schema.Lookup(n.Class); !ok {
			unknown = append(unknown, n.Class)
		}
	}
	return unknown, nil
}
