package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Create and inspect nodes",
}

var nodeCreateCmd = &cobra.Command{
	Use:   "create <class>",
	Short: "Create a node of a declared class",
	Long: `Create a node and print it as JSON. Property values are parsed as JSON
when they can be, otherwise kept as strings.

Examples:
  neoalchemy node create Person --prop name=alice --prop age=30
  neoalchemy node create Dog --prop 'tags=["good","boy"]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		props, _ := cmd.Flags().GetStringArray("prop")
		return runNodeCreate(args[0], props)
	},
}

var nodeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a node as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return runNodeGet(args[0]) },
}

func init() {
	nodeCreateCmd.Flags().StringArray("prop", nil, "Property as key=value (repeatable)")
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeGetCmd)
}

func runNodeCreate(class string, rawProps []string) error {
	props, err := parseProps(rawProps)
	if err != nil {
		return err
	}
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	n, err := m.CreateNode(context.Background(), class, props)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	return printJSON(n.Record())
}

func runNodeGet(id string) error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	n, _, err := m.Node(context.Background(), id)
	if err != nil {
		return err
	}
	return printJSON(n.Record())
}

// parseProps turns key=value pairs into a property map.
func parseProps(pairs []string) (map[string]any, error) {
	props := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid property %q (want key=value)", p)
		}
		props[k] = parseValue(v)
	}
	return props, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
