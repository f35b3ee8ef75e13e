package cmd

import (
	"context"
	"fmt"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
	"github.com/spf13/cobra"
)

var relateCmd = &cobra.Command{
	Use:   "relate <node-id> <field> <related-id>",
	Short: "Create an edge through a relation field",
	Long: `Create an edge from a node to a related node through one of the node's
relation fields. The field's type restriction is checked first.

Examples:
  neoalchemy relate $ALICE pets $REX
  neoalchemy relate $ALICE friends $BOB`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdge("relate", args[0], args[1], args[2])
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge <node-id> <field> <related-id>",
	Short: "Create an edge unless it already exists",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdge("merge", args[0], args[1], args[2])
	},
}

var unrelateCmd = &cobra.Command{
	Use:   "unrelate <node-id> <field> <related-id>",
	Short: "Delete the edges between two nodes through a relation field",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnrelate(args[0], args[1], args[2])
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <node-id> <field>",
	Short: "List related nodes, optionally filtered",
	Long: `List the nodes related through a field. Filters narrow the result to
nodes carrying every label and every property given.

Examples:
  neoalchemy match $ALICE pets --label Dog
  neoalchemy match $ALICE friends --prop name=bob`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels, _ := cmd.Flags().GetStringArray("label")
		props, _ := cmd.Flags().GetStringArray("prop")
		return runMatch(args[0], args[1], labels, props)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <node-id> <field>",
	Short: "Read a field of a node",
	Long: `Read a field of a node. Relations print their related nodes; backrefs
print the single node on the other side and fail unless there is exactly
one.

Examples:
  neoalchemy get $REX owner`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error { return runGet(args[0], args[1]) },
}

var setCmd = &cobra.Command{
	Use:   "set <node-id> <field> [value]",
	Short: "Assign or delete a field of a node",
	Long: `Assign (or with --delete remove) a field of a node. Relation fields and
backrefs are read-only, so this reports the rule that rejects the write.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		del, _ := cmd.Flags().GetBool("delete")
		var value any
		if len(args) == 3 {
			value = parseValue(args[2])
		}
		return runSet(args[0], args[1], value, del)
	},
}

func init() {
	matchCmd.Flags().StringArray("label", nil, "Required label (repeatable)")
	matchCmd.Flags().StringArray("prop", nil, "Required property as key=value (repeatable)")
	setCmd.Flags().Bool("delete", false, "Delete the field instead of assigning it")
}

func runEdge(op, nodeID, field, relatedID string) error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	var e ogm.Edge
	if op == "merge" {
		e, err = m.Merge(ctx, nodeID, field, relatedID)
	} else {
		e, err = m.Relate(ctx, nodeID, field, relatedID)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return printJSON(e)
}

func runUnrelate(nodeID, field, relatedID string) error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := m.Unrelate(context.Background(), nodeID, field, relatedID); err != nil {
		return fmt.Errorf("unrelate failed: %w", err)
	}
	fmt.Println("✅ Unrelated.")
	return nil
}

func runMatch(nodeID, field string, labels, rawProps []string) error {
	props, err := parseProps(rawProps)
	if err != nil {
		return err
	}
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	nodes, err := m.Match(context.Background(), nodeID, field, labels, props)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}
	return printJSON(graph.Records(nodes))
}

func runGet(nodeID, field string) error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := m.Get(context.Background(), nodeID, field)
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case []*graph.Node:
		return printJSON(graph.Records(v))
	case *graph.Node:
		return printJSON(v.Record())
	}
	return printJSON(v)
}

func runSet(nodeID, field string, value any, del bool) error {
	m, closeStore, err := openMapper()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	if del {
		err = m.Delete(ctx, nodeID, field)
	} else {
		err = m.Set(ctx, nodeID, field, value)
	}
	if err != nil {
		return err
	}
	fmt.Println("✅ Updated.")
	return nil
}

