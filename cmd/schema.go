package cmd

import (
	"fmt"
	"strings"

	"github.com/jaxbulsara/NeoAlchemy/internal/mapper"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check and describe the schema",
	Long: `Load the schema, install its backrefs and print every class with its
fields.

Examples:
  neoalchemy schema --schema pets.yaml
  neoalchemy schema --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return runSchema(asJSON)
	},
}

func init() {
	schemaCmd.Flags().Bool("json", false, "Print the description as JSON")
}

func runSchema(asJSON bool) error {
	path, err := resolveSchemaPath()
	if err != nil {
		return err
	}
	f, err := schemafile.LoadFromFile(path)
	if err != nil {
		return err
	}
	schema, err := f.Build(nil)
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	classes := mapper.Describe(schema)
	if asJSON {
		return printJSON(classes)
	}

	fmt.Printf("Schema %s: %d classes\n", path, len(classes))
	for _, c := range classes {
		fmt.Printf("\n%s [%s]\n", c.Name, strings.Join(c.Labels, ", "))
		for _, fi := range c.Fields {
			line := fmt.Sprintf("  %-12s %s(%s)", fi.Name, fi.Kind, fi.Type)
			if len(fi.Restrict) > 0 {
				line += " -> " + strings.Join(fi.Restrict, ", ")
			}
			if fi.Backref != "" {
				line += " backref " + fi.Backref
			}
			fmt.Println(line)
		}
	}
	return nil
}
