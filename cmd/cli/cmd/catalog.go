// Package cmd - catalog commands
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tradein-engine/core/catalog/hclfile"
)

// catalogCmd groups catalog subcommands
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the adjustment catalog",
}

// catalogValidateCmd validates a catalog definition file
var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog definition file",
	Long: `Parse a catalog HCL file and report its contents without starting
the server.

Examples:
  tradein-engine catalog validate ./catalog.hcl`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogValidate,
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	cat, err := hclfile.Load(args[0])
	if err != nil {
		return err
	}

	products, questions, defects, accessories := cat.Counts()
	fmt.Printf("Catalog OK: %s\n", args[0])
	fmt.Printf("  product variants: %d\n", products)
	fmt.Printf("  questions:        %d\n", questions)
	fmt.Printf("  defects:          %d\n", defects)
	fmt.Printf("  accessories:      %d\n", accessories)
	return nil
}
