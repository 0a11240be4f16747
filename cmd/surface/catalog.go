package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/surface/pkg/catalog"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect component catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file",
	Long:  `Parses a YAML or JSON catalog, compiles every props schema and reports the first error.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cat, err := catalog.Load(args[0])
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog is valid! ✅ (%d component types)\n", len(cat.Types()))
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "Print the component types of a catalog as JSON",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cat := catalog.New()
		if len(args) > 0 {
			var err error
			if cat, err = catalog.Load(args[0]); err != nil {
				fmt.Printf("Error loading catalog: %v\n", err)
				os.Exit(1)
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cat.Entries()); err != nil {
			fmt.Printf("Error encoding catalog: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
