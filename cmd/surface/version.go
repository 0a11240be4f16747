package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/surface"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of surface",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("surface version %s\n", strings.TrimSpace(surface.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
