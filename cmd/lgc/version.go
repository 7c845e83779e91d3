package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of lgc",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("lgc version %s (%s)\n", buildVersion, buildPlatform)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
