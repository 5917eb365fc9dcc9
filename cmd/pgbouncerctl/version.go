package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set in makefile during build
var (
	Version     = "devel"
	GitRevision = "devel"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the pgbouncerctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pgbouncerctl %s-%s\n", Version, GitRevision)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
