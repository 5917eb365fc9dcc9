package main

import (
	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/spf13/cobra"
)

var forceOverwrite bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "write a fresh definition file with default settings and no databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := saveDefinition(definition.Default(), forceOverwrite); err != nil {
			return err
		}
		bouncerlog.Zero.Info().Str("path", defPath).Msg("wrote definition")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceOverwrite, "force-overwrite", false, "overwrite an existing definition file")
}
