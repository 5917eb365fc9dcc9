package main

import (
	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/spf13/cobra"
)

var addTemplateAllowNotExist bool

var addTemplateCmd = &cobra.Command{
	Use:   "add-empty-pg-template",
	Short: "append a local postgres template entry to the definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.LoadFile(defPath, addTemplateAllowNotExist)
		if err != nil {
			return err
		}

		db, err := config.MakeDatabase("postgres", "127.0.0.1", 5432, "postgres")
		if err != nil {
			return err
		}
		db.SetUser("postgres")
		db.SetPassword("postgres")

		if err := def.Databases.Add(db); err != nil {
			return err
		}
		if err := saveDefinition(def, true); err != nil {
			return err
		}
		bouncerlog.Zero.Info().
			Str("path", defPath).
			Msg("added template database entry")
		return nil
	},
}

func init() {
	addTemplateCmd.Flags().BoolVar(&addTemplateAllowNotExist, "allow-not-exist", false, "start from a default definition when the file is missing")
}
