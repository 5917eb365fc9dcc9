package main

import (
	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/ini"
	"github.com/spf13/cobra"
)

var disallowOverwrite bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "render pgbouncer.ini from the definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.LoadFile(defPath, false)
		if err != nil {
			return err
		}
		cfg, err := def.Build()
		if err != nil {
			return err
		}

		rendered := ini.Render(cfg, ini.RenderOptions{
			OmitCredentials: !def.OutputCredentials,
		})
		if err := writeFile(iniPath, rendered, !disallowOverwrite); err != nil {
			return err
		}
		bouncerlog.Zero.Info().
			Str("path", iniPath).
			Bool("credentials", def.OutputCredentials).
			Msg("rendered pgbouncer.ini")
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&disallowOverwrite, "disallow-overwrite", false, "fail if the ini file already exists")
}
