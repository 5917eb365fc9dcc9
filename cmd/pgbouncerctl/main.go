package main

import (
	"os"
	"path/filepath"

	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	defPath  string
	iniPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "pgbouncerctl",
	Short: "manage pgbouncer configuration as a structured definition",
	Long:  "pgbouncerctl keeps a desired-state definition of a pgbouncer deployment, generates pgbouncer.ini from it, and reports drift against a deployed file",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bouncerlog.UpdateZeroLogLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&defPath, "def-file", "d", "./generated/pgbouncer_definition.toml", "path to the definition file")
	rootCmd.PersistentFlags().StringVarP(&iniPath, "ini-file", "i", "./generated/pgbouncer.ini", "path to the rendered pgbouncer.ini")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addPgCmd)
	rootCmd.AddCommand(addTemplateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(generateCmd)
}

func saveDefinition(def *definition.Definition, overwrite bool) error {
	format, err := definition.FormatForPath(defPath)
	if err != nil {
		return err
	}
	data, err := definition.Encode(def, format)
	if err != nil {
		return err
	}
	return writeFile(defPath, data, overwrite)
}

func writeFile(path string, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return cfgerror.Newf(cfgerror.IO, "%s already exists, refusing to overwrite", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		bouncerlog.Zero.Fatal().Err(err).Msg("")
	}
}
