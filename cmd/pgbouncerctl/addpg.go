package main

import (
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/spf13/cobra"
)

var (
	addAlias         string
	addHost          string
	addPort          int
	addDBName        string
	addUser          string
	addPassword      string
	addParams        []string
	addAllowNotExist bool
)

var addPgCmd = &cobra.Command{
	Use:   "add-pg",
	Short: "append a database entry to the definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.LoadFile(defPath, addAllowNotExist)
		if err != nil {
			return err
		}

		if addDBName == "" {
			addDBName = addAlias
		}
		db, err := config.MakeDatabase(addAlias, addHost, addPort, addDBName)
		if err != nil {
			return err
		}
		if addUser != "" {
			db.SetUser(addUser)
		}
		if addPassword != "" {
			db.SetPassword(addPassword)
		}
		for _, param := range addParams {
			key, value, found := strings.Cut(param, "=")
			if !found || key == "" {
				return cfgerror.Newf(cfgerror.VALIDATION, "--param %q is not key=value", param)
			}
			db.SetParam(key, value)
		}

		if err := def.Databases.Add(db); err != nil {
			return err
		}
		if err := saveDefinition(def, true); err != nil {
			return err
		}
		bouncerlog.Zero.Info().
			Str("alias", addAlias).
			Str("path", defPath).
			Msg("added database entry")
		return nil
	},
}

func init() {
	addPgCmd.Flags().StringVar(&addAlias, "alias", "", "database alias (required)")
	addPgCmd.Flags().StringVar(&addHost, "host", "", "backend host (required)")
	addPgCmd.Flags().IntVar(&addPort, "port", 5432, "backend port")
	addPgCmd.Flags().StringVar(&addDBName, "dbname", "", "target database name, defaults to the alias")
	addPgCmd.Flags().StringVar(&addUser, "user", "", "connect user")
	addPgCmd.Flags().StringVar(&addPassword, "password", "", "connect password")
	addPgCmd.Flags().StringArrayVar(&addParams, "param", nil, "extra connection parameter, key=value, repeatable")
	addPgCmd.Flags().BoolVar(&addAllowNotExist, "allow-not-exist", false, "start from a default definition when the file is missing")

	_ = addPgCmd.MarkFlagRequired("alias")
	_ = addPgCmd.MarkFlagRequired("host")
}
