package main

import (
	"context"
	"fmt"

	"github.com/pg-sharding/pgbouncerctl/pkg/bouncerlog"
	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/pg-sharding/pgbouncerctl/pkg/pgimport"
	"github.com/spf13/cobra"
)

var importHosts []string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "discover databases on the hosts already in the definition and add them as entries",
	Long:  "import treats each database entry in the definition as a connection template: it queries that entry's host for connectable databases and appends one entry per discovered database. With --host only entries on the named hosts are queried.",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.LoadFile(defPath, false)
		if err != nil {
			return err
		}

		targets, err := importTargets(def)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return cfgerror.New(cfgerror.IMPORT, "no definition entries match the requested hosts")
		}

		fetched, err := pgimport.FetchAll(context.Background(), targets, def.IgnoreDatabases)
		if err != nil {
			return err
		}

		// entries the operator already wrote stay authoritative
		discovered := map[string]config.Database{}
		for alias, db := range fetched {
			if _, ok := def.Databases.Get(alias); ok {
				continue
			}
			discovered[alias] = db
		}
		if err := def.Databases.Merge(discovered); err != nil {
			return err
		}

		if err := saveDefinition(def, true); err != nil {
			return err
		}
		bouncerlog.Zero.Info().
			Int("targets", len(targets)).
			Int("added", len(discovered)).
			Str("path", defPath).
			Msg("imported databases")
		return nil
	},
}

func importTargets(def *definition.Definition) ([]pgimport.Target, error) {
	wanted := map[string]bool{}
	for _, host := range importHosts {
		wanted[host] = true
	}

	var targets []pgimport.Target
	seen := map[string]bool{}
	for _, alias := range def.Databases.Aliases() {
		db, _ := def.Databases.Get(alias)
		if len(wanted) > 0 && !wanted[db.Host()] {
			continue
		}
		target := pgimport.Target{
			Host:      db.Host(),
			Port:      db.Port(),
			DefaultDB: db.DBName(),
		}
		if user, ok := db.User(); ok {
			target.User = user
		} else {
			target.User = "postgres"
		}
		if password, ok := db.Password(); ok {
			target.Password = password
		}
		// one connection per host:port, whichever entry comes first
		key := fmt.Sprintf("%s:%d", target.Host, target.Port)
		if seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, target)
	}
	return targets, nil
}

func init() {
	importCmd.Flags().StringArrayVar(&importHosts, "host", nil, "limit import to definition entries on this host, repeatable")
}
