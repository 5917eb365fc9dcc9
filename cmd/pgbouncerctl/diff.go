package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/diff"
	"github.com/pg-sharding/pgbouncerctl/pkg/ini"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/spf13/cobra"
)

var (
	diffJSON     bool
	diffShowSame bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "show the difference between the definition and the deployed pgbouncer.ini",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := definition.LoadFile(defPath, false)
		if err != nil {
			return err
		}
		desired, err := def.Build()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(iniPath)
		if err != nil {
			return cfgerror.Newf(cfgerror.IO, "read %s: %s", iniPath, err)
		}
		current, err := ini.Parse(data)
		if err != nil {
			return err
		}

		report, err := diff.Compare(current, desired, diff.Options{
			IgnoreAliases:  def.IgnoreDatabases,
			IgnorePassword: !def.OutputCredentials,
		})
		if err != nil {
			return err
		}

		if diffJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		printDiff(report, current)
		return nil
	},
}

func printDiff(report *diff.ConfigDiff, current *config.PgBouncerConfig) {
	if report.Empty() && !diffShowSame {
		fmt.Println("no changes")
		return
	}

	fmt.Println("[pgbouncer]")
	if diffShowSame {
		setting := current.Setting()
		for _, field := range config.SettingFields() {
			if _, changed := report.PgBouncerChanges[field.Key]; changed {
				continue
			}
			if value, ok := field.Get(setting); ok {
				fmt.Printf("  %s = %s\n", field.Key, value)
			}
		}
	}
	for _, key := range sortedKeys(report.PgBouncerChanges) {
		fmt.Print(formatFieldChange(key, report.PgBouncerChanges[key]))
	}

	fmt.Println("[databases]")
	for _, alias := range sortedDBKeys(report.DatabaseChanges) {
		change := report.DatabaseChanges[alias]
		switch change.Status {
		case diff.StatusAdded:
			fmt.Printf("+ %s = %s\n", alias, *change.Value)
		case diff.StatusRemoved:
			fmt.Printf("- %s = %s\n", alias, *change.Value)
		default:
			fmt.Printf("~ %s\n", alias)
			for _, attr := range sortedKeys(change.Fields) {
				fmt.Print("  " + formatFieldChange(attr, change.Fields[attr]))
			}
		}
	}
}

func formatFieldChange(key string, change diff.FieldChange) string {
	switch change.Status {
	case diff.StatusAdded:
		return fmt.Sprintf("+ %s = %s\n", key, *change.Value)
	case diff.StatusRemoved:
		return fmt.Sprintf("- %s = %s\n", key, *change.Value)
	default:
		return fmt.Sprintf("~ %s: %s -> %s\n", key, *change.Old, *change.New)
	}
}

func sortedKeys(m map[string]diff.FieldChange) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedDBKeys(m map[string]diff.DatabaseChange) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "print the diff as json")
	diffCmd.Flags().BoolVar(&diffShowSame, "show-same", false, "also print unchanged recognized settings")
}
