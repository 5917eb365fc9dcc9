package ini

import (
	"bytes"
	"fmt"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
)

// RenderOptions controls how Render serializes a config.
type RenderOptions struct {
	// OmitCredentials drops password attributes from database
	// entries so generated output can be committed or logged.
	OmitCredentials bool
}

// Render serializes cfg as pgbouncer.ini text. Recognized settings are
// written first in their documented order, then passthrough keys in
// first-seen order, then the [databases] section in insertion order.
// Rendering the output of Parse yields the same normalized text again.
func Render(cfg *config.PgBouncerConfig, opts RenderOptions) []byte {
	var buf bytes.Buffer

	setting := cfg.Setting()
	buf.WriteString("[" + sectionPgBouncer + "]\n")
	for _, field := range config.SettingFields() {
		if value, ok := field.Get(setting); ok {
			fmt.Fprintf(&buf, "%s = %s\n", field.Key, value)
		}
	}
	for _, key := range setting.PassthroughKeys() {
		if value, ok := setting.Passthrough(key); ok {
			fmt.Fprintf(&buf, "%s = %s\n", key, value)
		}
	}

	buf.WriteString("\n[" + sectionDatabases + "]\n")
	databases := cfg.Databases()
	for _, alias := range databases.Aliases() {
		db, _ := databases.Get(alias)
		fmt.Fprintf(&buf, "%s = %s\n", alias, db.Render(opts.OmitCredentials))
	}

	return buf.Bytes()
}
