package definition

import (
	"os"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"golang.org/x/xerrors"
)

// Definition is the desired-state form of a PgBouncer configuration.
// On top of the renderable schema it carries operator intent that never
// reaches the generated ini: aliases to leave out of diffs and imports,
// whether credentials are written into generated output, and whether a
// database entry may reference a pool target that does not exist yet.
type Definition struct {
	Setting           *config.PgBouncerSetting
	Databases         *config.DatabasesSetting
	IgnoreDatabases   []string
	OutputCredentials bool
	AllowNotExist     bool

	// Extra holds unknown top-level keys of the decoded tree so a
	// definition written by a newer tool survives a round trip.
	Extra map[string]interface{}
}

func Default() *Definition {
	return &Definition{
		Setting:           config.DefaultPgBouncerSetting(),
		Databases:         config.NewDatabasesSetting(),
		OutputCredentials: true,
	}
}

// Build assembles the desired-state PgBouncerConfig.
func (d *Definition) Build() (*config.PgBouncerConfig, error) {
	builder := config.NewBuilder()
	if err := builder.SetPgBouncerSetting(d.Setting); err != nil {
		return nil, err
	}
	if err := builder.SetDatabasesSetting(d.Databases); err != nil {
		return nil, err
	}
	return builder.Build()
}

func (d *Definition) IsIgnored(alias string) bool {
	for _, ignored := range d.IgnoreDatabases {
		if ignored == alias {
			return true
		}
	}
	return false
}

// LoadFile reads and decodes the definition at path, picking the format
// by suffix. When allowNotExist is set a missing file yields the default
// definition instead of an error, so commands can bootstrap a fresh one.
func LoadFile(path string, allowNotExist bool) (*Definition, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowNotExist {
			return Default(), nil
		}
		return nil, cfgerror.Newf(cfgerror.IO, "read definition %s: %s", path, err)
	}
	def, err := Decode(data, format)
	if err != nil {
		return nil, xerrors.Errorf("definition %s: %w", path, err)
	}
	return def, nil
}
