package config

import (
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

// Builder accumulates the two sections of a PgBouncerConfig. Each
// section may be set at most once and Build refuses to produce a
// config until both are present and valid. Sections are deep-copied on
// the way in and on the way out.
type Builder struct {
	setting   *PgBouncerSetting
	databases *DatabasesSetting
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetPgBouncerSetting(setting *PgBouncerSetting) error {
	if b.setting != nil {
		return cfgerror.New(cfgerror.BUILDER, "pgbouncer section already set")
	}
	if setting == nil {
		return cfgerror.New(cfgerror.BUILDER, "pgbouncer section must not be nil")
	}
	b.setting = setting.Clone()
	return nil
}

func (b *Builder) SetDatabasesSetting(databases *DatabasesSetting) error {
	if b.databases != nil {
		return cfgerror.New(cfgerror.BUILDER, "databases section already set")
	}
	if databases == nil {
		return cfgerror.New(cfgerror.BUILDER, "databases section must not be nil")
	}
	b.databases = databases.Clone()
	return nil
}

// Build finalizes the config. Missing sections and cross-field
// violations surface here, so a half-valid config is never observable.
func (b *Builder) Build() (*PgBouncerConfig, error) {
	if b.setting == nil {
		return nil, cfgerror.New(cfgerror.BUILDER, "missing pgbouncer section")
	}
	if b.databases == nil {
		return nil, cfgerror.New(cfgerror.BUILDER, "missing databases section")
	}
	if err := b.setting.Validate(); err != nil {
		return nil, err
	}
	return &PgBouncerConfig{
		setting:   b.setting.Clone(),
		databases: b.databases.Clone(),
	}, nil
}
