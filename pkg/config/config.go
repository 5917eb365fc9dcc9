package config

// PgBouncerConfig is the aggregate root: one [pgbouncer] section plus
// one [databases] section. Instances are immutable; the builder is the
// only construction path and it deep-copies both sections, so two
// configs never share state and a diff never compares a structure
// against itself.
type PgBouncerConfig struct {
	setting   *PgBouncerSetting
	databases *DatabasesSetting
}

// Setting returns a copy of the [pgbouncer] section. Mutating the copy
// does not affect the config.
func (c *PgBouncerConfig) Setting() *PgBouncerSetting {
	return c.setting.Clone()
}

// Databases returns a copy of the [databases] section.
func (c *PgBouncerConfig) Databases() *DatabasesSetting {
	return c.databases.Clone()
}
