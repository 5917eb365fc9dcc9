package diff

import (
	"sort"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

type Status string

const (
	StatusAdded   = Status("added")
	StatusRemoved = Status("removed")
)

// FieldChange reports one field-level difference. A value change
// carries Old and New; a one-sided field carries Status and Value.
type FieldChange struct {
	Status Status  `json:"status,omitempty"`
	Old    *string `json:"old,omitempty"`
	New    *string `json:"new,omitempty"`
	Value  *string `json:"value,omitempty"`
}

// DatabaseChange reports one alias-level difference. Added and removed
// entries carry the rendered entry text; an entry present on both sides
// with differing attributes carries a per-attribute breakdown instead.
type DatabaseChange struct {
	Status Status                 `json:"status,omitempty"`
	Value  *string                `json:"value,omitempty"`
	Fields map[string]FieldChange `json:"fields,omitempty"`
}

type ConfigDiff struct {
	PgBouncerChanges map[string]FieldChange    `json:"pgbouncer_changes"`
	DatabaseChanges  map[string]DatabaseChange `json:"database_changes"`
}

func (d *ConfigDiff) Empty() bool {
	return len(d.PgBouncerChanges) == 0 && len(d.DatabaseChanges) == 0
}

// Options narrows the comparison. Both knobs come from the definition:
// IgnoreAliases from its ignore list, IgnorePassword from the
// credential-output toggle.
type Options struct {
	IgnoreAliases  []string
	IgnorePassword bool
}

// Compare reports the differences between a current config (typically
// parsed from a deployed ini) and a desired one (built from a
// definition). Unchanged fields and entries are omitted. The result is
// a pure function of the two inputs.
func Compare(current, desired *config.PgBouncerConfig, opts Options) (*ConfigDiff, error) {
	if current == nil {
		return nil, cfgerror.New(cfgerror.DIFF_INPUT, "current config is nil")
	}
	if desired == nil {
		return nil, cfgerror.New(cfgerror.DIFF_INPUT, "desired config is nil")
	}

	result := &ConfigDiff{
		PgBouncerChanges: map[string]FieldChange{},
		DatabaseChanges:  map[string]DatabaseChange{},
	}

	currentSetting := current.Setting()
	desiredSetting := desired.Setting()

	for _, field := range config.SettingFields() {
		oldValue, oldOK := field.Get(currentSetting)
		newValue, newOK := field.Get(desiredSetting)
		if change, ok := compareField(oldValue, oldOK, newValue, newOK); ok {
			result.PgBouncerChanges[field.Key] = change
		}
	}

	for _, key := range passthroughUnion(currentSetting, desiredSetting) {
		oldValue, oldOK := currentSetting.Passthrough(key)
		newValue, newOK := desiredSetting.Passthrough(key)
		if change, ok := compareField(oldValue, oldOK, newValue, newOK); ok {
			result.PgBouncerChanges[key] = change
		}
	}

	ignored := map[string]bool{}
	for _, alias := range opts.IgnoreAliases {
		ignored[alias] = true
	}

	currentDBs := current.Databases()
	desiredDBs := desired.Databases()

	for _, alias := range currentDBs.Aliases() {
		if ignored[alias] {
			continue
		}
		currentDB, _ := currentDBs.Get(alias)
		desiredDB, ok := desiredDBs.Get(alias)
		if !ok {
			rendered := currentDB.Render(opts.IgnorePassword)
			result.DatabaseChanges[alias] = DatabaseChange{Status: StatusRemoved, Value: &rendered}
			continue
		}
		if fields := compareEntries(&currentDB, &desiredDB, opts.IgnorePassword); len(fields) > 0 {
			result.DatabaseChanges[alias] = DatabaseChange{Fields: fields}
		}
	}

	for _, alias := range desiredDBs.Aliases() {
		if ignored[alias] {
			continue
		}
		if _, ok := currentDBs.Get(alias); ok {
			continue
		}
		desiredDB, _ := desiredDBs.Get(alias)
		rendered := desiredDB.Render(opts.IgnorePassword)
		result.DatabaseChanges[alias] = DatabaseChange{Status: StatusAdded, Value: &rendered}
	}

	return result, nil
}

func compareField(oldValue string, oldOK bool, newValue string, newOK bool) (FieldChange, bool) {
	switch {
	case oldOK && newOK:
		if oldValue == newValue {
			return FieldChange{}, false
		}
		return FieldChange{Old: &oldValue, New: &newValue}, true
	case oldOK:
		return FieldChange{Status: StatusRemoved, Value: &oldValue}, true
	case newOK:
		return FieldChange{Status: StatusAdded, Value: &newValue}, true
	}
	return FieldChange{}, false
}

func compareEntries(current, desired *config.Database, ignorePassword bool) map[string]FieldChange {
	currentAttrs := current.Attrs()
	desiredAttrs := desired.Attrs()
	if ignorePassword {
		delete(currentAttrs, "password")
		delete(desiredAttrs, "password")
	}

	fields := map[string]FieldChange{}
	for _, attr := range attrUnion(currentAttrs, desiredAttrs) {
		oldValue, oldOK := currentAttrs[attr]
		newValue, newOK := desiredAttrs[attr]
		if change, ok := compareField(oldValue, oldOK, newValue, newOK); ok {
			fields[attr] = change
		}
	}
	return fields
}

func passthroughUnion(a, b *config.PgBouncerSetting) []string {
	seen := map[string]bool{}
	var keys []string
	for _, key := range a.PassthroughKeys() {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for _, key := range b.PassthroughKeys() {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func attrUnion(a, b map[string]string) []string {
	seen := map[string]bool{}
	var attrs []string
	for attr := range a {
		seen[attr] = true
		attrs = append(attrs, attr)
	}
	for attr := range b {
		if !seen[attr] {
			attrs = append(attrs, attr)
		}
	}
	sort.Strings(attrs)
	return attrs
}
