package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

// Param is one extra connection attribute of a database entry, e.g.
// pool_size=5. Order of params is kept as given for rendering.
type Param struct {
	Key   string
	Value string
}

// Database is one pool target: where PgBouncer should connect for a
// given alias. User and password are present-vs-absent, not empty
// strings, so an omitted credential means "inherit".
type Database struct {
	alias    string
	host     string
	port     int
	dbName   string
	user     *string
	password *string
	params   []Param
}

func MakeDatabase(alias, host string, port int, dbName string) (Database, error) {
	if alias == "" {
		return Database{}, cfgerror.New(cfgerror.VALIDATION, "database alias must not be empty")
	}
	if host == "" {
		return Database{}, cfgerror.Newf(cfgerror.VALIDATION, "database %q: host must not be empty", alias)
	}
	if port < minPort || port > maxPort {
		return Database{}, cfgerror.Newf(cfgerror.VALIDATION, "database %q: port %d is out of range %d-%d", alias, port, minPort, maxPort)
	}
	if dbName == "" {
		return Database{}, cfgerror.Newf(cfgerror.VALIDATION, "database %q: dbname must not be empty", alias)
	}
	return Database{
		alias:  alias,
		host:   host,
		port:   port,
		dbName: dbName,
	}, nil
}

func (d *Database) Alias() string  { return d.alias }
func (d *Database) Host() string   { return d.host }
func (d *Database) Port() int      { return d.port }
func (d *Database) DBName() string { return d.dbName }

func (d *Database) User() (string, bool)     { return optString(d.user) }
func (d *Database) Password() (string, bool) { return optString(d.password) }

func (d *Database) SetUser(user string)         { d.user = &user }
func (d *Database) ClearUser()                  { d.user = nil }
func (d *Database) SetPassword(password string) { d.password = &password }
func (d *Database) ClearPassword()              { d.password = nil }

// SetParam appends an extra attribute, or updates it in place when the
// key was already set.
func (d *Database) SetParam(key, value string) {
	for i := range d.params {
		if d.params[i].Key == key {
			d.params[i].Value = value
			return
		}
	}
	d.params = append(d.params, Param{Key: key, Value: value})
}

func (d *Database) Param(key string) (string, bool) {
	for _, p := range d.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (d *Database) Params() []Param {
	return append([]Param(nil), d.params...)
}

// Attrs flattens the entry into attribute name to value, the shape the
// diff engine compares. Credentials are included when present.
func (d *Database) Attrs() map[string]string {
	attrs := map[string]string{
		"host":   d.host,
		"port":   strconv.Itoa(d.port),
		"dbname": d.dbName,
	}
	if d.user != nil {
		attrs["user"] = *d.user
	}
	if d.password != nil {
		attrs["password"] = *d.password
	}
	for _, p := range d.params {
		attrs[p.Key] = p.Value
	}
	return attrs
}

// Render produces the entry value in pgbouncer.ini form, without the
// leading "alias = " part. Credential suppression is a render-time
// decision and never mutates the entry.
func (d *Database) Render(omitCredentials bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "host=%s port=%d dbname=%s", d.host, d.port, d.dbName)
	if !omitCredentials {
		if d.user != nil {
			fmt.Fprintf(&sb, " user=%s", *d.user)
		}
		if d.password != nil {
			fmt.Fprintf(&sb, " password=%s", *d.password)
		}
	}
	for _, p := range d.params {
		fmt.Fprintf(&sb, " %s=%s", p.Key, p.Value)
	}
	return sb.String()
}

func (d *Database) Clone() Database {
	c := *d
	c.user = cloneStringPtr(d.user)
	c.password = cloneStringPtr(d.password)
	c.params = append([]Param(nil), d.params...)
	return c
}

// DatabasesSetting is the [databases] section: alias to Database in
// insertion order. Aliases are unique and case-sensitive; adding a
// duplicate is an error, never an overwrite.
type DatabasesSetting struct {
	entries []Database
	index   map[string]int
}

func NewDatabasesSetting() *DatabasesSetting {
	return &DatabasesSetting{
		index: map[string]int{},
	}
}

func (ds *DatabasesSetting) Add(db Database) error {
	if db.alias == "" {
		return cfgerror.New(cfgerror.VALIDATION, "database alias must not be empty")
	}
	if _, ok := ds.index[db.alias]; ok {
		return cfgerror.Newf(cfgerror.VALIDATION, "duplicate database alias %q", db.alias)
	}
	ds.index[db.alias] = len(ds.entries)
	ds.entries = append(ds.entries, db.Clone())
	return nil
}

// Merge folds a finished alias-to-Database mapping, e.g. one produced
// by an import source, into the setting. Aliases are taken in sorted
// order so merging an unordered map stays deterministic; the duplicate
// rule is the same as Add's.
func (ds *DatabasesSetting) Merge(dbs map[string]Database) error {
	aliases := make([]string, 0, len(dbs))
	for alias := range dbs {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		db := dbs[alias]
		if db.alias == "" {
			db.alias = alias
		}
		if db.alias != alias {
			return cfgerror.Newf(cfgerror.VALIDATION, "database alias mismatch: keyed %q, entry says %q", alias, db.alias)
		}
		if err := ds.Add(db); err != nil {
			return err
		}
	}
	return nil
}

func (ds *DatabasesSetting) Get(alias string) (Database, bool) {
	i, ok := ds.index[alias]
	if !ok {
		return Database{}, false
	}
	return ds.entries[i].Clone(), true
}

// Aliases returns aliases in insertion order.
func (ds *DatabasesSetting) Aliases() []string {
	aliases := make([]string, 0, len(ds.entries))
	for i := range ds.entries {
		aliases = append(aliases, ds.entries[i].alias)
	}
	return aliases
}

func (ds *DatabasesSetting) Len() int {
	return len(ds.entries)
}

func (ds *DatabasesSetting) Clone() *DatabasesSetting {
	if ds == nil {
		return nil
	}
	c := NewDatabasesSetting()
	for i := range ds.entries {
		c.index[ds.entries[i].alias] = len(c.entries)
		c.entries = append(c.entries, ds.entries[i].Clone())
	}
	return c
}
