package config_test

import (
	"testing"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDatabase(t *testing.T, alias, host string, port int, dbName string) config.Database {
	t.Helper()
	db, err := config.MakeDatabase(alias, host, port, dbName)
	require.NoError(t, err)
	return db
}

func TestMakeDatabaseValidation(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		alias  string
		host   string
		port   int
		dbName string
		err    bool
	}{
		{"db1", "localhost", 5432, "db1", false},
		{"", "localhost", 5432, "db1", true},
		{"db1", "", 5432, "db1", true},
		{"db1", "localhost", 0, "db1", true},
		{"db1", "localhost", 65536, "db1", true},
		{"db1", "localhost", 5432, "", true},
	} {
		_, err := config.MakeDatabase(c.alias, c.host, c.port, c.dbName)
		if c.err {
			assert.Error(err, "case %d", i)
		} else {
			assert.NoError(err, "case %d", i)
		}
	}
}

func TestDatabaseRender(t *testing.T) {
	assert := assert.New(t)

	db := mustDatabase(t, "db1", "localhost", 5432, "db1")
	db.SetUser("postgres")
	db.SetPassword("secret")
	db.SetParam("pool_size", "5")

	assert.Equal("host=localhost port=5432 dbname=db1 user=postgres password=secret pool_size=5", db.Render(false))
	assert.Equal("host=localhost port=5432 dbname=db1 pool_size=5", db.Render(true))

	// suppression never mutates the entry
	user, ok := db.User()
	assert.True(ok)
	assert.Equal("postgres", user)
}

func TestDatabaseParams(t *testing.T) {
	assert := assert.New(t)

	db := mustDatabase(t, "db1", "localhost", 5432, "db1")
	db.SetParam("pool_size", "5")
	db.SetParam("pool_mode", "statement")
	db.SetParam("pool_size", "10")

	assert.Equal([]config.Param{
		{Key: "pool_size", Value: "10"},
		{Key: "pool_mode", Value: "statement"},
	}, db.Params())
}

func TestDuplicateAliasRejected(t *testing.T) {
	assert := assert.New(t)

	ds := config.NewDatabasesSetting()
	assert.NoError(ds.Add(mustDatabase(t, "db1", "a", 5432, "db1")))

	err := ds.Add(mustDatabase(t, "db1", "b", 5433, "other"))
	assert.Error(err)
	assert.Contains(err.Error(), "db1")

	// the first entry survived untouched
	db, ok := ds.Get("db1")
	assert.True(ok)
	assert.Equal("a", db.Host())
	assert.Equal(1, ds.Len())
}

func TestAliasesKeepInsertionOrder(t *testing.T) {
	assert := assert.New(t)

	ds := config.NewDatabasesSetting()
	for _, alias := range []string{"zeta", "alpha", "mid"} {
		assert.NoError(ds.Add(mustDatabase(t, alias, "h", 5432, alias)))
	}
	assert.Equal([]string{"zeta", "alpha", "mid"}, ds.Aliases())
}

func TestMerge(t *testing.T) {
	assert := assert.New(t)

	ds := config.NewDatabasesSetting()
	assert.NoError(ds.Add(mustDatabase(t, "existing", "h", 5432, "existing")))

	assert.NoError(ds.Merge(map[string]config.Database{
		"beta":  mustDatabase(t, "beta", "h", 5432, "beta"),
		"alpha": mustDatabase(t, "alpha", "h", 5432, "alpha"),
	}))
	assert.Equal([]string{"existing", "alpha", "beta"}, ds.Aliases())

	// duplicate rule is the same as Add's
	err := ds.Merge(map[string]config.Database{
		"alpha": mustDatabase(t, "alpha", "other", 5433, "alpha"),
	})
	assert.Error(err)
	assert.Contains(err.Error(), "alpha")

	// keyed alias must match the entry
	err = ds.Merge(map[string]config.Database{
		"renamed": mustDatabase(t, "original", "h", 5432, "db"),
	})
	assert.Error(err)
}

func TestDatabasesSettingClone(t *testing.T) {
	assert := assert.New(t)

	ds := config.NewDatabasesSetting()
	assert.NoError(ds.Add(mustDatabase(t, "db1", "h", 5432, "db1")))

	c := ds.Clone()
	assert.NoError(c.Add(mustDatabase(t, "db2", "h", 5432, "db2")))

	assert.Equal(1, ds.Len())
	assert.Equal(2, c.Len())
}
