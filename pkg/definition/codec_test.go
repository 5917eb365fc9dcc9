package definition_test

import (
	"path/filepath"
	"testing"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/definition"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `output_credentials = false
ignore_databases = ["template0", "template1"]
deployment_note = "managed by ops"

[pgbouncer]
listen_port = 6543
pool_mode = "transaction"
admin_users = ["admin", "ops"]
so_reuseport = "1"

[[databases]]
alias = "db1"
host = "localhost"
port = 5432
dbname = "db1"
user = "postgres"
password = "secret"

[[databases]]
alias = "analytics"
host = "10.0.0.2"
port = 5432
dbname = "analytics"

[databases.extra]
pool_size = "4"
`

func TestDecodeTOML(t *testing.T) {
	assert := assert.New(t)

	def, err := definition.Decode([]byte(sampleTOML), definition.FormatTOML)
	require.NoError(t, err)

	assert.Equal(6543, def.Setting.ListenPort())
	assert.Equal(config.PoolModeTransaction, def.Setting.PoolMode())
	assert.Equal([]string{"admin", "ops"}, def.Setting.AdminUsers())
	v, ok := def.Setting.Passthrough("so_reuseport")
	assert.True(ok)
	assert.Equal("1", v)

	assert.Equal([]string{"db1", "analytics"}, def.Databases.Aliases())
	db, ok := def.Databases.Get("analytics")
	require.True(t, ok)
	size, ok := db.Param("pool_size")
	assert.True(ok)
	assert.Equal("4", size)

	assert.False(def.OutputCredentials)
	assert.False(def.AllowNotExist)
	assert.Equal([]string{"template0", "template1"}, def.IgnoreDatabases)
	assert.Equal("managed by ops", def.Extra["deployment_note"])
}

func TestDecodeJSON(t *testing.T) {
	assert := assert.New(t)

	def, err := definition.Decode([]byte(`{
		"pgbouncer": {"listen_port": 7000, "max_client_conn": 500},
		"databases": [
			{"alias": "db1", "host": "localhost", "port": 5432, "dbname": "db1"}
		],
		"allow_not_exist": true
	}`), definition.FormatJSON)
	require.NoError(t, err)

	assert.Equal(7000, def.Setting.ListenPort())
	assert.Equal(500, def.Setting.MaxClientConn())
	assert.True(def.AllowNotExist)
	assert.Equal(1, def.Databases.Len())
}

func TestDecodeYAML(t *testing.T) {
	assert := assert.New(t)

	def, err := definition.Decode([]byte(`
pgbouncer:
  listen_port: 7000
  auth_type: scram-sha-256
databases:
  - alias: db1
    host: localhost
    port: 5432
    dbname: db1
    extra:
      pool_mode: statement
ignore_databases:
  - postgres
`), definition.FormatYAML)
	require.NoError(t, err)

	assert.Equal(7000, def.Setting.ListenPort())
	assert.Equal(config.AuthTypeScramSha256, def.Setting.AuthType())
	db, ok := def.Databases.Get("db1")
	require.True(t, ok)
	mode, ok := db.Param("pool_mode")
	assert.True(ok)
	assert.Equal("statement", mode)
	assert.Equal([]string{"postgres"}, def.IgnoreDatabases)
}

func TestDecodeShapeErrors(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		input  string
		needle string
	}{
		{`{"pgbouncer": []}`, `"pgbouncer"`},
		{`{"databases": {"db1": {}}}`, `"databases"`},
		{`{"databases": [{"host": "h", "port": 5432, "dbname": "d"}]}`, `"alias"`},
		{`{"databases": [{"alias": "db1", "port": 5432, "dbname": "d"}]}`, `"host"`},
		{`{"databases": [{"alias": "db1", "host": "h", "dbname": "d"}]}`, `"port"`},
		{`{"databases": [{"alias": "db1", "host": "h", "port": "x", "dbname": "d"}]}`, "port"},
		{`{"databases": [{"alias": "db1", "host": "h", "port": 5432}]}`, `"dbname"`},
		{`{"output_credentials": "yes"}`, `"output_credentials"`},
		{`{"ignore_databases": [1]}`, `"ignore_databases"`},
		{`{"pgbouncer": {"pool_mode": "pipeline"}}`, "pool_mode"},
	} {
		_, err := definition.Decode([]byte(c.input), definition.FormatJSON)
		assert.Error(err, "case %d", i)
		assert.Equal(cfgerror.DEFINITION, cfgerror.ErrorCodeOf(err), "case %d", i)
		assert.Contains(err.Error(), c.needle, "case %d", i)
	}
}

func TestDecodeDuplicateAlias(t *testing.T) {
	assert := assert.New(t)

	_, err := definition.Decode([]byte(`{"databases": [
		{"alias": "db1", "host": "a", "port": 5432, "dbname": "db1"},
		{"alias": "db1", "host": "b", "port": 5432, "dbname": "db1"}
	]}`), definition.FormatJSON)
	assert.Error(err)
	assert.Contains(err.Error(), `"db1"`)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	def, err := definition.Decode([]byte(sampleTOML), definition.FormatTOML)
	require.NoError(t, err)

	for _, format := range []definition.Format{definition.FormatTOML, definition.FormatJSON, definition.FormatYAML} {
		encoded, err := definition.Encode(def, format)
		require.NoError(t, err, "format %s", format)
		decoded, err := definition.Decode(encoded, format)
		require.NoError(t, err, "format %s", format)

		assert.Equal(6543, decoded.Setting.ListenPort(), "format %s", format)
		assert.Equal([]string{"admin", "ops"}, decoded.Setting.AdminUsers(), "format %s", format)
		v, _ := decoded.Setting.Passthrough("so_reuseport")
		assert.Equal("1", v, "format %s", format)
		assert.Equal([]string{"db1", "analytics"}, decoded.Databases.Aliases(), "format %s", format)
		assert.False(decoded.OutputCredentials, "format %s", format)
		assert.Equal([]string{"template0", "template1"}, decoded.IgnoreDatabases, "format %s", format)
		assert.Equal("managed by ops", decoded.Extra["deployment_note"], "format %s", format)
	}
}

func TestTOMLDatabaseEntriesSurviveWriteThenLoad(t *testing.T) {
	assert := assert.New(t)

	def := definition.Default()
	db, err := config.MakeDatabase("db1", "localhost", 5432, "db1")
	require.NoError(t, err)
	require.NoError(t, def.Databases.Add(db))

	encoded, err := definition.Encode(def, definition.FormatTOML)
	require.NoError(t, err)
	decoded, err := definition.Decode(encoded, definition.FormatTOML)
	require.NoError(t, err)

	assert.Equal([]string{"db1"}, decoded.Databases.Aliases())
	got, ok := decoded.Databases.Get("db1")
	require.True(t, ok)
	assert.Equal("localhost", got.Host())
	assert.Equal(5432, got.Port())
}

func TestDefinitionBuild(t *testing.T) {
	assert := assert.New(t)

	def, err := definition.Decode([]byte(sampleTOML), definition.FormatTOML)
	require.NoError(t, err)

	cfg, err := def.Build()
	require.NoError(t, err)
	assert.Equal(6543, cfg.Setting().ListenPort())
	assert.Equal(2, cfg.Databases().Len())
}

func TestFormatForPath(t *testing.T) {
	assert := assert.New(t)

	for _, c := range []struct {
		path   string
		format definition.Format
		err    bool
	}{
		{"def.toml", definition.FormatTOML, false},
		{"def.json", definition.FormatJSON, false},
		{"def.yaml", definition.FormatYAML, false},
		{"def.yml", definition.FormatYAML, false},
		{"def.ini", "", true},
	} {
		format, err := definition.FormatForPath(c.path)
		if c.err {
			assert.Error(err, c.path)
		} else {
			assert.NoError(err, c.path)
			assert.Equal(c.format, format, c.path)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "nope.toml")

	def, err := definition.LoadFile(path, true)
	require.NoError(t, err)
	assert.True(def.OutputCredentials)
	assert.Equal(0, def.Databases.Len())

	_, err = definition.LoadFile(path, false)
	assert.Error(err)
	assert.Equal(cfgerror.IO, cfgerror.ErrorCodeOf(err))
}
