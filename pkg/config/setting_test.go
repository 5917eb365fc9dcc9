package config_test

import (
	"testing"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"github.com/stretchr/testify/assert"
)

func TestDefaultSetting(t *testing.T) {
	assert := assert.New(t)

	s := config.DefaultPgBouncerSetting()

	assert.Equal("127.0.0.1", s.ListenAddr())
	assert.Equal(6432, s.ListenPort())
	assert.Equal(config.AuthTypeMd5, s.AuthType())
	assert.Equal(100, s.MaxClientConn())
	assert.Equal(20, s.DefaultPoolSize())
	assert.Equal(config.PoolModeSession, s.PoolMode())
	assert.Empty(s.PassthroughKeys())
}

func TestSetterBounds(t *testing.T) {
	assert := assert.New(t)

	for i, c := range []struct {
		name  string
		apply func(s *config.PgBouncerSetting) error
		err   bool
	}{
		{
			name:  "listen_port zero",
			apply: func(s *config.PgBouncerSetting) error { return s.SetListenPort(0) },
			err:   true,
		},
		{
			name:  "listen_port too big",
			apply: func(s *config.PgBouncerSetting) error { return s.SetListenPort(65536) },
			err:   true,
		},
		{
			name:  "listen_port upper edge",
			apply: func(s *config.PgBouncerSetting) error { return s.SetListenPort(65535) },
			err:   false,
		},
		{
			name:  "listen_addr empty",
			apply: func(s *config.PgBouncerSetting) error { return s.SetListenAddr("  ") },
			err:   true,
		},
		{
			name:  "max_client_conn zero",
			apply: func(s *config.PgBouncerSetting) error { return s.SetMaxClientConn(0) },
			err:   true,
		},
		{
			name:  "max_client_conn lower edge",
			apply: func(s *config.PgBouncerSetting) error { return s.SetMaxClientConn(1) },
			err:   false,
		},
		{
			name:  "default_pool_size negative",
			apply: func(s *config.PgBouncerSetting) error { return s.SetDefaultPoolSize(-1) },
			err:   true,
		},
		{
			name:  "pool_mode unknown",
			apply: func(s *config.PgBouncerSetting) error { return s.SetPoolMode(config.PoolMode("pipeline")) },
			err:   true,
		},
		{
			name:  "pool_mode transaction",
			apply: func(s *config.PgBouncerSetting) error { return s.SetPoolMode(config.PoolModeTransaction) },
			err:   false,
		},
		{
			name:  "auth_type unknown",
			apply: func(s *config.PgBouncerSetting) error { return s.SetAuthType(config.AuthType("gss")) },
			err:   true,
		},
		{
			name:  "query_timeout negative",
			apply: func(s *config.PgBouncerSetting) error { return s.SetQueryTimeout(config.IntPtr(-1)) },
			err:   true,
		},
		{
			name:  "query_timeout zero is valid",
			apply: func(s *config.PgBouncerSetting) error { return s.SetQueryTimeout(config.IntPtr(0)) },
			err:   false,
		},
		{
			name:  "server_lifetime max edge",
			apply: func(s *config.PgBouncerSetting) error { return s.SetServerLifetime(config.IntPtr(1<<31 - 1)) },
			err:   false,
		},
		{
			name:  "suspend_timeout overflow",
			apply: func(s *config.PgBouncerSetting) error { return s.SetSuspendTimeout(config.IntPtr(1 << 31)) },
			err:   true,
		},
		{
			name:  "clearing a timeout",
			apply: func(s *config.PgBouncerSetting) error { return s.SetClientIdleTimeout(nil) },
			err:   false,
		},
	} {
		s := config.DefaultPgBouncerSetting()
		err := c.apply(s)
		if c.err {
			assert.Error(err, "case %d: %s", i, c.name)
			assert.Equal(cfgerror.VALIDATION, cfgerror.ErrorCodeOf(err), "case %d: %s", i, c.name)
		} else {
			assert.NoError(err, "case %d: %s", i, c.name)
		}
	}
}

func TestFailedSetterKeepsValue(t *testing.T) {
	assert := assert.New(t)

	s := config.DefaultPgBouncerSetting()
	assert.NoError(s.SetListenPort(7000))
	assert.Error(s.SetListenPort(0))
	assert.Equal(7000, s.ListenPort())

	assert.NoError(s.SetQueryTimeout(config.IntPtr(30)))
	assert.Error(s.SetQueryTimeout(config.IntPtr(-5)))
	secs, ok := s.QueryTimeout()
	assert.True(ok)
	assert.Equal(30, secs)
}

func TestAuthHbaRule(t *testing.T) {
	assert := assert.New(t)

	s := config.DefaultPgBouncerSetting()
	assert.NoError(s.SetAuthType(config.AuthTypeHba))

	// cross-field rule is invisible to the single setter
	assert.Error(s.Validate())

	assert.NoError(s.SetAuthHbaFile(config.StrPtr("/etc/pgbouncer/hba.conf")))
	assert.NoError(s.Validate())

	// clearing the file while hba is active is refused
	assert.Error(s.SetAuthHbaFile(nil))
	path, ok := s.AuthHbaFile()
	assert.True(ok)
	assert.Equal("/etc/pgbouncer/hba.conf", path)
}

func TestPassthroughOrder(t *testing.T) {
	assert := assert.New(t)

	s := config.DefaultPgBouncerSetting()
	s.SetPassthrough("so_reuseport", "1")
	s.SetPassthrough("tcp_keepalive", "1")
	s.SetPassthrough("so_reuseport", "0")

	assert.Equal([]string{"so_reuseport", "tcp_keepalive"}, s.PassthroughKeys())
	v, ok := s.Passthrough("so_reuseport")
	assert.True(ok)
	assert.Equal("0", v)
}

func TestSettingClone(t *testing.T) {
	assert := assert.New(t)

	s := config.DefaultPgBouncerSetting()
	s.AddAdminUser("admin")
	assert.NoError(s.SetQueryTimeout(config.IntPtr(15)))
	s.SetPassthrough("extra", "x")

	c := s.Clone()
	c.AddAdminUser("intruder")
	assert.NoError(c.SetQueryTimeout(config.IntPtr(99)))
	c.SetPassthrough("extra", "y")

	assert.Equal([]string{"admin"}, s.AdminUsers())
	secs, _ := s.QueryTimeout()
	assert.Equal(15, secs)
	v, _ := s.Passthrough("extra")
	assert.Equal("x", v)
}

func TestSettingFieldTable(t *testing.T) {
	assert := assert.New(t)

	fields := config.SettingFields()
	assert.Equal("listen_addr", fields[0].Key)
	assert.Equal("pool_mode", fields[5].Key)
	assert.True(config.IsRecognizedKey("suspend_timeout"))
	assert.False(config.IsRecognizedKey("so_reuseport"))

	s := config.DefaultPgBouncerSetting()
	spec, ok := config.SettingField("listen_port")
	assert.True(ok)
	assert.Error(spec.Set(s, "not-a-number"))
	assert.NoError(spec.Set(s, "7654"))
	v, present := spec.Get(s)
	assert.True(present)
	assert.Equal("7654", v)
}
