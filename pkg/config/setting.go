package config

import (
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

type PoolMode string

const (
	PoolModeSession     = PoolMode("session")
	PoolModeTransaction = PoolMode("transaction")
	PoolModeStatement   = PoolMode("statement")
)

func ParsePoolMode(value string) (PoolMode, error) {
	switch strings.ToLower(value) {
	case "session":
		return PoolModeSession, nil
	case "transaction":
		return PoolModeTransaction, nil
	case "statement":
		return PoolModeStatement, nil
	default:
		return "", cfgerror.Newf(cfgerror.VALIDATION, "pool_mode: unsupported value %q, expected session, transaction or statement", value)
	}
}

type AuthType string

const (
	AuthTypeTrust       = AuthType("trust")
	AuthTypePlain       = AuthType("plain")
	AuthTypeMd5         = AuthType("md5")
	AuthTypeScramSha256 = AuthType("scram-sha-256")
	AuthTypeCert        = AuthType("cert")
	AuthTypeHba         = AuthType("hba")
	AuthTypePam         = AuthType("pam")
	AuthTypeAny         = AuthType("any")
)

func ParseAuthType(value string) (AuthType, error) {
	switch strings.ToLower(value) {
	case "trust":
		return AuthTypeTrust, nil
	case "plain":
		return AuthTypePlain, nil
	case "md5":
		return AuthTypeMd5, nil
	case "scram-sha-256", "scram_sha_256", "scram-sha256", "scram_sha256", "scramsha256", "sha256":
		return AuthTypeScramSha256, nil
	case "cert":
		return AuthTypeCert, nil
	case "hba":
		return AuthTypeHba, nil
	case "pam":
		return AuthTypePam, nil
	case "any":
		return AuthTypeAny, nil
	default:
		return "", cfgerror.Newf(cfgerror.VALIDATION, "auth_type: unsupported value %q", value)
	}
}

const (
	minPort = 1
	maxPort = 65535

	minConn = 1
	maxConn = 65535

	maxSeconds = 1<<31 - 1
)

// PgBouncerSetting is the typed model of the [pgbouncer] section.
// Recognized keys are validated by their setters; anything else the
// parser encounters lands in the passthrough map untouched so an
// operator-supplied directive is never dropped on round-trip.
type PgBouncerSetting struct {
	listenAddr      string
	listenPort      int
	authType        AuthType
	maxClientConn   int
	defaultPoolSize int
	poolMode        PoolMode

	adminUsers              []string
	statsUsers              []string
	ignoreStartupParameters []string

	logfile       *string
	pidfile       *string
	authFile      *string
	unixSocketDir *string
	authHbaFile   *string
	authIdentFile *string
	resolvConf    *string

	serverCheckDelay       *int
	serverIdleTimeout      *int
	serverLifetime         *int
	serverConnectTimeout   *int
	serverLoginRetry       *int
	clientLoginTimeout     *int
	autodbIdleTimeout      *int
	dnsMaxTTL              *int
	dnsNxdomainTTL         *int
	queryTimeout           *int
	queryWaitTimeout       *int
	cancelWaitTimeout      *int
	clientIdleTimeout      *int
	idleTransactionTimeout *int
	suspendTimeout         *int

	passthrough      map[string]string
	passthroughOrder []string
}

// DefaultPgBouncerSetting returns a setting populated with the
// documented PgBouncer defaults for every required key.
func DefaultPgBouncerSetting() *PgBouncerSetting {
	return &PgBouncerSetting{
		listenAddr:      "127.0.0.1",
		listenPort:      6432,
		authType:        AuthTypeMd5,
		maxClientConn:   100,
		defaultPoolSize: 20,
		poolMode:        PoolModeSession,
		passthrough:     map[string]string{},
	}
}

func (s *PgBouncerSetting) ListenAddr() string   { return s.listenAddr }
func (s *PgBouncerSetting) ListenPort() int      { return s.listenPort }
func (s *PgBouncerSetting) AuthType() AuthType   { return s.authType }
func (s *PgBouncerSetting) MaxClientConn() int   { return s.maxClientConn }
func (s *PgBouncerSetting) DefaultPoolSize() int { return s.defaultPoolSize }
func (s *PgBouncerSetting) PoolMode() PoolMode   { return s.poolMode }

func (s *PgBouncerSetting) AdminUsers() []string { return append([]string(nil), s.adminUsers...) }
func (s *PgBouncerSetting) StatsUsers() []string { return append([]string(nil), s.statsUsers...) }
func (s *PgBouncerSetting) IgnoreStartupParameters() []string {
	return append([]string(nil), s.ignoreStartupParameters...)
}

func (s *PgBouncerSetting) SetListenAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return cfgerror.New(cfgerror.VALIDATION, "listen_addr: must not be empty")
	}
	s.listenAddr = addr
	return nil
}

func (s *PgBouncerSetting) SetListenPort(port int) error {
	if port < minPort || port > maxPort {
		return cfgerror.Newf(cfgerror.VALIDATION, "listen_port: %d is out of range %d-%d", port, minPort, maxPort)
	}
	s.listenPort = port
	return nil
}

func (s *PgBouncerSetting) SetAuthType(authType AuthType) error {
	if _, err := ParseAuthType(string(authType)); err != nil {
		return err
	}
	s.authType = authType
	return nil
}

func (s *PgBouncerSetting) SetMaxClientConn(n int) error {
	if n < minConn || n > maxConn {
		return cfgerror.Newf(cfgerror.VALIDATION, "max_client_conn: %d is out of range %d-%d", n, minConn, maxConn)
	}
	s.maxClientConn = n
	return nil
}

func (s *PgBouncerSetting) SetDefaultPoolSize(n int) error {
	if n < minConn || n > maxConn {
		return cfgerror.Newf(cfgerror.VALIDATION, "default_pool_size: %d is out of range %d-%d", n, minConn, maxConn)
	}
	s.defaultPoolSize = n
	return nil
}

func (s *PgBouncerSetting) SetPoolMode(mode PoolMode) error {
	if _, err := ParsePoolMode(string(mode)); err != nil {
		return err
	}
	s.poolMode = mode
	return nil
}

func (s *PgBouncerSetting) AddAdminUser(user string) {
	s.adminUsers = append(s.adminUsers, user)
}

func (s *PgBouncerSetting) AddStatsUser(user string) {
	s.statsUsers = append(s.statsUsers, user)
}

func (s *PgBouncerSetting) AddIgnoreStartupParameter(param string) {
	s.ignoreStartupParameters = append(s.ignoreStartupParameters, param)
}

func (s *PgBouncerSetting) Logfile() (string, bool)       { return optString(s.logfile) }
func (s *PgBouncerSetting) Pidfile() (string, bool)       { return optString(s.pidfile) }
func (s *PgBouncerSetting) AuthFile() (string, bool)      { return optString(s.authFile) }
func (s *PgBouncerSetting) UnixSocketDir() (string, bool) { return optString(s.unixSocketDir) }
func (s *PgBouncerSetting) AuthHbaFile() (string, bool)   { return optString(s.authHbaFile) }
func (s *PgBouncerSetting) AuthIdentFile() (string, bool) { return optString(s.authIdentFile) }
func (s *PgBouncerSetting) ResolvConf() (string, bool)    { return optString(s.resolvConf) }

func (s *PgBouncerSetting) SetLogfile(path *string)       { s.logfile = cloneStringPtr(path) }
func (s *PgBouncerSetting) SetPidfile(path *string)       { s.pidfile = cloneStringPtr(path) }
func (s *PgBouncerSetting) SetAuthFile(path *string)      { s.authFile = cloneStringPtr(path) }
func (s *PgBouncerSetting) SetUnixSocketDir(path *string) { s.unixSocketDir = cloneStringPtr(path) }
func (s *PgBouncerSetting) SetAuthIdentFile(path *string) { s.authIdentFile = cloneStringPtr(path) }
func (s *PgBouncerSetting) SetResolvConf(path *string)    { s.resolvConf = cloneStringPtr(path) }

// SetAuthHbaFile refuses to clear the hba file while auth_type is hba,
// same rule the builder re-checks before a config can exist.
func (s *PgBouncerSetting) SetAuthHbaFile(path *string) error {
	if s.authType == AuthTypeHba && path == nil {
		return cfgerror.New(cfgerror.VALIDATION, "auth_hba_file: required while auth_type is hba")
	}
	s.authHbaFile = cloneStringPtr(path)
	return nil
}

func (s *PgBouncerSetting) ServerCheckDelay() (int, bool)     { return optInt(s.serverCheckDelay) }
func (s *PgBouncerSetting) ServerIdleTimeout() (int, bool)    { return optInt(s.serverIdleTimeout) }
func (s *PgBouncerSetting) ServerLifetime() (int, bool)       { return optInt(s.serverLifetime) }
func (s *PgBouncerSetting) ServerConnectTimeout() (int, bool) { return optInt(s.serverConnectTimeout) }
func (s *PgBouncerSetting) ServerLoginRetry() (int, bool)     { return optInt(s.serverLoginRetry) }
func (s *PgBouncerSetting) ClientLoginTimeout() (int, bool)   { return optInt(s.clientLoginTimeout) }
func (s *PgBouncerSetting) AutodbIdleTimeout() (int, bool)    { return optInt(s.autodbIdleTimeout) }
func (s *PgBouncerSetting) DNSMaxTTL() (int, bool)            { return optInt(s.dnsMaxTTL) }
func (s *PgBouncerSetting) DNSNxdomainTTL() (int, bool)       { return optInt(s.dnsNxdomainTTL) }
func (s *PgBouncerSetting) QueryTimeout() (int, bool)         { return optInt(s.queryTimeout) }
func (s *PgBouncerSetting) QueryWaitTimeout() (int, bool)     { return optInt(s.queryWaitTimeout) }
func (s *PgBouncerSetting) CancelWaitTimeout() (int, bool)    { return optInt(s.cancelWaitTimeout) }
func (s *PgBouncerSetting) ClientIdleTimeout() (int, bool)    { return optInt(s.clientIdleTimeout) }
func (s *PgBouncerSetting) IdleTransactionTimeout() (int, bool) {
	return optInt(s.idleTransactionTimeout)
}
func (s *PgBouncerSetting) SuspendTimeout() (int, bool) { return optInt(s.suspendTimeout) }

func (s *PgBouncerSetting) SetServerCheckDelay(secs *int) error {
	return s.setSeconds(&s.serverCheckDelay, "server_check_delay", secs)
}
func (s *PgBouncerSetting) SetServerIdleTimeout(secs *int) error {
	return s.setSeconds(&s.serverIdleTimeout, "server_idle_timeout", secs)
}
func (s *PgBouncerSetting) SetServerLifetime(secs *int) error {
	return s.setSeconds(&s.serverLifetime, "server_lifetime", secs)
}
func (s *PgBouncerSetting) SetServerConnectTimeout(secs *int) error {
	return s.setSeconds(&s.serverConnectTimeout, "server_connect_timeout", secs)
}
func (s *PgBouncerSetting) SetServerLoginRetry(secs *int) error {
	return s.setSeconds(&s.serverLoginRetry, "server_login_retry", secs)
}
func (s *PgBouncerSetting) SetClientLoginTimeout(secs *int) error {
	return s.setSeconds(&s.clientLoginTimeout, "client_login_timeout", secs)
}
func (s *PgBouncerSetting) SetAutodbIdleTimeout(secs *int) error {
	return s.setSeconds(&s.autodbIdleTimeout, "autodb_idle_timeout", secs)
}
func (s *PgBouncerSetting) SetDNSMaxTTL(secs *int) error {
	return s.setSeconds(&s.dnsMaxTTL, "dns_max_ttl", secs)
}
func (s *PgBouncerSetting) SetDNSNxdomainTTL(secs *int) error {
	return s.setSeconds(&s.dnsNxdomainTTL, "dns_nxdomain_ttl", secs)
}
func (s *PgBouncerSetting) SetQueryTimeout(secs *int) error {
	return s.setSeconds(&s.queryTimeout, "query_timeout", secs)
}
func (s *PgBouncerSetting) SetQueryWaitTimeout(secs *int) error {
	return s.setSeconds(&s.queryWaitTimeout, "query_wait_timeout", secs)
}
func (s *PgBouncerSetting) SetCancelWaitTimeout(secs *int) error {
	return s.setSeconds(&s.cancelWaitTimeout, "cancel_wait_timeout", secs)
}
func (s *PgBouncerSetting) SetClientIdleTimeout(secs *int) error {
	return s.setSeconds(&s.clientIdleTimeout, "client_idle_timeout", secs)
}
func (s *PgBouncerSetting) SetIdleTransactionTimeout(secs *int) error {
	return s.setSeconds(&s.idleTransactionTimeout, "idle_transaction_timeout", secs)
}
func (s *PgBouncerSetting) SetSuspendTimeout(secs *int) error {
	return s.setSeconds(&s.suspendTimeout, "suspend_timeout", secs)
}

func (s *PgBouncerSetting) setSeconds(field **int, key string, secs *int) error {
	if secs != nil && (*secs < 0 || *secs > maxSeconds) {
		return cfgerror.Newf(cfgerror.VALIDATION, "%s: %d is out of range 0-%d", key, *secs, maxSeconds)
	}
	*field = cloneIntPtr(secs)
	return nil
}

// SetPassthrough stores an unrecognized key verbatim. First-seen order
// is kept for rendering; a repeated key keeps its slot and takes the
// new value.
func (s *PgBouncerSetting) SetPassthrough(key, raw string) {
	if s.passthrough == nil {
		s.passthrough = map[string]string{}
	}
	if _, ok := s.passthrough[key]; !ok {
		s.passthroughOrder = append(s.passthroughOrder, key)
	}
	s.passthrough[key] = raw
}

func (s *PgBouncerSetting) Passthrough(key string) (string, bool) {
	v, ok := s.passthrough[key]
	return v, ok
}

func (s *PgBouncerSetting) PassthroughKeys() []string {
	return append([]string(nil), s.passthroughOrder...)
}

// Validate re-checks the cross-field invariants that individual
// setters cannot see in isolation.
func (s *PgBouncerSetting) Validate() error {
	if s.authType == AuthTypeHba && s.authHbaFile == nil {
		return cfgerror.New(cfgerror.VALIDATION, "auth_hba_file: required while auth_type is hba")
	}
	return nil
}

func (s *PgBouncerSetting) Clone() *PgBouncerSetting {
	if s == nil {
		return nil
	}
	c := *s
	c.adminUsers = append([]string(nil), s.adminUsers...)
	c.statsUsers = append([]string(nil), s.statsUsers...)
	c.ignoreStartupParameters = append([]string(nil), s.ignoreStartupParameters...)

	c.logfile = cloneStringPtr(s.logfile)
	c.pidfile = cloneStringPtr(s.pidfile)
	c.authFile = cloneStringPtr(s.authFile)
	c.unixSocketDir = cloneStringPtr(s.unixSocketDir)
	c.authHbaFile = cloneStringPtr(s.authHbaFile)
	c.authIdentFile = cloneStringPtr(s.authIdentFile)
	c.resolvConf = cloneStringPtr(s.resolvConf)

	c.serverCheckDelay = cloneIntPtr(s.serverCheckDelay)
	c.serverIdleTimeout = cloneIntPtr(s.serverIdleTimeout)
	c.serverLifetime = cloneIntPtr(s.serverLifetime)
	c.serverConnectTimeout = cloneIntPtr(s.serverConnectTimeout)
	c.serverLoginRetry = cloneIntPtr(s.serverLoginRetry)
	c.clientLoginTimeout = cloneIntPtr(s.clientLoginTimeout)
	c.autodbIdleTimeout = cloneIntPtr(s.autodbIdleTimeout)
	c.dnsMaxTTL = cloneIntPtr(s.dnsMaxTTL)
	c.dnsNxdomainTTL = cloneIntPtr(s.dnsNxdomainTTL)
	c.queryTimeout = cloneIntPtr(s.queryTimeout)
	c.queryWaitTimeout = cloneIntPtr(s.queryWaitTimeout)
	c.cancelWaitTimeout = cloneIntPtr(s.cancelWaitTimeout)
	c.clientIdleTimeout = cloneIntPtr(s.clientIdleTimeout)
	c.idleTransactionTimeout = cloneIntPtr(s.idleTransactionTimeout)
	c.suspendTimeout = cloneIntPtr(s.suspendTimeout)

	c.passthrough = make(map[string]string, len(s.passthrough))
	for k, v := range s.passthrough {
		c.passthrough[k] = v
	}
	c.passthroughOrder = append([]string(nil), s.passthroughOrder...)

	return &c
}

func optString(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func optInt(p *int) (int, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func StrPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }
