package config

import (
	"strconv"
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

// FieldSpec ties a recognized [pgbouncer] key to its typed accessors.
// Get reports the canonical rendered value and whether the field is
// present; Set coerces raw ini text through the validating setter.
type FieldSpec struct {
	Key string
	Get func(s *PgBouncerSetting) (string, bool)
	Set func(s *PgBouncerSetting, raw string) error
}

// settingFields is the canonical render order of the [pgbouncer]
// section: required keys first, then lists, then optional paths, then
// optional timeouts. The writer and the diff engine both depend on
// this order being fixed.
var settingFields = []FieldSpec{
	{
		Key: "listen_addr",
		Get: func(s *PgBouncerSetting) (string, bool) { return s.listenAddr, true },
		Set: func(s *PgBouncerSetting, raw string) error { return s.SetListenAddr(raw) },
	},
	{
		Key: "listen_port",
		Get: func(s *PgBouncerSetting) (string, bool) { return strconv.Itoa(s.listenPort), true },
		Set: func(s *PgBouncerSetting, raw string) error {
			port, err := parseIntValue("listen_port", raw)
			if err != nil {
				return err
			}
			return s.SetListenPort(port)
		},
	},
	{
		Key: "auth_type",
		Get: func(s *PgBouncerSetting) (string, bool) { return string(s.authType), true },
		Set: func(s *PgBouncerSetting, raw string) error {
			authType, err := ParseAuthType(raw)
			if err != nil {
				return err
			}
			return s.SetAuthType(authType)
		},
	},
	{
		Key: "max_client_conn",
		Get: func(s *PgBouncerSetting) (string, bool) { return strconv.Itoa(s.maxClientConn), true },
		Set: func(s *PgBouncerSetting, raw string) error {
			n, err := parseIntValue("max_client_conn", raw)
			if err != nil {
				return err
			}
			return s.SetMaxClientConn(n)
		},
	},
	{
		Key: "default_pool_size",
		Get: func(s *PgBouncerSetting) (string, bool) { return strconv.Itoa(s.defaultPoolSize), true },
		Set: func(s *PgBouncerSetting, raw string) error {
			n, err := parseIntValue("default_pool_size", raw)
			if err != nil {
				return err
			}
			return s.SetDefaultPoolSize(n)
		},
	},
	{
		Key: "pool_mode",
		Get: func(s *PgBouncerSetting) (string, bool) { return string(s.poolMode), true },
		Set: func(s *PgBouncerSetting, raw string) error {
			mode, err := ParsePoolMode(raw)
			if err != nil {
				return err
			}
			return s.SetPoolMode(mode)
		},
	},
	{
		Key: "admin_users",
		Get: func(s *PgBouncerSetting) (string, bool) { return joinList(s.adminUsers) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.adminUsers = splitList(raw)
			return nil
		},
	},
	{
		Key: "stats_users",
		Get: func(s *PgBouncerSetting) (string, bool) { return joinList(s.statsUsers) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.statsUsers = splitList(raw)
			return nil
		},
	},
	{
		Key: "ignore_startup_parameters",
		Get: func(s *PgBouncerSetting) (string, bool) { return joinList(s.ignoreStartupParameters) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.ignoreStartupParameters = splitList(raw)
			return nil
		},
	},
	{
		Key: "logfile",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.logfile) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetLogfile(&raw)
			return nil
		},
	},
	{
		Key: "pidfile",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.pidfile) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetPidfile(&raw)
			return nil
		},
	},
	{
		Key: "auth_file",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.authFile) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetAuthFile(&raw)
			return nil
		},
	},
	{
		Key: "unix_socket_dir",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.unixSocketDir) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetUnixSocketDir(&raw)
			return nil
		},
	},
	{
		Key: "auth_hba_file",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.authHbaFile) },
		Set: func(s *PgBouncerSetting, raw string) error { return s.SetAuthHbaFile(&raw) },
	},
	{
		Key: "auth_ident_file",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.authIdentFile) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetAuthIdentFile(&raw)
			return nil
		},
	},
	{
		Key: "resolv_conf",
		Get: func(s *PgBouncerSetting) (string, bool) { return optString(s.resolvConf) },
		Set: func(s *PgBouncerSetting, raw string) error {
			s.SetResolvConf(&raw)
			return nil
		},
	},
	secondsField("server_check_delay", func(s *PgBouncerSetting) **int { return &s.serverCheckDelay }),
	secondsField("server_idle_timeout", func(s *PgBouncerSetting) **int { return &s.serverIdleTimeout }),
	secondsField("server_lifetime", func(s *PgBouncerSetting) **int { return &s.serverLifetime }),
	secondsField("server_connect_timeout", func(s *PgBouncerSetting) **int { return &s.serverConnectTimeout }),
	secondsField("server_login_retry", func(s *PgBouncerSetting) **int { return &s.serverLoginRetry }),
	secondsField("client_login_timeout", func(s *PgBouncerSetting) **int { return &s.clientLoginTimeout }),
	secondsField("autodb_idle_timeout", func(s *PgBouncerSetting) **int { return &s.autodbIdleTimeout }),
	secondsField("dns_max_ttl", func(s *PgBouncerSetting) **int { return &s.dnsMaxTTL }),
	secondsField("dns_nxdomain_ttl", func(s *PgBouncerSetting) **int { return &s.dnsNxdomainTTL }),
	secondsField("query_timeout", func(s *PgBouncerSetting) **int { return &s.queryTimeout }),
	secondsField("query_wait_timeout", func(s *PgBouncerSetting) **int { return &s.queryWaitTimeout }),
	secondsField("cancel_wait_timeout", func(s *PgBouncerSetting) **int { return &s.cancelWaitTimeout }),
	secondsField("client_idle_timeout", func(s *PgBouncerSetting) **int { return &s.clientIdleTimeout }),
	secondsField("idle_transaction_timeout", func(s *PgBouncerSetting) **int { return &s.idleTransactionTimeout }),
	secondsField("suspend_timeout", func(s *PgBouncerSetting) **int { return &s.suspendTimeout }),
}

var settingFieldIndex = func() map[string]int {
	index := make(map[string]int, len(settingFields))
	for i, spec := range settingFields {
		index[spec.Key] = i
	}
	return index
}()

// SettingFields returns the recognized-key table in canonical render
// order.
func SettingFields() []FieldSpec {
	return append([]FieldSpec(nil), settingFields...)
}

func SettingField(key string) (FieldSpec, bool) {
	i, ok := settingFieldIndex[key]
	if !ok {
		return FieldSpec{}, false
	}
	return settingFields[i], true
}

func IsRecognizedKey(key string) bool {
	_, ok := settingFieldIndex[key]
	return ok
}

func secondsField(key string, field func(s *PgBouncerSetting) **int) FieldSpec {
	return FieldSpec{
		Key: key,
		Get: func(s *PgBouncerSetting) (string, bool) {
			p := *field(s)
			if p == nil {
				return "", false
			}
			return strconv.Itoa(*p), true
		},
		Set: func(s *PgBouncerSetting, raw string) error {
			secs, err := parseIntValue(key, raw)
			if err != nil {
				return err
			}
			return s.setSeconds(field(s), key, &secs)
		},
	}
}

func parseIntValue(key, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, cfgerror.Newf(cfgerror.VALIDATION, "%s: %q is not a number", key, raw)
	}
	return n, nil
}

func joinList(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return strings.Join(values, ","), true
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
