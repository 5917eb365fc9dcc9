package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
	"gopkg.in/yaml.v2"
)

const (
	keyPgBouncer         = "pgbouncer"
	keyDatabases         = "databases"
	keyIgnoreDatabases   = "ignore_databases"
	keyOutputCredentials = "output_credentials"
	keyAllowNotExist     = "allow_not_exist"
)

// integer- and list-typed recognized keys; everything else renders as a
// plain string in the structured tree.
var intSettingKeys = func() map[string]bool {
	keys := map[string]bool{
		"listen_port":       true,
		"max_client_conn":   true,
		"default_pool_size": true,
	}
	for _, field := range config.SettingFields() {
		if strings.HasSuffix(field.Key, "_timeout") ||
			strings.HasSuffix(field.Key, "_delay") ||
			strings.HasSuffix(field.Key, "_ttl") ||
			strings.HasSuffix(field.Key, "_retry") ||
			field.Key == "server_lifetime" {
			keys[field.Key] = true
		}
	}
	return keys
}()

var listSettingKeys = map[string]bool{
	"admin_users":               true,
	"stats_users":               true,
	"ignore_startup_parameters": true,
}

// Decode parses a structured definition tree. Required keys are checked
// strictly, unknown top-level keys are kept opaquely in Extra.
func Decode(data []byte, format Format) (*Definition, error) {
	tree, err := parseTree(data, format)
	if err != nil {
		return nil, err
	}

	def := Default()

	if raw, ok := tree[keyPgBouncer]; ok {
		section, ok := raw.(map[string]interface{})
		if !ok {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: expected an object, got %T", keyPgBouncer, raw)
		}
		if err := decodeSetting(def.Setting, section); err != nil {
			return nil, err
		}
	}

	if raw, ok := tree[keyDatabases]; ok {
		entries, ok := raw.([]interface{})
		if !ok {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: expected an array of objects, got %T", keyDatabases, raw)
		}
		for i, entry := range entries {
			db, err := decodeDatabase(i, entry)
			if err != nil {
				return nil, err
			}
			if err := def.Databases.Add(db); err != nil {
				return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: %s", keyDatabases, err)
			}
		}
	}

	if raw, ok := tree[keyIgnoreDatabases]; ok {
		aliases, err := stringList(keyIgnoreDatabases, raw)
		if err != nil {
			return nil, err
		}
		def.IgnoreDatabases = aliases
	}

	if raw, ok := tree[keyOutputCredentials]; ok {
		v, ok := raw.(bool)
		if !ok {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: expected a boolean, got %T", keyOutputCredentials, raw)
		}
		def.OutputCredentials = v
	}

	if raw, ok := tree[keyAllowNotExist]; ok {
		v, ok := raw.(bool)
		if !ok {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: expected a boolean, got %T", keyAllowNotExist, raw)
		}
		def.AllowNotExist = v
	}

	for key, value := range tree {
		switch key {
		case keyPgBouncer, keyDatabases, keyIgnoreDatabases, keyOutputCredentials, keyAllowNotExist:
		default:
			if def.Extra == nil {
				def.Extra = map[string]interface{}{}
			}
			def.Extra[key] = value
		}
	}

	return def, nil
}

// Encode serializes the definition back to a structured tree. Key order
// is stable where the format keeps one: both encoders sort object keys,
// and the databases array keeps definition order.
func Encode(def *Definition, format Format) ([]byte, error) {
	tree := map[string]interface{}{
		keyPgBouncer:         settingTree(def.Setting),
		keyDatabases:         databasesTree(def.Databases),
		keyIgnoreDatabases:   append([]string{}, def.IgnoreDatabases...),
		keyOutputCredentials: def.OutputCredentials,
		keyAllowNotExist:     def.AllowNotExist,
	}
	for key, value := range def.Extra {
		tree[key] = value
	}

	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(tree); err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "encode toml: %s", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		out, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "encode json: %s", err)
		}
		return append(out, '\n'), nil
	case FormatYAML:
		out, err := yaml.Marshal(tree)
		if err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "encode yaml: %s", err)
		}
		return out, nil
	}
	return nil, cfgerror.Newf(cfgerror.DEFINITION, "unknown definition format %q", format)
}

func parseTree(data []byte, format Format) (map[string]interface{}, error) {
	switch format {
	case FormatTOML:
		var tree map[string]interface{}
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "decode toml: %s", err)
		}
		return normalizeTOML(tree).(map[string]interface{}), nil
	case FormatJSON:
		var tree map[string]interface{}
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "decode json: %s", err)
		}
		return tree, nil
	case FormatYAML:
		var raw map[interface{}]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "decode yaml: %s", err)
		}
		tree, ok := normalizeYAML(raw).(map[string]interface{})
		if !ok {
			return nil, cfgerror.New(cfgerror.DEFINITION, "decode yaml: top level is not an object")
		}
		return tree, nil
	}
	return nil, cfgerror.Newf(cfgerror.DEFINITION, "unknown definition format %q", format)
}

// BurntSushi/toml decodes [[array-of-tables]] as []map[string]interface{};
// rebuild those as []interface{} so the shape checks see one slice type
// no matter which format produced the tree.
func normalizeTOML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeTOML(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeTOML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeTOML(item)
		}
		return out
	default:
		return v
	}
}

// yaml.v2 decodes objects as map[interface{}]interface{}; rebuild the
// tree with string keys so the shape checks stay format-agnostic.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[fmt.Sprintf("%v", key)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}

func decodeSetting(setting *config.PgBouncerSetting, section map[string]interface{}) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, err := scalarString(keyPgBouncer+"."+key, section[key])
		if err != nil {
			return err
		}
		if spec, ok := config.SettingField(key); ok {
			if err := spec.Set(setting, value); err != nil {
				return cfgerror.Newf(cfgerror.DEFINITION, "%q.%q: %s", keyPgBouncer, key, err)
			}
		} else {
			setting.SetPassthrough(key, value)
		}
	}
	return nil
}

func decodeDatabase(index int, raw interface{}) (config.Database, error) {
	entry, ok := raw.(map[string]interface{})
	if !ok {
		return config.Database{}, cfgerror.Newf(cfgerror.DEFINITION, "%q[%d]: expected an object, got %T", keyDatabases, index, raw)
	}

	alias, err := requiredString(index, entry, "alias")
	if err != nil {
		return config.Database{}, err
	}
	host, err := requiredString(index, entry, "host")
	if err != nil {
		return config.Database{}, err
	}
	dbName, err := requiredString(index, entry, "dbname")
	if err != nil {
		return config.Database{}, err
	}
	rawPort, ok := entry["port"]
	if !ok {
		return config.Database{}, cfgerror.Newf(cfgerror.DEFINITION, "%q[%d] (%s): missing required key %q", keyDatabases, index, alias, "port")
	}
	port, err := scalarInt(fmt.Sprintf("%s[%d].port", keyDatabases, index), rawPort)
	if err != nil {
		return config.Database{}, err
	}

	db, err := config.MakeDatabase(alias, host, port, dbName)
	if err != nil {
		return config.Database{}, cfgerror.Newf(cfgerror.DEFINITION, "%q[%d]: %s", keyDatabases, index, err)
	}

	if raw, ok := entry["user"]; ok {
		user, err := scalarString(fmt.Sprintf("%s[%d].user", keyDatabases, index), raw)
		if err != nil {
			return config.Database{}, err
		}
		db.SetUser(user)
	}
	if raw, ok := entry["password"]; ok {
		password, err := scalarString(fmt.Sprintf("%s[%d].password", keyDatabases, index), raw)
		if err != nil {
			return config.Database{}, err
		}
		db.SetPassword(password)
	}
	if raw, ok := entry["extra"]; ok {
		extra, ok := raw.(map[string]interface{})
		if !ok {
			return config.Database{}, cfgerror.Newf(cfgerror.DEFINITION, "%q[%d].extra: expected an object, got %T", keyDatabases, index, raw)
		}
		keys := make([]string, 0, len(extra))
		for key := range extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value, err := scalarString(fmt.Sprintf("%s[%d].extra.%s", keyDatabases, index, key), extra[key])
			if err != nil {
				return config.Database{}, err
			}
			db.SetParam(key, value)
		}
	}

	return db, nil
}

func settingTree(setting *config.PgBouncerSetting) map[string]interface{} {
	tree := map[string]interface{}{}
	for _, field := range config.SettingFields() {
		value, ok := field.Get(setting)
		if !ok {
			continue
		}
		switch {
		case intSettingKeys[field.Key]:
			n, err := strconv.Atoi(value)
			if err != nil {
				tree[field.Key] = value
				continue
			}
			tree[field.Key] = n
		case listSettingKeys[field.Key]:
			var items []string
			for _, item := range strings.Split(value, ",") {
				items = append(items, strings.TrimSpace(item))
			}
			tree[field.Key] = items
		default:
			tree[field.Key] = value
		}
	}
	for _, key := range setting.PassthroughKeys() {
		if value, ok := setting.Passthrough(key); ok {
			tree[key] = value
		}
	}
	return tree
}

func databasesTree(databases *config.DatabasesSetting) []map[string]interface{} {
	entries := make([]map[string]interface{}, 0, databases.Len())
	for _, alias := range databases.Aliases() {
		db, _ := databases.Get(alias)
		entry := map[string]interface{}{
			"alias":  db.Alias(),
			"host":   db.Host(),
			"port":   db.Port(),
			"dbname": db.DBName(),
		}
		if user, ok := db.User(); ok {
			entry["user"] = user
		}
		if password, ok := db.Password(); ok {
			entry["password"] = password
		}
		if params := db.Params(); len(params) > 0 {
			extra := make(map[string]string, len(params))
			for _, p := range params {
				extra[p.Key] = p.Value
			}
			entry["extra"] = extra
		}
		entries = append(entries, entry)
	}
	return entries
}

func requiredString(index int, entry map[string]interface{}, key string) (string, error) {
	raw, ok := entry[key]
	if !ok {
		return "", cfgerror.Newf(cfgerror.DEFINITION, "%q[%d]: missing required key %q", keyDatabases, index, key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", cfgerror.Newf(cfgerror.DEFINITION, "%q[%d].%s: expected a non-empty string, got %v", keyDatabases, index, key, raw)
	}
	return value, nil
}

func scalarString(path string, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []interface{}:
		items := make([]string, 0, len(v))
		for i, item := range v {
			s, err := scalarString(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return strings.Join(items, ","), nil
	}
	return "", cfgerror.Newf(cfgerror.DEFINITION, "%s: expected a scalar or string array, got %T", path, raw)
}

func scalarInt(path string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int64(v)) {
			return int(v), nil
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}
	return 0, cfgerror.Newf(cfgerror.DEFINITION, "%s: expected an integer, got %v", path, raw)
}

func stringList(key string, raw interface{}) ([]string, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q: expected an array of strings, got %T", key, raw)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, cfgerror.Newf(cfgerror.DEFINITION, "%q[%d]: expected a string, got %T", key, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
