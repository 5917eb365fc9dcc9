package ini

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/config"
	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

const (
	sectionPgBouncer = "pgbouncer"
	sectionDatabases = "databases"
)

// Parse reads pgbouncer.ini text into a validated PgBouncerConfig.
//
// Blank lines and ;/# comments are skipped. A missing [pgbouncer]
// section falls back to the documented defaults and a missing
// [databases] section to an empty one, so a partial file still parses.
// Sections other than the two modeled ones are skipped wholesale.
// A recognized key appearing twice keeps its last occurrence, matching
// what PgBouncer itself does on reload; a duplicate database alias is
// an error, never an overwrite.
func Parse(data []byte) (*config.PgBouncerConfig, error) {
	setting := config.DefaultPgBouncerSetting()
	databases := config.NewDatabasesSetting()

	section := ""
	lineno := 0

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || isComment(line) {
			continue
		}

		if name, ok := sectionHeader(line); ok {
			section = name
			continue
		}

		if section != sectionPgBouncer && section != sectionDatabases && section != "" {
			// unknown section, skipped wholesale
			continue
		}

		key, value, err := splitKeyValue(line)
		if err != nil {
			return nil, cfgerror.Newf(cfgerror.PARSE, "line %d: %s", lineno, err)
		}

		switch section {
		case sectionPgBouncer:
			if spec, ok := config.SettingField(key); ok {
				if err := spec.Set(setting, value); err != nil {
					return nil, cfgerror.Newf(cfgerror.PARSE, "line %d [pgbouncer]: %s", lineno, err)
				}
			} else {
				setting.SetPassthrough(key, value)
			}
		case sectionDatabases:
			db, err := parseDatabaseEntry(key, value)
			if err != nil {
				return nil, cfgerror.Newf(cfgerror.PARSE, "line %d [databases]: %s", lineno, err)
			}
			if err := databases.Add(db); err != nil {
				return nil, cfgerror.Newf(cfgerror.PARSE, "line %d [databases]: %s", lineno, err)
			}
		case "":
			return nil, cfgerror.Newf(cfgerror.PARSE, "line %d: %q appears before any section header", lineno, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, cfgerror.Newf(cfgerror.PARSE, "scan input: %s", err)
	}

	builder := config.NewBuilder()
	if err := builder.SetPgBouncerSetting(setting); err != nil {
		return nil, err
	}
	if err := builder.SetDatabasesSetting(databases); err != nil {
		return nil, err
	}
	return builder.Build()
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";")
}

func sectionHeader(line string) (string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", false
	}
	return strings.TrimSpace(line[1 : len(line)-1]), true
}

func splitKeyValue(line string) (string, string, error) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", "", fmt.Errorf("expected key = value, got %q", line)
	}
	key := strings.TrimSpace(line[:eq])
	value := strings.TrimSpace(line[eq+1:])
	if key == "" {
		return "", "", fmt.Errorf("empty key in %q", line)
	}
	return key, value, nil
}

// parseDatabaseEntry turns "alias = host=h port=p dbname=d ..." body
// text into a Database. Attrs are space- or semicolon-delimited
// attr=value tokens; values may be single- or double-quoted.
func parseDatabaseEntry(alias, body string) (config.Database, error) {
	attrs, err := scanAttrs(body)
	if err != nil {
		return config.Database{}, fmt.Errorf("entry %q: %w", alias, err)
	}

	var host, dbName, portRaw string
	var user, password *string
	var extra []config.Param

	for _, a := range attrs {
		switch a.key {
		case "host":
			host = a.value
		case "port":
			portRaw = a.value
		case "dbname":
			dbName = a.value
		case "user":
			v := a.value
			user = &v
		case "password":
			v := a.value
			password = &v
		default:
			extra = append(extra, config.Param{Key: a.key, Value: a.value})
		}
	}

	if host == "" {
		return config.Database{}, fmt.Errorf("entry %q: missing attribute \"host\"", alias)
	}
	if portRaw == "" {
		return config.Database{}, fmt.Errorf("entry %q: missing attribute \"port\"", alias)
	}
	if dbName == "" {
		return config.Database{}, fmt.Errorf("entry %q: missing attribute \"dbname\"", alias)
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return config.Database{}, fmt.Errorf("entry %q: attribute \"port\": %q is not a number", alias, portRaw)
	}

	db, err := config.MakeDatabase(alias, host, port, dbName)
	if err != nil {
		return config.Database{}, fmt.Errorf("entry %q: %w", alias, err)
	}
	if user != nil {
		db.SetUser(*user)
	}
	if password != nil {
		db.SetPassword(*password)
	}
	for _, p := range extra {
		db.SetParam(p.Key, p.Value)
	}
	return db, nil
}

type attr struct {
	key   string
	value string
}

func scanAttrs(body string) ([]attr, error) {
	var attrs []attr

	i := 0
	for i < len(body) {
		// skip delimiters between tokens
		for i < len(body) && (body[i] == ' ' || body[i] == '\t' || body[i] == ';') {
			i++
		}
		if i >= len(body) {
			break
		}

		start := i
		for i < len(body) && body[i] != '=' && body[i] != ' ' && body[i] != '\t' && body[i] != ';' {
			i++
		}
		if i >= len(body) || body[i] != '=' {
			return nil, fmt.Errorf("token %q is not attr=value", body[start:i])
		}
		key := body[start:i]
		i++ // consume '='

		var value string
		if i < len(body) && (body[i] == '\'' || body[i] == '"') {
			quote := body[i]
			i++
			vstart := i
			for i < len(body) && body[i] != quote {
				i++
			}
			if i >= len(body) {
				return nil, fmt.Errorf("unterminated quote in value of %q", key)
			}
			value = body[vstart:i]
			i++ // closing quote
		} else {
			vstart := i
			for i < len(body) && body[i] != ' ' && body[i] != '\t' && body[i] != ';' {
				i++
			}
			value = body[vstart:i]
		}
		if value == "" {
			return nil, fmt.Errorf("attribute %q has an empty value", key)
		}
		attrs = append(attrs, attr{key: key, value: value})
	}

	if len(attrs) == 0 {
		return nil, fmt.Errorf("no attributes")
	}
	return attrs, nil
}
