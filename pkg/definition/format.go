package definition

import (
	"strings"

	"github.com/pg-sharding/pgbouncerctl/pkg/models/cfgerror"
)

type Format string

const (
	FormatTOML = Format("toml")
	FormatJSON = Format("json")
	FormatYAML = Format("yaml")
)

// FormatForPath picks the definition format by filename suffix.
func FormatForPath(path string) (Format, error) {
	if strings.HasSuffix(path, ".toml") {
		return FormatTOML, nil
	}
	if strings.HasSuffix(path, ".json") {
		return FormatJSON, nil
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return FormatYAML, nil
	}
	return "", cfgerror.Newf(cfgerror.DEFINITION, "unknown definition format: %s. Use .toml, .yaml or .json suffix in filename", path)
}
