package cfgerror

import "fmt"

const (
	VALIDATION = "PGBCV"
	BUILDER    = "PGBCB"
	PARSE      = "PGBCP"
	DEFINITION = "PGBCD"
	DIFF_INPUT = "PGBCF"
	IMPORT     = "PGBCI"
	IO         = "PGBCO"
	UNEXPECTED = "PGBCU"
)

var existingErrorCodeMap = map[string]string{
	VALIDATION: "field value violates its constraint",
	BUILDER:    "config cannot be assembled",
	PARSE:      "malformed pgbouncer.ini text",
	DEFINITION: "malformed definition file",
	DIFF_INPUT: "diff input is not a valid config",
	IMPORT:     "database import failed",
	IO:         "file read/write failed",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &ConfigError{}

type ConfigError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *ConfigError {
	return &ConfigError{
		Err:       fmt.Errorf("%s", errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *ConfigError {
	return &ConfigError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *ConfigError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *ConfigError) Unwrap() error {
	return er.Err
}

// ErrorCodeOf returns the code carried by err, or UNEXPECTED for
// errors produced outside this package.
func ErrorCodeOf(err error) string {
	if ce, ok := err.(*ConfigError); ok {
		return ce.ErrorCode
	}
	return UNEXPECTED
}
