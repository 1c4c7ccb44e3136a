// validation.go - Startup validation of the photo wall environment.
//
// Request handlers check for missing credentials on every invocation; this
// is the stricter pass the binaries run once so that malformed values are
// reported before the server starts listening.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError is a single problem with one variable.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validator collects validation errors.
type Validator struct {
	lookup LookupFunc
	errors []ValidationError
}

// NewValidator creates a validator reading values through lookup.
func NewValidator(lookup LookupFunc) *Validator {
	return &Validator{
		lookup: lookup,
		errors: make([]ValidationError, 0),
	}
}

// AddError adds a validation error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorString returns a formatted string of all errors.
func (v *Validator) ErrorString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n", len(v.errors)))
	for i, err := range v.errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

func (v *Validator) value(key string) string {
	s, _ := v.lookup(key)
	return strings.TrimSpace(s)
}

// ValidateURL validates that a value is an http(s) URL.
func (v *Validator) ValidateURL(key, value string) {
	if value == "" {
		return
	}

	parsed, err := url.Parse(value)
	if err != nil {
		v.AddError(key, fmt.Sprintf("invalid URL format: %v", err))
		return
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		v.AddError(key, "URL must use http or https scheme")
	}
}

// ValidatePort validates a port number or ":port" listen address.
func (v *Validator) ValidatePort(key, value string) {
	if value == "" {
		return
	}

	portStr := value
	if i := strings.LastIndex(value, ":"); i >= 0 {
		portStr = value[i+1:]
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		v.AddError(key, "port must be a number")
		return
	}

	if port < 1 || port > 65535 {
		v.AddError(key, "port must be between 1 and 65535")
	}
}

// ValidateEnum validates that a value is one of allowed options.
func (v *Validator) ValidateEnum(key, value string, allowed []string) {
	if value == "" {
		return
	}

	for _, opt := range allowed {
		if strings.EqualFold(value, opt) {
			return
		}
	}

	v.AddError(key, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// ValidatePositiveInt validates that a value is a positive integer.
func (v *Validator) ValidatePositiveInt(key, value string) {
	if value == "" {
		return
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		v.AddError(key, "must be a valid integer")
		return
	}

	if num <= 0 {
		v.AddError(key, "must be a positive integer")
	}
}

// Validate checks every variable the photo wall reads. Missing credentials
// are reported too, since a server without them can only answer 500.
func Validate(lookup LookupFunc) error {
	v := NewValidator(lookup)

	v.ValidateEnum("PHOTOWALL_DB_DRIVER", v.value("PHOTOWALL_DB_DRIVER"), []string{DriverPostgres, DriverSQLite})
	v.ValidateEnum("PHOTOWALL_STORAGE_DRIVER", v.value("PHOTOWALL_STORAGE_DRIVER"), []string{StorageMinio, StorageS3})

	if dbURL := v.value("DATABASE_URL"); dbURL != "" {
		if !strings.HasPrefix(dbURL, "postgres://") && !strings.HasPrefix(dbURL, "postgresql://") {
			v.AddError("DATABASE_URL", "must be a valid PostgreSQL connection string")
		}
	}

	if endpoint := v.value("PHOTOWALL_STORAGE_ENDPOINT"); strings.Contains(endpoint, "://") {
		v.ValidateURL("PHOTOWALL_STORAGE_ENDPOINT", endpoint)
	}

	v.ValidateURL("PHOTOWALL_PUBLIC_BASE_URL", v.value("PHOTOWALL_PUBLIC_BASE_URL"))
	v.ValidatePort("PHOTOWALL_ADDR", v.value("PHOTOWALL_ADDR"))
	v.ValidatePositiveInt("PHOTOWALL_MAX_UPLOAD_BYTES", v.value("PHOTOWALL_MAX_UPLOAD_BYTES"))
	v.ValidatePositiveInt("PHOTOWALL_UPLOAD_RATE_LIMIT", v.value("PHOTOWALL_UPLOAD_RATE_LIMIT"))

	v.ValidateEnum("PHOTOWALL_LOG_FORMAT", v.value("PHOTOWALL_LOG_FORMAT"), []string{"json", "text"})
	v.ValidateEnum("PHOTOWALL_LOG_LEVEL", v.value("PHOTOWALL_LOG_LEVEL"), []string{"debug", "info", "warn", "error"})
	v.ValidateEnum("PHOTOWALL_ENV", v.value("PHOTOWALL_ENV"), []string{"development", "production", "staging"})

	// Malformed values were already reported above; Load only adds the
	// driver-dependent required keys.
	if cfg, err := Load(lookup); err == nil {
		if merr, ok := cfg.MissingForUpload().(*MissingError); ok {
			for _, key := range merr.Keys {
				v.AddError(key, "required environment variable not set")
			}
		}
	}

	if v.HasErrors() {
		return fmt.Errorf("%s", v.ErrorString())
	}

	return nil
}
