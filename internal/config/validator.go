package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Audit output schemes.
const (
	OutputStdout = "stdout"
	SchemeFile   = "file://"
	SchemeSQLite = "sqlite://"
)

// RegisterCustomValidators registers beanguard-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("audit_output", validateAuditOutput); err != nil {
		return fmt.Errorf("failed to register audit_output validator: %w", err)
	}
	return nil
}

// validateAuditOutput accepts "stdout", "file://<absolute-dir>" and
// "sqlite://<absolute-path>".
func validateAuditOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()
	if output == OutputStdout {
		return true
	}
	for _, scheme := range []string{SchemeFile, SchemeSQLite} {
		if strings.HasPrefix(output, scheme) {
			path := strings.TrimPrefix(output, scheme)
			return path != "" && filepath.IsAbs(path)
		}
	}
	return false
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateUniqueInterceptors(); err != nil {
		return err
	}
	return c.validateAuditDurations()
}

// validateUniqueInterceptors rejects an interceptor listed twice: registration
// names are unique within a chain.
func (c *Config) validateUniqueInterceptors() error {
	seen := make(map[string]int, len(c.Interceptors))
	for i, ic := range c.Interceptors {
		if first, dup := seen[ic.Name]; dup {
			return fmt.Errorf("interceptors[%d]: %q already configured at interceptors[%d]", i, ic.Name, first)
		}
		seen[ic.Name] = i
	}
	return nil
}

func (c *Config) validateAuditDurations() error {
	for _, d := range []struct{ key, value string }{
		{"audit.flush_interval", c.Audit.FlushInterval},
		{"audit.send_timeout", c.Audit.SendTimeout},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.key, d.value, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s: must be positive, got %s", d.key, d.value)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "alphanum":
		return fmt.Sprintf("%s must be alphanumeric", field)
	case "audit_output":
		return fmt.Sprintf("%s must be 'stdout', 'file://<absolute-dir>' or 'sqlite://<absolute-path>'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
