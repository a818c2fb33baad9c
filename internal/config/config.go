package config

import (
	"github.com/spf13/viper"
)

// Interceptor names accepted in the interceptors list.
const (
	InterceptorCorrelation = "correlation"
	InterceptorLogging     = "logging"
	InterceptorMetrics     = "metrics"
	InterceptorTracing     = "tracing"
	InterceptorAudit       = "audit"
)

// Config is the top-level beanguard configuration.
type Config struct {
	// LogLevel sets the slog level: debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`

	// Hooks configures how interceptor failures are handled.
	Hooks HooksConfig `mapstructure:"hooks" yaml:"hooks"`

	// Engine configures the go-playground validation provider.
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// Interceptors lists the interceptors in dispatch order.
	Interceptors []InterceptorConfig `mapstructure:"interceptors" yaml:"interceptors" validate:"dive"`

	// Audit configures the audit trail written by the audit interceptor.
	Audit AuditConfig `mapstructure:"audit" yaml:"audit"`
}

// HooksConfig configures hook dispatch.
type HooksConfig struct {
	// FailurePolicy is "propagate" (default) or "suppress".
	FailurePolicy string `mapstructure:"failure_policy" yaml:"failure_policy" validate:"oneof=propagate suppress"`
}

// EngineConfig configures the underlying validation engine.
type EngineConfig struct {
	// TagName is the struct tag constraints are read from.
	TagName string `mapstructure:"tag_name" yaml:"tag_name" validate:"required,alphanum"`
	// Locale selects the language of violation messages.
	Locale string `mapstructure:"locale" yaml:"locale" validate:"required"`
	// RequiredStruct makes "required" apply to non-pointer struct fields.
	RequiredStruct bool `mapstructure:"required_struct" yaml:"required_struct"`
}

// InterceptorConfig enables one interceptor.
type InterceptorConfig struct {
	Name string `mapstructure:"name" yaml:"name" validate:"required,oneof=correlation logging metrics tracing audit"`
	// When is an optional CEL predicate over kind, bean_type, property and
	// groups. The interceptor is only dispatched when it evaluates to true.
	When string `mapstructure:"when" yaml:"when"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// Output is "stdout", "file://<absolute-dir>" or "sqlite://<absolute-path>".
	Output string `mapstructure:"output" yaml:"output" validate:"required,audit_output"`

	// BufferSize is the capacity of the asynchronous record channel.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size" validate:"min=1"`

	// BatchSize is the number of records written per store call.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1"`

	// FlushInterval is the maximum time records wait before being written (e.g. "1s").
	FlushInterval string `mapstructure:"flush_interval" yaml:"flush_interval"`

	// SendTimeout is how long a full buffer is waited on before a record is dropped (e.g. "100ms").
	SendTimeout string `mapstructure:"send_timeout" yaml:"send_timeout"`

	// WarningThreshold is the buffer fill percentage that triggers a warning.
	WarningThreshold int `mapstructure:"warning_threshold" yaml:"warning_threshold" validate:"min=0,max=100"`

	// RetentionDays is how long file:// audit files are kept.
	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days" validate:"min=0"`

	// MaxFileSizeMB is the size at which a file:// audit file is rotated.
	MaxFileSizeMB int `mapstructure:"max_file_size_mb" yaml:"max_file_size_mb" validate:"min=0"`
}

// DefaultInterceptors is the chain used when none is configured.
func DefaultInterceptors() []InterceptorConfig {
	return []InterceptorConfig{
		{Name: InterceptorCorrelation},
		{Name: InterceptorLogging},
		{Name: InterceptorMetrics},
	}
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Hooks.FailurePolicy == "" {
		c.Hooks.FailurePolicy = "propagate"
	}

	if c.Engine.TagName == "" {
		c.Engine.TagName = "validate"
	}
	if c.Engine.Locale == "" {
		c.Engine.Locale = "en"
	}
	// viper.IsSet distinguishes "not set" from an explicit false.
	if !viper.IsSet("engine.required_struct") {
		c.Engine.RequiredStruct = true
	}

	// nil means "not configured"; an explicit empty list disables every interceptor.
	if c.Interceptors == nil {
		c.Interceptors = DefaultInterceptors()
	}

	if c.Audit.Output == "" {
		c.Audit.Output = "stdout"
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = 1000
	}
	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = 100
	}
	if c.Audit.FlushInterval == "" {
		c.Audit.FlushInterval = "1s"
	}
	if c.Audit.SendTimeout == "" {
		c.Audit.SendTimeout = "100ms"
	}
	if c.Audit.WarningThreshold == 0 {
		c.Audit.WarningThreshold = 80
	}
	if c.Audit.RetentionDays == 0 {
		c.Audit.RetentionDays = 7
	}
	if c.Audit.MaxFileSizeMB == 0 {
		c.Audit.MaxFileSizeMB = 100
	}
}

// HasInterceptor reports whether the named interceptor is configured.
func (c *Config) HasInterceptor(name string) bool {
	for _, ic := range c.Interceptors {
		if ic.Name == name {
			return true
		}
	}
	return false
}
