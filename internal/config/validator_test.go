package config

import (
	"strings"
	"testing"
)

// minimalValidConfig returns a valid Config with defaults applied.
func minimalValidConfig() *Config {
	cfg := &Config{
		LogLevel:     "info",
		Hooks:        HooksConfig{FailurePolicy: "propagate"},
		Engine:       EngineConfig{TagName: "validate", Locale: "en", RequiredStruct: true},
		Interceptors: DefaultInterceptors(),
		Audit: AuditConfig{
			Output:           "stdout",
			BufferSize:       1000,
			BatchSize:        100,
			FlushInterval:    "1s",
			SendTimeout:      "100ms",
			WarningThreshold: 80,
		},
	}
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_AuditOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		output string
		valid  bool
	}{
		{"stdout", true},
		{"file:///var/log/beanguard", true},
		{"sqlite:///var/lib/beanguard/audit.db", true},
		{"file://relative/dir", false},
		{"sqlite://audit.db", false},
		{"file://", false},
		{"stderr", false},
		{"s3://bucket/audit", false},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			t.Parallel()
			cfg := minimalValidConfig()
			cfg.Audit.Output = tt.output
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("Validate() expected error, got nil")
				}
				if !strings.Contains(err.Error(), "Audit.Output") {
					t.Errorf("error = %q, want to mention Audit.Output", err.Error())
				}
			}
		})
	}
}

func TestValidate_UnknownInterceptor(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Interceptors = append(cfg.Interceptors, InterceptorConfig{Name: "profiling"})

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("error = %q, want to contain 'must be one of'", err.Error())
	}
}

func TestValidate_DuplicateInterceptor(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Interceptors = append(cfg.Interceptors, InterceptorConfig{Name: InterceptorLogging})

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "already configured") {
		t.Errorf("error = %q, want to contain 'already configured'", err.Error())
	}
}

func TestValidate_InvalidFailurePolicy(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Hooks.FailurePolicy = "ignore"

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "FailurePolicy") {
		t.Errorf("Validate() error = %v, want FailurePolicy error", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for unknown log level")
	}
}

func TestValidate_TagName(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Engine.TagName = "bad tag"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "alphanumeric") {
		t.Errorf("error = %q, want to contain 'alphanumeric'", err.Error())
	}
}

func TestValidate_AuditDurations(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Audit.FlushInterval = "soon"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "audit.flush_interval") {
		t.Errorf("Validate() error = %v, want flush_interval error", err)
	}

	cfg = minimalValidConfig()
	cfg.Audit.SendTimeout = "-1s"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "must be positive") {
		t.Errorf("Validate() error = %v, want positive duration error", err)
	}
}

func TestValidate_ZeroConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() on zero config expected error, got nil")
	}
	for _, want := range []string{"Engine.TagName is required", "Audit.Output is required", "Audit.BufferSize must be at least 1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %q, want to contain %q", err.Error(), want)
		}
	}
}

func TestValidate_EmptyInterceptorList(t *testing.T) {
	t.Parallel()

	cfg := minimalValidConfig()
	cfg.Interceptors = nil
	if err := cfg.Validate(); err != nil {
		t.Errorf("an empty chain is valid, got %v", err)
	}
}
