package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/Sentinel-Gate/beanguard/internal/config"
	"github.com/Sentinel-Gate/beanguard/internal/domain/report"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/service"
)

const recordsYAML = `
- date: "2026-03-01"
  amount: "120.50"
  currency: EUR
  payer:
    name: ACME
  reference: INV-2026-001
- date: "01/03/2026"
  amount: "12,5"
  currency: EUR
  payer:
    name: ACME
`

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeIncomes(t *testing.T) {
	t.Parallel()

	incomes, err := decodeIncomes(strings.NewReader(recordsYAML))
	if err != nil {
		t.Fatalf("decodeIncomes() error: %v", err)
	}
	if len(incomes) != 2 {
		t.Fatalf("records = %d, want 2", len(incomes))
	}
	if incomes[0].Payer.Name != "ACME" || incomes[0].Reference != "INV-2026-001" {
		t.Errorf("first record = %+v", incomes[0])
	}

	if _, err := decodeIncomes(strings.NewReader("- date: x\n  colour: red\n")); err == nil {
		t.Error("unknown fields should be rejected")
	}
	for _, empty := range []string{"", "[]\n"} {
		if _, err := decodeIncomes(strings.NewReader(empty)); err == nil {
			t.Errorf("decodeIncomes(%q) should fail with no records", empty)
		}
	}
}

func TestValidateIncomes(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.SetDefaults()
	reg := prometheus.NewRegistry()
	svc, err := service.NewValidationService(context.Background(), cfg, service.ValidationDeps{
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Registry: reg,
	})
	if err != nil {
		t.Fatalf("NewValidationService() error: %v", err)
	}
	defer func() { _ = svc.Close() }()

	incomes, err := decodeIncomes(strings.NewReader(recordsYAML))
	if err != nil {
		t.Fatalf("decodeIncomes() error: %v", err)
	}

	var out bytes.Buffer
	invalid, err := validateIncomes(context.Background(), &out, svc.Validator(), incomes, nil)
	if err != nil {
		t.Fatalf("validateIncomes() error: %v", err)
	}
	if invalid != 1 {
		t.Errorf("invalid = %d, want 1", invalid)
	}
	text := out.String()
	for _, want := range []string{
		"record 1 (2026-03-01 120.50 EUR): valid",
		"record 2 (01/03/2026 12,5 EUR): 2 violation(s)",
		"  Date: ",
		"  Amount: ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	// The settlement group only checks the reference, which record 2 lacks.
	out.Reset()
	invalid, err = validateIncomes(context.Background(), &out, svc.Validator(), incomes, []validation.Group{report.GroupSettlement})
	if err != nil {
		t.Fatalf("validateIncomes(settlement) error: %v", err)
	}
	if invalid != 1 || !strings.Contains(out.String(), "  Reference: ") {
		t.Errorf("settlement run: invalid = %d\n%s", invalid, out.String())
	}

	var metrics bytes.Buffer
	if err := printMetrics(&metrics, reg); err != nil {
		t.Fatalf("printMetrics() error: %v", err)
	}
	for _, want := range []string{
		`beanguard_validations_total{kind="validate",outcome="invalid"} 2`,
		`beanguard_validations_total{kind="validate",outcome="valid"} 2`,
		`beanguard_validation_duration_seconds_count{kind="validate"} 4`,
		`beanguard_validations_in_flight 0`,
	} {
		if !strings.Contains(metrics.String(), want) {
			t.Errorf("metrics missing %q:\n%s", want, metrics.String())
		}
	}
}

func TestFormatLabels(t *testing.T) {
	t.Parallel()

	if got := formatLabels(nil); got != "" {
		t.Errorf("formatLabels(nil) = %q, want empty", got)
	}
}

// TestValidateCommand runs the whole command. It touches viper's global
// instance and the package flag variables, so it does not run in parallel.
func TestValidateCommand(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "beanguard.yaml")
	auditDir := filepath.Join(dir, "audit")
	cfgYAML := "log_level: error\ninterceptors:\n  - name: correlation\n  - name: audit\naudit:\n  output: file://" + auditDir + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	recordsPath := filepath.Join(dir, "incomes.yaml")
	if err := os.WriteFile(recordsPath, []byte(recordsYAML), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "validate", recordsPath})
	err := rootCmd.Execute()
	if !errors.Is(err, errInvalidRecords) {
		t.Fatalf("Execute() error = %v, want errInvalidRecords", err)
	}
	if !strings.Contains(out.String(), "record 2") {
		t.Errorf("validate output:\n%s", out.String())
	}

	out.Reset()
	rootCmd.SetArgs([]string{"--config", cfgPath, "audit", "--outcome", "invalid"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("audit Execute() error: %v\n%s", err, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"bean_type":"report.CashIncome"`) {
		t.Errorf("audit output:\n%s", out.String())
	}

	out.Reset()
	rootCmd.SetArgs([]string{"--config", cfgPath, "interceptors"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("interceptors Execute() error: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "1. correlation") || !strings.Contains(got, "2. audit") {
		t.Errorf("interceptors output:\n%s", got)
	}
}
