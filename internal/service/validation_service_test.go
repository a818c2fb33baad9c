package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/Sentinel-Gate/beanguard/internal/config"
	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/report"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// testConfig returns a defaulted configuration with the given interceptors.
func testConfig(interceptors ...config.InterceptorConfig) *config.Config {
	cfg := &config.Config{Interceptors: interceptors}
	if interceptors == nil {
		cfg.Interceptors = []config.InterceptorConfig{}
	}
	cfg.SetDefaults()
	cfg.Audit.FlushInterval = "10ms"
	return cfg
}

func interceptorsNamed(names ...string) []config.InterceptorConfig {
	ics := make([]config.InterceptorConfig, len(names))
	for i, n := range names {
		ics[i] = config.InterceptorConfig{Name: n}
	}
	return ics
}

func validIncome() *report.CashIncome {
	return &report.CashIncome{
		Date:     "2026-03-01",
		Amount:   "120.50",
		Currency: "EUR",
		Payer:    report.Payer{Name: "ACME"},
	}
}

func newTestValidationService(t *testing.T, cfg *config.Config, deps ValidationDeps) *ValidationService {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	}
	s, err := NewValidationService(context.Background(), cfg, deps)
	if err != nil {
		t.Fatalf("NewValidationService() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestValidationService_DefaultChain(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.SetDefaults()
	s := newTestValidationService(t, cfg, ValidationDeps{})

	got := strings.Join(s.Interceptors(), ",")
	if got != "correlation,logging,metrics" {
		t.Errorf("Interceptors() = %q, want correlation,logging,metrics", got)
	}
	if s.Audit() != nil {
		t.Error("audit writer should not start without the audit interceptor")
	}
	if _, err := s.QueryAudit(context.Background(), audit.Filter{}); err == nil {
		t.Error("QueryAudit() without an audit store should fail")
	}
}

func TestValidationService_ValidatesThroughEngine(t *testing.T) {
	t.Parallel()

	s := newTestValidationService(t, testConfig(interceptorsNamed("metrics")...), ValidationDeps{})
	ctx := context.Background()

	violations, err := s.Validator().Validate(ctx, validIncome())
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if !violations.Empty() {
		t.Errorf("valid income reported %v", violations)
	}

	bad := validIncome()
	bad.Amount = "12,5"
	bad.Currency = "eu"
	violations, err = s.Validator().Validate(ctx, bad)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	paths := strings.Join(violations.Paths(), ",")
	if !strings.Contains(paths, "Amount") || !strings.Contains(paths, "Currency") {
		t.Errorf("violation paths = %q, want Amount and Currency", paths)
	}

	m := s.Metrics()
	if got := testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("validate", "valid")); got != 1 {
		t.Errorf("valid validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("validate", "invalid")); got != 1 {
		t.Errorf("invalid validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ViolationsTotal.WithLabelValues("validate", report.StringFormatTag)); got != 1 {
		t.Errorf("stringformat violations = %v, want 1", got)
	}
}

func TestValidationService_SettlementGroup(t *testing.T) {
	t.Parallel()

	s := newTestValidationService(t, testConfig(), ValidationDeps{})
	income := validIncome()

	violations, err := s.Validator().Validate(context.Background(), income, report.GroupSettlement)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if got := strings.Join(violations.Paths(), ","); got != "Reference" {
		t.Errorf("settlement violations = %q, want Reference", got)
	}
}

func TestValidationService_ExecutableValidation(t *testing.T) {
	t.Parallel()

	s := newTestValidationService(t, testConfig(), ValidationDeps{})
	ctx := context.Background()
	executables := s.Validator().ForExecutables()

	violations, err := executables.ValidateParameters(ctx, validIncome(), report.DepositMethod, []any{"abc"})
	if err != nil {
		t.Fatalf("ValidateParameters() error: %v", err)
	}
	if len(violations) != 1 || violations[0].Path != "Deposit.amount" {
		t.Errorf("parameter violations = %v, want Deposit.amount", violations)
	}

	violations, err = executables.ValidateConstructorParameters(ctx, report.NewCashIncomeConstructor, []any{"2026-03-01", "5", "EUR"})
	if err != nil {
		t.Fatalf("ValidateConstructorParameters() error: %v", err)
	}
	if !violations.Empty() {
		t.Errorf("constructor violations = %v, want none", violations)
	}
}

func TestValidationService_DataInfoNeedsCorrelation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		interceptors []config.InterceptorConfig
		wantDataInfo bool
	}{
		{"with correlation", interceptorsNamed("correlation"), true},
		{"without correlation", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			s := newTestValidationService(t, testConfig(tt.interceptors...), ValidationDeps{Logger: logger})

			if _, err := s.Validator().Validate(context.Background(), validIncome()); err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
			got := strings.Contains(buf.String(), `datainfo="income amount"`)
			if got != tt.wantDataInfo {
				t.Errorf("datainfo logged = %v, want %v:\n%s", got, tt.wantDataInfo, buf.String())
			}
		})
	}
}

func TestValidationService_DataInfoOfNestedField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	s := newTestValidationService(t, testConfig(interceptorsNamed("correlation")...), ValidationDeps{Logger: logger})

	income := validIncome()
	income.Payer.Account = "ACC-123"
	violations, err := s.Validator().Validate(context.Background(), income)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if !violations.Empty() {
		t.Fatalf("valid income reported %v", violations)
	}

	out := buf.String()
	for _, want := range []string{"field=Payer.Account", `datainfo="payer account"`, "field=Amount"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestValidationService_PastUsesClock(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestValidationService(t, testConfig(), ValidationDeps{Clock: validation.FixedClock(now)})

	income := validIncome()
	income.ReceivedAt = now.Add(time.Hour)
	violations, err := s.Validator().Validate(context.Background(), income)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if got := strings.Join(violations.Paths(), ","); got != "ReceivedAt" {
		t.Errorf("violations = %q, want ReceivedAt", got)
	}
}

func TestValidationService_Tracing(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	s := newTestValidationService(t, testConfig(interceptorsNamed("tracing")...), ValidationDeps{TracerProvider: tp})
	if _, err := s.Validator().ValidateProperty(context.Background(), validIncome(), "Amount"); err != nil {
		t.Fatalf("ValidateProperty() error: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "beanguard.validate_property" {
		t.Fatalf("spans = %v, want one beanguard.validate_property span", spans)
	}
}

func TestValidationService_AuditToStdout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var out bytes.Buffer
	cfg := testConfig(interceptorsNamed("correlation", "audit")...)
	s, err := NewValidationService(context.Background(), cfg, ValidationDeps{
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		AuditWriter: &out,
	})
	if err != nil {
		t.Fatalf("NewValidationService() error: %v", err)
	}

	bad := validIncome()
	bad.Remark = strings.Repeat("x", 201)
	if _, err := s.Validator().Validate(context.Background(), bad); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	var rec audit.Record
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &rec); err != nil {
		t.Fatalf("audit output is not one JSON record: %v\n%s", err, out.String())
	}
	if rec.BeanType != "report.CashIncome" || rec.Outcome != intercept.OutcomeInvalid {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Paths) != 1 || rec.Paths[0] != "Remark" || rec.Fingerprint == "" {
		t.Errorf("record paths/fingerprint = %v/%q", rec.Paths, rec.Fingerprint)
	}
}

func TestValidationService_AuditToSQLiteWithPredicate(t *testing.T) {
	t.Parallel()

	cfg := testConfig(
		config.InterceptorConfig{Name: config.InterceptorCorrelation},
		config.InterceptorConfig{Name: config.InterceptorAudit, When: `kind == "validate_parameters"`},
	)
	cfg.Audit.Output = "sqlite://" + filepath.Join(t.TempDir(), "audit.db")
	s := newTestValidationService(t, cfg, ValidationDeps{})
	ctx := context.Background()

	if _, err := s.Validator().Validate(ctx, validIncome()); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if _, err := s.Validator().ForExecutables().ValidateParameters(ctx, validIncome(), report.DepositMethod, []any{""}); err != nil {
		t.Fatalf("ValidateParameters() error: %v", err)
	}
	s.Audit().Stop()

	records, err := s.QueryAudit(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("QueryAudit() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want only the parameter validation", len(records))
	}
	r := records[0]
	if r.Kind != "validate_parameters" || r.Executable != "CashIncome.Deposit" || r.Outcome != intercept.OutcomeInvalid {
		t.Errorf("record = %+v", r)
	}
}

func TestValidationService_AuditToFiles(t *testing.T) {
	t.Parallel()

	cfg := testConfig(interceptorsNamed("audit")...)
	cfg.Audit.Output = "file://" + t.TempDir()
	s := newTestValidationService(t, cfg, ValidationDeps{})

	if _, err := s.Validator().ValidateValue(context.Background(), validation.TypeOf(report.CashIncome{}), "Currency", "usd"); err != nil {
		t.Fatalf("ValidateValue() error: %v", err)
	}
	s.Audit().Stop()

	records, err := s.QueryAudit(context.Background(), audit.Filter{Outcome: "invalid"})
	if err != nil {
		t.Fatalf("QueryAudit() error: %v", err)
	}
	if len(records) != 1 || records[0].Property != "Currency" {
		t.Errorf("records = %+v, want one Currency record", records)
	}
}

func TestNewValidationService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name: "invalid predicate",
			mutate: func(c *config.Config) {
				c.Interceptors = []config.InterceptorConfig{{Name: config.InterceptorLogging, When: "kind =="}}
			},
			want: "invalid when",
		},
		{
			name: "unknown interceptor",
			mutate: func(c *config.Config) {
				c.Interceptors = []config.InterceptorConfig{{Name: "profiling"}}
			},
			want: "unknown interceptor",
		},
		{
			name: "unknown failure policy",
			mutate: func(c *config.Config) {
				c.Hooks.FailurePolicy = "ignore"
			},
			want: "ignore",
		},
		{
			name: "unopenable audit store",
			mutate: func(c *config.Config) {
				c.Interceptors = interceptorsNamed("audit")
				c.Audit.Output = "sqlite:///nonexistent-dir/beanguard/audit.db"
			},
			want: "audit store",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig()
			tt.mutate(cfg)
			_, err := NewValidationService(context.Background(), cfg, ValidationDeps{
				Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
			})
			if err == nil {
				t.Fatal("NewValidationService() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}
