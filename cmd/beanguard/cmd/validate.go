package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"github.com/Sentinel-Gate/beanguard/internal/config"
	"github.com/Sentinel-Gate/beanguard/internal/domain/report"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
	"github.com/Sentinel-Gate/beanguard/internal/service"
)

var (
	validateGroups       []string
	validatePrintMetrics bool
	validateOtelStdout   bool
)

// errInvalidRecords is returned when at least one record has violations.
var errInvalidRecords = errors.New("invalid records")

var validateCmd = &cobra.Command{
	Use:   "validate <file.yaml>",
	Short: "Validate a YAML list of cash income records",
	Long: `Validate every cash income record of a YAML file through the configured
interceptor chain and print the violations found.

The file holds a list of records:

  - date: "2026-03-01"
    amount: "120.50"
    currency: EUR
    payer:
      name: ACME
    reference: INV-2026-001

Use --group settlement to check the constraints that apply to settled incomes.
The command fails when any record is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateGroups, "group", nil, "validation groups to check (default: default)")
	validateCmd.Flags().BoolVar(&validatePrintMetrics, "print-metrics", false, "print the validation metrics when done")
	validateCmd.Flags().BoolVar(&validateOtelStdout, "otel-stdout", false, "export spans and OpenTelemetry metrics to stderr (enables tracing)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer func() { _ = f.Close() }()
	incomes, err := decodeIncomes(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	deps := service.ValidationDeps{Logger: logger, Registry: prometheus.NewRegistry()}
	if validateOtelStdout {
		shutdown, err := setupStdoutTelemetry(cmd.ErrOrStderr(), &deps)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed", "error", err)
			}
		}()
		if !cfg.HasInterceptor(config.InterceptorTracing) {
			cfg.Interceptors = append(cfg.Interceptors, config.InterceptorConfig{Name: config.InterceptorTracing})
		}
	}

	svc, err := service.NewValidationService(ctx, cfg, deps)
	if err != nil {
		return err
	}

	groups := make([]validation.Group, len(validateGroups))
	for i, g := range validateGroups {
		groups[i] = validation.Group(g)
	}

	invalid, err := validateIncomes(ctx, cmd.OutOrStdout(), svc.Validator(), incomes, groups)
	if closeErr := svc.Close(); closeErr != nil {
		logger.Warn("validation service shutdown failed", "error", closeErr)
	}
	if err != nil {
		return err
	}

	if validatePrintMetrics {
		if err := printMetrics(cmd.OutOrStdout(), svc.Gatherer()); err != nil {
			return err
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidRecords, invalid, len(incomes))
	}
	return nil
}

// decodeIncomes reads a YAML list of records. Unknown fields are rejected.
func decodeIncomes(r io.Reader) ([]report.CashIncome, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var incomes []report.CashIncome
	if err := dec.Decode(&incomes); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no records")
		}
		return nil, err
	}
	if len(incomes) == 0 {
		return nil, errors.New("no records")
	}
	return incomes, nil
}

// validateIncomes validates each record in its own execution scope, writes
// one report line per record plus one per violation, and returns the number
// of invalid records.
func validateIncomes(ctx context.Context, w io.Writer, v validation.Validator, incomes []report.CashIncome, groups []validation.Group) (int, error) {
	invalid := 0
	for i := range incomes {
		income := &incomes[i]
		violations, err := v.Validate(execution.WithScope(ctx), income, groups...)
		if err != nil {
			return invalid, fmt.Errorf("record %d: %w", i+1, err)
		}

		label := fmt.Sprintf("record %d (%s %s %s)", i+1, income.Date, income.Amount, income.Currency)
		if violations.Empty() {
			fmt.Fprintf(w, "%s: valid\n", label)
			continue
		}
		invalid++
		fmt.Fprintf(w, "%s: %d violation(s)\n", label, len(violations))
		for _, vl := range violations {
			fmt.Fprintf(w, "  %s\n", vl)
		}
	}
	return invalid, nil
}

// setupStdoutTelemetry installs tracer and meter providers exporting to w
// into deps. The returned function flushes and stops both.
func setupStdoutTelemetry(w io.Writer, deps *service.ValidationDeps) (func(context.Context) error, error) {
	spanExporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanExporter))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))
	deps.TracerProvider = tp
	deps.MeterProvider = mp

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// printMetrics writes every gathered sample as "name{labels} value".
// Histograms are written as their _count and _sum.
func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
