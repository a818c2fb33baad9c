package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	auditstore "github.com/Sentinel-Gate/beanguard/internal/adapter/outbound/audit"
	"github.com/Sentinel-Gate/beanguard/internal/adapter/outbound/cel"
	"github.com/Sentinel-Gate/beanguard/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/beanguard/internal/adapter/outbound/playground"
	"github.com/Sentinel-Gate/beanguard/internal/adapter/outbound/telemetry"
	"github.com/Sentinel-Gate/beanguard/internal/config"
	"github.com/Sentinel-Gate/beanguard/internal/domain/audit"
	"github.com/Sentinel-Gate/beanguard/internal/domain/correlation"
	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/report"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// meterName is the instrumentation scope of the hook failure counter.
const meterName = "github.com/Sentinel-Gate/beanguard"

// ValidationDeps holds the collaborators of a ValidationService that do not
// come from the configuration file. Zero values select the defaults.
type ValidationDeps struct {
	Logger *slog.Logger

	// Registry receives the validation metrics. Default: a fresh registry.
	Registry *prometheus.Registry

	// TracerProvider is used by the tracing interceptor. Default: the global provider.
	TracerProvider trace.TracerProvider

	// MeterProvider receives the hook failure counter. Default: the global provider.
	MeterProvider metric.MeterProvider

	// Providers replaces the provider discovery. Default: the go-playground provider only.
	Providers validation.ProviderResolver

	// Clock feeds the past and future constraints. Default: the system clock.
	Clock validation.ClockProvider

	// AuditWriter receives records when audit.output is "stdout". Default: os.Stdout.
	AuditWriter io.Writer
}

// ValidationService owns an intercepting validator factory built from the
// configuration, together with the audit pipeline its interceptors feed.
type ValidationService struct {
	factory      validation.ValidatorFactory
	validator    validation.Validator
	registry     *intercept.Registry
	metrics      *telemetry.Metrics
	gatherer     prometheus.Gatherer
	auditService *AuditService
	auditStore   audit.Store
	querier      audit.Querier
	logger       *slog.Logger
}

// NewValidationService bootstraps the validation subsystem: it wraps the
// provider discovery with the configured interceptors, configures the engine
// and builds the factory. The audit worker is started with ctx when the audit
// interceptor is enabled. Call Close to release everything.
func NewValidationService(ctx context.Context, cfg *config.Config, deps ValidationDeps) (*ValidationService, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &ValidationService{
		registry: intercept.NewRegistry(),
		metrics:  telemetry.NewMetrics(reg),
		gatherer: reg,
		logger:   logger,
	}

	if cfg.HasInterceptor(config.InterceptorAudit) {
		if err := s.startAudit(ctx, cfg.Audit, deps.AuditWriter); err != nil {
			return nil, err
		}
	}

	if err := s.registerInterceptors(cfg.Interceptors, deps); err != nil {
		_ = s.closeAudit()
		return nil, err
	}

	if err := s.buildFactory(cfg, deps); err != nil {
		_ = s.closeAudit()
		return nil, err
	}

	logger.Info("validation service ready",
		"provider", playground.ProviderName,
		"interceptors", strings.Join(s.Interceptors(), ","),
		"failure_policy", cfg.Hooks.FailurePolicy,
	)
	return s, nil
}

// registerInterceptors builds each configured interceptor, with its CEL
// predicate if one is set, in configuration order.
func (s *ValidationService) registerInterceptors(ics []config.InterceptorConfig, deps ValidationDeps) error {
	var evaluator *cel.Evaluator
	for i, ic := range ics {
		interceptor, err := s.newInterceptor(ic.Name, deps)
		if err != nil {
			return fmt.Errorf("interceptors[%d]: %w", i, err)
		}

		var opts []intercept.RegisterOption
		if ic.When != "" {
			if evaluator == nil {
				if evaluator, err = cel.NewEvaluator(); err != nil {
					return fmt.Errorf("create predicate evaluator: %w", err)
				}
			}
			pred, err := evaluator.NewPredicate(ic.When, s.logger)
			if err != nil {
				return fmt.Errorf("interceptors[%d] %s: invalid when: %w", i, ic.Name, err)
			}
			opts = append(opts, intercept.When(pred))
		}

		if err := s.registry.Register(interceptor, opts...); err != nil {
			return fmt.Errorf("interceptors[%d]: %w", i, err)
		}
	}
	return nil
}

func (s *ValidationService) newInterceptor(name string, deps ValidationDeps) (intercept.Interceptor, error) {
	switch name {
	case config.InterceptorCorrelation:
		return correlation.NewInterceptor(nil), nil
	case config.InterceptorLogging:
		return telemetry.NewLoggingInterceptor(s.logger), nil
	case config.InterceptorMetrics:
		return telemetry.NewMetricsInterceptor(s.metrics), nil
	case config.InterceptorTracing:
		return telemetry.NewTracingInterceptor(deps.TracerProvider), nil
	case config.InterceptorAudit:
		if s.auditService == nil {
			return nil, errors.New("audit interceptor requires an audit store")
		}
		return audit.NewInterceptor(s.auditService), nil
	default:
		return nil, fmt.Errorf("unknown interceptor %q", name)
	}
}

// buildFactory runs the bootstrap through an intercepting provider resolver,
// so the factory it returns hands out intercepting validators.
func (s *ValidationService) buildFactory(cfg *config.Config, deps ValidationDeps) error {
	policy, err := intercept.ParseFailurePolicy(cfg.Hooks.FailurePolicy)
	if err != nil {
		return err
	}
	opts := []intercept.ChainOption{
		intercept.WithFailurePolicy(policy),
		intercept.WithLogger(s.logger),
	}
	if deps.MeterProvider != nil {
		opts = append(opts, intercept.WithMeter(deps.MeterProvider.Meter(meterName)))
	}

	providers := deps.Providers
	if providers == nil {
		providers = validation.ProviderList{playground.NewProvider(s.logger)}
	}
	resolver := intercept.NewProviderResolver(providers, s.registry, opts...)

	generic, err := validation.ByProvider(playground.ProviderName).
		WithProviderResolver(resolver).
		Configure()
	if err != nil {
		return err
	}
	specialized, ok := generic.(*playground.Configuration)
	if !ok {
		return validation.NewConfigurationError(
			fmt.Sprintf("provider %q returned %T, want *playground.Configuration", playground.ProviderName, generic), nil)
	}

	constraints := validation.NewConstraintRegistry()
	if err := report.Register(constraints, s.logger); err != nil {
		return fmt.Errorf("register constraints: %w", err)
	}

	specialized.TagName(cfg.Engine.TagName).
		Locale(cfg.Engine.Locale).
		RequiredStruct(cfg.Engine.RequiredStruct).
		WithConstraintValidatorFactory(constraints)
	if deps.Clock != nil {
		specialized.WithClockProvider(deps.Clock)
	}

	factory, err := specialized.BuildValidatorFactory()
	if err != nil {
		return err
	}
	if _, ok := factory.(*intercept.ValidatorFactory); !ok {
		_ = factory.Close()
		return validation.NewConfigurationError("provider resolver did not decorate the factory", nil)
	}

	s.factory = factory
	s.validator = factory.Validator()
	return nil
}

// startAudit opens the store selected by the audit output and starts the
// asynchronous writer in front of it.
func (s *ValidationService) startAudit(ctx context.Context, cfg config.AuditConfig, stdout io.Writer) error {
	store, err := createAuditStore(ctx, cfg, stdout, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create audit store: %w", err)
	}

	flushInterval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		flushInterval = time.Second
		s.logger.Warn("invalid flush_interval, using default", "value", cfg.FlushInterval, "default", "1s")
	}
	sendTimeout, err := time.ParseDuration(cfg.SendTimeout)
	if err != nil {
		sendTimeout = 100 * time.Millisecond
		s.logger.Warn("invalid send_timeout, using default", "value", cfg.SendTimeout, "default", "100ms")
	}

	s.auditStore = store
	if q, ok := store.(audit.Querier); ok {
		s.querier = q
	}
	s.auditService = NewAuditService(store, s.logger,
		WithChannelSize(cfg.BufferSize),
		WithBatchSize(cfg.BatchSize),
		WithFlushInterval(flushInterval),
		WithSendTimeout(sendTimeout),
		WithWarningThreshold(cfg.WarningThreshold),
		WithDropCounter(s.metrics.AuditDropsTotal),
	)
	s.auditService.Start(ctx)
	return nil
}

func createAuditStore(ctx context.Context, cfg config.AuditConfig, stdout io.Writer, logger *slog.Logger) (audit.Store, error) {
	switch {
	case cfg.Output == config.OutputStdout:
		logger.Debug("audit output: stdout", "buffer_size", cfg.BufferSize)
		if stdout != nil {
			return memory.NewAuditStoreWithWriter(stdout, cfg.BufferSize), nil
		}
		return memory.NewAuditStore(cfg.BufferSize), nil

	case strings.HasPrefix(cfg.Output, config.SchemeFile):
		dir := strings.TrimPrefix(cfg.Output, config.SchemeFile)
		logger.Debug("audit output: file", "dir", dir, "retention_days", cfg.RetentionDays)
		return auditstore.NewFileStore(auditstore.FileConfig{
			Dir:           dir,
			RetentionDays: cfg.RetentionDays,
			MaxFileSizeMB: cfg.MaxFileSizeMB,
			CacheSize:     cfg.BufferSize,
		}, logger)

	case strings.HasPrefix(cfg.Output, config.SchemeSQLite):
		path := strings.TrimPrefix(cfg.Output, config.SchemeSQLite)
		logger.Debug("audit output: sqlite", "path", path)
		return auditstore.NewSQLiteStore(ctx, path, logger)

	default:
		return nil, fmt.Errorf("invalid audit output: %s (must be 'stdout', 'file://dir' or 'sqlite://path')", cfg.Output)
	}
}

// Validator returns the intercepting validator.
func (s *ValidationService) Validator() validation.Validator {
	return s.validator
}

// Factory returns the intercepting validator factory.
func (s *ValidationService) Factory() validation.ValidatorFactory {
	return s.factory
}

// Interceptors returns the names of the registered interceptors in dispatch order.
func (s *ValidationService) Interceptors() []string {
	regs := s.registry.Interceptors()
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.Interceptor.Name()
	}
	return names
}

// Metrics returns the validation metrics.
func (s *ValidationService) Metrics() *telemetry.Metrics {
	return s.metrics
}

// Gatherer returns the registry the metrics are registered on.
func (s *ValidationService) Gatherer() prometheus.Gatherer {
	return s.gatherer
}

// Audit returns the audit writer, or nil when the audit interceptor is disabled.
func (s *ValidationService) Audit() *AuditService {
	return s.auditService
}

// QueryAudit queries the audit store. It fails when the audit interceptor is
// disabled or its store cannot be queried.
func (s *ValidationService) QueryAudit(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	if s.querier == nil {
		return nil, errors.New("audit store does not support queries")
	}
	return s.querier.Query(ctx, filter)
}

// Close stops the audit writer, flushing pending records, then closes the
// store and the factory.
func (s *ValidationService) Close() error {
	var errs []error
	if s.factory != nil {
		if err := s.factory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close validator factory: %w", err))
		}
	}
	if err := s.closeAudit(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *ValidationService) closeAudit() error {
	if s.auditService != nil {
		s.auditService.Stop()
	}
	if s.auditStore == nil {
		return nil
	}
	store := s.auditStore
	s.auditStore = nil
	if err := store.Close(); err != nil {
		return fmt.Errorf("close audit store: %w", err)
	}
	return nil
}
