package telemetry

import (
	"context"
	"log/slog"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

type loggingObserver struct {
	logger *slog.Logger
}

// NewLoggingInterceptor returns an interceptor named "logging". Calls are
// logged at Debug, violations at Info and delegate errors at Warn.
func NewLoggingInterceptor(logger *slog.Logger) intercept.Interceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return intercept.Observe("logging", &loggingObserver{logger: logger})
}

func (o *loggingObserver) Before(ctx context.Context, inv *intercept.Invocation) {
	o.logger.DebugContext(ctx, "validation started", attrs(ctx, inv)...)
}

func (o *loggingObserver) After(ctx context.Context, inv *intercept.Invocation, violations validation.Violations, err error) {
	args := attrs(ctx, inv)
	switch {
	case err != nil:
		o.logger.WarnContext(ctx, "validation failed", append(args, "error", err)...)
	case len(violations) > 0:
		o.logger.InfoContext(ctx, "validation found violations",
			append(args, "violations", len(violations), "paths", violations.Paths())...)
	default:
		o.logger.DebugContext(ctx, "validation passed", args...)
	}
}

// attrs returns the log attributes describing inv. Empty fields are left out.
func attrs(ctx context.Context, inv *intercept.Invocation) []any {
	args := []any{"kind", inv.Kind.String(), "execution_id", execution.ID(ctx)}
	if name := inv.BeanTypeName(); name != "" {
		args = append(args, "bean_type", name)
	}
	if inv.Property != "" {
		args = append(args, "property", inv.Property)
	}
	if name := inv.ExecutableName(); name != "" {
		args = append(args, "executable", name)
	}
	if len(inv.Groups) > 0 {
		args = append(args, "groups", inv.GroupNames())
	}
	return args
}
