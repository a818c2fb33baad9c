package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
	"github.com/Sentinel-Gate/beanguard/internal/execution"
)

type observer struct {
	recorder Recorder
	starts   *execution.Stack[time.Time]
	now      func() time.Time
}

// NewInterceptor returns an interceptor named "audit" that hands one Record
// per validation call to recorder. Recording must not block: the record is
// produced inside the after-hook.
func NewInterceptor(recorder Recorder) intercept.Interceptor {
	return intercept.Observe("audit", &observer{
		recorder: recorder,
		starts:   execution.NewStack[time.Time]("audit.starts"),
		now:      time.Now,
	})
}

func (o *observer) Before(ctx context.Context, _ *intercept.Invocation) {
	o.starts.Push(ctx, o.now())
}

func (o *observer) After(ctx context.Context, inv *intercept.Invocation, violations validation.Violations, err error) {
	now := o.now()
	var latency time.Duration
	if start, ok := o.starts.Pop(ctx); ok {
		latency = now.Sub(start)
	}

	r := Record{
		ID:             uuid.NewString(),
		Timestamp:      now.UTC(),
		ExecutionID:    execution.ID(ctx),
		Kind:           inv.Kind.String(),
		BeanType:       inv.BeanTypeName(),
		Property:       inv.Property,
		Executable:     inv.ExecutableName(),
		Outcome:        intercept.OutcomeOf(violations, err),
		ViolationCount: len(violations),
		Fingerprint:    Fingerprint(violations),
		LatencyMs:      float64(latency.Microseconds()) / 1000,
	}
	if len(inv.Groups) > 0 {
		r.Groups = inv.GroupNames()
	}
	if len(violations) > 0 {
		r.Paths = violations.Paths()
	}
	if err != nil {
		r.Error = err.Error()
	}
	o.recorder.Record(r)
}
