// Package cel compiles CEL expressions into interceptor predicates.
package cel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
)

// maxExpressionLength is the maximum allowed length for CEL expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit.
const maxCostBudget = 100_000

// maxNestingDepth is the maximum allowed parenthesis/bracket nesting depth.
const maxNestingDepth = 50

// evalTimeout is the maximum time allowed for a single CEL evaluation.
const evalTimeout = time.Second

// interruptCheckFreq is how often (in comprehension iterations) context cancellation is checked.
const interruptCheckFreq = 100

// Evaluator compiles and evaluates CEL expressions over validation invocations.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates a new CEL evaluator with the invocation environment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewInvocationEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create invocation environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compile parses and type-checks a CEL expression, returning a compiled program.
// The expression must evaluate to a bool.
func (e *Evaluator) Compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation failed: %w", err)
	}

	return prg, nil
}

// validateNesting checks that the expression does not exceed the maximum allowed
// nesting depth for parentheses, brackets, and braces.
func validateNesting(expr string) error {
	var depth, maxDepth int
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', ']', '}':
			depth--
		}
	}
	if maxDepth > maxNestingDepth {
		return fmt.Errorf("expression nesting too deep: %d levels (max %d)", maxDepth, maxNestingDepth)
	}
	return nil
}

// ValidateExpression checks that a CEL expression is syntactically valid and
// within the length and nesting limits.
func (e *Evaluator) ValidateExpression(expr string) error {
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("expression too long: %d characters (max %d)", len(expr), maxExpressionLength)
	}

	if expr == "" {
		return errors.New("expression is empty")
	}

	if err := validateNesting(expr); err != nil {
		return err
	}

	_, err := e.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}

	return nil
}

// Evaluate runs a compiled CEL program against an invocation.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, inv *intercept.Invocation) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	result, _, err := prg.ContextEval(ctx, BuildActivation(inv))
	if err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}

	boolResult, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean, got %T", result.Value())
	}

	return boolResult, nil
}

// Predicate is an intercept.Predicate backed by a CEL expression.
// An expression that fails to evaluate does not match.
type Predicate struct {
	expression string
	evaluator  *Evaluator
	program    cel.Program
	logger     *slog.Logger
}

// NewPredicate validates and compiles expression.
func (e *Evaluator) NewPredicate(expression string, logger *slog.Logger) (*Predicate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := e.ValidateExpression(expression); err != nil {
		return nil, err
	}
	prg, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &Predicate{
		expression: expression,
		evaluator:  e,
		program:    prg,
		logger:     logger,
	}, nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.expression
}

// Match implements intercept.Predicate.
func (p *Predicate) Match(ctx context.Context, inv *intercept.Invocation) bool {
	matched, err := p.evaluator.Evaluate(ctx, p.program, inv)
	if err != nil {
		p.logger.WarnContext(ctx, "interceptor predicate failed, skipping",
			"expression", p.expression,
			"kind", inv.Kind.String(),
			"error", err,
		)
		return false
	}
	return matched
}

// Compile-time check that Predicate implements intercept.Predicate.
var _ intercept.Predicate = (*Predicate)(nil)
