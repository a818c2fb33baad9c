package cel

import (
	"path/filepath"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/Sentinel-Gate/beanguard/internal/domain/intercept"
)

// NewInvocationEnvironment creates the CEL environment interceptor predicates
// are compiled in. It declares:
//   - kind: entry point name, e.g. "validate" or "validate_parameters"
//   - bean_type: validated type, e.g. "report.CashIncome" ("" when unknown)
//   - property: property name of property and value validations
//   - executable: method or constructor name, e.g. "CashIncome.Deposit"
//   - groups: requested groups
//   - parameter_count: number of arguments of parameter validations
//
// plus the glob(pattern, name) function.
func NewInvocationEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),

		cel.Variable("kind", cel.StringType),
		cel.Variable("bean_type", cel.StringType),
		cel.Variable("property", cel.StringType),
		cel.Variable("executable", cel.StringType),
		cel.Variable("groups", cel.ListType(cel.StringType)),
		cel.Variable("parameter_count", cel.IntType),

		// glob: shell pattern matching, e.g. glob("report.*", bean_type)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p, _ := pattern.Value().(string)
					n, _ := name.Value().(string)
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),
	)
}

// BuildActivation maps an invocation onto the environment's variables.
func BuildActivation(inv *intercept.Invocation) map[string]any {
	groups := inv.GroupNames()
	if groups == nil {
		groups = []string{}
	}
	return map[string]any{
		"kind":            inv.Kind.String(),
		"bean_type":       inv.BeanTypeName(),
		"property":        inv.Property,
		"executable":      inv.ExecutableName(),
		"groups":          groups,
		"parameter_count": int64(len(inv.Parameters)),
	}
}
