package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// exprEnv exposes the fact set as a single map variable, e.g.
// facts["passport.expiryDate"] < facts.currentDate
func exprEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("facts", cel.MapType(cel.StringType, cel.DynType)),
		)
		if celEnvErr != nil {
			celEnvErr = fmt.Errorf("failed to create CEL environment: %w", celEnvErr)
		}
	})
	return celEnv, celEnvErr
}

// Expr is a condition written as a CEL expression that must evaluate to a bool
type Expr struct {
	Source  string
	program cel.Program
}

// NewExpr compiles source once; the resulting condition is safe for concurrent use
func NewExpr(source string) (*Expr, error) {
	env, err := exprEnv()
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", source, iss.Err())
	}
	switch out := ast.OutputType().String(); out {
	case "bool", "dyn":
	default:
		return nil, fmt.Errorf("expression %q must return bool, got %s", source, out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", source, err)
	}
	return &Expr{Source: source, program: prg}, nil
}

// Eval implements Condition
func (e *Expr) Eval(f Facts) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{"facts": f.Map()})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w: expression returned %s", ErrTypeMismatch, out.Type().TypeName())
	}
	return bool(b), nil
}
