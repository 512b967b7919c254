package celengine

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// NewStringEnv builds an environment where every named variable is a string.
func NewStringEnv(fields ...string) (*cel.Env, error) {
	variables := make([]cel.EnvOption, 0, len(fields))
	for _, f := range fields {
		variables = append(variables, cel.Variable(f, cel.StringType))
	}
	return cel.NewEnv(variables...)
}

// Program is a compiled boolean expression.
type Program struct {
	Expr string
	prg  cel.Program
}

// Compile type-checks expr against env and requires a bool result.
func Compile(env *cel.Env, expr string) (*Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression %q must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	return &Program{Expr: expr, prg: prg}, nil
}

func (p *Program) Eval(attrs map[string]any) (bool, error) {
	out, _, err := p.prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", out.Value(), out.Value())
	}

	return b, nil
}
