// Package rules compiles and evaluates hint expressions against a typed
// context built from one or more line items. Expressions are CEL, restricted
// to a closed variable set; they are side-effect-free and loop-free, so
// evaluation is time-bounded. A compile or evaluation error is always
// returned to the caller, never treated as "no match".
package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Env holds the shared CEL environment. It is immutable after construction
// and safe for concurrent use.
type Env struct {
	env *cel.Env
}

// NewEnv builds the expression environment with the fixed context schema:
//
//	amount      int    — sum of the selected items' amounts, in cents
//	description string — selected items' descriptions joined by newlines
//	count       int    — number of selected items
//	items       list   — per-item records for multi-item predicates
func NewEnv() (*Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.IntType),
		cel.Variable("description", cel.StringType),
		cel.Variable("count", cel.IntType),
		cel.Variable("items", cel.ListType(cel.MapType(cel.StringType, cel.DynType))),
	)
	if err != nil {
		return nil, fmt.Errorf("rules env: %w", err)
	}
	return &Env{env: env}, nil
}

// Program is a compiled expression ready for repeated evaluation.
type Program struct {
	source string
	prg    cel.Program
}

// Source returns the expression text the program was compiled from.
func (p *Program) Source() string { return p.source }

// Compile parses and type-checks src and requires a boolean result.
func (e *Env) Compile(src string) (*Program, error) {
	ast, iss := e.env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must produce a boolean, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program expression: %w", err)
	}
	return &Program{source: src, prg: prg}, nil
}

// Validate compiles src without evaluating it. Used before a hint is
// persisted; the returned error message is safe to surface to the caller.
func (e *Env) Validate(src string) error {
	_, err := e.Compile(src)
	return err
}

// Eval runs the program against ctx. Errors fail closed: the caller decides
// whether to skip the rule or abort, but a failed evaluation is never a match.
func (p *Program) Eval(ctx Context) (bool, error) {
	out, _, err := p.prg.Eval(ctx.activation())
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression produced %T, want bool", out.Value())
	}
	return b, nil
}
