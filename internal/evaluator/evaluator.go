// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package evaluator evaluates constraint expressions against a request
// context. Expressions are CEL programs extended with a fixed builtin
// function table; only boolean results are accepted.
package evaluator

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and runs constraint expressions. The builtin function
// table is fixed at construction; no registration happens at request time.
type Evaluator struct {
	base *cel.Env
}

// New creates an Evaluator with the builtin function table installed.
func New() (*Evaluator, error) {
	env, err := cel.NewEnv(builtinFunctions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}
	return &Evaluator{base: env}, nil
}

// Evaluate runs expr against the given context and returns its boolean
// result. Identifiers resolve from the context map; an unknown identifier,
// a type mismatch or a non-boolean result is an error. Callers must not
// pass an empty expression.
func (e *Evaluator) Evaluate(expr string, context map[string]any) (bool, error) {
	vars := make([]cel.EnvOption, 0, len(context))
	for name, value := range context {
		vars = append(vars, cel.Variable(name, celType(value)))
	}

	env, err := e.base.Extend(vars...)
	if err != nil {
		return false, fmt.Errorf("failed to bind context: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return false, fmt.Errorf("invalid expression %q: %w", expr, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("invalid expression %q: only boolean results are supported, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to plan expression %q: %w", expr, err)
	}

	out, _, err := prg.Eval(context)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate expression %q: %w", expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("invalid expression %q: only boolean results are supported", expr)
	}
	return result, nil
}

// celType maps a context value to its CEL declaration type.
func celType(value any) *cel.Type {
	switch value.(type) {
	case bool:
		return cel.BoolType
	case int, int32, int64:
		return cel.IntType
	case float32, float64:
		return cel.DoubleType
	case string:
		return cel.StringType
	default:
		return cel.DynType
	}
}
