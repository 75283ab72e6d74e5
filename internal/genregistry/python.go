package genregistry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// pythonKind executes the user's script in a sandboxed interpreter exposing
// the per-row partially-filled columns map, per spec.md §9's design note:
// a vetted embedded scripting capability stands in for the source project's
// Python sandbox. The user supplies a top-level Go function declaration
// named "generator" taking one "columns map[string]string" parameter and
// returning a string; ordering is driven by the explicit ColumnSpec.Order
// field rather than a decorator.
//
// One pythonKind instance is scoped to a single column's generation run
// within one job, so the compiled function is cached after the first call.
type pythonKind struct {
	mu  sync.Mutex
	fn  func(map[string]string) string
	err error
}

const generatorFuncName = "generator"

func wrapScript(body string) string {
	var sb strings.Builder
	sb.WriteString("package main\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	return sb.String()
}

func compileGenerator(spec string) (func(map[string]string) string, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("genregistry: loading interpreter stdlib: %w", err)
	}

	if _, err := i.Eval(wrapScript(spec)); err != nil {
		return nil, fmt.Errorf("genregistry: python script failed to compile: %w", err)
	}

	v, err := i.Eval("main." + generatorFuncName)
	if err != nil {
		return nil, fmt.Errorf("genregistry: python script missing %q function: %w", generatorFuncName, err)
	}

	fn, ok := v.Interface().(func(map[string]string) string)
	if !ok {
		return nil, fmt.Errorf("genregistry: %q must have signature func(columns map[string]string) string, got %s", generatorFuncName, v.Type())
	}
	return fn, nil
}

func (pythonKind) Validate(spec string) (int, error) {
	if _, err := compileGenerator(spec); err != nil {
		return 0, err
	}
	return 0, nil
}

func (k *pythonKind) Stream(_ context.Context, gctx *GenContext) (*string, error) {
	k.mu.Lock()
	if k.fn == nil && k.err == nil {
		k.fn, k.err = compileGenerator(gctx.Spec)
	}
	fn, err := k.fn, k.err
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	columns := make(map[string]string, len(gctx.Entries))
	for name, vals := range gctx.Entries {
		if gctx.RowIdx < len(vals) && vals[gctx.RowIdx] != nil {
			columns[name] = *vals[gctx.RowIdx]
		}
	}

	v := fn(columns)
	v = capString(gctx.Column, v)
	v = capNumeric(gctx.Column, v)
	return &v, nil
}
