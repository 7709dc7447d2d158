package collector

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/layerlint/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// maxExprSteps bounds a single expression evaluation.
const maxExprSteps = 100_000

// ExprCollector matches entities for which a Starlark expression is truthy.
//
// The expression sees one global, entity, with fields id, name, path,
// supertypes and tags. A runtime error (including hitting the step budget)
// counts as no match.
type ExprCollector struct {
	src string
}

// probe is evaluated once at construction. Anything other than a runtime
// error (syntax, undefined names) is a configuration error.
var probe = &core.Entity{ID: "probe", Name: "probe"}

// Expr builds an expression collector.
func Expr(src string) (Collector, error) {
	if src == "" {
		return nil, &core.ConfigurationError{Collector: KindExpr.String(), Msg: "empty expression"}
	}
	c := &ExprCollector{src: src}
	if _, err := c.run(probe); err != nil {
		var evalErr *starlark.EvalError
		if !errors.As(err, &evalErr) {
			return nil, &core.ConfigurationError{Collector: KindExpr.String(), Msg: "invalid expression", Err: err}
		}
	}
	return c, nil
}

// Source returns the expression text.
func (c *ExprCollector) Source() string { return c.src }

func (c *ExprCollector) eval(e *core.Entity) bool {
	v, err := c.run(e)
	if err != nil {
		return false
	}
	return bool(v.Truth())
}

// run parses and evaluates the expression on a fresh thread, so concurrent
// calls share nothing mutable.
func (c *ExprCollector) run(e *core.Entity) (starlark.Value, error) {
	thread := &starlark.Thread{
		Name:  "collector",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(maxExprSteps)

	env := starlark.StringDict{"entity": entityValue(e)}
	return starlark.Eval(thread, "collector", c.src, env) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
}

func entityValue(e *core.Entity) starlark.Value {
	v := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"id":         starlark.String(e.ID),
		"name":       starlark.String(e.Name),
		"path":       stringList(e.Path),
		"supertypes": stringList(e.Supertypes),
		"tags":       stringList(e.Tags),
	})
	v.Freeze()
	return v
}

func stringList(ss []string) *starlark.List {
	elems := make([]starlark.Value, len(ss))
	for i, s := range ss {
		elems[i] = starlark.String(s)
	}
	return starlark.NewList(elems)
}

func (*ExprCollector) Kind() Kind       { return KindExpr }
func (*ExprCollector) sealed()          {}
func (c *ExprCollector) String() string { return fmt.Sprintf("expression(%q)", c.src) }
