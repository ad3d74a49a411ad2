// Copyright (C) 2026 zappend-go contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package attrs

import (
	"github.com/bcdev/zappend-go/zerr"
)

// Dataset is the minimal read view the Attribute Resolver needs of the
// just-written dataset: a named variable's values, as a flat 1-D slice.
type Dataset interface {
	VarValues(name string) ([]float64, bool)
}

// Env is the evaluation environment for one expression.
type Env struct {
	Ds Dataset
}

type dsHandle struct{ ds Dataset }

// Eval parses and evaluates expr (already trimmed of surrounding
// whitespace) against env, per spec.md §4.10: "ds" resolves to the
// just-written dataset, and lower_bound/upper_bound are available as
// functions.
func Eval(expr string, env Env) (any, error) {
	ast, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return evalExpr(ast, env)
}

func evalExpr(e *Expr, env Env) (any, error) {
	switch {
	case e.Number != nil:
		return *e.Number, nil
	case e.Str != nil:
		return *e.Str, nil
	case e.Access != nil:
		return evalAccess(e.Access, env)
	case e.Call != nil:
		return evalCall(e.Call, env)
	}
	return nil, zerr.New(zerr.Configuration, "empty attribute expression")
}

func evalAccess(a *Access, env Env) (any, error) {
	value, err := resolveIdent(a.Base, env)
	if err != nil {
		return nil, err
	}
	for _, step := range a.Steps {
		switch {
		case step.Dot != "":
			value, err = getAttr(value, step.Dot)
		case step.Index != nil:
			var idx any
			idx, err = evalExpr(step.Index, env)
			if err == nil {
				value, err = indexInto(value, idx)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func evalCall(c *Call, env Env) (any, error) {
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		v, err := evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch c.Name {
	case "lower_bound":
		return callBoundFunc(args, 0)
	case "upper_bound":
		return callBoundFunc(args, 1)
	}
	return nil, zerr.Newf(zerr.Configuration, "unknown function %q", c.Name)
}

func callBoundFunc(args []any, which int) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, zerr.New(zerr.Configuration, "lower_bound/upper_bound take an array and an optional ref")
	}
	arr, ok := toFloatSlice(args[0])
	if !ok {
		return nil, zerr.New(zerr.Configuration, "lower_bound/upper_bound: first argument must be a 1-D array")
	}
	ref := "lower"
	if len(args) == 2 {
		s, ok := args[1].(string)
		if !ok {
			return nil, zerr.New(zerr.Configuration, "lower_bound/upper_bound: ref must be a string")
		}
		ref = s
	}
	lo, hi, err := bounds(arr, ref)
	if err != nil {
		return nil, err
	}
	if which == 0 {
		return lo, nil
	}
	return hi, nil
}

// bounds implements the cell-bound computation from spec.md §4.10: array
// must be 1-D and non-empty; delta is the spacing between the first two
// elements (zero for a single-element array); ref selects which edge of
// the end cells to report.
func bounds(arr []float64, ref string) (lower, upper float64, err error) {
	if len(arr) == 0 {
		return 0, 0, zerr.New(zerr.Configuration, "array must not be empty")
	}
	v1, v2 := arr[0], arr[len(arr)-1]
	var delta float64
	if len(arr) > 1 {
		delta = arr[1] - v1
	}
	if v1 > v2 {
		v1, v2 = v2, v1
		delta = -delta
	}
	switch ref {
	case "", "lower":
		return v1, v2 + delta, nil
	case "upper":
		return v1 - delta, v2, nil
	case "center":
		return v1 - delta/2, v2 + delta/2, nil
	}
	return 0, 0, zerr.Newf(zerr.Configuration, "invalid ref %q, must be lower, center, or upper", ref)
}

func resolveIdent(name string, env Env) (any, error) {
	if name == "ds" {
		return dsHandle{ds: env.Ds}, nil
	}
	return nil, zerr.Newf(zerr.Configuration, "unknown identifier %q", name)
}

func getAttr(value any, name string) (any, error) {
	switch v := value.(type) {
	case dsHandle:
		arr, ok := v.ds.VarValues(name)
		if !ok {
			return nil, zerr.Newf(zerr.Configuration, "dataset has no variable %q", name)
		}
		return arr, nil
	case map[string]any:
		val, ok := v[name]
		if !ok {
			return nil, zerr.Newf(zerr.Configuration, "no such attribute %q", name)
		}
		return val, nil
	}
	return nil, zerr.Newf(zerr.Configuration, "cannot access %q on %T", name, value)
}

func indexInto(value any, idx any) (any, error) {
	if name, ok := idx.(string); ok {
		return getAttr(value, name)
	}
	i, ok := idx.(float64)
	if !ok {
		return nil, zerr.New(zerr.Configuration, "index must be a number")
	}
	index := int(i)
	switch v := value.(type) {
	case []float64:
		if index < 0 {
			index += len(v)
		}
		if index < 0 || index >= len(v) {
			return nil, zerr.Newf(zerr.Configuration, "index %d out of range for array of length %d", int(i), len(v))
		}
		return v[index], nil
	case []any:
		if index < 0 {
			index += len(v)
		}
		if index < 0 || index >= len(v) {
			return nil, zerr.Newf(zerr.Configuration, "index %d out of range for array of length %d", int(i), len(v))
		}
		return v[index], nil
	}
	return nil, zerr.Newf(zerr.Configuration, "cannot index into %T", value)
}

func toFloatSlice(v any) ([]float64, bool) {
	arr, ok := v.([]float64)
	return arr, ok
}
