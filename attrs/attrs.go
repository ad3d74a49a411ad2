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
	"fmt"
	"strings"
)

// HasDynamic reports whether any top-level attrs value is a string
// containing both "{{" and "}}".
func HasDynamic(attrs map[string]any) bool {
	for _, v := range attrs {
		if s, ok := v.(string); ok && strings.Contains(s, "{{") && strings.Contains(s, "}}") {
			return true
		}
	}
	return false
}

// Resolve returns a copy of attrs with every dynamic string value replaced
// by the result of evaluating its "{{ expr }}" placeholders against env.
func Resolve(attrs map[string]any, env Env) (map[string]any, error) {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		rv, err := resolveValue(v, env)
		if err != nil {
			return nil, fmt.Errorf("attrs: resolving %q: %w", k, err)
		}
		out[k] = rv
	}
	return out, nil
}

// resolveValue mirrors eval_attr_value: split on "{{", then on "}}"; any
// trailing literal text after an expression forces the result to a
// string; a single expression with no surrounding literal text keeps its
// own type; more than one placeholder concatenates as strings.
func resolveValue(v any, env Env) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	parts := strings.Split(s, "{{")

	var values []any
	for _, part := range parts[1:] {
		sub := strings.SplitN(part, "}}", 2)
		if len(sub) != 2 {
			continue
		}
		exprStr, rest := sub[0], sub[1]
		raw, err := Eval(strings.TrimSpace(exprStr), env)
		if err != nil {
			return nil, err
		}
		value, err := ToJSON(raw)
		if err != nil {
			return nil, err
		}
		if rest != "" {
			value = toStr(value) + rest
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return v, nil
	}
	if parts[0] != "" {
		values[0] = parts[0] + toStr(values[0])
	}
	if len(values) == 1 {
		return values[0], nil
	}
	var sb strings.Builder
	for _, vv := range values {
		sb.WriteString(toStr(vv))
	}
	return sb.String(), nil
}

func toStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
