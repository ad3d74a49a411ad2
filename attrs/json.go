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
	"math"

	"github.com/bcdev/zappend-go/zerr"
)

// ToJSON applies the evaluated-value serialization rules of spec.md
// §4.10: finite floats as-is; non-finite floats as their string; 1-D (and
// higher) arrays as JSON lists; mappings as JSON objects; anything else
// that isn't already a plain JSON-representable scalar fails. This port
// has no datetime/date value type (append-dim coordinates are plain
// numbers, see appendlabel's DESIGN.md entry), so the original's
// datetime-to-ISO-8601 rule has no counterpart here.
func ToJSON(value any) (any, error) {
	switch v := value.(type) {
	case nil, bool, string, int, int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Sprintf("%v", v), nil
		}
		return v, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, vv := range v {
			jv, err := ToJSON(vv)
			if err != nil {
				return nil, err
			}
			out[k] = jv
		}
		return out, nil
	case []float64:
		out := make([]any, len(v))
		for i, vv := range v {
			jv, err := ToJSON(vv)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, vv := range v {
			jv, err := ToJSON(vv)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	}
	return nil, zerr.Newf(zerr.Configuration, "cannot serialize value of type %T", value)
}
