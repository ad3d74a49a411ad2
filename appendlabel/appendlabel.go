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

// Package appendlabel verifies that an incoming slice's append-dim
// coordinate extends the target's existing labels with a consistent step
// size, per the configured append_step.
package appendlabel

import (
	"fmt"
	"strconv"

	"github.com/bcdev/zappend-go/zerr"
)

// Verify checks labels (the slice's append-dim coordinate values, empty if
// the slice carries none) against step, per spec.md §4.6:
//   - step == nil: nothing to verify.
//   - no labels: nothing to verify.
//   - step == "+"/"-": deltas must be strictly positive/negative.
//   - step is a timedelta string or a number: every delta must equal it
//     exactly.
//
// prevLabel is the target's last existing label, nil if the target has
// none yet (first slice, or target doesn't exist). Deltas are computed by
// prepending prevLabel to labels when set, else by diffing labels directly
// when there are at least two of them; otherwise there is nothing to
// verify yet.
//
// labels (and a numeric step) must already share a common unit basis --
// e.g. both as raw seconds for a CF time coordinate encoded that way. This
// differs from the original's use of real numpy datetime64/timedelta64
// arithmetic (see DESIGN.md); converting a coordinate's native encoding
// unit into that basis is the caller's responsibility.
func Verify(step any, prevLabel *float64, labels []float64) error {
	if step == nil || len(labels) == 0 {
		return nil
	}

	var deltas []float64
	switch {
	case prevLabel != nil:
		deltas = diffPrepend(*prevLabel, labels)
	case len(labels) >= 2:
		deltas = diff(labels)
	default:
		return nil
	}

	if s, ok := step.(string); ok {
		switch s {
		case "+":
			return requireAll(deltas, func(d float64) bool { return d > 0 },
				"Cannot append slice because labels must be monotonically increasing.")
		case "-":
			return requireAll(deltas, func(d float64) bool { return d < 0 },
				"Cannot append slice because labels must be monotonically decreasing.")
		default:
			want, err := ParseTimedelta(s)
			if err != nil {
				return err
			}
			return requireStep(deltas, want)
		}
	}

	want, err := toFloat64(step)
	if err != nil {
		return err
	}
	return requireStep(deltas, want)
}

func requireAll(deltas []float64, ok func(float64) bool, msg string) error {
	for _, d := range deltas {
		if !ok(d) {
			return zerr.New(zerr.AppendLabel, msg)
		}
	}
	return nil
}

func requireStep(deltas []float64, want float64) error {
	for _, d := range deltas {
		if d != want {
			return zerr.New(zerr.AppendLabel, "Cannot append slice because this would result in an invalid step size.")
		}
	}
	return nil
}

func diff(labels []float64) []float64 {
	out := make([]float64, len(labels)-1)
	for i := 1; i < len(labels); i++ {
		out[i-1] = labels[i] - labels[i-1]
	}
	return out
}

func diffPrepend(prev float64, labels []float64) []float64 {
	out := make([]float64, len(labels))
	prevVal := prev
	for i, l := range labels {
		out[i] = l - prevVal
		prevVal = l
	}
	return out
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, zerr.Newf(zerr.Configuration, "unsupported append_step value %v (%T)", v, v)
}

// ParseTimedelta parses a timedelta string of the form "[<int>]<unit>",
// unit ∈ {s,m,h,D,W}, default count 1, into its length in seconds. A
// leading "-" makes it negative.
func ParseTimedelta(s string) (float64, error) {
	if s == "" {
		return 0, zerr.New(zerr.Configuration, "empty timedelta string")
	}
	i := 0
	for i < len(s) && !isAlpha(s[i]) {
		i++
	}
	var count int64 = 1
	countStr := s[:i]
	unit := s[i:]
	switch countStr {
	case "":
		// count stays 1
	case "-":
		count = -1
	default:
		n, err := strconv.ParseInt(countStr, 10, 64)
		if err != nil {
			return 0, zerr.Wrap(zerr.Configuration, fmt.Sprintf("invalid timedelta %q", s), err)
		}
		count = n
	}
	perUnit, err := secondsPerUnit(unit)
	if err != nil {
		return 0, err
	}
	return float64(count) * perUnit, nil
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func secondsPerUnit(unit string) (float64, error) {
	switch unit {
	case "s":
		return 1, nil
	case "m":
		return 60, nil
	case "h":
		return 3600, nil
	case "D":
		return 86400, nil
	case "W":
		return 7 * 86400, nil
	}
	return 0, zerr.Newf(zerr.Configuration, "unsupported timedelta unit %q, must be one of s, m, h, D, W", unit)
}
