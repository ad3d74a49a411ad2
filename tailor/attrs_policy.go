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

package tailor

// AttrsUpdateMode governs how dataset-level attrs are resolved on create
// and on append, per spec.md §4.5.
type AttrsUpdateMode string

const (
	Keep    AttrsUpdateMode = "keep"
	Replace AttrsUpdateMode = "replace"
	Update  AttrsUpdateMode = "update"
	Ignore  AttrsUpdateMode = "ignore"
)

// resolveCreateAttrs resolves the attrs of a brand new target: every mode
// but ignore uses the reconciled metadata's attrs (the first slice's attrs
// plus whatever configuration already folded in); ignore starts from
// nothing. Configured extra attrs are merged last and always win.
func resolveCreateAttrs(mode AttrsUpdateMode, metadataAttrs map[string]any, extra map[string]any) map[string]any {
	var base map[string]any
	if mode != Ignore {
		base = metadataAttrs
	}
	return mergeAttrs(base, extra)
}

// resolveAppendAttrs resolves the attrs that will replace the target's
// current attrs on append: keep preserves the target's existing attrs,
// replace takes the incoming slice's attrs, update unions them with the
// slice winning on key conflicts, and ignore clears them. Configured extra
// attrs are merged last and always win.
func resolveAppendAttrs(mode AttrsUpdateMode, targetAttrs, sliceAttrs map[string]any, extra map[string]any) map[string]any {
	var base map[string]any
	switch mode {
	case Keep:
		base = targetAttrs
	case Replace:
		base = sliceAttrs
	case Update:
		base = mergeAttrs(targetAttrs, sliceAttrs)
	case Ignore:
		base = nil
	}
	return mergeAttrs(base, extra)
}

// mergeAttrs returns a new map with base's entries overridden by
// override's (override may be nil, in which case a copy of base -- or an
// empty map if base is also nil -- is returned).
func mergeAttrs(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
