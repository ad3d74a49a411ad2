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

package slicesource

import (
	"github.com/bcdev/zappend-go/zerr"
)

// Args is the typed argument adapter a Callable receives, replacing the
// original's runtime argument-shape reflection (design note in spec.md §9):
// Positional holds ordered arguments, Named holds keyword arguments.
type Args struct {
	Positional []any
	Named      map[string]any
}

// Tuple models the Python "(args, kwargs)" slice-item shape explicitly,
// since Go has no anonymous tuple type.
type Tuple struct {
	Args   []any
	Kwargs map[string]any
}

// DecodeItemValue turns a raw slice item value into an Args adapter per
// spec.md §4.4: a Tuple supplies both args and kwargs; a []any supplies
// positional args only; a map[string]any supplies kwargs only; anything
// else becomes the sole positional argument.
func DecodeItemValue(value any) Args {
	switch v := value.(type) {
	case Tuple:
		return Args{Positional: v.Args, Named: v.Kwargs}
	case []any:
		return Args{Positional: v}
	case map[string]any:
		return Args{Named: v}
	default:
		return Args{Positional: []any{value}}
	}
}

// Callable is the configured slice_source: a function invoked once per
// slice item. WithCtx models whether the registered function declares a
// ctx parameter (resolved ahead of time by whoever registers the
// Callable, replacing the original's runtime reflection over the
// callable's signature): when true, the processing context is injected as
// the first positional argument if no positional/named args were
// supplied, otherwise as the "ctx" named argument.
type Callable struct {
	Func    func(Args) (Item, error)
	WithCtx bool
	Kwargs  map[string]any
}

// Invoke calls c with the decoded slice item value, merging in c.Kwargs
// and (if WithCtx) the processing context, then resolves the returned
// slice item (itself a URI, file reference, dataset, or Source) via open.
func (c *Callable) Invoke(value any, ctxValue any, open func(Item) (Source, error)) (Source, error) {
	args := DecodeItemValue(value)
	for k, v := range c.Kwargs {
		if args.Named == nil {
			args.Named = map[string]any{}
		}
		args.Named[k] = v
	}
	if c.WithCtx {
		if len(args.Positional) == 0 && len(args.Named) == 0 {
			args.Positional = []any{ctxValue}
		} else {
			if args.Named == nil {
				args.Named = map[string]any{}
			}
			args.Named["ctx"] = ctxValue
		}
	}
	item, err := c.Func(args)
	if err != nil {
		return nil, zerr.Wrap(zerr.UserCallable, "configured slice_source failed", err)
	}
	if item.IsZero() {
		return nil, zerr.New(zerr.UserCallable, "slice_source returned an empty slice item")
	}
	return open(item)
}
