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
	"github.com/bcdev/zappend-go/fsref"
)

// DispatchConfig carries the subset of Configuration that governs how a
// slice item turns into a Source, per spec.md §4.4.
type DispatchConfig struct {
	PersistMemSlices    bool
	TempRoot            *fsref.Ref
	SliceEngine         string
	SlicePolling        *Polling
	SliceStorageOptions fsref.Options
	Logf                func(format string, args ...any)
	// SliceSource, when set, is invoked for every slice item instead of
	// dispatching on the item's own type.
	SliceSource *Callable
	CtxValue    any
}

// Open resolves item into a Source according to cfg: if a slice_source
// callable is configured it is invoked (and its result resolved
// recursively); otherwise dispatch follows the item's own type, using an
// in-memory or temporary Source for a raw Dataset depending on
// PersistMemSlices.
func Open(cfg DispatchConfig, item Item) (Source, error) {
	if cfg.SliceSource != nil {
		return cfg.SliceSource.Invoke(itemDispatchValue(item), cfg.CtxValue, func(it Item) (Source, error) {
			return openDispatched(cfg, it)
		})
	}
	return openDispatched(cfg, item)
}

// itemDispatchValue turns an Item already held by the caller (e.g. a
// default slice item from the command line) into the raw value a
// configured slice_source callable would have been handed.
func itemDispatchValue(item Item) any {
	switch {
	case item.URI != "":
		return item.URI
	case item.Ref != nil:
		return item.Ref
	case item.Dataset != nil:
		return item.Dataset
	case item.Source != nil:
		return item.Source
	default:
		return nil
	}
}

func openDispatched(cfg DispatchConfig, item Item) (Source, error) {
	switch {
	case item.Source != nil:
		return item.Source, nil
	case item.Dataset != nil:
		if cfg.PersistMemSlices {
			// cfg.TempRoot is resolved by Configuration (defaulting to the
			// system temp dir) before the Processor ever calls Open.
			return NewTemporary(cfg.TempRoot, item.Dataset, cfg.Logf), nil
		}
		return NewMemory(item.Dataset), nil
	case item.Ref != nil:
		return NewPersistent(item.Ref, cfg.SliceEngine, cfg.SlicePolling), nil
	case item.URI != "":
		ref := fsref.New(item.URI, cfg.SliceStorageOptions)
		return NewPersistent(ref, cfg.SliceEngine, cfg.SlicePolling), nil
	default:
		return nil, nil
	}
}
