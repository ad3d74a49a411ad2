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

// Package slicesource implements the several ways a slice dataset can be
// materialized: an already-open in-memory dataset, one persisted to a
// scratch directory and reopened, one opened from a persistent URI (with
// optional polling), or one produced by a user-supplied callable whose
// return value is itself resolved recursively.
package slicesource

import (
	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/fsref"
)

// Source is the scoped-resource capability every slice variant implements:
// GetDataset opens (or returns the already-open) dataset; Close releases
// whatever resources GetDataset acquired.
type Source interface {
	GetDataset() (*dataset.Dataset, error)
	Close() error
}

// Item is a tagged union over the ways a slice can be designated, per the
// Duck-typed slice items design note: a URI string, a file reference, an
// already-open dataset, or a Source the caller constructed itself. Exactly
// one field should be set; the dispatch order in openDispatched matches
// spec.md §4.4.
type Item struct {
	URI     string
	Ref     *fsref.Ref
	Dataset *dataset.Dataset
	Source  Source
}

// FromURI wraps a string URI as an Item.
func FromURI(uri string) Item { return Item{URI: uri} }

// FromRef wraps a file reference as an Item.
func FromRef(ref *fsref.Ref) Item { return Item{Ref: ref} }

// FromDataset wraps an already-open dataset as an Item.
func FromDataset(ds *dataset.Dataset) Item { return Item{Dataset: ds} }

// FromSource wraps an already-constructed Source as an Item (used when
// resolving the return value of a user-supplied callable).
func FromSource(s Source) Item { return Item{Source: s} }

// IsZero reports whether an Item carries no designation at all.
func (it Item) IsZero() bool {
	return it.URI == "" && it.Ref == nil && it.Dataset == nil && it.Source == nil
}
