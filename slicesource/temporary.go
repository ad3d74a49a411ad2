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
	"github.com/google/uuid"

	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/meta"
)

// Temporary persists an in-memory dataset to a unique directory under the
// temp root, then serves the reopened dataset -- used when
// persist_mem_slices is enabled, so every slice round-trips through the
// same on-disk encoding path a Persistent slice would.
type Temporary struct {
	tempRoot *fsref.Ref
	ds       *dataset.Dataset
	store    *dataset.Store
	dir      *fsref.Ref
}

// NewTemporary returns a Source that writes ds under tempRoot and reopens
// it on GetDataset.
func NewTemporary(tempRoot *fsref.Ref, ds *dataset.Dataset, logf func(format string, args ...any)) *Temporary {
	return &Temporary{tempRoot: tempRoot, ds: ds, store: dataset.NewStore(logf)}
}

func (t *Temporary) GetDataset() (*dataset.Dataset, error) {
	dir, err := t.tempRoot.Join("zappend-slice-" + uuid.NewString() + ".zarr")
	if err != nil {
		return nil, err
	}
	t.dir = dir
	if err := dir.Mkdir(); err != nil {
		return nil, err
	}
	cs := dataset.NewFileChunkStore(dir)
	md := rawMetadata(t.ds)
	if err := t.store.WriteDataset(cs, t.ds, md); err != nil {
		return nil, err
	}
	opened, _, err := dataset.ReadDataset(cs)
	if err != nil {
		return nil, err
	}
	return opened, nil
}

func (t *Temporary) Close() error {
	if t.dir == nil {
		return nil
	}
	exists, err := t.dir.Exists()
	if err != nil || !exists {
		return err
	}
	return t.dir.Delete(true)
}

var _ Source = (*Temporary)(nil)

// rawMetadata builds a DatasetMetadata that mirrors ds's own variables
// verbatim (no reconciliation against any target), used only to drive the
// write half of the Temporary round trip.
func rawMetadata(ds *dataset.Dataset) *meta.DatasetMetadata {
	variables := make(map[string]meta.VariableMetadata, len(ds.VarOrder))
	for _, name := range ds.VarOrder {
		v := ds.Vars[name]
		enc := v.Encoding.Clone()
		if enc == nil {
			enc = &meta.VariableEncoding{}
		}
		shape := ds.Shape(v.Dims)
		enc.Normalize(shape)
		if enc.DType == nil && v.Data != nil {
			dt := v.Data.DType
			enc.DType = &dt
		}
		variables[name] = meta.VariableMetadata{
			Dims:     v.Dims,
			Shape:    shape,
			Encoding: enc,
			Attrs:    v.Attrs,
		}
	}
	return &meta.DatasetMetadata{
		Sizes:     ds.Sizes,
		DimOrder:  ds.Dims,
		Variables: variables,
		VarOrder:  append([]string(nil), ds.VarOrder...),
		Attrs:     ds.GlobalAttrs,
	}
}
