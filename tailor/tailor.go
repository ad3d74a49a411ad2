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

// Package tailor strips, completes, and rechunks a dataset to match a
// target outline, the way ion/blockfmt's Converter reshapes a stream of
// rows to match a destination schema -- applied here to an in-memory
// Dataset instead of a byte stream.
package tailor

import (
	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/ndarray"
)

// TailorTarget prepares the dataset that will become a brand new target:
// ds is stripped/completed against md (the outline reconciled from ds
// itself plus configuration), every variable's encoding and attributes are
// set from md, and the dataset attrs are resolved per mode before extra is
// merged in last.
func TailorTarget(md *meta.DatasetMetadata, ds *dataset.Dataset, mode AttrsUpdateMode, extra map[string]any) (*dataset.Dataset, error) {
	out, err := stripAndComplete(md, ds)
	if err != nil {
		return nil, err
	}
	out.GlobalAttrs = resolveCreateAttrs(mode, md.Attrs, extra)
	return out, nil
}

// TailorSliceDataset prepares an incoming slice for append onto an
// existing target: md is the target's own (already on-disk) outline. The
// slice is stripped/completed against md, then variables that do not carry
// appendDim (constant across slices) are dropped, since only variables
// that grow get written during append. Each kept variable's encoding and
// attrs are cleared -- they are already recorded on the target -- and the
// dataset attrs are resolved per mode, using the target's existing attrs
// (md.Attrs) and the slice's own incoming attrs.
func TailorSliceDataset(md *meta.DatasetMetadata, ds *dataset.Dataset, appendDim string, mode AttrsUpdateMode, extra map[string]any) (*dataset.Dataset, error) {
	sliceAttrs := ds.GlobalAttrs
	completed, err := stripAndComplete(md, ds)
	if err != nil {
		return nil, err
	}

	out := dataset.New()
	for _, d := range completed.Dims {
		out.SetDim(d, completed.Sizes[d])
	}
	for _, name := range completed.VarOrder {
		v := completed.Vars[name]
		if !containsDim(v.Dims, appendDim) {
			continue
		}
		out.SetVar(name, v.Dims, &dataset.Variable{Dims: v.Dims, Data: v.Data})
	}
	out.GlobalAttrs = resolveAppendAttrs(mode, md.Attrs, sliceAttrs, extra)
	return out, nil
}

// stripAndComplete drops variables from ds that are not present in md, and
// adds variables present in md but missing from ds as in-memory arrays
// already filled with the fill value (allocated in full, not lazily),
// setting every kept/added variable's dims/encoding/attrs from md.
func stripAndComplete(md *meta.DatasetMetadata, ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := dataset.New()
	for _, d := range md.DimOrder {
		// Prefer the incoming dataset's own size for a dim it defines (the
		// append dim's slice-local size in particular must not be
		// overwritten by the target's full on-disk size); fall back to md
		// only for a dim the dataset doesn't carry at all.
		size, ok := ds.Sizes[d]
		if !ok {
			size = md.Sizes[d]
		}
		out.SetDim(d, size)
	}
	for _, name := range md.VarOrder {
		vm := md.Variables[name]
		if v, ok := ds.Vars[name]; ok {
			out.SetVar(name, vm.Dims, &dataset.Variable{
				Dims:     vm.Dims,
				Data:     v.Data,
				Encoding: vm.Encoding.Clone(),
				Attrs:    vm.Attrs,
			})
			continue
		}
		data := fillMissing(vm, out)
		out.SetVar(name, vm.Dims, &dataset.Variable{
			Dims:     vm.Dims,
			Data:     data,
			Encoding: vm.Encoding.Clone(),
			Attrs:    vm.Attrs,
		})
	}
	return out, nil
}

// fillMissing allocates the full in-memory array for a variable present in
// md but absent from the incoming dataset, per spec.md §4.5: filled with the
// encoding's (already-normalized) fill value, or zero when unset; the
// array's dtype is float64 whenever the fill value is NaN, else the
// variable's configured dtype.
func fillMissing(vm meta.VariableMetadata, out *dataset.Dataset) *ndarray.Array {
	shape := make([]int, len(vm.Dims))
	for i, d := range vm.Dims {
		shape[i] = out.Sizes[d]
	}
	dtype := ndarray.Float64
	if vm.Encoding != nil && vm.Encoding.DType != nil {
		dtype = *vm.Encoding.DType
	}
	var fill any
	if vm.Encoding != nil && vm.Encoding.FillIsSet {
		fill = vm.Encoding.FillValue
	}
	return ndarray.Fill(dtype, shape, fill)
}

func containsDim(dims []string, name string) bool {
	for _, d := range dims {
		if d == name {
			return true
		}
	}
	return false
}
