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

// Package dataset implements the in-memory dataset/variable model and the
// on-disk Zarr-like chunked store that reads and writes it.
package dataset

import (
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/ndarray"
)

// Variable is one array variable: its dimension names (in order), its data
// (nil for a variable that has not been materialized, e.g. a slice variable
// read lazily), its storage encoding, and its attributes.
type Variable struct {
	Dims     []string
	Data     *ndarray.Array
	Encoding *meta.VariableEncoding
	Attrs    map[string]any
}

// Dataset is an in-memory dataset: an ordered set of dimensions with sizes,
// a named collection of Variables, and dataset-level attributes.
type Dataset struct {
	Dims        []string
	Sizes       map[string]int
	VarOrder    []string
	Vars        map[string]*Variable
	GlobalAttrs map[string]any
}

// New returns an empty Dataset ready to be populated with SetDim/SetVar.
func New() *Dataset {
	return &Dataset{
		Sizes:       map[string]int{},
		Vars:        map[string]*Variable{},
		GlobalAttrs: map[string]any{},
	}
}

// SetDim records dim's size, appending it to the dim order the first time
// it is seen.
func (d *Dataset) SetDim(name string, size int) {
	if _, ok := d.Sizes[name]; !ok {
		d.Dims = append(d.Dims, name)
	}
	d.Sizes[name] = size
}

// SetVar adds or replaces a variable, inferring its dims' sizes from the
// data's shape (SetDim is called for any dim not already present).
func (d *Dataset) SetVar(name string, dims []string, v *Variable) {
	v.Dims = dims
	if v.Data != nil {
		for i, dim := range dims {
			if _, ok := d.Sizes[dim]; !ok {
				d.SetDim(dim, v.Data.Shape[i])
			}
		}
	}
	if _, ok := d.Vars[name]; !ok {
		d.VarOrder = append(d.VarOrder, name)
	}
	d.Vars[name] = v
}

// Shape returns the per-dim sizes for a variable's dims.
func (d *Dataset) Shape(dims []string) []int {
	shape := make([]int, len(dims))
	for i, dim := range dims {
		shape[i] = d.Sizes[dim]
	}
	return shape
}

// The following methods implement meta.SourceDataset.

func (d *Dataset) DimOrder() []string { return d.Dims }

func (d *Dataset) DimSize(name string) (int, bool) {
	v, ok := d.Sizes[name]
	return v, ok
}

func (d *Dataset) VarNames() []string { return d.VarOrder }

func (d *Dataset) VarDims(name string) ([]string, bool) {
	v, ok := d.Vars[name]
	if !ok {
		return nil, false
	}
	return v.Dims, true
}

func (d *Dataset) VarEncoding(name string) (*meta.VariableEncoding, bool) {
	v, ok := d.Vars[name]
	if !ok {
		return nil, false
	}
	return v.Encoding, true
}

func (d *Dataset) VarAttrs(name string) (map[string]any, bool) {
	v, ok := d.Vars[name]
	if !ok {
		return nil, false
	}
	return v.Attrs, true
}

func (d *Dataset) Attrs() map[string]any { return d.GlobalAttrs }

// VarValues returns a 1-D variable's values as a flat float64 slice, for use
// by the attribute resolver's "ds.name" expressions. It reports false for an
// unknown variable or one with no materialized data.
func (d *Dataset) VarValues(name string) ([]float64, bool) {
	v, ok := d.Vars[name]
	if !ok || v.Data == nil {
		return nil, false
	}
	return v.Data.Float64s(), true
}

var _ meta.SourceDataset = (*Dataset)(nil)
