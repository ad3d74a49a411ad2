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

package meta

import (
	"sort"

	"github.com/bcdev/zappend-go/zerr"
	"golang.org/x/exp/slices"
)

// SourceDataset is the read-only view FromDataset needs of a dataset (either
// a slice or, after the first slice, the target). dataset.Dataset satisfies
// this interface; keeping it here instead of importing the dataset package
// avoids a dependency cycle (dataset depends on meta, not vice versa).
type SourceDataset interface {
	DimOrder() []string
	DimSize(name string) (int, bool)
	VarNames() []string
	VarDims(name string) ([]string, bool)
	VarEncoding(name string) (*VariableEncoding, bool)
	VarAttrs(name string) (map[string]any, bool)
	Attrs() map[string]any
}

// VariableConfig is the configured shape for one variable (or the "*"
// defaults record): dims/encoding/attrs supplied via configuration rather
// than derived from an open dataset.
type VariableConfig struct {
	Dims     []string
	Encoding *VariableEncoding
	Attrs    map[string]any
}

// ReconcileConfig carries the subset of the external configuration that
// FromDataset needs: fixed dims, the append dim, variable selection and
// per-variable configuration.
type ReconcileConfig struct {
	FixedDims         map[string]int
	AppendDim         string
	IncludedVariables []string
	ExcludedVariables []string
	ConfigVars        []string
	Variables         map[string]VariableConfig
}

// VariableMetadata is the reconciled outline of one variable.
type VariableMetadata struct {
	Dims     []string
	Shape    []int
	Encoding *VariableEncoding
	Attrs    map[string]any
}

// DatasetMetadata is the reconciled outline of an entire dataset.
type DatasetMetadata struct {
	Sizes     map[string]int
	DimOrder  []string
	Variables map[string]VariableMetadata
	VarOrder  []string
	Attrs     map[string]any
}

// FromDataset derives a DatasetMetadata outline from an open dataset and
// configuration, per the outline-reconciliation algorithm: validate fixed
// dims and the append dim, select variables, merge configured-over-derived
// records, and normalize each variable's encoding.
func FromDataset(ds SourceDataset, cfg ReconcileConfig) (*DatasetMetadata, error) {
	sizes := map[string]int{}
	dimOrder := append([]string(nil), ds.DimOrder()...)
	for _, d := range dimOrder {
		sz, _ := ds.DimSize(d)
		sizes[d] = sz
	}

	for dim, want := range cfg.FixedDims {
		got, ok := sizes[dim]
		if !ok {
			return nil, zerr.Newf(zerr.Metadata, "fixed dim %q not present in dataset", dim)
		}
		if got != want {
			return nil, zerr.Newf(zerr.Metadata, "fixed dim %q has size %d, configured size is %d", dim, got, want)
		}
	}
	if cfg.AppendDim == "" {
		return nil, zerr.New(zerr.Metadata, "append_dim must not be empty")
	}
	if _, ok := cfg.FixedDims[cfg.AppendDim]; ok {
		return nil, zerr.Newf(zerr.Metadata, "append dim %q must not be a fixed dim", cfg.AppendDim)
	}
	if _, ok := sizes[cfg.AppendDim]; !ok {
		return nil, zerr.Newf(zerr.Metadata, "append dim %q not present in dataset", cfg.AppendDim)
	}

	selected, err := selectVariables(ds, cfg)
	if err != nil {
		return nil, err
	}

	defaults := cfg.Variables["*"]
	variables := make(map[string]VariableMetadata, len(selected))
	for _, name := range selected {
		vc := mergeDefaults(defaults, cfg.Variables[name])

		dsDims, inDs := ds.VarDims(name)
		var dims []string
		var shape []int
		var enc *VariableEncoding
		var attrs map[string]any

		if inDs {
			dims = dsDims
			shape = make([]int, len(dims))
			for i, d := range dims {
				shape[i] = sizes[d]
			}
			if e, ok := ds.VarEncoding(name); ok {
				enc = e.Clone()
			}
			if a, ok := ds.VarAttrs(name); ok {
				attrs = a
			}
			// config wins: override with whatever the configuration
			// explicitly supplied, on top of the dataset-derived record.
			if len(vc.Dims) > 0 {
				dims = vc.Dims
			}
			if vc.Encoding != nil {
				enc = mergeEncoding(enc, vc.Encoding)
			}
			if vc.Attrs != nil {
				attrs = vc.Attrs
			}
		} else {
			if len(vc.Dims) == 0 {
				return nil, zerr.Newf(zerr.Metadata, "variable %q is not present in the dataset and no dims are configured", name)
			}
			for _, d := range vc.Dims {
				if _, ok := sizes[d]; !ok {
					return nil, zerr.Newf(zerr.Metadata, "variable %q: configured dim %q not present in dataset", name, d)
				}
			}
			if vc.Encoding == nil || vc.Encoding.DType == nil {
				return nil, zerr.Newf(zerr.Metadata, "variable %q is not present in the dataset and no encoding.dtype is configured", name)
			}
			dims = vc.Dims
			shape = make([]int, len(dims))
			for i, d := range dims {
				shape[i] = sizes[d]
			}
			enc = vc.Encoding.Clone()
			attrs = vc.Attrs
		}

		if enc == nil {
			enc = &VariableEncoding{}
		}
		enc.Normalize(shape)

		variables[name] = VariableMetadata{
			Dims:     dims,
			Shape:    shape,
			Encoding: enc,
			Attrs:    attrs,
		}
	}

	varOrder := append([]string(nil), selected...)
	sort.Strings(varOrder)

	return &DatasetMetadata{
		Sizes:     sizes,
		DimOrder:  dimOrder,
		Variables: variables,
		VarOrder:  varOrder,
		Attrs:     ds.Attrs(),
	}, nil
}

func selectVariables(ds SourceDataset, cfg ReconcileConfig) ([]string, error) {
	var base []string
	if len(cfg.IncludedVariables) > 0 {
		base = cfg.IncludedVariables
	} else {
		seen := map[string]bool{}
		for _, v := range ds.VarNames() {
			if !seen[v] {
				seen[v] = true
				base = append(base, v)
			}
		}
		for _, v := range cfg.ConfigVars {
			if !seen[v] {
				seen[v] = true
				base = append(base, v)
			}
		}
	}

	known := map[string]bool{}
	for _, v := range ds.VarNames() {
		known[v] = true
	}
	for _, v := range cfg.ConfigVars {
		known[v] = true
	}
	for _, v := range base {
		if !known[v] {
			return nil, zerr.Newf(zerr.Configuration, "selected variable %q does not exist", v)
		}
	}

	excluded := map[string]bool{}
	for _, v := range cfg.ExcludedVariables {
		excluded[v] = true
	}
	var out []string
	for _, v := range base {
		if !excluded[v] {
			out = append(out, v)
		}
	}
	return out, nil
}

func mergeDefaults(defaults, specific VariableConfig) VariableConfig {
	out := VariableConfig{
		Dims:     specific.Dims,
		Encoding: specific.Encoding,
		Attrs:    specific.Attrs,
	}
	if out.Dims == nil {
		out.Dims = defaults.Dims
	}
	out.Encoding = mergeEncoding(defaults.Encoding, specific.Encoding)
	if out.Attrs == nil {
		out.Attrs = defaults.Attrs
	}
	return out
}

// mergeEncoding overlays override's explicitly-set fields on top of base,
// returning a new record. Either argument may be nil.
func mergeEncoding(base, override *VariableEncoding) *VariableEncoding {
	if base == nil && override == nil {
		return nil
	}
	var out VariableEncoding
	if base != nil {
		out = *base.Clone()
	}
	if override == nil {
		return &out
	}
	if override.DType != nil {
		out.DType = override.DType
	}
	if override.ChunksIsSet {
		out.Chunks = override.Chunks
		out.ChunksIsSet = true
	}
	if override.FillIsSet {
		out.FillValue = override.FillValue
		out.FillIsSet = true
	}
	if override.ScaleFactor != nil {
		out.ScaleFactor = override.ScaleFactor
	}
	if override.AddOffset != nil {
		out.AddOffset = override.AddOffset
	}
	if override.Units != nil {
		out.Units = override.Units
	}
	if override.Calendar != nil {
		out.Calendar = override.Calendar
	}
	if override.Compressor != nil {
		out.Compressor = override.Compressor
	}
	if override.Filters != nil {
		out.Filters = override.Filters
	}
	if override.UnderscoreFill != nil {
		out.UnderscoreFill = override.UnderscoreFill
	}
	if override.ChunkSizesIsSet {
		out.ChunkSizesAlias = override.ChunkSizesAlias
		out.ChunkSizesIsSet = true
	}
	return &out
}

// AssertCompatibleSlice verifies that slice can be appended to the receiver
// along appendDim: every target dim must be present in the slice with an
// equal size for every non-append dim, and every target variable present in
// the slice must share its dims.
func (m *DatasetMetadata) AssertCompatibleSlice(slice *DatasetMetadata, appendDim string) error {
	for dim, size := range m.Sizes {
		sliceSize, ok := slice.Sizes[dim]
		if !ok {
			return zerr.Newf(zerr.Metadata, "slice is missing dim %q", dim)
		}
		if dim != appendDim && sliceSize != size {
			return zerr.Newf(zerr.Metadata, "dim %q size mismatch: target=%d slice=%d", dim, size, sliceSize)
		}
	}
	for name, vm := range m.Variables {
		sliceVM, ok := slice.Variables[name]
		if !ok {
			continue
		}
		if !slices.Equal(vm.Dims, sliceVM.Dims) {
			return zerr.Newf(zerr.Metadata, "variable %q dims mismatch: target=%v slice=%v", name, vm.Dims, sliceVM.Dims)
		}
	}
	return nil
}
