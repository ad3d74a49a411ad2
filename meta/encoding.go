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

// Package meta implements the dataset outline: per-variable encoding
// normalization, variable/dataset metadata, and the reconciliation between
// a target dataset's outline and each incoming slice's outline.
package meta

import (
	"math"

	"github.com/bcdev/zappend-go/codec"
	"github.com/bcdev/zappend-go/ndarray"
)

// CodecRef mirrors codec.Descriptor but is the JSON-friendly shape an
// encoding record stores it in (named to avoid colliding with the
// VariableEncoding.Compressor field).
type CodecRef struct {
	Name   string         `json:"id"`
	Params map[string]any `json:"-"`
}

// VariableEncoding is a record of optional storage parameters for a
// variable. *IsSet fields distinguish "unset" from an explicit null/zero
// value, since the two carry different meaning during normalization.
type VariableEncoding struct {
	DType       *ndarray.DType `json:"dtype,omitempty"`
	Chunks      []int          `json:"chunks,omitempty"`
	ChunksIsSet bool           `json:"-"`

	FillValue any  `json:"fill_value,omitempty"`
	FillIsSet bool `json:"-"`

	ScaleFactor *float64    `json:"scale_factor,omitempty"`
	AddOffset   *float64    `json:"add_offset,omitempty"`
	Units       *string     `json:"units,omitempty"`
	Calendar    *string     `json:"calendar,omitempty"`
	Compressor  *CodecRef   `json:"compressor,omitempty"`
	Filters     []CodecRef  `json:"filters,omitempty"`

	// UnderscoreFill holds a configured _FillValue, merged into FillValue
	// by Normalize when FillValue itself is unset.
	UnderscoreFill any `json:"-"`

	// ChunkSizesAlias holds a configured "chunksizes" value, aliased to
	// Chunks by Normalize when Chunks is unset.
	ChunkSizesAlias []int `json:"-"`
	ChunkSizesIsSet bool  `json:"-"`

	// PreferredChunks is accepted on input and always dropped.
	PreferredChunks []int `json:"-"`
}

// Normalize applies the one-time encoding normalization rules described in
// the data model: chunksizes aliases to chunks when chunks is unset;
// preferred_chunks is always dropped; chunks=[] becomes null (disabled);
// a null chunks entry at dim i is replaced by shape[i]; fill_value "NaN"
// becomes floating NaN; _FillValue merges into fill_value when unset.
func (e *VariableEncoding) Normalize(shape []int) {
	if !e.ChunksIsSet && e.ChunkSizesIsSet {
		e.Chunks = e.ChunkSizesAlias
		e.ChunksIsSet = true
	}
	e.PreferredChunks = nil

	if e.ChunksIsSet {
		if len(e.Chunks) == 0 {
			e.Chunks = nil
		} else {
			filled := make([]int, len(e.Chunks))
			copy(filled, e.Chunks)
			for i, c := range filled {
				if c == 0 && i < len(shape) {
					filled[i] = shape[i]
				}
			}
			e.Chunks = filled
		}
	}

	if !e.FillIsSet && e.UnderscoreFill != nil {
		e.FillValue = e.UnderscoreFill
		e.FillIsSet = true
	}
	if e.FillIsSet {
		if s, ok := e.FillValue.(string); ok && s == "NaN" {
			e.FillValue = math.NaN()
		}
	}
}

// Clone returns a deep-enough copy of e suitable for per-variable mutation
// during reconciliation.
func (e *VariableEncoding) Clone() *VariableEncoding {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Chunks != nil {
		cp.Chunks = append([]int(nil), e.Chunks...)
	}
	if e.Filters != nil {
		cp.Filters = append([]CodecRef(nil), e.Filters...)
	}
	return &cp
}

// ResolveCompressor resolves e's configured compressor codec, defaulting to
// "none" when e or its Compressor field is nil.
func (e *VariableEncoding) ResolveCompressor() (interface {
	codec.Compressor
	codec.Decompressor
}, error) {
	if e == nil || e.Compressor == nil {
		return codec.Lookup("")
	}
	return codec.Lookup(e.Compressor.Name)
}
