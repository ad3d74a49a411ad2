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

package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/ndarray"
)

// DefaultZarrVersion is the only Zarr format major version this store
// supports (the "single supported major version" the configuration's
// zarr_version option is checked against).
const DefaultZarrVersion = 2

// zGroup mirrors the on-disk .zgroup document.
type zGroup struct {
	ZarrFormat int `json:"zarr_format"`
}

// zCodec mirrors a compressor/filter descriptor the way Zarr v2 serializes
// it: {"id": name, ...free-form params}. Params round-trip is intentionally
// left minimal (id only) since this store never reads third-party-written
// archives back.
type zCodec struct {
	ID string `json:"id"`
}

// zArray mirrors the on-disk .zarray document for one variable.
type zArray struct {
	ZarrFormat int       `json:"zarr_format"`
	Shape      []int     `json:"shape"`
	Chunks     []int     `json:"chunks"`
	DType      string    `json:"dtype"`
	FillValue  any       `json:"fill_value"`
	Order      string    `json:"order"`
	Compressor *zCodec   `json:"compressor"`
	Filters    []zCodec  `json:"filters"`
}

var dtypeToZarr = map[ndarray.DType]string{
	ndarray.Float64: "<f8",
	ndarray.Float32: "<f4",
	ndarray.Int64:   "<i8",
	ndarray.Int32:   "<i4",
	ndarray.Int16:   "<i2",
	ndarray.Int8:    "|i1",
	ndarray.Uint64:  "<u8",
	ndarray.Uint32:  "<u4",
	ndarray.Uint16:  "<u2",
	ndarray.Uint8:   "|u1",
	ndarray.Bool:    "|b1",
}

var zarrToDtype = func() map[string]ndarray.DType {
	m := make(map[string]ndarray.DType, len(dtypeToZarr))
	for k, v := range dtypeToZarr {
		m[v] = k
	}
	return m
}()

func dtypeZarrString(d ndarray.DType) (string, error) {
	s, ok := dtypeToZarr[d]
	if !ok {
		return "", fmt.Errorf("dataset: no zarr dtype mapping for %q", d)
	}
	return s, nil
}

func dtypeFromZarr(s string) (ndarray.DType, error) {
	d, ok := zarrToDtype[s]
	if !ok {
		return "", fmt.Errorf("dataset: unrecognized zarr dtype %q", s)
	}
	return d, nil
}

// chunkKey formats a chunk index as the dot-joined key name Zarr v2 uses
// (e.g. index [3,0] -> "3.0"; a 0-D array's single chunk is "0").
func chunkKey(idx []int) string {
	if len(idx) == 0 {
		return "0"
	}
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

func toZArray(vm meta.VariableMetadata) (zArray, error) {
	dt, err := dtypeZarrString(*vm.Encoding.DType)
	if err != nil {
		return zArray{}, err
	}
	za := zArray{
		ZarrFormat: DefaultZarrVersion,
		Shape:      vm.Shape,
		Chunks:     effectiveChunks(vm),
		DType:      dt,
		FillValue:  encodeFillValue(vm.Encoding.FillValue),
		Order:      "C",
	}
	if vm.Encoding.Compressor != nil {
		za.Compressor = &zCodec{ID: vm.Encoding.Compressor.Name}
	}
	for _, f := range vm.Encoding.Filters {
		za.Filters = append(za.Filters, zCodec{ID: f.Name})
	}
	return za, nil
}

// encodeFillValue converts a fill value to the JSON-safe form the Zarr v2
// spec requires: non-finite floats (NaN/+-Inf) are not valid JSON numbers
// and must be serialized as their string name instead.
func encodeFillValue(v any) any {
	if f, ok := v.(float64); ok {
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "Infinity"
		case math.IsInf(f, -1):
			return "-Infinity"
		}
	}
	return v
}

// decodeFillValue is the inverse of encodeFillValue.
func decodeFillValue(v any) any {
	if s, ok := v.(string); ok {
		switch s {
		case "NaN":
			return math.NaN()
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
	}
	return v
}

// effectiveChunks returns the variable's configured chunk shape when it has
// one entry per dim (per-dim null entries were already replaced by the dim
// size in VariableEncoding.Normalize); otherwise, including when chunking
// is disabled, it returns one chunk covering the whole array.
func effectiveChunks(vm meta.VariableMetadata) []int {
	if len(vm.Encoding.Chunks) == len(vm.Shape) {
		return vm.Encoding.Chunks
	}
	return append([]int(nil), vm.Shape...)
}
