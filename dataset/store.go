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
	"encoding/json"
	"fmt"

	"github.com/bcdev/zappend-go/chunkutil"
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/ndarray"
)

// Store reads and writes the Zarr-like on-disk representation of a
// Dataset through a ChunkStore. Logf receives progress/diagnostic
// messages, mirroring the Builder.Logf callback field the teacher threads
// through its orchestration struct.
type Store struct {
	Logf func(format string, args ...any)
}

// NewStore returns a Store. A nil logf is replaced with a no-op.
func NewStore(logf func(format string, args ...any)) *Store {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Store{Logf: logf}
}

// WriteDataset writes ds to cs in full, using md for each variable's
// reconciled shape/encoding. It is used both to create a brand new target
// and, internally, to materialize a Temporary Slice Source.
func (st *Store) WriteDataset(cs ChunkStore, ds *Dataset, md *meta.DatasetMetadata) error {
	group := zGroup{ZarrFormat: DefaultZarrVersion}
	gb, err := json.Marshal(group)
	if err != nil {
		return err
	}
	if err := cs.Set(".zgroup", gb); err != nil {
		return err
	}
	ab, err := json.Marshal(attrsOrEmpty(ds.GlobalAttrs))
	if err != nil {
		return err
	}
	if err := cs.Set(".zattrs", ab); err != nil {
		return err
	}
	for _, name := range md.VarOrder {
		vm := md.Variables[name]
		v := ds.Vars[name]
		if err := st.writeVariable(cs, name, v, vm); err != nil {
			return fmt.Errorf("dataset: writing variable %q: %w", name, err)
		}
	}
	st.Logf("wrote %d variables", len(md.VarOrder))
	return nil
}

func (st *Store) writeVariable(cs ChunkStore, name string, v *Variable, vm meta.VariableMetadata) error {
	za, err := toZArray(vm)
	if err != nil {
		return err
	}
	zb, err := json.Marshal(za)
	if err != nil {
		return err
	}
	if err := cs.Set(name+"/.zarray", zb); err != nil {
		return err
	}
	ab, err := json.Marshal(withArrayDimensions(vm.Attrs, vm.Dims))
	if err != nil {
		return err
	}
	if err := cs.Set(name+"/.zattrs", ab); err != nil {
		return err
	}
	if v == nil || v.Data == nil {
		return fmt.Errorf("variable has no materialized data")
	}

	comp, err := vm.Encoding.ResolveCompressor()
	if err != nil {
		return err
	}
	if len(vm.Shape) == 0 {
		return cs.Set(name+"/0", comp.Compress(v.Data.Raw, nil))
	}

	chunks := za.Chunks
	full := chunkutil.GetChunkIndices(vm.Shape, chunks, 0, chunkutil.Range{Start: 0, End: ceilDiv(vm.Shape[0], chunks[0])})
	for _, idx := range full {
		starts := make([]int, len(idx))
		for d := range idx {
			starts[d] = idx[d] * chunks[d]
		}
		block := v.Data.ExtractBlock(starts, chunks, vm.Encoding.FillValue)
		if err := cs.Set(name+"/"+chunkKey(idx), comp.Compress(block.Raw, nil)); err != nil {
			return err
		}
	}
	return nil
}

// AppendDataset appends sliceDS (already tailored: stripped to variables
// that carry appendDim) onto the target represented by cs/targetMD, growing
// every touched variable's shape along appendDim. It returns the new size
// of appendDim.
func (st *Store) AppendDataset(cs ChunkStore, sliceDS *Dataset, targetMD *meta.DatasetMetadata, appendDim string) (int, error) {
	oldSize, ok := targetMD.Sizes[appendDim]
	if !ok {
		return 0, fmt.Errorf("dataset: append dim %q not present in target metadata", appendDim)
	}
	appendSize, ok := sliceDS.Sizes[appendDim]
	if !ok || appendSize == 0 {
		return oldSize, nil
	}
	newSize := oldSize + appendSize

	for _, name := range sliceDS.VarOrder {
		v := sliceDS.Vars[name]
		vm, ok := targetMD.Variables[name]
		if !ok {
			return 0, fmt.Errorf("dataset: variable %q present in slice but not in target", name)
		}
		if err := st.appendVariable(cs, name, v, vm, appendDim, oldSize, appendSize); err != nil {
			return 0, fmt.Errorf("dataset: appending variable %q: %w", name, err)
		}
	}

	for name, vm := range targetMD.Variables {
		axis := dimIndex(vm.Dims, appendDim)
		if axis < 0 {
			continue
		}
		vm.Shape[axis] = newSize
		za, err := toZArray(vm)
		if err != nil {
			return 0, err
		}
		zb, err := json.Marshal(za)
		if err != nil {
			return 0, err
		}
		if err := cs.Set(name+"/.zarray", zb); err != nil {
			return 0, err
		}
	}
	targetMD.Sizes[appendDim] = newSize
	st.Logf("appended %d along %q, new size %d", appendSize, appendDim, newSize)
	return newSize, nil
}

func (st *Store) appendVariable(cs ChunkStore, name string, v *Variable, vm meta.VariableMetadata, appendDim string, oldSize, appendSize int) error {
	axis := dimIndex(vm.Dims, appendDim)
	if axis < 0 {
		return fmt.Errorf("dims %v do not include append dim %q", vm.Dims, appendDim)
	}
	chunks := vm.Encoding.Chunks
	if len(chunks) != len(vm.Shape) {
		return fmt.Errorf("variable has no per-dim chunk shape")
	}
	comp, err := vm.Encoding.ResolveCompressor()
	if err != nil {
		return err
	}

	firstIsUpdate, rng := chunkutil.GetChunkUpdateRange(oldSize, chunks[axis], appendSize)
	indices := chunkutil.GetChunkIndices(vm.Shape, chunks, axis, rng)
	for _, idx := range indices {
		starts := make([]int, len(idx))
		for d := range idx {
			starts[d] = idx[d] * chunks[d]
		}
		var oldBlock *ndarray.Array
		isUpdate := firstIsUpdate && idx[axis] == rng.Start
		if isUpdate {
			key := name + "/" + chunkKey(idx)
			data, exists, err := cs.Get(key)
			if err != nil {
				return err
			}
			if exists {
				dt := *vm.Encoding.DType
				raw, derr := comp.Decompress(data, nil)
				if derr != nil {
					return derr
				}
				oldBlock = &ndarray.Array{DType: dt, Shape: chunks, Raw: raw}
			}
		}
		block := mergeAppendBlock(oldBlock, v.Data, chunks, starts, axis, oldSize, appendSize, vm.Encoding.FillValue, *vm.Encoding.DType)
		key := name + "/" + chunkKey(idx)
		if err := cs.Set(key, comp.Compress(block.Raw, nil)); err != nil {
			return err
		}
	}
	return nil
}

// mergeAppendBlock builds the chunk content for a chunk whose global start
// along appendAxis is chunkStart[appendAxis]: positions below oldSize come
// from oldBlock (nil for a chunk that is entirely new), positions in
// [oldSize, oldSize+appendSize) come from sliceArr, and anything beyond
// that (there shouldn't be any within a single append, but boundary
// rounding can leave some) keeps the fill value.
func mergeAppendBlock(oldBlock, sliceArr *ndarray.Array, chunkShape, chunkStart []int, appendAxis, oldSize, appendSize int, fill any, dtype ndarray.DType) *ndarray.Array {
	out := ndarray.Fill(dtype, chunkShape, fill)
	rank := len(chunkShape)
	idx := make([]int, rank)
	var rec func(d int)
	rec = func(d int) {
		if d == rank {
			global := chunkStart[appendAxis] + idx[appendAxis]
			switch {
			case oldBlock != nil && global < oldSize:
				out.Set(idx, oldBlock.At(idx))
			case global >= oldSize && global < oldSize+appendSize:
				sliceIdx := append([]int(nil), idx...)
				sliceIdx[appendAxis] = global - oldSize
				out.Set(idx, sliceArr.At(sliceIdx))
			}
			return
		}
		for v := 0; v < chunkShape[d]; v++ {
			idx[d] = v
			rec(d + 1)
		}
	}
	rec(0)
	return out
}

func dimIndex(dims []string, name string) int {
	for i, d := range dims {
		if d == name {
			return i
		}
	}
	return -1
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func attrsOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// arrayDimensionsKey is the xarray/Zarr convention for recording a
// variable's dimension names inside its .zattrs document, since Zarr v2
// itself has no native concept of named dimensions.
const arrayDimensionsKey = "_ARRAY_DIMENSIONS"

func withArrayDimensions(attrs map[string]any, dims []string) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[arrayDimensionsKey] = dims
	return out
}

// splitArrayDimensions extracts and removes _ARRAY_DIMENSIONS from a
// decoded attrs map, returning the dim names (possibly empty) and the
// remaining user attrs.
func splitArrayDimensions(attrs map[string]any) ([]string, map[string]any) {
	raw, ok := attrs[arrayDimensionsKey]
	if !ok {
		return nil, attrs
	}
	delete(attrs, arrayDimensionsKey)
	items, ok := raw.([]any)
	if !ok {
		return nil, attrs
	}
	dims := make([]string, len(items))
	for i, it := range items {
		s, _ := it.(string)
		dims[i] = s
	}
	return dims, attrs
}

// ReadMetadata reconstructs a DatasetMetadata outline from an on-disk
// target, without materializing any chunk data. It is used at the start of
// every append to learn the target's current sizes/encodings.
func ReadMetadata(cs ChunkStore) (*meta.DatasetMetadata, error) {
	ab, ok, err := cs.Get(".zattrs")
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{}
	if ok {
		if err := json.Unmarshal(ab, &attrs); err != nil {
			return nil, fmt.Errorf("dataset: parsing .zattrs: %w", err)
		}
	}

	names, err := cs.List("")
	if err != nil {
		return nil, err
	}
	md := &meta.DatasetMetadata{
		Sizes:     map[string]int{},
		Variables: map[string]meta.VariableMetadata{},
		Attrs:     attrs,
	}
	for _, name := range names {
		if name == ".zgroup" || name == ".zattrs" || name == ".zlock" {
			continue
		}
		zb, ok, err := cs.Get(name + "/.zarray")
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var za zArray
		if err := json.Unmarshal(zb, &za); err != nil {
			return nil, fmt.Errorf("dataset: parsing %s/.zarray: %w", name, err)
		}
		dt, err := dtypeFromZarr(za.DType)
		if err != nil {
			return nil, err
		}
		vab, ok, err := cs.Get(name + "/.zattrs")
		if err != nil {
			return nil, err
		}
		vattrs := map[string]any{}
		if ok {
			if err := json.Unmarshal(vab, &vattrs); err != nil {
				return nil, fmt.Errorf("dataset: parsing %s/.zattrs: %w", name, err)
			}
		}
		dims, vattrs := splitArrayDimensions(vattrs)
		for i, d := range dims {
			if i < len(za.Shape) {
				if existing, ok := md.Sizes[d]; !ok {
					md.Sizes[d] = za.Shape[i]
					md.DimOrder = append(md.DimOrder, d)
				} else if existing != za.Shape[i] {
					return nil, fmt.Errorf("dataset: dim %q has conflicting sizes %d and %d across variables", d, existing, za.Shape[i])
				}
			}
		}
		enc := variableEncodingFromZArray(za, dt)
		md.Variables[name] = meta.VariableMetadata{
			Dims:     dims,
			Shape:    za.Shape,
			Encoding: enc,
			Attrs:    vattrs,
		}
		md.VarOrder = append(md.VarOrder, name)
	}
	return md, nil
}

// ReadDataset fully materializes the dataset stored in cs: every variable's
// chunk data is read, decompressed, and assembled into one ndarray.Array.
// It is used by the Temporary and Persistent Slice Source variants to
// reopen a dataset they just wrote (or were pointed at) as a concrete
// in-memory Dataset.
func ReadDataset(cs ChunkStore) (*Dataset, *meta.DatasetMetadata, error) {
	md, err := ReadMetadata(cs)
	if err != nil {
		return nil, nil, err
	}
	ds := New()
	for _, d := range md.DimOrder {
		ds.SetDim(d, md.Sizes[d])
	}
	for k, v := range md.Attrs {
		ds.GlobalAttrs[k] = v
	}
	for _, name := range md.VarOrder {
		vm := md.Variables[name]
		v, err := readVariable(cs, name, vm)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: reading variable %q: %w", name, err)
		}
		ds.SetVar(name, vm.Dims, v)
	}
	return ds, md, nil
}

func readVariable(cs ChunkStore, name string, vm meta.VariableMetadata) (*Variable, error) {
	comp, err := vm.Encoding.ResolveCompressor()
	if err != nil {
		return nil, err
	}
	arr := ndarray.New(*vm.Encoding.DType, vm.Shape)
	if len(vm.Shape) == 0 {
		data, ok, err := cs.Get(name + "/0")
		if err != nil {
			return nil, err
		}
		if ok {
			raw, err := comp.Decompress(data, nil)
			if err != nil {
				return nil, err
			}
			copy(arr.Raw, raw)
		}
		return &Variable{Data: arr, Encoding: vm.Encoding, Attrs: vm.Attrs}, nil
	}

	chunks := effectiveChunks(vm)
	indices := chunkutil.GetChunkIndices(vm.Shape, chunks, -1, chunkutil.Range{Start: 0, End: 1})
	for _, idx := range indices {
		starts := make([]int, len(idx))
		for d := range idx {
			starts[d] = idx[d] * chunks[d]
		}
		key := name + "/" + chunkKey(idx)
		data, ok, err := cs.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		raw, err := comp.Decompress(data, nil)
		if err != nil {
			return nil, err
		}
		block := &ndarray.Array{DType: *vm.Encoding.DType, Shape: chunks, Raw: raw}
		arr.InsertBlock(starts, block)
	}
	return &Variable{Data: arr, Encoding: vm.Encoding, Attrs: vm.Attrs}, nil
}

func variableEncodingFromZArray(za zArray, dt ndarray.DType) *meta.VariableEncoding {
	enc := &meta.VariableEncoding{
		DType:       &dt,
		Chunks:      za.Chunks,
		ChunksIsSet: true,
		FillValue:   decodeFillValue(za.FillValue),
		FillIsSet:   za.FillValue != nil,
	}
	if za.Compressor != nil {
		enc.Compressor = &meta.CodecRef{Name: za.Compressor.ID}
	}
	for _, f := range za.Filters {
		enc.Filters = append(enc.Filters, meta.CodecRef{Name: f.ID})
	}
	return enc
}
