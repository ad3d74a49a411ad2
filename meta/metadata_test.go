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
	"math"
	"testing"

	"github.com/bcdev/zappend-go/ndarray"
	"github.com/bcdev/zappend-go/zerr"
)

type fakeVar struct {
	dims []string
	enc  *VariableEncoding
	attr map[string]any
}

type fakeDataset struct {
	dimOrder []string
	sizes    map[string]int
	vars     map[string]fakeVar
	varOrder []string
	attrs    map[string]any
}

func (f *fakeDataset) DimOrder() []string { return f.dimOrder }
func (f *fakeDataset) DimSize(name string) (int, bool) {
	v, ok := f.sizes[name]
	return v, ok
}
func (f *fakeDataset) VarNames() []string { return f.varOrder }
func (f *fakeDataset) VarDims(name string) ([]string, bool) {
	v, ok := f.vars[name]
	if !ok {
		return nil, false
	}
	return v.dims, true
}
func (f *fakeDataset) VarEncoding(name string) (*VariableEncoding, bool) {
	v, ok := f.vars[name]
	if !ok {
		return nil, false
	}
	return v.enc, true
}
func (f *fakeDataset) VarAttrs(name string) (map[string]any, bool) {
	v, ok := f.vars[name]
	if !ok {
		return nil, false
	}
	return v.attr, true
}
func (f *fakeDataset) Attrs() map[string]any { return f.attrs }

func dtype(d ndarray.DType) *ndarray.DType { return &d }

func simpleDataset() *fakeDataset {
	return &fakeDataset{
		dimOrder: []string{"time", "x"},
		sizes:    map[string]int{"time": 3, "x": 4},
		varOrder: []string{"temp"},
		vars: map[string]fakeVar{
			"temp": {
				dims: []string{"time", "x"},
				enc:  &VariableEncoding{DType: dtype(ndarray.Float64)},
				attr: map[string]any{"units": "K"},
			},
		},
		attrs: map[string]any{"title": "demo"},
	}
}

func TestFromDatasetBasic(t *testing.T) {
	md, err := FromDataset(simpleDataset(), ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	if md.Sizes["time"] != 3 || md.Sizes["x"] != 4 {
		t.Fatalf("got sizes %v", md.Sizes)
	}
	vm, ok := md.Variables["temp"]
	if !ok {
		t.Fatal("expected temp variable")
	}
	if vm.Shape[0] != 3 || vm.Shape[1] != 4 {
		t.Fatalf("got shape %v", vm.Shape)
	}
}

func TestFromDatasetFixedDimMismatchFails(t *testing.T) {
	_, err := FromDataset(simpleDataset(), ReconcileConfig{
		AppendDim: "time",
		FixedDims: map[string]int{"x": 5},
	})
	if !zerr.Is(err, zerr.Metadata) {
		t.Fatalf("expected Metadata error, got %v", err)
	}
}

func TestFromDatasetAppendDimFixedFails(t *testing.T) {
	_, err := FromDataset(simpleDataset(), ReconcileConfig{
		AppendDim: "time",
		FixedDims: map[string]int{"time": 3},
	})
	if !zerr.Is(err, zerr.Metadata) {
		t.Fatalf("expected Metadata error, got %v", err)
	}
}

func TestFromDatasetUnknownSelectedVariableFails(t *testing.T) {
	_, err := FromDataset(simpleDataset(), ReconcileConfig{
		AppendDim:         "time",
		IncludedVariables: []string{"nope"},
	})
	if !zerr.Is(err, zerr.Configuration) {
		t.Fatalf("expected Configuration error, got %v", err)
	}
}

func TestFromDatasetConfigOnlyVariableRequiresDimsAndDtype(t *testing.T) {
	_, err := FromDataset(simpleDataset(), ReconcileConfig{
		AppendDim:  "time",
		ConfigVars: []string{"derived"},
	})
	if !zerr.Is(err, zerr.Metadata) {
		t.Fatal("expected failure for missing dims/dtype on config-only variable")
	}

	md, err := FromDataset(simpleDataset(), ReconcileConfig{
		AppendDim:  "time",
		ConfigVars: []string{"derived"},
		Variables: map[string]VariableConfig{
			"derived": {
				Dims:     []string{"time"},
				Encoding: &VariableEncoding{DType: dtype(ndarray.Int32)},
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	vm := md.Variables["derived"]
	if vm.Shape[0] != 3 {
		t.Fatalf("got shape %v", vm.Shape)
	}
}

func TestFromDatasetEncodingNormalizationNaNFill(t *testing.T) {
	ds := simpleDataset()
	ds.vars["temp"] = fakeVar{
		dims: []string{"time", "x"},
		enc: &VariableEncoding{
			DType:     dtype(ndarray.Float64),
			FillValue: "NaN",
			FillIsSet: true,
		},
	}
	md, err := FromDataset(ds, ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	fv, ok := md.Variables["temp"].Encoding.FillValue.(float64)
	if !ok || !math.IsNaN(fv) {
		t.Fatalf("expected NaN fill value, got %v", md.Variables["temp"].Encoding.FillValue)
	}
}

func TestAssertCompatibleSliceDimMismatch(t *testing.T) {
	target, err := FromDataset(simpleDataset(), ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	bad := simpleDataset()
	bad.sizes["x"] = 9
	slice, err := FromDataset(bad, ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	if err := target.AssertCompatibleSlice(slice, "time"); !zerr.Is(err, zerr.Metadata) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestAssertCompatibleSliceAppendDimMayDiffer(t *testing.T) {
	target, err := FromDataset(simpleDataset(), ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	grown := simpleDataset()
	grown.sizes["time"] = 30
	slice, err := FromDataset(grown, ReconcileConfig{AppendDim: "time"})
	if err != nil {
		t.Fatal(err)
	}
	if err := target.AssertCompatibleSlice(slice, "time"); err != nil {
		t.Fatalf("expected compatible, got %v", err)
	}
}

func TestEncodingNormalizeChunkSizesAlias(t *testing.T) {
	e := &VariableEncoding{
		ChunkSizesAlias: []int{0, 2},
		ChunkSizesIsSet: true,
	}
	e.Normalize([]int{3, 4})
	if e.Chunks[0] != 3 || e.Chunks[1] != 2 {
		t.Fatalf("got %v", e.Chunks)
	}
}

func TestEncodingNormalizeEmptyChunksBecomesNil(t *testing.T) {
	e := &VariableEncoding{Chunks: []int{}, ChunksIsSet: true}
	e.Normalize([]int{3})
	if e.Chunks != nil {
		t.Fatalf("expected nil chunks, got %v", e.Chunks)
	}
}
