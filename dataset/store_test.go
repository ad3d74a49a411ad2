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
	"math"
	"testing"

	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/ndarray"
)

func dt(d ndarray.DType) *ndarray.DType { return &d }

func newTestStore(t *testing.T) (ChunkStore, *Store) {
	t.Helper()
	root := fsref.New(t.TempDir(), nil)
	return NewFileChunkStore(root), NewStore(nil)
}

func buildSimpleDataset() (*Dataset, *meta.DatasetMetadata) {
	ds := New()
	data := ndarray.New(ndarray.Int32, []int{5, 2})
	for i := 0; i < 5; i++ {
		for j := 0; j < 2; j++ {
			data.Set([]int{i, j}, int64(i*10+j))
		}
	}
	ds.SetVar("temp", []string{"time", "x"}, &Variable{Data: data})
	ds.GlobalAttrs = map[string]any{"title": "demo"}

	vm := meta.VariableMetadata{
		Dims:  []string{"time", "x"},
		Shape: []int{5, 2},
		Encoding: &meta.VariableEncoding{
			DType:       dt(ndarray.Int32),
			Chunks:      []int{2, 2},
			ChunksIsSet: true,
		},
		Attrs: map[string]any{"units": "K"},
	}
	md := &meta.DatasetMetadata{
		Sizes:     map[string]int{"time": 5, "x": 2},
		DimOrder:  []string{"time", "x"},
		Variables: map[string]meta.VariableMetadata{"temp": vm},
		VarOrder:  []string{"temp"},
		Attrs:     ds.GlobalAttrs,
	}
	return ds, md
}

func TestWriteDatasetThenReadMetadata(t *testing.T) {
	cs, st := newTestStore(t)
	ds, md := buildSimpleDataset()

	if err := st.WriteDataset(cs, ds, md); err != nil {
		t.Fatal(err)
	}

	got, err := ReadMetadata(cs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sizes["time"] != 5 || got.Sizes["x"] != 2 {
		t.Fatalf("got sizes %v", got.Sizes)
	}
	vm, ok := got.Variables["temp"]
	if !ok {
		t.Fatal("expected temp variable")
	}
	if vm.Shape[0] != 5 || vm.Shape[1] != 2 {
		t.Fatalf("got shape %v", vm.Shape)
	}
	if vm.Dims[0] != "time" || vm.Dims[1] != "x" {
		t.Fatalf("got dims %v", vm.Dims)
	}
	if vm.Attrs["units"] != "K" {
		t.Fatalf("got attrs %v", vm.Attrs)
	}
}

func TestWriteDatasetChunkRoundTrip(t *testing.T) {
	cs, st := newTestStore(t)
	ds, md := buildSimpleDataset()
	if err := st.WriteDataset(cs, ds, md); err != nil {
		t.Fatal(err)
	}
	data, ok, err := cs.Get("temp/2.0")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected chunk 2.0 to exist")
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty chunk data")
	}
}

func TestAppendDatasetGrowsShapeAndPreservesOldData(t *testing.T) {
	cs, st := newTestStore(t)
	ds, md := buildSimpleDataset()
	if err := st.WriteDataset(cs, ds, md); err != nil {
		t.Fatal(err)
	}

	sliceData := ndarray.New(ndarray.Int32, []int{3, 2})
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			sliceData.Set([]int{i, j}, int64(1000+i*10+j))
		}
	}
	sliceDS := New()
	sliceDS.SetVar("temp", []string{"time", "x"}, &Variable{Data: sliceData})
	sliceDS.SetDim("time", 3)

	newSize, err := st.AppendDataset(cs, sliceDS, md, "time")
	if err != nil {
		t.Fatal(err)
	}
	if newSize != 8 {
		t.Fatalf("got new size %d", newSize)
	}

	got, err := ReadMetadata(cs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Variables["temp"].Shape[0] != 8 {
		t.Fatalf("got shape %v", got.Variables["temp"].Shape)
	}

	// Spot-check the boundary chunk (index 2, covering time=[4,6)) mixes
	// one row of original data (time=4) with one row of new data (time=5).
	comp, _ := got.Variables["temp"].Encoding.ResolveCompressor()
	raw, ok, err := cs.Get("temp/2.0")
	if err != nil || !ok {
		t.Fatalf("missing boundary chunk: ok=%v err=%v", ok, err)
	}
	decoded, err := comp.Decompress(raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	block := ndarray.Array{DType: ndarray.Int32, Shape: []int{2, 2}, Raw: decoded}
	if block.At([]int{0, 0}) != int64(40) {
		t.Fatalf("expected preserved original value 40, got %v", block.At([]int{0, 0}))
	}
	if block.At([]int{1, 0}) != int64(1000) {
		t.Fatalf("expected new appended value 1000, got %v", block.At([]int{1, 0}))
	}
}

func TestWriteDatasetNaNFillValueRoundTrips(t *testing.T) {
	cs, st := newTestStore(t)
	ds, md := buildSimpleDataset()
	vm := md.Variables["temp"]
	vm.Encoding.FillValue = math.NaN()
	vm.Encoding.FillIsSet = true
	md.Variables["temp"] = vm

	if err := st.WriteDataset(cs, ds, md); err != nil {
		t.Fatal(err)
	}
	raw, ok, err := cs.Get("temp/.zarray")
	if err != nil || !ok {
		t.Fatalf("missing .zarray: ok=%v err=%v", ok, err)
	}
	if !bytesContain(raw, `"NaN"`) {
		t.Fatalf(".zarray should serialize NaN fill value as the string \"NaN\", got %s", raw)
	}

	got, err := ReadMetadata(cs)
	if err != nil {
		t.Fatal(err)
	}
	fv, ok := got.Variables["temp"].Encoding.FillValue.(float64)
	if !ok || !math.IsNaN(fv) {
		t.Fatalf("expected NaN fill value after round trip, got %v", got.Variables["temp"].Encoding.FillValue)
	}
}

func bytesContain(b []byte, s string) bool {
	return len(b) >= len(s) && indexOf(string(b), s) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestAppendDatasetNewChunkIsAllNewData(t *testing.T) {
	cs, st := newTestStore(t)
	ds, md := buildSimpleDataset()
	if err := st.WriteDataset(cs, ds, md); err != nil {
		t.Fatal(err)
	}
	sliceData := ndarray.New(ndarray.Int32, []int{3, 2})
	for i := 0; i < 3; i++ {
		sliceData.Set([]int{i, 0}, int64(500+i))
		sliceData.Set([]int{i, 1}, int64(600+i))
	}
	sliceDS := New()
	sliceDS.SetVar("temp", []string{"time", "x"}, &Variable{Data: sliceData})
	sliceDS.SetDim("time", 3)

	if _, err := st.AppendDataset(cs, sliceDS, md, "time"); err != nil {
		t.Fatal(err)
	}
	vm := md.Variables["temp"]
	comp, _ := vm.Encoding.ResolveCompressor()
	raw, ok, err := cs.Get("temp/3.0")
	if err != nil || !ok {
		t.Fatalf("missing chunk 3.0: ok=%v err=%v", ok, err)
	}
	decoded, err := comp.Decompress(raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	block := ndarray.Array{DType: ndarray.Int32, Shape: []int{2, 2}, Raw: decoded}
	if block.At([]int{0, 0}) != int64(501) {
		t.Fatalf("expected fully-new chunk value 501, got %v", block.At([]int{0, 0}))
	}
}
