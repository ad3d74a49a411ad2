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
	"testing"

	"github.com/bcdev/zappend-go/ndarray"
)

func TestSetVarInfersDimSizes(t *testing.T) {
	ds := New()
	data := ndarray.New(ndarray.Float64, []int{3, 4})
	ds.SetVar("temp", []string{"time", "x"}, &Variable{Data: data})

	if ds.Sizes["time"] != 3 || ds.Sizes["x"] != 4 {
		t.Fatalf("got sizes %v", ds.Sizes)
	}
	if len(ds.Dims) != 2 || ds.Dims[0] != "time" || ds.Dims[1] != "x" {
		t.Fatalf("got dim order %v", ds.Dims)
	}
}

func TestSetVarReplacesExistingKeepsOrder(t *testing.T) {
	ds := New()
	ds.SetVar("a", nil, &Variable{})
	ds.SetVar("b", nil, &Variable{})
	ds.SetVar("a", nil, &Variable{Attrs: map[string]any{"k": "v"}})

	if len(ds.VarOrder) != 2 {
		t.Fatalf("got var order %v", ds.VarOrder)
	}
	if ds.Vars["a"].Attrs["k"] != "v" {
		t.Fatal("expected replaced variable")
	}
}

func TestShapeFromDims(t *testing.T) {
	ds := New()
	ds.SetDim("time", 10)
	ds.SetDim("x", 5)
	shape := ds.Shape([]string{"x", "time"})
	if shape[0] != 5 || shape[1] != 10 {
		t.Fatalf("got %v", shape)
	}
}
