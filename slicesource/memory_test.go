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
	"testing"

	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/ndarray"
)

func buildTestDataset() *dataset.Dataset {
	ds := dataset.New()
	ds.SetDim("time", 3)
	ds.SetDim("x", 2)
	data := ndarray.New(ndarray.Int32, []int{3, 2})
	ds.SetVar("temp", []string{"time", "x"}, &dataset.Variable{Data: data})
	return ds
}

func TestMemoryGetDatasetReturnsSameInstance(t *testing.T) {
	ds := buildTestDataset()
	m := NewMemory(ds)

	got, err := m.GetDataset()
	if err != nil {
		t.Fatal(err)
	}
	if got != ds {
		t.Fatalf("expected same dataset instance back")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
}
