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

	"github.com/bcdev/zappend-go/fsref"
)

func TestTemporaryRoundTripsDataset(t *testing.T) {
	ds := buildTestDataset()
	root := fsref.New(t.TempDir(), nil)
	tmp := NewTemporary(root, ds, nil)

	got, err := tmp.GetDataset()
	if err != nil {
		t.Fatal(err)
	}
	if got == ds {
		t.Fatal("expected a reopened copy, not the original instance")
	}
	if size, ok := got.DimSize("time"); !ok || size != 3 {
		t.Fatalf("got time size %d, %v", size, ok)
	}
	if _, ok := got.VarDims("temp"); !ok {
		t.Fatal("expected temp variable to round-trip")
	}

	dirExists, err := tmp.dir.Exists()
	if err != nil {
		t.Fatal(err)
	}
	if !dirExists {
		t.Fatal("expected temp dir to have been created")
	}

	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	dirExists, err = tmp.dir.Exists()
	if err != nil {
		t.Fatal(err)
	}
	if dirExists {
		t.Fatal("expected Close to remove the temp dir")
	}
}

func TestTemporaryCloseBeforeGetDatasetIsNoop(t *testing.T) {
	ds := buildTestDataset()
	root := fsref.New(t.TempDir(), nil)
	tmp := NewTemporary(root, ds, nil)
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
}
