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

func TestOpenDispatchesDatasetToMemoryByDefault(t *testing.T) {
	ds := buildTestDataset()
	cfg := DispatchConfig{}
	src, err := Open(cfg, FromDataset(ds))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", src)
	}
}

func TestOpenDispatchesDatasetToTemporaryWhenPersisted(t *testing.T) {
	ds := buildTestDataset()
	cfg := DispatchConfig{PersistMemSlices: true, TempRoot: fsref.New(t.TempDir(), nil)}
	src, err := Open(cfg, FromDataset(ds))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Temporary); !ok {
		t.Fatalf("expected *Temporary, got %T", src)
	}
}

func TestOpenDispatchesURIToPersistent(t *testing.T) {
	cfg := DispatchConfig{}
	src, err := Open(cfg, FromURI("s3://bucket/slice.zarr"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Persistent); !ok {
		t.Fatalf("expected *Persistent, got %T", src)
	}
}

func TestOpenDispatchesRefToPersistent(t *testing.T) {
	cfg := DispatchConfig{}
	src, err := Open(cfg, FromRef(fsref.New("/data/slice.zarr", nil)))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*Persistent); !ok {
		t.Fatalf("expected *Persistent, got %T", src)
	}
}

func TestOpenPassesThroughExistingSource(t *testing.T) {
	ds := buildTestDataset()
	inner := NewMemory(ds)
	cfg := DispatchConfig{}
	src, err := Open(cfg, FromSource(inner))
	if err != nil {
		t.Fatal(err)
	}
	if src != inner {
		t.Fatal("expected the same Source instance back")
	}
}

func TestOpenInvokesConfiguredSliceSource(t *testing.T) {
	ds := buildTestDataset()
	invoked := 0
	cfg := DispatchConfig{
		SliceSource: &Callable{
			Func: func(args Args) (Item, error) {
				invoked++
				return FromDataset(ds), nil
			},
		},
	}
	src, err := Open(cfg, FromURI("ignored.zarr"))
	if err != nil {
		t.Fatal(err)
	}
	if invoked != 1 {
		t.Fatalf("expected the callable to be invoked once, got %d", invoked)
	}
	got, err := src.GetDataset()
	if err != nil {
		t.Fatal(err)
	}
	if got != ds {
		t.Fatal("expected the callable's returned dataset")
	}
}
