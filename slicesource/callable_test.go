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

	"github.com/bcdev/zappend-go/zerr"
)

func TestDecodeItemValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Args
	}{
		{"tuple", Tuple{Args: []any{1, 2}, Kwargs: map[string]any{"k": "v"}}, Args{Positional: []any{1, 2}, Named: map[string]any{"k": "v"}}},
		{"slice", []any{"a.zarr"}, Args{Positional: []any{"a.zarr"}}},
		{"map", map[string]any{"path": "a.zarr"}, Args{Named: map[string]any{"path": "a.zarr"}}},
		{"scalar", "a.zarr", Args{Positional: []any{"a.zarr"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DecodeItemValue(c.in)
			if len(got.Positional) != len(c.want.Positional) {
				t.Fatalf("positional mismatch: got %v want %v", got.Positional, c.want.Positional)
			}
			if len(got.Named) != len(c.want.Named) {
				t.Fatalf("named mismatch: got %v want %v", got.Named, c.want.Named)
			}
		})
	}
}

func TestCallableInvokeResolvesReturnedItem(t *testing.T) {
	ds := buildTestDataset()
	c := &Callable{
		Func: func(args Args) (Item, error) {
			return FromDataset(ds), nil
		},
	}
	opened := 0
	src, err := c.Invoke("anything", nil, func(it Item) (Source, error) {
		opened++
		if it.Dataset != ds {
			t.Fatal("expected the dataset the Func returned")
		}
		return NewMemory(it.Dataset), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if opened != 1 {
		t.Fatalf("expected open to be called once, got %d", opened)
	}
	got, err := src.GetDataset()
	if err != nil {
		t.Fatal(err)
	}
	if got != ds {
		t.Fatal("expected the same dataset back")
	}
}

func TestCallableInvokeInjectsCtxAsSolePositionalArg(t *testing.T) {
	ctxValue := "the-ctx"
	var gotArgs Args
	c := &Callable{
		WithCtx: true,
		Func: func(args Args) (Item, error) {
			gotArgs = args
			return FromURI("x.zarr"), nil
		},
	}
	_, err := c.Invoke([]any{}, ctxValue, func(it Item) (Source, error) {
		return NewPersistent(nil, "zarr", nil), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(gotArgs.Positional) != 1 || gotArgs.Positional[0] != ctxValue {
		t.Fatalf("expected ctx injected positionally, got %v", gotArgs)
	}
}

func TestCallableInvokeInjectsCtxAsNamedArgWhenArgsPresent(t *testing.T) {
	ctxValue := "the-ctx"
	var gotArgs Args
	c := &Callable{
		WithCtx: true,
		Func: func(args Args) (Item, error) {
			gotArgs = args
			return FromURI("x.zarr"), nil
		},
	}
	_, err := c.Invoke([]any{"a", "b"}, ctxValue, func(it Item) (Source, error) {
		return NewPersistent(nil, "zarr", nil), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotArgs.Named["ctx"] != ctxValue {
		t.Fatalf("expected ctx injected as named arg, got %v", gotArgs)
	}
	if len(gotArgs.Positional) != 2 {
		t.Fatalf("expected positional args preserved, got %v", gotArgs.Positional)
	}
}

func TestCallableInvokeMergesKwargs(t *testing.T) {
	var gotArgs Args
	c := &Callable{
		Kwargs: map[string]any{"engine": "zarr"},
		Func: func(args Args) (Item, error) {
			gotArgs = args
			return FromURI("x.zarr"), nil
		},
	}
	_, err := c.Invoke("item", nil, func(it Item) (Source, error) {
		return NewPersistent(nil, "zarr", nil), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotArgs.Named["engine"] != "zarr" {
		t.Fatalf("expected kwargs merged in, got %v", gotArgs.Named)
	}
}

func TestCallableInvokeRejectsEmptyReturnedItem(t *testing.T) {
	c := &Callable{
		Func: func(args Args) (Item, error) {
			return Item{}, nil
		},
	}
	_, err := c.Invoke("item", nil, func(it Item) (Source, error) {
		t.Fatal("open should not be called for an empty item")
		return nil, nil
	})
	if !zerr.Is(err, zerr.UserCallable) {
		t.Fatalf("expected UserCallable error, got %v", err)
	}
}

func TestCallableInvokePropagatesFuncError(t *testing.T) {
	wantErr := zerr.New(zerr.UserCallable, "boom")
	c := &Callable{
		Func: func(args Args) (Item, error) {
			return Item{}, wantErr
		},
	}
	_, err := c.Invoke("item", nil, func(it Item) (Source, error) {
		t.Fatal("open should not be called when Func errors")
		return nil, nil
	})
	if !zerr.Is(err, zerr.UserCallable) {
		t.Fatalf("expected UserCallable error, got %v", err)
	}
}
