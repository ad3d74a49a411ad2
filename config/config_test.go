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

package config

import (
	"testing"

	"github.com/bcdev/zappend-go/slicesource"
	"github.com/bcdev/zappend-go/tailor"
)

func TestDefaultHasDocumentedDefaults(t *testing.T) {
	c := Default()
	if c.ZarrVersion != 2 {
		t.Fatalf("expected zarr_version 2, got %d", c.ZarrVersion)
	}
	if c.AppendDim != "time" {
		t.Fatalf("expected append_dim %q, got %q", "time", c.AppendDim)
	}
	if c.AttrsUpdateMode != "keep" {
		t.Fatalf("expected attrs_update_mode %q, got %q", "keep", c.AttrsUpdateMode)
	}
	if c.TempDir == "" {
		t.Fatal("expected temp_dir to default to the system temp directory")
	}
}

func TestValidateRequiresTargetDir(t *testing.T) {
	c := Default()
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing target_dir")
	}
}

func TestValidateRejectsUnsupportedZarrVersion(t *testing.T) {
	c := Default()
	c.TargetDir = "/tmp/target.zarr"
	c.ZarrVersion = 3
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unsupported zarr_version")
	}
}

func TestValidateRejectsEmptyAppendDim(t *testing.T) {
	c := Default()
	c.TargetDir = "/tmp/target.zarr"
	c.AppendDim = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for empty append_dim")
	}
}

func TestValidateRejectsUnknownAttrsUpdateMode(t *testing.T) {
	c := Default()
	c.TargetDir = "/tmp/target.zarr"
	c.AttrsUpdateMode = "bogus"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown attrs_update_mode")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	c := Default()
	c.TargetDir = "/tmp/target.zarr"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveAttrsUpdateModeMapsEachValue(t *testing.T) {
	cases := map[string]tailor.AttrsUpdateMode{
		"":        tailor.Keep,
		"keep":    tailor.Keep,
		"replace": tailor.Replace,
		"update":  tailor.Update,
		"ignore":  tailor.Ignore,
	}
	for in, want := range cases {
		c := Default()
		c.AttrsUpdateMode = in
		got, err := c.ResolveAttrsUpdateMode()
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %v, got %v", in, want, got)
		}
	}
}

func TestReconcileConfigCollectsConfiguredVariableNames(t *testing.T) {
	c := Default()
	c.Variables = map[string]VariableConfig{
		"*":    {Encoding: nil},
		"temp": {Dims: []string{"time", "x"}},
	}
	rc := c.ReconcileConfig()
	if len(rc.ConfigVars) != 1 || rc.ConfigVars[0] != "temp" {
		t.Fatalf("expected ConfigVars [temp], got %v", rc.ConfigVars)
	}
	if _, ok := rc.Variables["*"]; !ok {
		t.Fatal("expected \"*\" defaults entry to survive into meta.ReconcileConfig")
	}
}

func TestTempRootRefDefaultsToSystemTempWhenUnset(t *testing.T) {
	c := &Config{TargetDir: "/tmp/target.zarr"}
	ref := c.TempRootRef()
	if ref.URI == "" {
		t.Fatal("expected a non-empty default temp root URI")
	}
}

func TestDispatchConfigWiresPersistMemSlices(t *testing.T) {
	c := Default()
	c.PersistMemSlices = true
	dc := c.DispatchConfig()
	if !dc.PersistMemSlices {
		t.Fatal("expected PersistMemSlices to be wired through")
	}
}

func TestMergedSliceSourceCombinesKwargsWithoutMutatingOriginal(t *testing.T) {
	c := Default()
	c.SliceSource = &slicesource.Callable{Kwargs: map[string]any{"a": 1}}
	c.SliceSourceKwargs = map[string]any{"b": 2}

	merged := c.mergedSliceSource()
	if merged.Kwargs["a"] != 1 || merged.Kwargs["b"] != 2 {
		t.Fatalf("expected merged kwargs {a:1, b:2}, got %v", merged.Kwargs)
	}
	if len(c.SliceSource.Kwargs) != 1 {
		t.Fatal("expected original Callable's Kwargs to be left untouched")
	}
}

func TestMergedSliceSourceReturnsOriginalWhenNoExtraKwargs(t *testing.T) {
	c := Default()
	original := &slicesource.Callable{Kwargs: map[string]any{"a": 1}}
	c.SliceSource = original
	if got := c.mergedSliceSource(); got != original {
		t.Fatal("expected the original Callable pointer when there are no extra kwargs")
	}
}
