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

// Package config defines the Configuration struct the Processor is built
// from. Parsing/validating an external config document (JSON Schema,
// env-var interpolation) is out of scope, following spec.md §1; Config is
// meant to be constructed programmatically or decoded directly from JSON
// (or YAML, via sigs.k8s.io/yaml, as the teacher's db package's tests do),
// matching db.Definition's plain tagged-struct style.
package config

import (
	"encoding/json"
	"os"

	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/slicesource"
	"github.com/bcdev/zappend-go/tailor"
	"github.com/bcdev/zappend-go/zerr"
)

// VariableConfig is the configured shape for one variable, or the "*"
// entry carrying defaults applied to every variable. It is the JSON-tagged
// counterpart of meta.VariableConfig.
type VariableConfig struct {
	Dims     []string                `json:"dims,omitempty"`
	Encoding *meta.VariableEncoding  `json:"encoding,omitempty"`
	Attrs    map[string]any          `json:"attrs,omitempty"`
}

func (v VariableConfig) toMeta() meta.VariableConfig {
	return meta.VariableConfig{Dims: v.Dims, Encoding: v.Encoding, Attrs: v.Attrs}
}

// Polling is the slice_polling option: false or true sets Enabled alone
// (interval and timeout stay zero; there are no default values, and a
// zero timeout means the slice is opened once without retrying), while an
// {interval, timeout} object enables polling with the given values.
type Polling struct {
	Enabled  bool    `json:"-"`
	Interval float64 `json:"interval,omitempty"`
	Timeout  float64 `json:"timeout,omitempty"`
}

// UnmarshalJSON decodes false, true, or an {interval, timeout} object.
func (p *Polling) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &p.Enabled); err == nil {
		p.Interval, p.Timeout = 0, 0
		return nil
	}
	type fields Polling
	if err := json.Unmarshal(data, (*fields)(p)); err != nil {
		return err
	}
	p.Enabled = true
	return nil
}

func (p *Polling) toSliceSource() *slicesource.Polling {
	if p == nil || !p.Enabled {
		return nil
	}
	return &slicesource.Polling{Interval: p.Interval, Timeout: p.Timeout}
}

// Config is the full set of recognized configuration options from spec.md
// §6's table.
type Config struct {
	TargetDir            string            `json:"target_dir" category:"Target" doc:"URI of the target dataset (required); its parent must pre-exist."`
	TargetStorageOptions map[string]string `json:"target_storage_options,omitempty" category:"Target" doc:"Filesystem options for the target URI."`

	ForceNew bool `json:"force_new,omitempty" category:"Target" doc:"Delete target and lock before the first slice (non-transactional, cannot be rolled back)."`

	TempDir            string            `json:"temp_dir,omitempty" category:"Transaction" doc:"Temp root for rollback data; defaults to the system temp directory."`
	TempStorageOptions map[string]string `json:"temp_storage_options,omitempty" category:"Transaction" doc:"Filesystem options for the temp root."`

	DisableRollback bool `json:"disable_rollback,omitempty" category:"Transaction" doc:"Skip rollback logging (the lock file is still used)."`
	DryRun          bool `json:"dry_run,omitempty" category:"Transaction" doc:"Skip all mutating filesystem actions."`

	ZarrVersion int `json:"zarr_version,omitempty" category:"Format" doc:"Must equal the single supported major version (2)."`

	FixedDims map[string]int `json:"fixed_dims,omitempty" category:"Dimensions" doc:"Map of dim name to size, enforced as an equality constraint."`
	AppendDim string         `json:"append_dim,omitempty" category:"Dimensions" doc:"Name of the dimension appended along; defaults to \"time\"."`
	// AppendStep is nil, "+", "-", a timedelta string, or a number
	// (float64/int), matched against append-dim coordinate deltas by
	// appendlabel.Verify.
	AppendStep any `json:"append_step,omitempty" category:"Dimensions" doc:"null / \"+\" / \"-\" / timedelta string / number."`

	Variables         map[string]VariableConfig `json:"variables,omitempty" category:"Variables" doc:"Per-variable {dims, encoding, attrs}; key \"*\" supplies defaults."`
	IncludedVariables []string                  `json:"included_variables,omitempty" category:"Variables" doc:"Variable names to include."`
	ExcludedVariables []string                  `json:"excluded_variables,omitempty" category:"Variables" doc:"Variable names to exclude."`

	Attrs           map[string]any `json:"attrs,omitempty" category:"Attributes" doc:"Extra dataset attributes (supports {{ expr }} if permit_eval is set)."`
	AttrsUpdateMode string         `json:"attrs_update_mode,omitempty" category:"Attributes" doc:"One of keep / replace / update / ignore; defaults to keep."`
	PermitEval      bool           `json:"permit_eval,omitempty" category:"Attributes" doc:"Enable attribute expression evaluation."`

	PersistMemSlices    bool              `json:"persist_mem_slices,omitempty" category:"Slice source" doc:"Use a persisted slice source for in-memory slices."`
	SliceEngine         string            `json:"slice_engine,omitempty" category:"Slice source" doc:"Engine name for non-Zarr slices."`
	SliceStorageOptions map[string]string `json:"slice_storage_options,omitempty" category:"Slice source" doc:"Filesystem options for slice URIs."`
	SlicePolling        *Polling          `json:"slice_polling,omitempty" category:"Slice source" doc:"false / true / {interval, timeout}."`

	// SliceSource and SliceSourceCtxValue are set programmatically; "a
	// callable or fully-qualified name" (spec.md §6) is represented here
	// purely as a Go callable, since resolving a fully-qualified name to
	// a function is a config-loader concern out of scope per spec.md §1.
	SliceSource         *slicesource.Callable `json:"-"`
	SliceSourceKwargs   map[string]any        `json:"slice_source_kwargs,omitempty" category:"Slice source" doc:"Extra kwargs merged into each slice source invocation."`
	SliceSourceCtxValue any                   `json:"-"`

	Logf func(format string, args ...any) `json:"-"`
}

// Default returns a Config with every optional field at its spec.md §6
// documented default.
func Default() *Config {
	return &Config{
		TempDir:         os.TempDir(),
		ZarrVersion:     2,
		AppendDim:       "time",
		AttrsUpdateMode: "keep",
	}
}

// ResolveAttrsUpdateMode maps the configured AttrsUpdateMode string to a
// tailor.AttrsUpdateMode, defaulting to Keep for an empty value.
func (c *Config) ResolveAttrsUpdateMode() (tailor.AttrsUpdateMode, error) {
	switch c.AttrsUpdateMode {
	case "", "keep":
		return tailor.Keep, nil
	case "replace":
		return tailor.Replace, nil
	case "update":
		return tailor.Update, nil
	case "ignore":
		return tailor.Ignore, nil
	}
	return "", zerr.Newf(zerr.Configuration, "invalid attrs_update_mode %q", c.AttrsUpdateMode)
}

// Validate checks the options Processor construction cannot otherwise
// catch early: target_dir must be set, and zarr_version (if given) must be
// the one supported major version.
func (c *Config) Validate() error {
	if c.TargetDir == "" {
		return zerr.New(zerr.Configuration, "target_dir is required")
	}
	if c.ZarrVersion != 0 && c.ZarrVersion != 2 {
		return zerr.Newf(zerr.Configuration, "unsupported zarr_version %d, only 2 is supported", c.ZarrVersion)
	}
	if _, err := c.ResolveAttrsUpdateMode(); err != nil {
		return err
	}
	if c.AppendDim == "" {
		return zerr.New(zerr.Configuration, "append_dim must not be empty")
	}
	return nil
}

// ReconcileConfig builds the meta.ReconcileConfig FromDataset needs from
// the subset of options it cares about.
func (c *Config) ReconcileConfig() meta.ReconcileConfig {
	vars := make(map[string]meta.VariableConfig, len(c.Variables))
	configVars := make([]string, 0, len(c.Variables))
	for name, vc := range c.Variables {
		vars[name] = vc.toMeta()
		if name != "*" {
			configVars = append(configVars, name)
		}
	}
	return meta.ReconcileConfig{
		FixedDims:         c.FixedDims,
		AppendDim:         c.AppendDim,
		IncludedVariables: c.IncludedVariables,
		ExcludedVariables: c.ExcludedVariables,
		ConfigVars:        configVars,
		Variables:         vars,
	}
}

// TargetRef resolves target_dir/target_storage_options into a fsref.Ref.
func (c *Config) TargetRef() *fsref.Ref {
	return fsref.New(c.TargetDir, fsref.Options(c.TargetStorageOptions))
}

// TempRootRef resolves temp_dir/temp_storage_options into a fsref.Ref,
// defaulting temp_dir to the system temp directory when unset.
func (c *Config) TempRootRef() *fsref.Ref {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return fsref.New(dir, fsref.Options(c.TempStorageOptions))
}

// DispatchConfig builds the slicesource.DispatchConfig used to open every
// slice item, merging slice_source_kwargs into the configured Callable's
// own Kwargs without mutating the Config's copy.
func (c *Config) DispatchConfig() slicesource.DispatchConfig {
	return slicesource.DispatchConfig{
		PersistMemSlices:    c.PersistMemSlices,
		TempRoot:            c.TempRootRef(),
		SliceEngine:         c.SliceEngine,
		SlicePolling:        c.SlicePolling.toSliceSource(),
		SliceStorageOptions: fsref.Options(c.SliceStorageOptions),
		Logf:                c.Logf,
		SliceSource:         c.mergedSliceSource(),
		CtxValue:            c.SliceSourceCtxValue,
	}
}

func (c *Config) mergedSliceSource() *slicesource.Callable {
	if c.SliceSource == nil || len(c.SliceSourceKwargs) == 0 {
		return c.SliceSource
	}
	merged := *c.SliceSource
	merged.Kwargs = make(map[string]any, len(c.SliceSource.Kwargs)+len(c.SliceSourceKwargs))
	for k, v := range c.SliceSource.Kwargs {
		merged.Kwargs[k] = v
	}
	for k, v := range c.SliceSourceKwargs {
		merged.Kwargs[k] = v
	}
	return &merged
}
