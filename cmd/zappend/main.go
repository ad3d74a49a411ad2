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

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	zappend "github.com/bcdev/zappend-go"
	"github.com/bcdev/zappend-go/config"
	"github.com/bcdev/zappend-go/processor"
	"github.com/bcdev/zappend-go/slicesource"
	"sigs.k8s.io/yaml"
)

// configFiles collects one or more repeated -config/-c flag values, applied
// in order so later files are incremental to earlier ones.
type configFiles []string

func (f *configFiles) String() string { return strings.Join(*f, ",") }
func (f *configFiles) Set(v string) error {
	*f = append(*f, v)
	return nil
}

var (
	dashConfig     configFiles
	dashTarget     string
	dashForceNew   bool
	dashDryRun     bool
	dashVersion    bool
	dashHelpConfig string
)

func init() {
	flag.Var(&dashConfig, "config", "configuration JSON or YAML file (repeatable; later files are incremental)")
	flag.Var(&dashConfig, "c", "shorthand for -config")
	flag.StringVar(&dashTarget, "target", "", "target Zarr dataset path or URI, overrides target_dir")
	flag.StringVar(&dashTarget, "t", "", "shorthand for -target")
	flag.BoolVar(&dashForceNew, "force-new", false, "permanently delete an existing target and its lock before appending begins")
	flag.BoolVar(&dashDryRun, "dry-run", false, "run without creating, changing, or deleting any files")
	flag.BoolVar(&dashVersion, "version", false, "show version and exit")
	flag.StringVar(&dashHelpConfig, "help-config", "", "show configuration help (json|md) and exit")
	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: zappend [options] TARGET SLICE...")
	fmt.Fprintln(os.Stderr, "\nCreate or update a Zarr datacube TARGET from slice datasets SLICE...")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	if dashVersion {
		fmt.Println(zappend.Version)
		return
	}
	if dashHelpConfig != "" {
		text, err := config.HelpConfig(dashHelpConfig)
		if err != nil {
			exit(err)
		}
		fmt.Println(text)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: zappend [options] TARGET SLICE...")
		os.Exit(1)
	}
	positionalTarget, slices := args[0], args[1:]

	cfg, err := loadConfig()
	if err != nil {
		exit(err)
	}
	if dashTarget != "" {
		cfg.TargetDir = dashTarget
	} else if positionalTarget != "" {
		cfg.TargetDir = positionalTarget
	}
	cfg.ForceNew = cfg.ForceNew || dashForceNew
	cfg.DryRun = cfg.DryRun || dashDryRun
	cfg.Logf = func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}

	p, err := processor.New(cfg)
	if err != nil {
		exit(err)
	}

	items := make([]slicesource.Item, len(slices))
	for i, s := range slices {
		items[i] = slicesource.FromURI(s)
	}
	if err := p.ProcessSlices(items); err != nil {
		exit(err)
	}
}

// loadConfig starts from config.Default() and applies every -config file in
// order; a later file's JSON/YAML keys override the corresponding fields,
// but keys it omits leave earlier values untouched (json.Unmarshal's
// merge-on-present-keys behavior makes the incremental semantics free).
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	for _, path := range dashConfig {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	return cfg, nil
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
