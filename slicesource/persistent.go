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
	"strings"
	"time"

	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/zerr"
)

// Polling configures retrying a Persistent open against a slice producer
// that may not have finished writing yet: retry every Interval seconds
// until Timeout seconds have elapsed.
type Polling struct {
	Interval float64
	Timeout  float64
}

// Persistent opens a slice dataset by URI, the engine selected per
// spec.md §4.4 (".zarr"/".zarr.zip" suffix implies the Zarr engine unless
// one is explicitly configured).
type Persistent struct {
	Ref     *fsref.Ref
	Engine  string
	Polling *Polling

	sleep func(time.Duration)
}

// NewPersistent returns a Source that opens ref, using engine (empty
// defaults to Zarr-by-suffix) and polling (nil disables retrying).
func NewPersistent(ref *fsref.Ref, engine string, polling *Polling) *Persistent {
	return &Persistent{Ref: ref, Engine: engine, Polling: polling, sleep: time.Sleep}
}

func (p *Persistent) resolveEngine() (string, error) {
	if p.Engine == "" {
		if strings.HasSuffix(p.Ref.URI, ".zarr") || strings.HasSuffix(p.Ref.URI, ".zarr.zip") {
			return "zarr", nil
		}
		return "", zerr.Newf(zerr.Configuration, "slice %s: no slice_engine configured and URI does not look like a Zarr store", p.Ref.URI)
	}
	if p.Engine != "zarr" {
		return "", zerr.Newf(zerr.Configuration, "unsupported slice_engine %q", p.Engine)
	}
	return "zarr", nil
}

func (p *Persistent) GetDataset() (*dataset.Dataset, error) {
	engine, err := p.resolveEngine()
	if err != nil {
		return nil, err
	}
	_ = engine // only "zarr" is implemented; resolveEngine rejects anything else

	cs := dataset.NewFileChunkStore(p.Ref)

	if p.Polling == nil || p.Polling.Timeout <= 0 {
		return p.tryOpen(cs)
	}

	deadline := time.Now().Add(time.Duration(p.Polling.Timeout * float64(time.Second)))
	var lastErr error
	for {
		ds, err := p.tryOpen(cs)
		if err == nil {
			return ds, nil
		}
		lastErr = err
		if !time.Now().Before(deadline) {
			break
		}
		p.sleep(time.Duration(p.Polling.Interval * float64(time.Second)))
	}
	return nil, zerr.Wrap(zerr.NotFound, "slice "+p.Ref.URI+" did not appear before polling timeout", lastErr)
}

func (p *Persistent) tryOpen(cs dataset.ChunkStore) (*dataset.Dataset, error) {
	exists, err := p.Ref.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, zerr.Newf(zerr.NotFound, "slice %s not found", p.Ref.URI)
	}
	ds, _, err := dataset.ReadDataset(cs)
	return ds, err
}

func (p *Persistent) Close() error {
	return nil
}

var _ Source = (*Persistent)(nil)
