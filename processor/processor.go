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

// Package processor implements the orchestration described in spec.md
// §4.9: for each slice, open it, reconcile its metadata against the
// target's, verify its append-dim labels, then create or update the
// target inside a Transaction, resolving any dynamic attrs afterwards.
package processor

import (
	"github.com/bcdev/zappend-go/appendlabel"
	"github.com/bcdev/zappend-go/config"
	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/meta"
	"github.com/bcdev/zappend-go/rollback"
	"github.com/bcdev/zappend-go/slicesource"
	"github.com/bcdev/zappend-go/zerr"
)

// Processor drives the creation and subsequent updates of a single target
// dataset across a sequence of slices.
type Processor struct {
	cfg       *config.Config
	store     *dataset.Store
	targetRef *fsref.Ref
	tempRoot  *fsref.Ref

	targetMetadata  *meta.DatasetMetadata
	lastAppendLabel *float64
}

// New validates cfg, applies force_new if configured, and -- if a target
// already exists -- loads its current outline and last append-dim label so
// the first processed slice is checked as an append rather than a create.
func New(cfg *config.Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	targetRef := cfg.TargetRef()
	tempRoot := cfg.TempRootRef()

	if cfg.ForceNew {
		if err := deleteTargetPermanently(cfg, targetRef); err != nil {
			return nil, err
		}
	}

	p := &Processor{
		cfg:       cfg,
		store:     dataset.NewStore(cfg.Logf),
		targetRef: targetRef,
		tempRoot:  tempRoot,
	}

	exists, err := targetRef.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		cs := dataset.NewFileChunkStore(targetRef)
		ds, md, err := dataset.ReadDataset(cs)
		if err != nil {
			return nil, zerr.Wrap(zerr.Metadata, "reading existing target", err)
		}
		p.targetMetadata = md
		if labels, ok := ds.VarValues(cfg.AppendDim); ok && len(labels) > 0 {
			last := labels[len(labels)-1]
			p.lastAppendLabel = &last
		}
	}

	return p, nil
}

func logf(cfg *config.Config, format string, args ...any) {
	if cfg.Logf != nil {
		cfg.Logf(format, args...)
	}
}

func deleteTargetPermanently(cfg *config.Config, targetRef *fsref.Ref) error {
	exists, err := targetRef.Exists()
	if err != nil {
		return err
	}
	if exists {
		logf(cfg, "force_new: permanently deleting target %s (no rollback)", targetRef.URI)
		if !cfg.DryRun {
			if err := targetRef.Delete(true); err != nil {
				return err
			}
		}
	}
	lockRef, err := rollback.LockRef(targetRef)
	if err != nil {
		return err
	}
	lockExists, err := lockRef.Exists()
	if err != nil {
		return err
	}
	if lockExists {
		logf(cfg, "force_new: permanently deleting lock %s", lockRef.URI)
		if !cfg.DryRun {
			if err := lockRef.Delete(false); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessSlices processes each item in slices in order via ProcessSlice.
func (p *Processor) ProcessSlices(slices []slicesource.Item) error {
	for i, item := range slices {
		if err := p.ProcessSlice(item, i); err != nil {
			return err
		}
	}
	return nil
}

// ProcessSlice processes a single slice item, per spec.md §4.9.
func (p *Processor) ProcessSlice(item slicesource.Item, sliceIndex int) (err error) {
	cfg := p.cfg

	src, err := slicesource.Open(cfg.DispatchConfig(), item)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(); err == nil {
			err = cerr
		}
	}()

	sliceDS, err := src.GetDataset()
	if err != nil {
		return err
	}

	sliceMD, err := meta.FromDataset(sliceDS, cfg.ReconcileConfig())
	if err != nil {
		return err
	}

	creating := p.targetMetadata == nil
	if creating {
		p.targetMetadata = sliceMD
	} else {
		if err := p.targetMetadata.AssertCompatibleSlice(sliceMD, cfg.AppendDim); err != nil {
			return err
		}
	}

	labels, _ := sliceDS.VarValues(cfg.AppendDim)
	if err := appendlabel.Verify(cfg.AppendStep, p.lastAppendLabel, labels); err != nil {
		return err
	}

	txn := &rollback.Transaction{
		Target:          p.targetRef,
		TempRoot:        p.tempRoot,
		DisableRollback: cfg.DisableRollback,
		Logf:            cfg.Logf,
	}
	rbCb, err := txn.Enter()
	if err != nil {
		return err
	}
	defer func() { txn.Exit(err) }()

	if creating {
		err = p.createTargetFromSlice(sliceDS, rbCb)
	} else {
		err = p.updateTargetFromSlice(sliceDS, rbCb, txn)
	}
	if err != nil {
		return err
	}

	if len(labels) > 0 {
		last := labels[len(labels)-1]
		p.lastAppendLabel = &last
	}
	return nil
}
