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

package processor

import (
	"encoding/json"

	"github.com/bcdev/zappend-go/attrs"
	"github.com/bcdev/zappend-go/dataset"
	"github.com/bcdev/zappend-go/rollback"
	"github.com/bcdev/zappend-go/tailor"
)

// createTargetFromSlice tailors sliceDS into the brand new target's shape
// and writes it in full. rbCb("delete_dir", "") is registered *before* any
// bytes are written, so a failure partway through WriteDataset still rolls
// back the half-written target; replaying delete_dir on a path that was
// never actually created is a no-op (see Transaction.replayOne).
func (p *Processor) createTargetFromSlice(sliceDS *dataset.Dataset, rbCb rollback.Callback) error {
	logf(p.cfg, "creating target dataset %s", p.targetRef.URI)

	mode, err := p.cfg.ResolveAttrsUpdateMode()
	if err != nil {
		return err
	}
	targetDS, err := tailor.TailorTarget(p.targetMetadata, sliceDS, mode, p.cfg.Attrs)
	if err != nil {
		return err
	}

	if p.cfg.DryRun {
		return nil
	}

	if err := rbCb(rollback.DeleteDir, ""); err != nil {
		return err
	}

	cs := dataset.NewFileChunkStore(p.targetRef)
	if writeErr := p.store.WriteDataset(cs, targetDS, p.targetMetadata); writeErr != nil {
		return writeErr
	}

	return p.postCreateTarget(cs, targetDS)
}

// updateTargetFromSlice tailors sliceDS down to the variables that carry
// append_dim and appends it to the existing target through a rollback.Store
// so every mutated chunk key is logged for replay.
func (p *Processor) updateTargetFromSlice(sliceDS *dataset.Dataset, rbCb rollback.Callback, txn *rollback.Transaction) error {
	logf(p.cfg, "updating target dataset %s", p.targetRef.URI)

	mode, err := p.cfg.ResolveAttrsUpdateMode()
	if err != nil {
		return err
	}
	tailoredDS, err := tailor.TailorSliceDataset(p.targetMetadata, sliceDS, p.cfg.AppendDim, mode, p.cfg.Attrs)
	if err != nil {
		return err
	}

	if p.cfg.DryRun {
		return nil
	}

	cs := dataset.NewFileChunkStore(p.targetRef)
	rbStore := rollback.NewStore(cs, txn.Backup, rbCb)

	if _, err := p.store.AppendDataset(rbStore, tailoredDS, p.targetMetadata, p.cfg.AppendDim); err != nil {
		return err
	}

	return p.postUpdateTarget(rbStore, tailoredDS)
}

// postCreateTarget resolves any dynamic attrs against the just-written
// target and merges the result back into its .zattrs.
func (p *Processor) postCreateTarget(cs dataset.ChunkStore, targetDS *dataset.Dataset) error {
	if !p.cfg.PermitEval || !attrs.HasDynamic(targetDS.GlobalAttrs) {
		return nil
	}
	return resolveAndWriteAttrs(cs, targetDS.GlobalAttrs, attrs.Env{Ds: targetDS})
}

// postUpdateTarget resolves any dynamic attrs carried by the tailored slice
// (the ones attrs_update_mode decided should land on the target) against the
// full, just-appended target dataset, then merges the result back.
func (p *Processor) postUpdateTarget(cs dataset.ChunkStore, slicedDS *dataset.Dataset) error {
	if !p.cfg.PermitEval || !attrs.HasDynamic(slicedDS.GlobalAttrs) {
		return nil
	}
	targetDS, _, err := dataset.ReadDataset(cs)
	if err != nil {
		return err
	}
	return resolveAndWriteAttrs(cs, slicedDS.GlobalAttrs, attrs.Env{Ds: targetDS})
}

// resolveAndWriteAttrs evaluates attrsToResolve's "{{ expr }}" placeholders
// against env and merges the resolved values into cs's existing .zattrs.
func resolveAndWriteAttrs(cs dataset.ChunkStore, attrsToResolve map[string]any, env attrs.Env) error {
	resolved, err := attrs.Resolve(attrsToResolve, env)
	if err != nil {
		return err
	}
	existing := map[string]any{}
	if raw, ok, err := cs.Get(".zattrs"); err != nil {
		return err
	} else if ok {
		if err := json.Unmarshal(raw, &existing); err != nil {
			return err
		}
	}
	for k, v := range resolved {
		existing[k] = v
	}
	data, err := json.Marshal(existing)
	if err != nil {
		return err
	}
	return cs.Set(".zattrs", data)
}
