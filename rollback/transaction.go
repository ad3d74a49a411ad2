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

package rollback

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/bcdev/zappend-go/fsref"
	"github.com/bcdev/zappend-go/zerr"
)

// rollbackLogName is the well-known name of the rollback log file inside a
// transaction's scratch directory.
const rollbackLogName = "__rollback__.txt"

// Transaction is the scoped acquisition of a target's lock file plus its
// rollback dir/log: created on Enter, replayed on a failing Exit, and
// always torn down (lock + rollback dir removed) on Exit.
//
// A Transaction is single-use: Enter must not be called twice, and a
// Callback obtained from Enter must not be called once Exit has returned.
type Transaction struct {
	Target          *fsref.Ref
	TempRoot        *fsref.Ref
	DisableRollback bool
	Logf            func(format string, args ...any)

	lock        *fsref.Ref
	rollbackDir *fsref.Ref
	logRef      *fsref.Ref
	entered     bool
	active      bool
}

func (t *Transaction) logf(format string, args ...any) {
	if t.Logf != nil {
		t.Logf(format, args...)
	}
}

// LockRef returns the lock file reference for a given target, without
// requiring a Transaction to exist: "{target}.lock" next to target.
func LockRef(target *fsref.Ref) (*fsref.Ref, error) {
	parent, err := target.Parent()
	if err != nil {
		return nil, err
	}
	return parent.Join(target.Base() + ".lock")
}

// Enter acquires the target lock and, unless DisableRollback, creates the
// rollback dir and an empty rollback log, returning the Callback that
// records inverse operations for the remainder of the transaction's scope.
func (t *Transaction) Enter() (Callback, error) {
	if t.entered {
		return nil, fmt.Errorf("rollback: transaction already entered")
	}
	t.entered = true

	parentExists, err := func() (bool, error) {
		parent, perr := t.Target.Parent()
		if perr != nil {
			return false, perr
		}
		return parent.Exists()
	}()
	if err != nil {
		return nil, err
	}
	if !parentExists {
		return nil, zerr.Newf(zerr.NotFound, "parent directory of target %s does not exist", t.Target.URI)
	}

	lock, err := LockRef(t.Target)
	if err != nil {
		return nil, err
	}
	t.lock = lock

	exists, err := lock.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, zerr.Newf(zerr.Lock, "Target is locked: %s", lock.URI)
	}

	rollbackDir, err := t.TempRoot.Join("zappend-" + uuid.NewString())
	if err != nil {
		return nil, err
	}
	t.rollbackDir = rollbackDir

	if err := lock.Write([]byte(rollbackDir.URI), fsref.ModeWriteText); err != nil {
		return nil, err
	}

	if !t.DisableRollback {
		if err := rollbackDir.Mkdir(); err != nil {
			return nil, err
		}
		logRef, err := rollbackDir.Join(rollbackLogName)
		if err != nil {
			return nil, err
		}
		t.logRef = logRef
		if err := logRef.Write(nil, fsref.ModeWriteText); err != nil {
			return nil, err
		}
	}

	t.active = true
	return t.addRollbackOp, nil
}

// addRollbackOp is the Callback yielded by Enter. extra[0] carries the
// backup-id for replace_file/create_file, or the old path for rename_file.
func (t *Transaction) addRollbackOp(action Action, targetPath string, extra ...string) error {
	if !t.active {
		return fmt.Errorf("rollback: callback invoked outside active transaction scope")
	}
	if !action.valid() {
		return fmt.Errorf("rollback: unknown action %q", action)
	}
	if t.DisableRollback {
		return nil
	}
	switch {
	case action.needsBackup():
		if len(extra) != 1 {
			return fmt.Errorf("rollback: action %q requires a backup id", action)
		}
	case action.needsSecondPath():
		if len(extra) != 1 {
			return fmt.Errorf("rollback: action %q requires a second path", action)
		}
	default:
		if len(extra) != 0 {
			return fmt.Errorf("rollback: action %q takes no extra fields", action)
		}
	}

	fields := []string{string(action), escapeField(targetPath)}
	for _, e := range extra {
		fields = append(fields, escapeField(e))
	}
	line := strings.Join(fields, ";") + "\n"
	return t.logRef.Write([]byte(line), fsref.ModeAppendText)
}

// Backup writes data under the rollback dir as a fresh blob and returns its
// backup-id, for use by callers emitting replace_file/create_file records.
// The backup-id is the blake2b-256 content hash of data, so two backups of
// identical bytes within the same transaction (a common case when a chunk
// is overwritten with unchanged content, or several chunks share a fill
// value) collapse onto the same blob instead of writing duplicates.
func (t *Transaction) Backup(data []byte) (string, error) {
	sum := blake2b.Sum256(data)
	id := hex.EncodeToString(sum[:])
	ref, err := t.rollbackDir.Join(id)
	if err != nil {
		return "", err
	}
	exists, err := ref.Exists()
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}
	if err := ref.Write(data, fsref.ModeWriteBinary); err != nil {
		return "", err
	}
	return id, nil
}

// Exit tears down the transaction. If failed is non-nil, the rollback log
// (if any) is replayed, best-effort, before the lock and rollback dir are
// removed. Replay errors are reported via Logf and never mask failed.
func (t *Transaction) Exit(failed error) {
	t.active = false

	if failed != nil && !t.DisableRollback && t.logRef != nil {
		if err := t.replay(); err != nil {
			t.logf("rollback: replay error (original error preserved): %v", err)
		}
	}

	if t.rollbackDir != nil {
		if exists, _ := t.rollbackDir.Exists(); exists {
			if err := t.rollbackDir.Delete(true); err != nil {
				t.logf("rollback: failed to remove rollback dir %s: %v", t.rollbackDir.URI, err)
			}
		}
	}

	if t.lock != nil {
		if err := t.lock.Delete(false); err != nil {
			t.logf("rollback: failed to remove target lock %s: %v", t.lock.URI, err)
			t.logf("note: it is safe to delete it manually")
		}
	}
}

type logRecord struct {
	action Action
	path   string
	extra  []string
}

func (t *Transaction) replay() error {
	exists, err := t.logRef.Exists()
	if err != nil || !exists {
		return err
	}
	text, err := t.logRef.ReadString()
	if err != nil {
		return err
	}
	records, err := parseLog(text)
	if err != nil {
		return err
	}
	var firstErr error
	for _, rec := range records {
		if err := t.replayOne(rec); err != nil {
			t.logf("rollback: error replaying %s %s: %v", rec.action, rec.path, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (t *Transaction) replayOne(rec logRecord) error {
	target, err := t.Target.Join(rec.path)
	if err != nil {
		return err
	}
	switch rec.action {
	case DeleteDir:
		exists, err := target.Exists()
		if err != nil || !exists {
			return err
		}
		return target.Delete(true)
	case DeleteFile:
		exists, err := target.Exists()
		if err != nil || !exists {
			return err
		}
		return target.Delete(false)
	case ReplaceFile, CreateFile:
		backup, err := t.rollbackDir.Join(rec.extra[0])
		if err != nil {
			return err
		}
		data, err := backup.ReadBytes()
		if err != nil {
			return err
		}
		return target.Write(data, fsref.ModeWriteBinary)
	case RenameFile:
		oldTarget, err := t.Target.Join(rec.extra[0])
		if err != nil {
			return err
		}
		return target.RenameTo(oldTarget)
	}
	return fmt.Errorf("rollback: unreplayable action %q", rec.action)
}

// parseLog parses the "action;path[;backup-id]" grammar, rejecting unknown
// actions and wrong field arity.
func parseLog(text string) ([]logRecord, error) {
	var out []logRecord
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		for i, f := range fields {
			fields[i] = unescapeField(f)
		}
		action := Action(fields[0])
		if !action.valid() {
			return nil, fmt.Errorf("rollback: malformed log entry, unknown action %q", fields[0])
		}
		rest := fields[1:]
		switch {
		case action.needsBackup() || action.needsSecondPath():
			if len(rest) != 2 {
				return nil, fmt.Errorf("rollback: malformed log entry %q: want 2 fields after action, got %d", line, len(rest))
			}
		default:
			if len(rest) != 1 {
				return nil, fmt.Errorf("rollback: malformed log entry %q: want 1 field after action, got %d", line, len(rest))
			}
		}
		out = append(out, logRecord{action: action, path: rest[0], extra: rest[1:]})
	}
	return out, nil
}

// escapeField/unescapeField guard against a path containing the reserved
// ";" separator, per spec.md §6 ("; is a reserved separator").
func escapeField(s string) string {
	return strings.ReplaceAll(s, ";", "%3B")
}

func unescapeField(s string) string {
	return strings.ReplaceAll(s, "%3B", ";")
}
