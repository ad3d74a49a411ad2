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

// Package rollback implements the transactional write path: a lock file
// plus a rollback log recording inverse operations for every target
// mutation, replayed on failure so a failed append leaves the target
// byte-identical to its pre-transaction state.
package rollback

// Action is one of the five inverse operations a rollback log entry can
// record.
type Action string

const (
	DeleteDir   Action = "delete_dir"
	DeleteFile  Action = "delete_file"
	ReplaceFile Action = "replace_file"
	CreateFile  Action = "create_file"
	RenameFile  Action = "rename_file"
)

func (a Action) valid() bool {
	switch a {
	case DeleteDir, DeleteFile, ReplaceFile, CreateFile, RenameFile:
		return true
	}
	return false
}

// needsBackup reports whether an Action's log entry carries a backup-id
// field (the original bytes stashed under the rollback dir).
func (a Action) needsBackup() bool {
	return a == ReplaceFile || a == CreateFile
}

// needsSecondPath reports whether an Action's log entry carries a second
// path field after the target path (rename_file's old path).
func (a Action) needsSecondPath() bool {
	return a == RenameFile
}

// Callback is the function a Transaction yields on entry: the function
// every mutating operation uses to append an inverse-op record to the
// rollback log.
type Callback func(action Action, targetPath string, extra ...string) error
