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

import "github.com/bcdev/zappend-go/dataset"

// Store is a key-value overlay on a dataset.ChunkStore that emits an
// inverse rollback-log entry for every mutation:
//
//	set(k,v) when absent  -> delete_file k
//	set(k,v) when present -> replace_file k <backup of old v>
//	del(k) when present   -> create_file k <backup of old v>
//	rename(src,dst)        -> rename_file dst src
//	rmdir(path)             -> delete_dir path
//
// Get and List pass through without logging.
type Store struct {
	Inner  dataset.ChunkStore
	Backup func(data []byte) (string, error)
	Emit   Callback
}

// NewStore wraps inner so every mutation is recorded via emit, using backup
// to stash original bytes under the rollback dir.
func NewStore(inner dataset.ChunkStore, backup func(data []byte) (string, error), emit Callback) *Store {
	return &Store{Inner: inner, Backup: backup, Emit: emit}
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	return s.Inner.Get(key)
}

func (s *Store) List(prefix string) ([]string, error) {
	return s.Inner.List(prefix)
}

func (s *Store) Set(key string, data []byte) error {
	old, exists, err := s.Inner.Get(key)
	if err != nil {
		return err
	}
	if err := s.Inner.Set(key, data); err != nil {
		return err
	}
	if exists {
		bid, err := s.Backup(old)
		if err != nil {
			return err
		}
		return s.Emit(ReplaceFile, key, bid)
	}
	return s.Emit(DeleteFile, key)
}

func (s *Store) Del(key string) error {
	old, exists, err := s.Inner.Get(key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.Inner.Del(key); err != nil {
		return err
	}
	bid, err := s.Backup(old)
	if err != nil {
		return err
	}
	return s.Emit(CreateFile, key, bid)
}

func (s *Store) Rename(src, dst string) error {
	if err := s.Inner.Rename(src, dst); err != nil {
		return err
	}
	return s.Emit(RenameFile, dst, src)
}

func (s *Store) Rmdir(key string) error {
	if err := s.Inner.Rmdir(key); err != nil {
		return err
	}
	return s.Emit(DeleteDir, key)
}

var _ dataset.ChunkStore = (*Store)(nil)
