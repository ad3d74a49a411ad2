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

package dataset

import (
	"fmt"

	"github.com/bcdev/zappend-go/fsref"
)

// ChunkStore is a key-value view of the target directory: keys are paths
// relative to the target root (".zgroup", "temp/.zarray", "temp/0.0", ...).
// rollback.Store wraps a ChunkStore to emit inverse log entries for every
// mutation; a plain FileChunkStore is used when creating a brand new target
// (nothing to roll back to, since nothing existed before).
type ChunkStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Del(key string) error
	Rename(src, dst string) error
	Rmdir(key string) error
	List(prefix string) ([]string, error)
}

// FileChunkStore implements ChunkStore directly atop an fsref.Ref root.
type FileChunkStore struct {
	Root *fsref.Ref
}

// NewFileChunkStore returns a ChunkStore rooted at root.
func NewFileChunkStore(root *fsref.Ref) *FileChunkStore {
	return &FileChunkStore{Root: root}
}

func (s *FileChunkStore) ref(key string) (*fsref.Ref, error) {
	return s.Root.Join(key)
}

func (s *FileChunkStore) Get(key string) ([]byte, bool, error) {
	r, err := s.ref(key)
	if err != nil {
		return nil, false, err
	}
	ok, err := r.Exists()
	if err != nil || !ok {
		return nil, ok, err
	}
	data, err := r.ReadBytes()
	return data, true, err
}

func (s *FileChunkStore) Set(key string, data []byte) error {
	r, err := s.ref(key)
	if err != nil {
		return err
	}
	return r.Write(data, fsref.ModeWriteBinary)
}

func (s *FileChunkStore) Del(key string) error {
	r, err := s.ref(key)
	if err != nil {
		return err
	}
	return r.Delete(false)
}

func (s *FileChunkStore) Rmdir(key string) error {
	r, err := s.ref(key)
	if err != nil {
		return err
	}
	return r.Delete(true)
}

func (s *FileChunkStore) List(prefix string) ([]string, error) {
	r, err := s.ref(prefix)
	if err != nil {
		return nil, err
	}
	return r.List()
}

func (s *FileChunkStore) Rename(src, dst string) error {
	data, ok, err := s.Get(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("dataset: rename: source %q does not exist", src)
	}
	if err := s.Set(dst, data); err != nil {
		return err
	}
	return s.Del(src)
}
