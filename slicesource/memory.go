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

import "github.com/bcdev/zappend-go/dataset"

// Memory wraps an already-open dataset; Close simply drops the reference.
type Memory struct {
	ds *dataset.Dataset
}

// NewMemory returns a Source that serves ds directly.
func NewMemory(ds *dataset.Dataset) *Memory {
	return &Memory{ds: ds}
}

func (m *Memory) GetDataset() (*dataset.Dataset, error) {
	return m.ds, nil
}

func (m *Memory) Close() error {
	m.ds = nil
	return nil
}

var _ Source = (*Memory)(nil)
