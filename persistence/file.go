/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package persistence

import (
	"io"
	"os"
	"path/filepath"
)

// FileBackend is the default Backend: one file per shard/name pair
// under Basepath.
type FileBackend struct {
	Basepath string
}

// NewFileBackend roots a FileBackend at basepath. The directory is
// created by the first WriteBlob, not here.
func NewFileBackend(basepath string) *FileBackend {
	return &FileBackend{Basepath: basepath}
}

func (f *FileBackend) objPath(shard, name string) string {
	return filepath.Join(f.Basepath, shard+"-"+name)
}

func (f *FileBackend) WriteBlob(shard, name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(f.Basepath, 0o755); err != nil {
		return nil, err
	}
	return os.Create(f.objPath(shard, name))
}

func (f *FileBackend) ReadBlob(shard, name string) (io.ReadCloser, error) {
	r, err := os.Open(f.objPath(shard, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return r, nil
}

func (f *FileBackend) RemoveBlob(shard, name string) error {
	err := os.Remove(f.objPath(shard, name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FileBackend) RemoveShard(shard string) error {
	entries, err := os.ReadDir(f.Basepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	prefix := shard + "-"
	for _, e := range entries {
		if len(e.Name()) >= len(prefix) && e.Name()[:len(prefix)] == prefix {
			if err := os.Remove(filepath.Join(f.Basepath, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
