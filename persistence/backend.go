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

/*
Package persistence abstracts where a shard's vector snapshots live,
so an engine.Engine can run against local disk, S3-compatible object
storage, or a Ceph/RADOS pool without its snapshot code changing.

The WAL itself stays on local disk regardless of Backend: it is a
single-writer, randomly-seekable append log on the durability hot
path, and every Backend here models objects as whole-blob
read/replace, which RADOS and S3 both require anyway (no object store
in this package supports in-place append).
*/
package persistence

import "io"

// Backend stores and retrieves named blobs scoped to one shard (the
// engine writes "<namespace>.snapshot", "<namespace>.hnsw" and a
// "namespaces" list).
type Backend interface {
	// WriteBlob returns a writer that replaces shard/name entirely on
	// Close. Callers must Close it to flush.
	WriteBlob(shard, name string) (io.WriteCloser, error)
	// ReadBlob opens shard/name for reading. Returns an error
	// satisfying os.IsNotExist-style detection via errors.Is(err,
	// ErrNotExist) when the blob has never been written.
	ReadBlob(shard, name string) (io.ReadCloser, error)
	// RemoveBlob deletes shard/name if present; removing a blob that
	// does not exist is not an error.
	RemoveBlob(shard, name string) error
	// RemoveShard deletes every blob belonging to shard.
	RemoveShard(shard string) error
}

// ErrNotExist is returned (or wrapped) by ReadBlob when the requested
// blob has never been written.
var ErrNotExist = errNotExist{}

type errNotExist struct{}

func (errNotExist) Error() string { return "persistence: blob does not exist" }
