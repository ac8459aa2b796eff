//go:build ceph

/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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
	"bytes"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephBackend stores every blob as one whole RADOS object at
// <prefix>/<shard>-<name>, written with WriteFull since RADOS objects
// have no append primitive either.
type CephBackend struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func (c *CephBackend) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opened {
		return nil
	}
	conn, err := rados.NewConnWithClusterAndUser(c.ClusterName, c.UserName)
	if err != nil {
		return err
	}
	if c.ConfFile != "" {
		if err := conn.ReadConfigFile(c.ConfFile); err != nil {
			return err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return err
	}
	ioctx, err := conn.OpenIOContext(c.Pool)
	if err != nil {
		conn.Shutdown()
		return err
	}
	c.conn = conn
	c.ioctx = ioctx
	c.opened = true
	return nil
}

func (c *CephBackend) obj(shard, name string) string {
	return path.Join(strings.TrimSuffix(c.Prefix, "/"), shard+"-"+name)
}

func (c *CephBackend) WriteBlob(shard, name string) (io.WriteCloser, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	return &cephWriter{backend: c, obj: c.obj(shard, name)}, nil
}

func (c *CephBackend) ReadBlob(shard, name string) (io.ReadCloser, error) {
	if err := c.ensureOpen(); err != nil {
		return nil, err
	}
	obj := c.obj(shard, name)
	stat, err := c.ioctx.Stat(obj)
	if err != nil {
		if err == rados.ErrNotFound {
			return nil, ErrNotExist
		}
		return nil, err
	}
	data := make([]byte, stat.Size)
	n, err := c.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data[:n])), nil
}

func (c *CephBackend) RemoveBlob(shard, name string) error {
	if err := c.ensureOpen(); err != nil {
		return err
	}
	err := c.ioctx.Delete(c.obj(shard, name))
	if err != nil && err != rados.ErrNotFound {
		return err
	}
	return nil
}

func (c *CephBackend) RemoveShard(shard string) error {
	// Removes only the blobs named "snapshot" and "hnsw". Other blobs of
	// the shard (such as the engine's "<namespace>.snapshot",
	// "<namespace>.hnsw" and "namespaces") are left in the pool; deleting
	// them takes a RemoveBlob call per name.
	if err := c.RemoveBlob(shard, "snapshot"); err != nil {
		return err
	}
	return c.RemoveBlob(shard, "hnsw")
}

type cephWriter struct {
	backend *CephBackend
	obj     string
	buf     bytes.Buffer
}

func (w *cephWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *cephWriter) Close() error {
	return w.backend.ioctx.WriteFull(w.obj, w.buf.Bytes())
}
