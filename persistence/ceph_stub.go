//go:build !ceph

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
	"errors"
	"io"
)

// CephBackend is a stub when Ceph support is not compiled in.
// Build with -tags=ceph to enable it.
type CephBackend struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

var errCephNotBuilt = errors.New("persistence: ceph support not compiled in; build with -tags=ceph")

func (c *CephBackend) WriteBlob(shard, name string) (io.WriteCloser, error) {
	return nil, errCephNotBuilt
}

func (c *CephBackend) ReadBlob(shard, name string) (io.ReadCloser, error) {
	return nil, errCephNotBuilt
}

func (c *CephBackend) RemoveBlob(shard, name string) error { return errCephNotBuilt }

func (c *CephBackend) RemoveShard(shard string) error { return errCephNotBuilt }
