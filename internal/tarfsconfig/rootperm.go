// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tarfsconfig

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/geropl/tarfs/internal/indexer"
)

// RootPermissionsFromPath derives the synthesized root directory's mode,
// uid and gid (spec §6.3) from an existing path's own stat info — by
// convention the mountpoint directory itself, so the mounted tree's root
// inherits the mountpoint's ownership and permission bits rather than an
// arbitrary default.
func RootPermissionsFromPath(path string) (indexer.RootPermissions, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return indexer.RootPermissions{}, fmt.Errorf("tarfsconfig: stat %s: %w", path, err)
	}
	return indexer.RootPermissions{
		Mode: st.Mode & 0o7777,
		Uid:  st.Uid,
		Gid:  st.Gid,
	}, nil
}
