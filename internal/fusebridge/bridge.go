// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fusebridge is the kernel-facing FUSE adapter spec.md §1 treats
// as an external collaborator: it builds a github.com/hanwen/go-fuse/v2
// Inode tree once at mount time from the already-built index, and
// delegates every attribute/content request straight through to
// internal/tarfs.Server. This package owns no filesystem semantics of
// its own; internal/tarfs is the tested, ino-addressed core (spec §6.2).
package fusebridge

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/geropl/tarfs/internal/index"
	"github.com/geropl/tarfs/internal/tarfs"
)

// Root is the InodeEmbedder for the mounted tree's root. Its OnAdd
// callback (invoked once, while fs.Mount builds the node filesystem and
// before the kernel mount is set up) walks
// the already-built index and materializes it as a static Inode tree,
// the same pattern the teacher's zipfs/tarfs.go OnAdd uses.
type Root struct {
	fs.Inode
	srv *tarfs.Server
}

// NewRoot returns the InodeEmbedder to pass to fs.Mount.
func NewRoot(srv *tarfs.Server) *Root {
	return &Root{srv: srv}
}

var _ = (fs.NodeOnAdder)((*Root)(nil))

func (r *Root) OnAdd(ctx context.Context) {
	buildChildren(ctx, &r.Inode, tarfs.RootIno, r.srv)
}

var _ = (fs.NodeGetattrer)((*Root)(nil))

func (r *Root) Getattr(ctx context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, errno := r.srv.Getattr(ctx, tarfs.RootIno)
	if errno != 0 {
		return errno
	}
	fillAttr(&out.Attr, a)
	return 0
}

// buildChildren adds one Inode per child of parentIno to parent. Hard
// links and their targets are added with the same StableAttr.Ino, which
// go-fuse treats as the same inode (so stat on either path reports the
// shared ino, per spec §3.3 invariant 5) — mirroring the in-memory
// index's own ino-sharing design (spec §9).
func buildChildren(ctx context.Context, parent *fs.Inode, parentIno uint64, srv *tarfs.Server) {
	err := srv.Readdir(ctx, parentIno, 0, func(_ uint64, de tarfs.DirEntry) bool {
		if de.Name == "." || de.Name == ".." {
			return true
		}

		mode := kindToMode(de.Kind)
		child := &node{ino: de.Ino, srv: srv}
		ch := parent.NewPersistentInode(ctx, child, fs.StableAttr{
			Mode: mode,
			Ino:  de.Ino,
		})
		parent.AddChild(de.Name, ch, true)

		if de.Kind == index.KindDirectory {
			buildChildren(ctx, ch, de.Ino, srv)
		}
		return true
	})
	if err != 0 {
		return
	}
}

func kindToMode(k index.Kind) uint32 {
	switch k {
	case index.KindDirectory:
		return syscall.S_IFDIR
	case index.KindSymlink:
		return syscall.S_IFLNK
	default:
		return syscall.S_IFREG
	}
}

// node is the InodeEmbedder for every non-root Entry. It carries no
// state beyond its own ino and a shared pointer to the core Server;
// every handler is a straight delegation.
type node struct {
	fs.Inode
	ino uint64
	srv *tarfs.Server
}

var (
	_ = (fs.NodeGetattrer)((*node)(nil))
	_ = (fs.NodeReadlinker)((*node)(nil))
	_ = (fs.NodeReader)((*node)(nil))
	_ = (fs.NodeOpener)((*node)(nil))
)

func (n *node) Getattr(ctx context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	a, errno := n.srv.Getattr(ctx, n.ino)
	if errno != 0 {
		return errno
	}
	fillAttr(&out.Attr, a)
	return 0
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	return n.srv.Readlink(ctx, n.ino)
}

// Open declines a file handle: reads are stateless (spec §5), served
// directly by Read without an fh.
func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, _ fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, errno := n.srv.Read(ctx, n.ino, off, dest)
	if errno != 0 {
		return nil, errno
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func fillAttr(out *fuse.Attr, a index.Attrs) {
	out.Ino = a.Ino
	out.Size = a.Size
	out.Mode = a.Perm | kindToMode(a.Kind)
	out.Nlink = a.Nlink
	out.Uid = a.Uid
	out.Gid = a.Gid
	out.SetTimes(&a.Atime, &a.Mtime, &a.Ctime)
}
