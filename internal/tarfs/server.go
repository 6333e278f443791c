// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tarfs implements the abstract filesystem operations contract
// spec.md §4.2/§6.2 describes: lookup, getattr, readdir, read, and
// readlink, each addressed by inode number against the in-memory index
// built by internal/indexer. This is the core's C6 component; the
// kernel-facing FUSE adapter (internal/fusebridge) is an external
// collaborator that translates kernel requests into calls here.
package tarfs

import (
	"context"
	"log/slog"
	"syscall"

	"github.com/geropl/tarfs/internal/content"
	"github.com/geropl/tarfs/internal/index"
	"github.com/geropl/tarfs/internal/indexmaps"
	"github.com/geropl/tarfs/internal/tarerr"
)

// RootIno is the inode number of the mounted tree's root (spec §3.1).
const RootIno = 1

// DirEntry is one record of a readdir reply (spec §4.2.1).
type DirEntry struct {
	Ino  uint64
	Name string
	Kind index.Kind
}

// Server answers filesystem requests against one built index. It holds
// no per-request state: the index is read-only once built (spec §5), and
// reads are stateless, each reading the archive at its own offset
// (spec §4.2.2).
type Server struct {
	maps    *indexmaps.Maps
	content *content.Reader
	log     *slog.Logger
}

// New returns a Server over a committed index and its backing archive
// file (already open for reading).
func New(maps *indexmaps.Maps, reader *content.Reader, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{maps: maps, content: reader, log: log}
}

// Lookup resolves a child name within a directory. On miss it returns a
// synthetic zero-ino Attrs with ok=false and no error: spec §4.2 prefers
// negative-entry caching over ENOENT, so the kernel is expected to cache
// the miss rather than repeat the call. It never returns syscall.ENOENT.
func (s *Server) Lookup(_ context.Context, parentIno uint64, name string) (attrs index.Attrs, ok bool) {
	childIno, found := s.maps.Lookup(parentIno, name)
	if !found {
		return index.Attrs{}, false
	}
	a, found := s.maps.Attrs(childIno)
	if !found {
		return index.Attrs{}, false
	}
	return a, true
}

// Getattr returns the attributes for ino.
func (s *Server) Getattr(_ context.Context, ino uint64) (index.Attrs, syscall.Errno) {
	a, ok := s.maps.Attrs(ino)
	if !ok {
		return index.Attrs{}, missErrno(ino)
	}
	return a, 0
}

// Readdir streams the directory contents of ino starting at offset,
// calling emit for each entry in the protocol order spec §4.2.1 defines:
// "." at offset 1, ".." at offset 2 (the root is its own parent), then
// children in tar-encounter order from offset 3. emit returns false to
// signal the reply buffer is full, at which point Readdir stops early
// and still returns ok (spec §4.2.1's "buffer full" contract).
func (s *Server) Readdir(_ context.Context, ino uint64, offset uint64, emit func(off uint64, e DirEntry) bool) syscall.Errno {
	dir := s.maps.Entry(ino)
	if dir == nil {
		return missErrno(ino)
	}
	if dir.Kind != index.KindDirectory {
		// Spec §4.2: readdir on a non-directory returns silently,
		// without ENOENT.
		return 0
	}

	parentIno := dir.ParentIno
	if ino == RootIno {
		parentIno = RootIno
	}

	if offset < 1 {
		if !emit(1, DirEntry{Ino: ino, Name: ".", Kind: index.KindDirectory}) {
			return 0
		}
	}
	if offset < 2 {
		if !emit(2, DirEntry{Ino: parentIno, Name: "..", Kind: index.KindDirectory}) {
			return 0
		}
	}

	children := s.maps.Children(ino)
	skip := 0
	if offset > 2 {
		skip = int(offset - 2)
	}
	for i := skip; i < len(children); i++ {
		c := children[i]
		de := DirEntry{Ino: c.Ino, Name: c.Name, Kind: resolvedKind(s.maps, c)}
		if !emit(uint64(i+3), de) {
			return 0
		}
	}
	return 0
}

// resolvedKind reports the Kind a directory listing should show for a
// hard link: the target's own Kind (always RegularFile in practice,
// since spec.md only permits hard links to regular files), not
// KindHardLink, which is an indexing-time classification rather than a
// kernel-visible file type.
func resolvedKind(m *indexmaps.Maps, e *index.Entry) index.Kind {
	if e.Kind != index.KindHardLink {
		return e.Kind
	}
	if a, ok := m.Attrs(e.Ino); ok {
		return a.Kind
	}
	return index.KindRegularFile
}

// Read fills dest with file content per the short-read/zero-pad contract
// of spec §4.2.2.
func (s *Server) Read(_ context.Context, ino uint64, offset int64, dest []byte) (int, syscall.Errno) {
	e := s.maps.Entry(ino)
	if e == nil {
		return 0, missErrno(ino)
	}
	n, err := s.content.ReadAt(e, offset, dest)
	if err != nil {
		s.log.Error("archive read failed", "ino", ino, "offset", offset, "err", err)
		rerr := &tarerr.RuntimeIoError{Ino: ino, Err: err}
		return 0, rerr.Errno()
	}
	return n, 0
}

// Readlink returns the raw bytes of a symlink's destination text.
func (s *Server) Readlink(_ context.Context, ino uint64) ([]byte, syscall.Errno) {
	e := s.maps.Entry(ino)
	if e == nil {
		return nil, missErrno(ino)
	}
	if e.LinkName == "" || e.Kind != index.KindSymlink {
		// Spec §4.2: silent no-op if the entry has no link_name.
		return nil, 0
	}
	return []byte(e.LinkName), 0
}

// Maps exposes the underlying index maps for callers that need to walk
// the tree structurally (the FUSE bridge building its Inode tree at
// mount time).
func (s *Server) Maps() *indexmaps.Maps { return s.maps }

func missErrno(ino uint64) syscall.Errno {
	miss := &tarerr.RuntimeLookupMiss{Ino: ino}
	return miss.Errno()
}
