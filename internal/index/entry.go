// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index defines the in-memory representation of one mounted tar
// archive: the Entry record for a single filesystem node, with its Attrs
// and Kind. The two lookup maps (ino and (parent,name)) built on top of
// it live in internal/indexmaps.
package index

import "time"

// Kind is the type of filesystem node an Entry represents.
type Kind int

const (
	// KindDirectory is a directory node.
	KindDirectory Kind = iota
	// KindRegularFile is a regular file, including tar entry types that
	// have no closer analogue (FIFOs, devices) and are coerced to it.
	KindRegularFile
	// KindSymlink is a symbolic link; LinkName holds the destination text.
	KindSymlink
	// KindHardLink is a hard link; it carries no attrs of its own and
	// reads through LinkTargetIno to the target Entry instead.
	KindHardLink
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindRegularFile:
		return "file"
	case KindSymlink:
		return "symlink"
	case KindHardLink:
		return "hardlink"
	default:
		return "unknown"
	}
}

// Attrs is the attribute record returned to the kernel for a node. See
// spec §3.2.
type Attrs struct {
	Size   uint64
	Perm   uint32
	Uid    uint32
	Gid    uint32
	Mtime  time.Time
	Atime  time.Time
	Ctime  time.Time
	Crtime time.Time
	Nlink  uint32
	Kind   Kind
	Ino    uint64
}

// FileOffset locates one contiguous run of an Entry's content inside the
// archive file. Ordinary regular files have exactly one; multiple entries
// are reserved for future sparse-file support (spec §3.1) and are not
// produced by the current indexer.
type FileOffset struct {
	RawFileOffset int64
	FileSize      int64
}

// Entry is one node in the mounted tree. It is immutable after indexing
// except for Children (append-only during indexing) and the Nlink count
// that Attrs surfaces for a hard link's target (spec §3.4).
type Entry struct {
	ID   uint64
	Ino  uint64
	Name string

	// ParentIno is 0 for the root, which is its own parent for readdir
	// purposes (spec §4.2.1).
	ParentIno uint64

	Kind Kind

	// LinkName is the symlink destination text, or (for hard links) the
	// archive path of the link target as written in the tar header.
	LinkName string

	// LinkTargetIno is set only for hard links: the ino of the Entry the
	// link resolves to. Attribute reads for a hard link go through this
	// field to the target (spec §9 open-issue resolution (b)).
	LinkTargetIno uint64

	attrs Attrs

	FileOffsets []FileOffset

	Children []uint64
}

// SelfAttrs returns the attrs stored directly on this Entry, ignoring hard
// link redirection. Used by the indexer when building/updating a target's
// own record; callers resolving attrs for kernel replies should use
// Maps.Attrs instead.
func (e *Entry) SelfAttrs() Attrs { return e.attrs }

// SetAttrs replaces this Entry's own attrs (not meaningful for hard
// links, whose attrs always read through the target).
func (e *Entry) SetAttrs(a Attrs) { e.attrs = a }

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.Kind == KindDirectory }
