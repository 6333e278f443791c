// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package indexer performs the single-pass scan of the archive entry
// stream described in spec.md §4.4, producing a fully-linked tree in an
// arena.Arena and the lookup maps of indexmaps.Maps.
package indexer

import (
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/geropl/tarfs/internal/arena"
	"github.com/geropl/tarfs/internal/index"
	"github.com/geropl/tarfs/internal/indexmaps"
	"github.com/geropl/tarfs/internal/pax"
	"github.com/geropl/tarfs/internal/tarerr"
	"github.com/geropl/tarfs/internal/tarsource"
)

// rootPath is the work-map key for the synthesized root, matching
// spec §4.4.1's "./" after normalization.
const rootPath = "."

// RootPermissions are the attributes applied to the synthesized root
// directory (spec §6.3), normally derived by the caller from the
// mountpoint's own stat.
type RootPermissions struct {
	Mode uint32
	Uid  uint32
	Gid  uint32
}

// workState is the per-WorkNode lifecycle of spec.md §4.4.4.
type workState int

const (
	stateEmpty workState = iota // id assigned, record not yet set
	stateFilled
)

// workNode is the indexer's transient bookkeeping record for one archive
// path, reconciling forward references (spec §4.4.1, §9 design note).
type workNode struct {
	id       uint64
	path     string
	state    workState
	record   *index.Entry
	children []uint64

	// linkCount accumulates hard links registered against this node
	// before its own tar record has been seen (forward reference); it
	// seeds the node's initial Nlink once the record is filled. Once
	// the record exists, further hard links increment Nlink on it
	// directly instead (see registerHardLink).
	linkCount uint32
}

// Indexer builds the index for one archive.
type Indexer struct {
	log *slog.Logger

	nextID uint64
	byPath map[string]*workNode
	byID   map[uint64]*workNode
}

// New returns an Indexer. If log is nil, slog.Default() is used.
func New(log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		log:    log,
		nextID: 1,
		byPath: make(map[string]*workNode),
		byID:   make(map[uint64]*workNode),
	}
}

// Build runs the indexer to completion over src, returning the committed
// arena and its lookup maps.
func Build(src *tarsource.Source, root RootPermissions, log *slog.Logger) (*arena.Arena, *indexmaps.Maps, error) {
	ix := New(log)
	if err := ix.synthesizeRoot(root); err != nil {
		return nil, nil, err
	}

	for {
		raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &tarerr.ArchiveIoError{Path: "", Err: err}
		}
		if err := ix.ingest(raw); err != nil {
			return nil, nil, err
		}
	}

	return ix.commit()
}

func (ix *Indexer) synthesizeRoot(perm RootPermissions) error {
	now := time.Now()
	root := &index.Entry{
		ID:   1,
		Ino:  1,
		Name: ".",
		Kind: index.KindDirectory,
	}
	root.SetAttrs(index.Attrs{
		Size:   4096,
		Perm:   perm.Mode & 0o7777,
		Uid:    perm.Uid,
		Gid:    perm.Gid,
		Mtime:  now,
		Atime:  now,
		Ctime:  now,
		Crtime: now,
		Nlink:  2,
		Kind:   index.KindDirectory,
		Ino:    1,
	})

	node := &workNode{id: 1, path: rootPath, state: stateFilled, record: root}
	ix.byPath[rootPath] = node
	ix.byID[1] = node
	ix.nextID = 2
	return nil
}

// getOrCreate returns the workNode for p, creating it (with a fresh id)
// if this is the first time p has been mentioned, by a child path or by
// its own header (spec §4.4.2 step 4, §4.4.3).
func (ix *Indexer) getOrCreate(p string) *workNode {
	if n, ok := ix.byPath[p]; ok {
		return n
	}
	n := &workNode{id: ix.nextID, path: p, state: stateEmpty}
	ix.nextID++
	ix.byPath[p] = n
	ix.byID[n.id] = n
	return n
}

func (ix *Indexer) ingest(raw *tarsource.Entry) error {
	p := normalize(raw.Path)
	if p == "" {
		return &tarerr.IndexError{Path: raw.Path, Reason: "tar entry has no parent component"}
	}

	// A tar entry naming the root itself (archives produced with
	// `tar -C dir -cf out.tar .` commonly include one) updates the
	// synthesized root's attrs in place instead of being indexed as a
	// duplicate path (original_source/src/tarindexer.rs).
	if p == rootPath {
		root := ix.byPath[rootPath].record
		attrs := buildAttrs(raw, index.KindDirectory, root.Ino)
		attrs.Nlink = root.SelfAttrs().Nlink
		root.SetAttrs(attrs)
		return nil
	}

	parentPath := parentOf(p)
	parentNode := ix.getOrCreate(parentPath)
	node := ix.getOrCreate(p)

	if node.state == stateFilled {
		return &tarerr.IndexError{Path: raw.Path, Reason: "duplicate path entry"}
	}

	kind := mapKind(raw.Type)
	if raw.Type == tarsource.TypeOther {
		ix.log.Warn("unsupported tar entry type, coercing to regular file",
			"path", raw.Path, "typeflag", string(raw.Typeflag))
	}

	entry := &index.Entry{
		ID:        node.id,
		Ino:       node.id,
		Name:      basename(p),
		ParentIno: parentNode.id,
		Kind:      kind,
	}

	if kind == index.KindSymlink {
		entry.LinkName = raw.LinkName
	}

	if kind == index.KindHardLink {
		if raw.LinkName == "" {
			return &tarerr.IndexError{Path: raw.Path, Reason: "hard link with no link target name"}
		}
		targetPath := normalize(raw.LinkName)
		targetNode := ix.getOrCreate(targetPath)

		entry.Ino = targetNode.id
		entry.LinkTargetIno = targetNode.id
		entry.LinkName = raw.LinkName
		entry.SetAttrs(index.Attrs{}) // unused: attrs always read through the target (spec §9 resolution (b))

		ix.registerHardLink(targetNode)
	} else {
		entry.SetAttrs(buildAttrs(raw, kind, node.id))
		if kind == index.KindRegularFile {
			entry.FileOffsets = []index.FileOffset{{RawFileOffset: raw.RawFilePosition, FileSize: raw.Size}}
		}
	}

	node.record = entry
	node.state = stateFilled
	parentNode.children = append(parentNode.children, entry.ID)
	return nil
}

// registerHardLink applies the nlink increment spec.md §4.4.2 step 7c
// describes, whether or not the target's own tar record has been seen
// yet (spec §9 design note on forward references).
func (ix *Indexer) registerHardLink(target *workNode) {
	if target.record != nil {
		indexmaps.IncrementNlink(target.record)
		return
	}
	target.linkCount++
}

// commit transfers every workNode's record into the arena ordered by id
// (spec §4.4.2 final paragraph) and builds the index maps.
func (ix *Indexer) commit() (*arena.Arena, *indexmaps.Maps, error) {
	n := int(ix.nextID - 1)
	a := arena.New(n)

	for id := uint64(1); id <= uint64(n); id++ {
		node := ix.byID[id]
		if node == nil || node.record == nil {
			if id == 1 {
				continue // root is always synthesized
			}
			return nil, nil, &tarerr.IndexError{Path: pathOf(node), Reason: "orphan path: referenced as a parent but never encountered as a tar record"}
		}
		if node.state == stateEmpty {
			// Unreached: record != nil implies stateFilled, guarded for clarity.
			continue
		}

		record := node.record
		if record.Kind != index.KindHardLink && node.linkCount > 0 {
			attrs := record.SelfAttrs()
			attrs.Nlink += node.linkCount
			record.SetAttrs(attrs)
		}
		record.Children = node.children
		a.Insert(int(id)-1, record)
	}

	return a, indexmaps.Build(a), nil
}

func pathOf(n *workNode) string {
	if n == nil {
		return "<unknown>"
	}
	return n.path
}

func mapKind(t tarsource.Type) index.Kind {
	switch t {
	case tarsource.TypeDirectory:
		return index.KindDirectory
	case tarsource.TypeSymlink:
		return index.KindSymlink
	case tarsource.TypeHardLink:
		return index.KindHardLink
	default:
		return index.KindRegularFile
	}
}

func buildAttrs(raw *tarsource.Entry, kind index.Kind, ino uint64) index.Attrs {
	var size uint64
	switch kind {
	case index.KindDirectory:
		size = 4096
	case index.KindSymlink:
		size = uint64(len(raw.LinkName))
	default:
		size = uint64(raw.Size)
	}

	nlink := uint32(1)
	if kind == index.KindDirectory {
		nlink = 2
	}

	mtime, atime, ctime := resolveTimes(raw)

	return index.Attrs{
		Size:   size,
		Perm:   uint32(raw.Mode) & 0o7777,
		Uid:    uint32(raw.Uid),
		Gid:    uint32(raw.Gid),
		Mtime:  mtime,
		Atime:  atime,
		Ctime:  ctime,
		Crtime: ctime,
		Nlink:  nlink,
		Kind:   kind,
		Ino:    ino,
	}
}

func resolveTimes(raw *tarsource.Entry) (mtime, atime, ctime time.Time) {
	mtime = time.Unix(raw.Mtime, 0)
	if v, ok := raw.Pax["mtime"]; ok {
		if sec, nsec, ok := pax.ParseTime(v); ok {
			mtime = time.Unix(sec, nsec)
		}
	}

	atime = mtime
	if v, ok := raw.Pax["atime"]; ok {
		if sec, nsec, ok := pax.ParseTime(v); ok {
			atime = time.Unix(sec, nsec)
		}
	}

	ctime = mtime
	if v, ok := raw.Pax["ctime"]; ok {
		if sec, nsec, ok := pax.ParseTime(v); ok {
			ctime = time.Unix(sec, nsec)
		}
	}
	return mtime, atime, ctime
}

// normalize reduces an archive path to the work-map key space: no
// leading "/", no trailing "/", "./" collapsed to "", and the root
// itself ("." or "./" or "") mapped to rootPath.
func normalize(p string) string {
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	cleaned := path.Clean("/" + p)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return rootPath
	}
	return cleaned
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return rootPath
	}
	return dir
}

func basename(p string) string {
	return path.Base(p)
}
