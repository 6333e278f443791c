// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package indexmaps builds and serves the two lookup tables spec.md §4.5
// describes: ino -> arena slot, and (parent_ino, name) -> child ino. It
// also resolves the attribute read-through for hard links (spec §9 open
// issue, resolved as option (b): a hard-link Entry carries no attrs of
// its own and always reads its target's live attrs, including Nlink).
package indexmaps

import (
	"fmt"

	"github.com/geropl/tarfs/internal/arena"
	"github.com/geropl/tarfs/internal/index"
)

// childKey composes (parent_ino, name) into an injective map key (spec
// §3.3 invariant 4, §4.5). Any injective composition is acceptable; this
// is the reference composition from spec.md: "{parent_ino}/{name}"
// treated as an opaque byte sequence.
func childKey(parentIno uint64, name string) string {
	return fmt.Sprintf("%d/%s", parentIno, name)
}

// Maps is the read-only index built once at mount time and then served
// to every filesystem request (spec §5: no locks, observed read-only).
type Maps struct {
	arena *arena.Arena

	// inoMap is algorithmically ino-1 for a dense arena, but kept
	// explicit per spec §4.5 to preserve the freedom to re-densify.
	inoMap map[uint64]int

	childMap map[string]uint64
}

// Build constructs the Maps for a fully committed arena of n entries.
func Build(a *arena.Arena) *Maps {
	m := &Maps{
		arena:    a,
		inoMap:   make(map[uint64]int, a.Len()),
		childMap: make(map[string]uint64, a.Len()),
	}
	for slot := 0; slot < a.Len(); slot++ {
		e := a.Get(slot)
		if e == nil {
			continue
		}
		m.inoMap[e.ID] = slot
		if e.ParentIno != 0 || e.ID == 1 {
			m.childMap[childKey(e.ParentIno, e.Name)] = e.Ino
		}
	}
	return m
}

// Entry returns the Entry whose id (not necessarily ino) equals ino, or
// nil. This is the raw arena slot lookup used to walk the tree
// structurally (e.g. to find a hard link's own record); to resolve the
// kernel-visible attrs of an ino, use Attrs.
func (m *Maps) Entry(ino uint64) *index.Entry {
	slot, ok := m.inoMap[ino]
	if !ok {
		return nil
	}
	return m.arena.Get(slot)
}

// Lookup resolves (parent_ino, name) to a child ino, or 0 if absent.
func (m *Maps) Lookup(parentIno uint64, name string) (uint64, bool) {
	ino, ok := m.childMap[childKey(parentIno, name)]
	return ino, ok
}

// Children returns the child Entries of the directory with the given
// ino, in tar-encounter order.
func (m *Maps) Children(ino uint64) []*index.Entry {
	e := m.Entry(ino)
	if e == nil {
		return nil
	}
	return m.arena.Children(e)
}

// Attrs resolves the kernel-visible attributes for ino, following hard
// link redirection (spec §9 resolution (b)): a hard-link Entry has no
// attrs of its own, so its attrs are always its target's current attrs,
// with Ino overwritten to the hard link's own reported ino (which, per
// spec §3.1, already equals the target's id).
func (m *Maps) Attrs(ino uint64) (index.Attrs, bool) {
	e := m.Entry(ino)
	if e == nil {
		return index.Attrs{}, false
	}
	return m.resolveAttrs(e), true
}

func (m *Maps) resolveAttrs(e *index.Entry) index.Attrs {
	if e.Kind == index.KindHardLink {
		target := m.Entry(e.LinkTargetIno)
		if target == nil {
			return e.SelfAttrs()
		}
		a := m.resolveAttrs(target)
		a.Ino = e.Ino
		return a
	}
	return e.SelfAttrs()
}

// IncrementNlink bumps the Nlink field stored on entry's own attrs. Used
// by the indexer when registering a hard link against its target (spec
// §4.4.2 step 7c); entry must not itself be a hard link.
func IncrementNlink(e *index.Entry) {
	a := e.SelfAttrs()
	a.Nlink++
	e.SetAttrs(a)
}
