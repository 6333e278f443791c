// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arena provides a dense, index-addressable store for index.Entry
// records. Positions are stable for the lifetime of the mount: once an
// Entry is inserted at a slot, it is never relocated (spec §3.3 invariant
// 7, §4.1).
package arena

import "github.com/geropl/tarfs/internal/index"

// Arena is a flat slab of Entry records addressed by a zero-based slot.
// It is built by a single goroutine during indexing and, once handed to
// the filesystem surface, is read-only (spec §5) — it therefore takes no
// locks of its own.
type Arena struct {
	slots []*index.Entry
}

// New returns an Arena pre-sized for n entries.
func New(n int) *Arena {
	return &Arena{slots: make([]*index.Entry, n)}
}

// Insert places entry at the given slot. The caller is responsible for
// assigning slots densely and monotonically (spec §4.1): for id k the
// slot is k-1.
func (a *Arena) Insert(slot int, entry *index.Entry) {
	if slot >= len(a.slots) {
		grown := make([]*index.Entry, slot+1)
		copy(grown, a.slots)
		a.slots = grown
	}
	a.slots[slot] = entry
}

// Get returns the Entry at slot, or nil if the slot is empty or out of
// range.
func (a *Arena) Get(slot int) *index.Entry {
	if slot < 0 || slot >= len(a.slots) {
		return nil
	}
	return a.slots[slot]
}

// Len returns the number of slots in the arena.
func (a *Arena) Len() int { return len(a.slots) }

// ByIno returns the Entry whose id equals ino (arena slot ino-1). It does
// not resolve hard links; use index.Maps for that when ino may name a
// hard-link's shared inode.
func (a *Arena) ByIno(ino uint64) *index.Entry {
	if ino == 0 {
		return nil
	}
	return a.Get(int(ino) - 1)
}

// Children returns the child Entries of parent, in tar-encounter order,
// by looking up each child id via ByIno.
func (a *Arena) Children(parent *index.Entry) []*index.Entry {
	out := make([]*index.Entry, 0, len(parent.Children))
	for _, id := range parent.Children {
		if c := a.ByIno(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}
