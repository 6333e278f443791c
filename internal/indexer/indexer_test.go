// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package indexer_test

import (
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geropl/tarfs/internal/index"
)

// TestQuantifiedInvariants exercises spec §8.1's invariants over the
// §8.4 walkthrough archive.
func TestQuantifiedInvariants(t *testing.T) {
	a, m, _, closeFn := buildScenario(t)
	defer closeFn()

	// arena.get(E.ino - 1) == E for every non-hard-link Entry.
	for slot := 0; slot < a.Len(); slot++ {
		e := a.Get(slot)
		require.NotNil(t, e, "slot %d", slot)
		if e.Kind == index.KindHardLink {
			continue
		}
		assert.Same(t, e, a.ByIno(e.Ino), "arena.get(ino-1) must return the same Entry")
	}

	// For every directory's children, child.parent_ino == dir.ino.
	root := m.Entry(1)
	require.NotNil(t, root)
	for _, c := range m.Children(root.Ino) {
		assert.Equal(t, root.Ino, c.ParentIno)
	}
	dir1, ok := m.Lookup(root.Ino, "dir1")
	require.True(t, ok)
	for _, c := range m.Children(dir1) {
		assert.Equal(t, dir1, c.ParentIno)
	}

	// Exactly one Entry per archive path: no two children of the same
	// directory share a name.
	seen := map[string]bool{}
	for _, c := range m.Children(root.Ino) {
		assert.False(t, seen[c.Name], "duplicate child name %q", c.Name)
		seen[c.Name] = true
	}

	// Hard link ino-sharing: index(H.link_target_ino).attrs.ino == H.ino.
	hlIno, ok := m.Lookup(root.Ino, "hardlinkToa")
	require.True(t, ok)
	aIno, ok := m.Lookup(root.Ino, "a")
	require.True(t, ok)
	assert.Equal(t, aIno, hlIno, "hard link and target must share an ino")

	hlAttrs, ok := m.Attrs(hlIno)
	require.True(t, ok)
	targetAttrs, ok := m.Attrs(aIno)
	require.True(t, ok)
	assert.Equal(t, targetAttrs.Ino, hlAttrs.Ino)
	assert.GreaterOrEqual(t, targetAttrs.Nlink, uint32(2), "a hard-linked file must report nlink >= 2")

	// dir1 holds exactly one child (nested).
	children := m.Children(dir1)
	assert.Len(t, children, 1)
}

// TestEndToEndScenario checks the concrete observations of spec §8.4.
func TestEndToEndScenario(t *testing.T) {
	a, m, c, closeFn := buildScenario(t)
	defer closeFn()
	_ = a

	root := m.Entry(1)
	require.Equal(t, uint64(1), root.Ino)

	names := map[string]bool{}
	for _, e := range m.Children(root.Ino) {
		names[e.Name] = true
	}
	for _, want := range []string{"a", "b", "dir1", "dir2", "hardlinkToa"} {
		assert.True(t, names[want], "missing child %q", want)
	}

	aIno, ok := m.Lookup(root.Ino, "a")
	require.True(t, ok)
	hlIno, ok := m.Lookup(root.Ino, "hardlinkToa")
	require.True(t, ok)
	assert.Equal(t, aIno, hlIno)

	aAttrs, ok := m.Attrs(aIno)
	require.True(t, ok)
	assert.Equal(t, uint64(6), aAttrs.Size)
	assert.GreaterOrEqual(t, aAttrs.Nlink, uint32(2))
	assert.Equal(t, time.Unix(1700000000, 500_000_000), aAttrs.Mtime)

	aEntry := m.Entry(aIno)
	buf := make([]byte, 6)
	n, err := c.ReadAt(aEntry, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "hello\n", string(buf))

	bIno, ok := m.Lookup(root.Ino, "b")
	require.True(t, ok)
	bEntry := m.Entry(bIno)
	bAttrs, ok := m.Attrs(bIno)
	require.True(t, ok)
	assert.Equal(t, uint64(0), bAttrs.Size)
	empty := make([]byte, 0)
	n, err = c.ReadAt(bEntry, 0, empty)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dir1, ok := m.Lookup(root.Ino, "dir1")
	require.True(t, ok)
	nestedIno, ok := m.Lookup(dir1, "nested")
	require.True(t, ok)
	nestedEntry := m.Entry(nestedIno)
	dest := make([]byte, 64)
	n, err = c.ReadAt(nestedEntry, 32, dest)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, make([]byte, 64), dest)

	dir2, ok := m.Lookup(root.Ino, "dir2")
	require.True(t, ok)
	symIno, ok := m.Lookup(dir2, "sym")
	require.True(t, ok)
	symEntry := m.Entry(symIno)
	assert.Equal(t, "../a", symEntry.LinkName)

	dir1Attrs, ok := m.Attrs(dir1)
	require.True(t, ok)
	assert.Equal(t, uint64(4096), dir1Attrs.Size)
	assert.Equal(t, index.KindDirectory, dir1Attrs.Kind)
	assert.Equal(t, uint32(2), dir1Attrs.Nlink)

	if diff := pretty.Compare(aAttrs.Mtime, time.Unix(1700000000, 500_000_000)); diff != "" {
		t.Errorf("a's mtime mismatch: %s", diff)
	}
}
