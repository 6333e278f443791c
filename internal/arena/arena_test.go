// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package arena_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geropl/tarfs/internal/arena"
	"github.com/geropl/tarfs/internal/index"
)

func TestInsertAndGet(t *testing.T) {
	a := arena.New(2)
	e1 := &index.Entry{ID: 1, Ino: 1}
	e2 := &index.Entry{ID: 2, Ino: 2}
	a.Insert(0, e1)
	a.Insert(1, e2)

	assert.Same(t, e1, a.Get(0))
	assert.Same(t, e2, a.Get(1))
	assert.Same(t, e1, a.ByIno(1))
	assert.Same(t, e2, a.ByIno(2))
}

func TestGetOutOfRangeIsNil(t *testing.T) {
	a := arena.New(1)
	assert.Nil(t, a.Get(-1))
	assert.Nil(t, a.Get(5))
	assert.Nil(t, a.ByIno(0))
}

func TestInsertGrowsBeyondInitialSize(t *testing.T) {
	a := arena.New(1)
	e := &index.Entry{ID: 5, Ino: 5}
	a.Insert(4, e)
	assert.Equal(t, 5, a.Len())
	assert.Same(t, e, a.Get(4))
}

func TestChildrenResolvesByIno(t *testing.T) {
	a := arena.New(3)
	parent := &index.Entry{ID: 1, Ino: 1, Children: []uint64{2, 3}}
	c1 := &index.Entry{ID: 2, Ino: 2}
	c2 := &index.Entry{ID: 3, Ino: 3}
	a.Insert(0, parent)
	a.Insert(1, c1)
	a.Insert(2, c2)

	got := a.Children(parent)
	assert.Equal(t, []*index.Entry{c1, c2}, got)
}
