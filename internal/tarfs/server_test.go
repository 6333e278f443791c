// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tarfs_test

import (
	"archive/tar"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/geropl/tarfs/internal/content"
	"github.com/geropl/tarfs/internal/index"
	"github.com/geropl/tarfs/internal/indexer"
	"github.com/geropl/tarfs/internal/tarfs"
	"github.com/geropl/tarfs/internal/tarsource"
)

func buildServer(t *testing.T) *tarfs.Server {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "server-*.tar")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	tw := tar.NewWriter(f)
	write := func(name string, typeflag byte, link string, data string) {
		hdr := &tar.Header{
			Name:     name,
			Typeflag: typeflag,
			Linkname: link,
			Size:     int64(len(data)),
			Mode:     0o644,
			Uid:      1000,
			Gid:      1000,
			ModTime:  time.Unix(1700000000, 0),
		}
		if typeflag == tar.TypeDir {
			hdr.Mode = 0o755
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if data != "" {
			_, err := tw.Write([]byte(data))
			require.NoError(t, err)
		}
	}
	write("a", tar.TypeReg, "", "hello\n")
	write("dir1/", tar.TypeDir, "", "")
	write("dir1/nested", tar.TypeReg, "", "0123456789")
	write("hardlinkToa", tar.TypeLink, "a", "")
	require.NoError(t, tw.Close())

	src, err := tarsource.Open(f.Name())
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	a, m, err := indexer.Build(src, indexer.RootPermissions{Mode: 0o755}, nil)
	require.NoError(t, err)
	_ = a

	return tarfs.New(m, content.New(src.File()), nil)
}

func TestLookupMissReturnsNegativeNotError(t *testing.T) {
	srv := buildServer(t)
	_, ok := srv.Lookup(context.Background(), tarfs.RootIno, "does-not-exist")
	assert.False(t, ok)
}

func TestLookupHit(t *testing.T) {
	srv := buildServer(t)
	attrs, ok := srv.Lookup(context.Background(), tarfs.RootIno, "a")
	require.True(t, ok)
	assert.Equal(t, uint64(6), attrs.Size)
	assert.Equal(t, index.KindRegularFile, attrs.Kind)
}

func TestReaddirProtocol(t *testing.T) {
	srv := buildServer(t)

	var names []string
	errno := srv.Readdir(context.Background(), tarfs.RootIno, 0, func(off uint64, e tarfs.DirEntry) bool {
		names = append(names, e.Name)
		return true
	})
	assert.Equal(t, 0, int(errno))
	assert.Equal(t, []string{".", "..", "a", "dir1", "hardlinkToa"}, names)
}

func TestReaddirResumeAtOffsetIsConsistentSuffix(t *testing.T) {
	srv := buildServer(t)

	var full []string
	srv.Readdir(context.Background(), tarfs.RootIno, 0, func(off uint64, e tarfs.DirEntry) bool {
		full = append(full, e.Name)
		return true
	})

	for k := 0; k <= len(full); k++ {
		var suffix []string
		srv.Readdir(context.Background(), tarfs.RootIno, uint64(k), func(off uint64, e tarfs.DirEntry) bool {
			suffix = append(suffix, e.Name)
			return true
		})
		assert.Equal(t, full[min(k, len(full)):], suffix, "offset %d must resume at a consistent suffix", k)
	}
}

func TestReadBoundaryShortReadAndZeroLength(t *testing.T) {
	srv := buildServer(t)
	attrs, ok := srv.Lookup(context.Background(), tarfs.RootIno, "a")
	require.True(t, ok)

	dest := make([]byte, 0)
	n, errno := srv.Read(context.Background(), attrs.Ino, 0, dest)
	require.Equal(t, 0, int(errno))
	assert.Equal(t, 0, n)

	dest = make([]byte, 10)
	n, errno = srv.Read(context.Background(), attrs.Ino, 0, dest)
	require.Equal(t, 0, int(errno))
	assert.Equal(t, 10, n)
	assert.Equal(t, "hello\n\x00\x00\x00\x00", string(dest))

	n, errno = srv.Read(context.Background(), attrs.Ino, 100, dest)
	require.Equal(t, 0, int(errno))
	assert.Equal(t, 0, n)
}

func TestHardLinkSharesInoAndAttrsReadThrough(t *testing.T) {
	srv := buildServer(t)
	aAttrs, ok := srv.Lookup(context.Background(), tarfs.RootIno, "a")
	require.True(t, ok)
	hAttrs, ok := srv.Lookup(context.Background(), tarfs.RootIno, "hardlinkToa")
	require.True(t, ok)

	assert.Equal(t, aAttrs.Ino, hAttrs.Ino)
	assert.Equal(t, aAttrs.Size, hAttrs.Size)
	assert.GreaterOrEqual(t, hAttrs.Nlink, uint32(2))
}

func TestConcurrentReadsAndGetattrAreSafe(t *testing.T) {
	srv := buildServer(t)
	attrs, ok := srv.Lookup(context.Background(), tarfs.RootIno, "dir1")
	require.True(t, ok)
	nestedAttrs, ok := srv.Lookup(context.Background(), attrs.Ino, "nested")
	require.True(t, ok)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 64; i++ {
		g.Go(func() error {
			dest := make([]byte, 10)
			_, errno := srv.Read(ctx, nestedAttrs.Ino, 0, dest)
			if errno != 0 {
				return errno
			}
			if string(dest) != "0123456789" {
				t.Errorf("unexpected content: %q", dest)
			}
			if _, errno := srv.Getattr(ctx, nestedAttrs.Ino); errno != 0 {
				return errno
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
