// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package indexer_test

import (
	"archive/tar"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/geropl/tarfs/internal/arena"
	"github.com/geropl/tarfs/internal/content"
	"github.com/geropl/tarfs/internal/indexer"
	"github.com/geropl/tarfs/internal/indexmaps"
	"github.com/geropl/tarfs/internal/tarsource"
)

// scenarioEntry is one line of the spec §8.4 walkthrough archive.
type scenarioEntry struct {
	name     string
	typeflag byte
	linkname string
	content  string
	mode     int64
}

// writeScenarioArchive materializes the §8.4 walkthrough archive to a
// temp file and returns its path: uid=1000/gid=1000, perms 0o644/0o755,
// mtime 1700000000.5 via a PAX record, one hard link, one symlink, one
// nested directory with a zero-filled file.
func writeScenarioArchive(t *testing.T) string {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "scenario-*.tar")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	tw := tar.NewWriter(f)
	entries := []scenarioEntry{
		{name: "a", typeflag: tar.TypeReg, content: "hello\n", mode: 0o644},
		{name: "b", typeflag: tar.TypeReg, content: "", mode: 0o644},
		{name: "dir1/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "dir1/nested", typeflag: tar.TypeReg, content: string(make([]byte, 64)), mode: 0o644},
		{name: "dir2/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "dir2/sym", typeflag: tar.TypeSymlink, linkname: "../a", mode: 0o777},
		{name: "hardlinkToa", typeflag: tar.TypeLink, linkname: "a", mode: 0o644},
	}

	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Size:     int64(len(e.content)),
			Mode:     e.mode,
			Uid:      1000,
			Gid:      1000,
			ModTime:  time.Unix(1700000000, 500_000_000),
			Format:   tar.FormatPAX,
		}
		if e.typeflag == tar.TypeLink {
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.content != "" {
			_, err := tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())

	return f.Name()
}

// buildScenario indexes the §8.4 archive and returns the arena, maps and
// a content reader over it, closing nothing: callers own src.Close.
func buildScenario(t *testing.T) (*arena.Arena, *indexmaps.Maps, *content.Reader, func()) {
	t.Helper()

	path := writeScenarioArchive(t)
	src, err := tarsource.Open(path)
	require.NoError(t, err)

	a, m, err := indexer.Build(src, indexer.RootPermissions{Mode: 0o755, Uid: 1000, Gid: 1000}, nil)
	require.NoError(t, err)

	return a, m, content.New(src.File()), func() { src.Close() }
}
