// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package content implements the byte-range read path over the archive
// file described in spec.md §4.2.2: reads are stateless (no file
// descriptor handle table), each a positional os.File.ReadAt at its own
// archive offset, so requests share no file position.
package content

import (
	"io"
	"os"

	"github.com/geropl/tarfs/internal/index"
)

// Reader reads file content directly out of the archive.
type Reader struct {
	f *os.File
}

// New wraps f, the already-open archive file.
func New(f *os.File) *Reader {
	return &Reader{f: f}
}

// ReadAt fills dest with up to len(dest) bytes of entry's content
// starting at offset, per spec §4.2.2:
//
//   - if the archive has at least len(dest) bytes left from offset,
//     dest is filled entirely from the archive and n == len(dest);
//   - if fewer bytes remain (0 <= left < len(dest)), dest gets those
//     bytes followed by a zero-padded tail, and n == len(dest);
//   - if offset is at or beyond the entry's size, dest is left
//     untouched and n == 0 (spec's "undefined ... treat as a
//     zero-length read").
//
// err is non-nil only on an underlying archive I/O failure.
func (r *Reader) ReadAt(entry *index.Entry, offset int64, dest []byte) (n int, err error) {
	if len(dest) == 0 {
		return 0, nil
	}
	if len(entry.FileOffsets) == 0 {
		// Not a regular file, or content-less; nothing to read.
		return 0, nil
	}

	fo := entry.FileOffsets[0]
	if offset < 0 || offset >= fo.FileSize {
		return 0, nil
	}

	left := fo.FileSize - offset
	want := int64(len(dest))
	if want > left {
		want = left
	}

	got, err := r.f.ReadAt(dest[:want], fo.RawFileOffset+offset)
	if err != nil && err != io.EOF {
		return 0, err
	}

	// Zero-pad past what the archive actually had, whether that's
	// because want < len(dest) (request ran past the entry's declared
	// size) or because the archive came up short of want.
	for i := got; i < len(dest); i++ {
		dest[i] = 0
	}
	return len(dest), nil
}
