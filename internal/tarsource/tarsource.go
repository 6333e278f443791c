// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tarsource adapts the standard library's archive/tar reader into
// the lazy sequence of parsed tar records spec.md §6.1 asks the indexer
// to consume: each record's path, link name, type, header fields, and
// byte offsets inside the archive. The real tar record parser is treated
// as an external collaborator (spec §1); this package is the thin seam
// between archive/tar and internal/indexer, modeled on the scan loop in
// the teacher's zipfs/tarfs.go.
package tarsource

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Type mirrors the subset of archive/tar entry types the indexer cares
// about; anything else is reported as TypeOther so the indexer can log
// spec §7's UnsupportedEntryType and coerce it to a regular file.
type Type int

const (
	TypeRegular Type = iota
	TypeDirectory
	TypeSymlink
	TypeHardLink
	TypeOther
)

// Entry is one parsed tar record, plus its byte offsets inside the
// archive (spec §6.1).
type Entry struct {
	Path     string
	LinkName string
	Type     Type
	Typeflag byte

	Mode  int64
	Uid   int
	Gid   int
	Size  int64
	Mtime int64 // seconds, tar header fallback value

	// RawHeaderPosition is the byte offset of this entry's header block.
	RawHeaderPosition int64
	// RawFilePosition is the byte offset of this entry's content, i.e.
	// immediately after the header block(s).
	RawFilePosition int64

	// Pax holds the entry's PAX extended-header records, keyed by
	// UTF-8 string (spec §6.1). Keys and values are passed on as
	// archive/tar returns them, without a UTF-8 check; a timestamp value
	// that does not parse is treated as absent by the indexer.
	Pax map[string]string
}

// Source reads entries from an uncompressed tar archive file in
// encounter order.
type Source struct {
	f  *os.File
	tr *tar.Reader
}

// Open opens the archive at path for sequential indexing.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Source{f: f, tr: tar.NewReader(f)}, nil
}

// Close closes the underlying archive file.
func (s *Source) Close() error { return s.f.Close() }

// File returns the underlying archive file, for use by internal/content
// to seek and read entry bytes after indexing completes.
func (s *Source) File() *os.File { return s.f }

// Next returns the next entry in the archive, io.EOF at the end. GNU
// long-name ('L') records are transparently folded into the following
// entry's Path, matching the teacher's zipfs/tarfs.go handling.
func (s *Source) Next() (*Entry, error) {
	var longName *string

	for {
		hdr, err := s.tr.Next()
		if err != nil {
			return nil, err
		}

		if hdr.Typeflag == tar.TypeGNULongName {
			buf := &bytes.Buffer{}
			if _, err := io.Copy(buf, s.tr); err != nil {
				return nil, fmt.Errorf("tarsource: reading long name: %w", err)
			}
			name := buf.String()
			longName = &name
			continue
		}

		filePos, err := s.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("tarsource: seek: %w", err)
		}
		// archive/tar reads the entry's own header as exactly one
		// 512-byte block, directly before the content.
		headerPos := filePos - 512

		path := hdr.Name
		if longName != nil {
			path = *longName
			longName = nil
		}

		return &Entry{
			Path:              path,
			LinkName:          hdr.Linkname,
			Type:              classify(hdr.Typeflag),
			Typeflag:          hdr.Typeflag,
			Mode:              hdr.Mode,
			Uid:               hdr.Uid,
			Gid:               hdr.Gid,
			Size:              hdr.Size,
			Mtime:             hdr.ModTime.Unix(),
			RawHeaderPosition: headerPos,
			RawFilePosition:   filePos,
			Pax:               hdr.PAXRecords,
		}, nil
	}
}

func classify(flag byte) Type {
	switch flag {
	case tar.TypeReg, tar.TypeRegA:
		return TypeRegular
	case tar.TypeDir:
		return TypeDirectory
	case tar.TypeSymlink:
		return TypeSymlink
	case tar.TypeLink:
		return TypeHardLink
	default:
		return TypeOther
	}
}
