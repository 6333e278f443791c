// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tarerr defines the error kinds from spec.md §7: three fatal
// kinds that abort a mount, two runtime kinds that the filesystem
// surface converts into syscall.Errno for the kernel, and two non-fatal
// kinds for events that are only logged or ignored.
package tarerr

import (
	"fmt"
	"syscall"
)

// ConfigError reports an invalid mountpoint or configuration (spec §7).
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// ArchiveIoError reports a failure opening or reading the archive file.
type ArchiveIoError struct {
	Path string
	Err  error
}

func (e *ArchiveIoError) Error() string {
	return fmt.Sprintf("archive io: %s: %v", e.Path, e.Err)
}

func (e *ArchiveIoError) Unwrap() error { return e.Err }

// IndexError reports a structural problem in the archive discovered
// while indexing: a duplicate path, a hard link without a target name,
// an orphan path, or a tar entry with no parent component (spec §4.4,
// §7).
type IndexError struct {
	Path   string
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index error: %s: %s", e.Path, e.Reason)
}

// RuntimeLookupMiss reports that a requested ino or (parent, name) pair
// is not present in the index. It maps to ENOENT, except where the
// filesystem surface prefers negative-entry caching (spec §4.2).
type RuntimeLookupMiss struct {
	Ino   uint64
	Name  string
}

func (e *RuntimeLookupMiss) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("lookup miss: parent=%d name=%q", e.Ino, e.Name)
	}
	return fmt.Sprintf("lookup miss: ino=%d", e.Ino)
}

func (e *RuntimeLookupMiss) Errno() syscall.Errno { return syscall.ENOENT }

// RuntimeIoError reports a failed archive read during a request. It maps
// to ENODATA and is logged (spec §7).
type RuntimeIoError struct {
	Ino uint64
	Err error
}

func (e *RuntimeIoError) Error() string {
	return fmt.Sprintf("runtime io: ino=%d: %v", e.Ino, e.Err)
}

func (e *RuntimeIoError) Unwrap() error { return e.Err }

func (e *RuntimeIoError) Errno() syscall.Errno { return syscall.ENODATA }

// UnsupportedEntryType reports a tar entry type the core does not model
// (FIFO, block/char device). It is non-fatal: the entry is coerced to a
// regular file and the event is logged (spec §7).
type UnsupportedEntryType struct {
	Path     string
	Typeflag byte
}

func (e *UnsupportedEntryType) Error() string {
	return fmt.Sprintf("unsupported entry type %q at %s, coerced to regular file", e.Typeflag, e.Path)
}

// MalformedPaxValue reports a PAX extension value that failed to parse.
// Non-fatal: the key is treated as absent (spec §4.3, §7).
type MalformedPaxValue struct {
	Path  string
	Key   string
	Value string
}

func (e *MalformedPaxValue) Error() string {
	return fmt.Sprintf("malformed pax value at %s: %s=%q", e.Path, e.Key, e.Value)
}

// Errno is implemented by the runtime error kinds that carry a kernel
// error number.
type Errno interface {
	error
	Errno() syscall.Errno
}
