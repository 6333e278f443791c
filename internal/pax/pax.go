// Copyright 2016 the Go-FUSE Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pax parses PAX extended-header timestamp values (spec §4.3).
package pax

import "strconv"

// ParseTime parses a PAX timestamp value of the form "SECONDS[.FRACTION]".
// FRACTION, if present, is left-scaled until its value occupies the
// nanosecond decade it represents, compensating for the tar serializer's
// habit of stripping trailing zeros: the stored string "27993590" yields
// 279_935_900 ns, not 27_993_590 ns. A malformed value reports ok=false
// and the key should be treated as absent (spec §7 MalformedPaxValue).
func ParseTime(raw string) (sec int64, nsec int64, ok bool) {
	secPart := raw
	fracPart := ""
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			secPart = raw[:i]
			fracPart = raw[i+1:]
			break
		}
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if fracPart == "" {
		return sec, 0, true
	}

	ns, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	// Left-scale until ns occupies the full nine-digit nanosecond decade
	// ([100_000_000, 999_999_999]), undoing the tar serializer's
	// trailing-zero stripping: "27993590" -> 279_935_900, ".5" -> 5 ->
	// ... -> 500_000_000.
	for ns != 0 && ns < 100_000_000 {
		ns *= 10
	}
	return sec, ns, true
}
