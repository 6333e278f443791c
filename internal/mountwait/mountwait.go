// Copyright 2019 rclone Authors
//
// Use of this source code is governed by the MIT license.

// Package mountwait polls the kernel's mount table for confirmation that
// the FUSE mount has come up, the way a daemonizing mount command needs
// to before it can report success to its caller (spec §11.4's
// operational concerns, absent from the distilled spec's MOUNT
// lifecycle but present in the original's CLI). It is grounded on the
// moby/sys/mountinfo usage in rclone's backend/local change-notification
// code, the only example-pack call site for that library.
package mountwait

import (
	"context"
	"fmt"
	"time"

	"github.com/moby/sys/mountinfo"
)

// Until polls until path appears as a mount point, or ctx is done. It
// returns nil as soon as the mount is observed.
func Until(ctx context.Context, path string, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		mounted, err := mountinfo.Mounted(path)
		if err != nil {
			return fmt.Errorf("mountwait: checking mount table: %w", err)
		}
		if mounted {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mountwait: %s did not become a mount point: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Infos returns the mount table entries whose mountpoint is path itself
// or one of its parent directories, for diagnostics (e.g. detecting a stale mount left by a crashed
// previous run before attempting a fresh one).
func Infos(path string) ([]*mountinfo.Info, error) {
	return mountinfo.GetMounts(mountinfo.ParentsFilter(path))
}
