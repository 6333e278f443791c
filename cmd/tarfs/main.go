// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command tarfs mounts an uncompressed tar archive as a read-only FUSE
// filesystem (spec.md §1). Its flag/config layering follows gcsfuse's
// cmd/root.go: defaults, then an optional YAML file, then CLI flags.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/geropl/tarfs/internal/content"
	"github.com/geropl/tarfs/internal/fusebridge"
	"github.com/geropl/tarfs/internal/indexer"
	"github.com/geropl/tarfs/internal/mountwait"
	"github.com/geropl/tarfs/internal/tarfs"
	"github.com/geropl/tarfs/internal/tarfsconfig"
	"github.com/geropl/tarfs/internal/tarfslog"
	"github.com/geropl/tarfs/internal/tarsource"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := tarfsconfig.Default()

	cmd := &cobra.Command{
		Use:   "tarfs archive mount_point",
		Short: "Mount an uncompressed tar archive as a read-only filesystem",
		Long: `tarfs scans an uncompressed tar archive once, builds an in-memory
index of its entries, and exposes that index as a mounted read-only
directory tree via FUSE.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Archive = args[0]
			cfg.MountPoint = args[1]
			// Flags are already parsed into cfg; re-apply the ones the
			// user set so they win over the file layer.
			set := map[string]string{}
			cmd.Flags().Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })
			if err := tarfsconfig.LoadFile(&cfg, cfgFile); err != nil {
				return err
			}
			for name, v := range set {
				if err := cmd.Flags().Set(name, v); err != nil {
					return err
				}
			}
			if cfg.Debug {
				cfg.Log.Severity = tarfslog.SeverityDebug
			}
			if err := tarfsconfig.Validate(cfg); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	tarfsconfig.BindFlags(&cfg, cmd.Flags())

	return cmd
}

func run(cfg tarfsconfig.Config) error {
	log, closer, err := tarfslog.New(tarfslog.Options{
		Severity:   cfg.Log.Severity,
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return fmt.Errorf("tarfs: setting up logging: %w", err)
	}
	defer closer.Close()

	root, err := tarfsconfig.RootPermissionsFromPath(cfg.MountPoint)
	if err != nil {
		return err
	}

	src, err := tarsource.Open(cfg.Archive)
	if err != nil {
		return fmt.Errorf("tarfs: opening archive: %w", err)
	}
	defer src.Close()

	log.Info("indexing archive", "archive", cfg.Archive)
	start := time.Now()
	arena, maps, err := indexer.Build(src, root, log)
	if err != nil {
		return fmt.Errorf("tarfs: indexing archive: %w", err)
	}
	log.Info("indexed archive", "entries", arena.Len(), "elapsed", time.Since(start))

	reader := content.New(src.File())
	srv := tarfs.New(maps, reader, log)
	bridgeRoot := fusebridge.NewRoot(srv)

	negativeTimeout := time.Duration(math.MaxInt64)
	server, err := fs.Mount(cfg.MountPoint, bridgeRoot, &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: cfg.AllowOther,
			Debug:      cfg.Debug,
			Name:       "tarfs",
			FsName:     cfg.Archive,
		},
		NegativeTimeout: &negativeTimeout,
	})
	if err != nil {
		return fmt.Errorf("tarfs: mounting: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mountwait.Until(ctx, cfg.MountPoint, 0); err != nil {
		log.Warn("mount not observed in mount table, continuing anyway", "err", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		log.Info("received signal, unmounting", "signal", sig.String())
		if err := server.Unmount(); err != nil {
			log.Error("unmount failed", "err", err)
		}
	}()

	log.Info("mounted", "mount_point", cfg.MountPoint)
	server.Wait()
	return nil
}
