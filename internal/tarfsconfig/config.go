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

// Package tarfsconfig holds the mount's configuration record and the
// three-layer loading spec.md §11.3 describes (defaults, then an
// optional YAML file, then CLI flags override both). The shape of a
// flat Config struct plus a separate LogConfig/RotateConfig mirrors
// gcsfuse's cmd/root.go + cfg.Config split, the closest configuration
// precedent in the example pack.
package tarfsconfig

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/geropl/tarfs/internal/tarfslog"
)

// LogConfig is the ambient logging section (spec §11.1).
type LogConfig struct {
	Severity   string `yaml:"severity"`
	Format     string `yaml:"format"`
	FilePath   string `yaml:"file-path"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	Compress   bool   `yaml:"compress"`
}

// Config is the complete mount configuration: the archive and
// mountpoint paths, FUSE-level knobs, and the ambient logging section.
type Config struct {
	Archive    string    `yaml:"-"`
	MountPoint string    `yaml:"-"`
	Foreground bool      `yaml:"foreground"`
	AllowOther bool      `yaml:"allow-other"`
	Debug      bool      `yaml:"debug"`
	Log        LogConfig `yaml:"log"`
}

// Default returns the configuration's baseline values, the first of the
// three layers spec §11.3 describes.
func Default() Config {
	return Config{
		Log: LogConfig{
			Severity:   tarfslog.SeverityInfo,
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// LoadFile merges a YAML file's contents onto cfg (layer two). A
// missing path is not an error: an unset --config flag means "no file
// layer", matching gcsfuse's optional --config-file.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tarfsconfig: reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("tarfsconfig: parsing config file: %w", err)
	}
	return nil
}

// BindFlags registers the CLI flags (layer three) onto cfg's fields, so
// that after fs.Parse any flag the user passed wins over the file and
// default layers.
func BindFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.BoolVar(&cfg.Foreground, "foreground", cfg.Foreground, "has no effect: tarfs always runs in the foreground")
	fs.BoolVar(&cfg.AllowOther, "allow-other", cfg.AllowOther, "allow other users to access the mount")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug-level FUSE tracing")
	fs.StringVar(&cfg.Log.Severity, "log-severity", cfg.Log.Severity, "log severity: TRACE, DEBUG, INFO, WARNING, ERROR, OFF")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: text or json")
	fs.StringVar(&cfg.Log.FilePath, "log-file", cfg.Log.FilePath, "rotate logs to this file instead of stderr")
}

// Validate checks invariants that span fields (spec §6.3/§11.3): both
// positional arguments must be set, and the severity must be one
// tarfslog recognizes.
func Validate(cfg Config) error {
	if cfg.Archive == "" {
		return fmt.Errorf("tarfsconfig: archive path is required")
	}
	if cfg.MountPoint == "" {
		return fmt.Errorf("tarfsconfig: mount point is required")
	}
	switch cfg.Log.Severity {
	case tarfslog.SeverityTrace, tarfslog.SeverityDebug, tarfslog.SeverityInfo,
		tarfslog.SeverityWarn, tarfslog.SeverityError, tarfslog.SeverityOff:
	default:
		return fmt.Errorf("tarfsconfig: unrecognized log severity %q", cfg.Log.Severity)
	}
	return nil
}
