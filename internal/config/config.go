// SPDX-License-Identifier: MIT

// Package config loads and validates the kvm48 YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/SNH48Live/KVM48/internal/naming"
)

// Mode selects which workflow the tool runs and which config overlay
// applies.
type Mode string

const (
	ModeStd  Mode = "std"
	ModePerf Mode = "perf"
)

// ConfigError reports an invalid or unloadable configuration.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "config: " + e.msg }

func errf(format string, args ...any) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

var validGroupIDs = map[int64]string{
	0:  "48G",
	10: "SNH48",
	11: "BEJ48",
	12: "GNZ48",
	13: "SHY48",
	14: "CKG48",
}

// GroupName maps a group id to its display name.
func GroupName(id int64) (string, bool) {
	name, ok := validGroupIDs[id]
	return name, ok
}

type perfSection struct {
	GroupID      *int64  `yaml:"group_id"`
	Span         *int    `yaml:"span"`
	Directory    *string `yaml:"directory"`
	NamedSubdirs *bool   `yaml:"named_subdirs"`
	Instructions *bool   `yaml:"instructions"`
}

type rawConfig struct {
	GroupID       int64       `yaml:"group_id"`
	Names         []string    `yaml:"names"`
	Span          int         `yaml:"span"`
	Directory     string      `yaml:"directory"`
	Naming        string      `yaml:"naming"`
	NamedSubdirs  bool        `yaml:"named_subdirs"`
	ConvertNonBMP string      `yaml:"convert_non_bmp_chars"`
	Editor        string      `yaml:"editor"`
	EditorOpts    []string    `yaml:"editor_opts"`
	UpdateChecks  *bool       `yaml:"update_checks"`
	Perf          perfSection `yaml:"perf"`
}

// Config is the validated configuration; the active mode's overlay is
// applied through the accessor methods.
type Config struct {
	Mode Mode

	Names        []string
	Naming       string
	NonBMP       naming.NonBMP
	Editor       string
	EditorOpts   []string
	UpdateChecks bool

	PerfInstructions bool

	groupID      int64
	span         int
	directory    string
	namedSubdirs bool

	perfGroupID      int64
	perfSpan         int
	perfDirectory    string
	perfNamedSubdirs bool
}

// Load reads and validates the configuration file.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errf("failed to load %s: %v", path, err)
	}
	var raw rawConfig
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, errf("failed to parse %s: %v", path, err)
	}

	cfg := &Config{Mode: ModeStd}

	if _, ok := validGroupIDs[raw.GroupID]; !ok {
		return nil, errf("unrecognized group_id %d; must be one of 0, 10, 11, 12, 13, 14", raw.GroupID)
	}
	cfg.groupID = raw.GroupID

	cfg.Names = raw.Names

	cfg.span = raw.Span
	if cfg.span < 1 {
		cfg.span = 1
	}

	var err2 error
	cfg.directory, err2 = resolveDirectory(raw.Directory, "directory")
	if err2 != nil {
		return nil, err2
	}

	cfg.Naming = raw.Naming
	if cfg.Naming == "" {
		cfg.Naming = naming.DefaultPattern
	}

	cfg.NonBMP, err2 = naming.ParseNonBMP(raw.ConvertNonBMP)
	if err2 != nil {
		return nil, errf("invalid convert_non_bmp_chars: %v", err2)
	}

	namer := &naming.Namer{Pattern: cfg.Naming, NonBMP: cfg.NonBMP}
	if err := namer.SelfTest(); err != nil {
		return nil, errf("%v", err)
	}

	cfg.namedSubdirs = raw.NamedSubdirs
	cfg.Editor = raw.Editor
	cfg.EditorOpts = raw.EditorOpts
	cfg.UpdateChecks = raw.UpdateChecks == nil || *raw.UpdateChecks

	// Perf overlay defaults to the corresponding global settings.
	cfg.perfGroupID = cfg.groupID
	if raw.Perf.GroupID != nil {
		if _, ok := validGroupIDs[*raw.Perf.GroupID]; !ok {
			return nil, errf("unrecognized perf.group_id %d", *raw.Perf.GroupID)
		}
		cfg.perfGroupID = *raw.Perf.GroupID
	}
	cfg.perfSpan = cfg.span
	if raw.Perf.Span != nil {
		cfg.perfSpan = *raw.Perf.Span
		if cfg.perfSpan < 1 {
			cfg.perfSpan = 1
		}
	}
	cfg.perfDirectory = cfg.directory
	if raw.Perf.Directory != nil && *raw.Perf.Directory != "" {
		cfg.perfDirectory, err2 = resolveDirectory(*raw.Perf.Directory, "perf.directory")
		if err2 != nil {
			return nil, err2
		}
	}
	cfg.perfNamedSubdirs = cfg.namedSubdirs
	if raw.Perf.NamedSubdirs != nil {
		cfg.perfNamedSubdirs = *raw.Perf.NamedSubdirs
	}
	cfg.PerfInstructions = raw.Perf.Instructions == nil || *raw.Perf.Instructions

	return cfg, nil
}

func resolveDirectory(dir, field string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errf("cannot expand %s: %v", field, err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errf("invalid %s: %v", field, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", errf("nonexistent %s: %s", field, abs)
	}
	return abs, nil
}

// RequireNames validates that at least one member name is configured.
// Standard mode only; perf mode needs none.
func (c *Config) RequireNames() error {
	if len(c.Names) == 0 {
		return errf("names must be a nonempty list of member names")
	}
	for _, n := range c.Names {
		if strings.TrimSpace(n) == "" {
			return errf("names must not contain blank entries")
		}
	}
	return nil
}

// GroupID returns the scope group id for the active mode.
func (c *Config) GroupID() int64 {
	if c.Mode == ModePerf {
		return c.perfGroupID
	}
	return c.groupID
}

// Span returns the inclusive day span for the active mode.
func (c *Config) Span() int {
	if c.Mode == ModePerf {
		return c.perfSpan
	}
	return c.span
}

// Directory returns the destination directory for the active mode.
func (c *Config) Directory() string {
	if c.Mode == ModePerf {
		return c.perfDirectory
	}
	return c.directory
}

// NamedSubdirs reports whether VODs go into named subdirectories in the
// active mode.
func (c *Config) NamedSubdirs() bool {
	if c.Mode == ModePerf {
		return c.perfNamedSubdirs
	}
	return c.namedSubdirs
}

// Namer builds the path namer for the active mode.
func (c *Config) Namer() *naming.Namer {
	return &naming.Namer{
		Pattern:      c.Naming,
		NamedSubdirs: c.NamedSubdirs(),
		NonBMP:       c.NonBMP,
	}
}
