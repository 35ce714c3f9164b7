// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"

	"github.com/jeranaias/specterm/internal/options"
	"github.com/jeranaias/specterm/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the startup configuration read from config.toml. Runtime
// option variables live in the options registry; the free-form
// [options] table here only seeds their startup values.
type Config struct {
	UI      UIConfig          `toml:"ui" json:"ui"`
	Files   FilesConfig       `toml:"files" json:"files"`
	History HistoryConfig     `toml:"history" json:"history"`
	Watch   WatchConfig       `toml:"watch" json:"watch"`
	Options map[string]string `toml:"options" json:"options"`
}

// UIConfig contains display settings.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light" or "mono".
	Theme string `toml:"theme" json:"theme"`
	// Mouse enables mouse support in the TUI.
	Mouse bool `toml:"mouse" json:"mouse"`
}

// FilesConfig contains file location settings.
type FilesConfig struct {
	// HistoryFile stores the command-line history of the REPL.
	HistoryFile string `toml:"history_file" json:"history_file"`
	// FitlistDir is where relative fitlist paths resolve.
	FitlistDir string `toml:"fitlist_dir" json:"fitlist_dir"`
}

// HistoryConfig controls the fit journal.
type HistoryConfig struct {
	// Enabled turns journaling of stored fits on.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the journal database file.
	Path string `toml:"path" json:"path"`
}

// WatchConfig controls the spectrum file watcher.
type WatchConfig struct {
	// DebounceMs coalesces bursts of change events per file.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
	// MaxPerSecond rate-limits reload notifications.
	MaxPerSecond int `toml:"max_per_second" json:"max_per_second"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UI: UIConfig{
			Theme: "dark",
			Mouse: true,
		},
		Files: FilesConfig{
			HistoryFile: "history",
			FitlistDir:  ".",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "fits.db",
		},
		Watch: WatchConfig{
			DebounceMs:   250,
			MaxPerSecond: 4,
		},
		Options: map[string]string{},
	}
}

// =============================================================================
// FILE PATHS
// =============================================================================

// Dir returns the configuration directory, creating nothing.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "specterm"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ProfilePath returns the overlay file for a named profile.
func ProfilePath(name string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profiles", name+".jsonc"), nil
}

// resolve turns a path relative to the config dir into an absolute one.
// Absolute paths and paths with an explicit directory pass through.
func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || strings.ContainsRune(path, filepath.Separator) {
		return util.ExpandUser(path)
	}
	dir, err := Dir()
	if err != nil {
		return path
	}
	return filepath.Join(dir, path)
}

// HistoryFilePath returns the resolved REPL history location.
func (c *Config) HistoryFilePath() string { return c.resolve(c.Files.HistoryFile) }

// JournalPath returns the resolved fit journal location, empty when
// journaling is disabled.
func (c *Config) JournalPath() string {
	if !c.History.Enabled {
		return ""
	}
	return c.resolve(c.History.Path)
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file at path on top of the defaults. A missing
// file is not an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if cfg.Options == nil {
		cfg.Options = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadProfile overlays a named JSONC profile onto the config. Profiles
// are sparse: only the fields present in the file change.
func (c *Config) LoadProfile(name string) error {
	path, err := ProfilePath(name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	return c.Validate()
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - SPECTERM_THEME: overrides ui.theme
//   - SPECTERM_MOUSE: "1"/"true" or "0"/"false"
//   - SPECTERM_HISTORY: overrides history.path, empty disables the journal
//   - SPECTERM_HISTORY_FILE: overrides files.history_file
func (c *Config) ApplyEnvOverrides() {
	if theme := os.Getenv("SPECTERM_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if mouse, ok := os.LookupEnv("SPECTERM_MOUSE"); ok {
		c.UI.Mouse = mouse == "1" || strings.EqualFold(mouse, "true")
	}
	if hist, ok := os.LookupEnv("SPECTERM_HISTORY"); ok {
		if hist == "" {
			c.History.Enabled = false
		} else {
			c.History.Enabled = true
			c.History.Path = hist
		}
	}
	if hf := os.Getenv("SPECTERM_HISTORY_FILE"); hf != "" {
		c.Files.HistoryFile = hf
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

var themes = map[string]bool{"dark": true, "light": true, "mono": true}

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	if !themes[c.UI.Theme] {
		return fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms: must not be negative")
	}
	if c.Watch.MaxPerSecond < 1 {
		return fmt.Errorf("watch.max_per_second: must be at least 1")
	}
	return nil
}

// =============================================================================
// OPTIONS BRIDGE
// =============================================================================

// Apply feeds the [options] table into the registry. It runs after the
// interfaces have registered their variables; a bad name or value is
// reported through warn and startup continues.
func (c *Config) Apply(reg *options.Registry, warn func(format string, args ...any)) {
	for _, name := range sortedKeys(c.Options) {
		if err := reg.Set(name, c.Options[name]); err != nil {
			if warn != nil {
				warn("config option %s: %v", name, err)
			}
		}
	}
}

// SetOptions snapshots the registry's non-default values into the
// [options] table, so "config write" persists them.
func (c *Config) SetOptions(reg *options.Registry) {
	c.Options = map[string]string{}
	for _, name := range reg.Names() {
		if reg.IsDefault(name) {
			continue
		}
		if v, err := reg.Get(name); err == nil {
			c.Options[name] = options.FormatValue(v)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration as TOML, atomically.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("# specterm configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
