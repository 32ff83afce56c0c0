// Package config loads openmux's on-disk configuration: the UI tuning
// knobs, keybinding table, and chrome theme of spec.md §6, parsed from
// config.toml with github.com/pelletier/go-toml/v2 into the static
// structure the input router and layout engine consume.
//
// Grounded on elleryfamilia-thicc/internal/config's InitConfigDir (the
// XDG-aware config directory resolution), generalized from micro's
// settings.json/bindings.json pair into a single config.toml covering
// both, per §6.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openmux/openmux/internal/input"
	"github.com/pelletier/go-toml/v2"
)

// UI holds the tunables of §6's `[ui]` table.
type UI struct {
	PrefixKey          string  `toml:"prefix_key"`
	PrefixTimeoutMs    int     `toml:"prefix_timeout_ms"`
	MainPaneRatio      float64 `toml:"main_pane_ratio"`
	DefaultLayoutMode  string  `toml:"default_layout_mode"`
	AutosaveIntervalMs int     `toml:"autosave_interval_ms"`
	ScrollbackLimit    int     `toml:"scrollback_limit"`
	MinPaneWidth       int     `toml:"min_pane_width"`
	MinPaneHeight      int     `toml:"min_pane_height"`
}

// Config is the fully parsed contents of config.toml.
type Config struct {
	UI          UI                              `toml:"ui"`
	Keybindings map[string]map[string][]string   `toml:"keybindings"`
	Theme       map[string]string               `toml:"theme"`
}

// DefaultConfig returns the stock configuration, matching the
// defaults enumerated in spec.md §6.
func DefaultConfig() *Config {
	return &Config{
		UI: UI{
			PrefixKey:         "ctrl+b",
			PrefixTimeoutMs:   2000,
			MainPaneRatio:     0.5,
			DefaultLayoutMode: "vertical",
			AutosaveIntervalMs: 30000,
			ScrollbackLimit:   2000,
			MinPaneWidth:      10,
			MinPaneHeight:     5,
		},
		Theme: DefaultTheme(),
	}
}

// Dir returns the openmux config directory: $XDG_CONFIG_HOME/openmux,
// or $HOME/.config/openmux when XDG_CONFIG_HOME is unset, creating it
// if it doesn't exist.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "openmux")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("config: create config directory: %w", err)
	}
	return dir, nil
}

// SessionsDir returns the sessions/ subdirectory of the config
// directory (§6 "Persistence layout"), creating it if needed.
func SessionsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	sessions := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessions, 0700); err != nil {
		return "", fmt.Errorf("config: create sessions directory: %w", err)
	}
	return sessions, nil
}

// Path returns the path to config.toml inside the config directory.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads and parses config.toml at path, filling any field the
// file omits from DefaultConfig. A missing file is not an error: it
// yields the default config outright (§7 ConfigLoadError "falls back
// to default bindings").
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	// A partially specified [ui] table leaves zero-valued fields; fill
	// them from the defaults rather than let a forgotten key silently
	// zero out a ratio or timeout.
	defaults := DefaultConfig()
	if cfg.UI.PrefixKey == "" {
		cfg.UI.PrefixKey = defaults.UI.PrefixKey
	}
	if cfg.UI.PrefixTimeoutMs == 0 {
		cfg.UI.PrefixTimeoutMs = defaults.UI.PrefixTimeoutMs
	}
	if cfg.UI.MainPaneRatio == 0 {
		cfg.UI.MainPaneRatio = defaults.UI.MainPaneRatio
	}
	if cfg.UI.DefaultLayoutMode == "" {
		cfg.UI.DefaultLayoutMode = defaults.UI.DefaultLayoutMode
	}
	if cfg.UI.ScrollbackLimit == 0 {
		cfg.UI.ScrollbackLimit = defaults.UI.ScrollbackLimit
	}
	if cfg.UI.MinPaneWidth == 0 {
		cfg.UI.MinPaneWidth = defaults.UI.MinPaneWidth
	}
	if cfg.UI.MinPaneHeight == 0 {
		cfg.UI.MinPaneHeight = defaults.UI.MinPaneHeight
	}
	for k, v := range defaults.Theme {
		if _, ok := cfg.Theme[k]; !ok {
			if cfg.Theme == nil {
				cfg.Theme = map[string]string{}
			}
			cfg.Theme[k] = v
		}
	}

	return cfg, nil
}

// PrefixTimeout converts UI.PrefixTimeoutMs to a time.Duration.
func (c *Config) PrefixTimeout() time.Duration {
	return time.Duration(c.UI.PrefixTimeoutMs) * time.Millisecond
}

// AutosaveInterval converts UI.AutosaveIntervalMs to a time.Duration.
// Zero means autosave-on-interval is disabled (§6).
func (c *Config) AutosaveInterval() time.Duration {
	return time.Duration(c.UI.AutosaveIntervalMs) * time.Millisecond
}

// Bindings builds an input.Bindings from the parsed [keybindings.<mode>]
// tables. A mode the config doesn't mention at all keeps the stock
// DefaultBindings table for that mode rather than ending up unbound.
func (c *Config) Bindings() *input.Bindings {
	configured := map[input.Mode]bool{}
	table := map[input.Mode]map[input.Action][]string{}
	for modeName, actions := range c.Keybindings {
		mode := input.Mode(modeName)
		configured[mode] = true
		m := map[input.Action][]string{}
		for action, combos := range actions {
			m[input.Action(action)] = combos
		}
		table[mode] = m
	}

	defaults := input.DefaultBindings()
	for _, mode := range []input.Mode{input.ModePrefix, input.ModeMove, input.ModeSearch, input.ModeConfirm} {
		if configured[mode] {
			continue
		}
		m := map[input.Action][]string{}
		for _, action := range defaultActionsFor(mode) {
			if combos := defaults.Combos(mode, action); len(combos) > 0 {
				m[action] = combos
			}
		}
		table[mode] = m
	}
	return input.NewBindings(table)
}

// defaultActionsFor enumerates the actions DefaultBindings assigns in
// mode, so Bindings can copy them wholesale when the config leaves that
// mode unconfigured.
func defaultActionsFor(mode input.Mode) []input.Action {
	switch mode {
	case input.ModePrefix:
		actions := []input.Action{
			input.ActionPaneNew, input.ActionPaneClose, input.ActionPaneZoom,
			input.ActionFocusNorth, input.ActionFocusSouth, input.ActionFocusEast, input.ActionFocusWest,
			input.ActionLayoutVertical, input.ActionLayoutHorizontal, input.ActionLayoutStacked,
			input.ActionLayoutCyclePrev, input.ActionLayoutCycleNext,
			input.ActionSessionPickerToggle, input.ActionAggregateToggle,
			input.ActionSearchOpen, input.ActionClipboardPaste, input.ActionConsoleToggle,
			input.ActionAppQuit, input.ActionHintsToggle, input.ActionModeMove, input.ActionModeCancel,
		}
		for n := 1; n <= 9; n++ {
			actions = append(actions, input.WorkspaceSwitch(n))
		}
		return actions
	case input.ModeMove:
		return []input.Action{
			input.ActionMoveNorth, input.ActionMoveSouth, input.ActionMoveEast, input.ActionMoveWest,
			input.ActionModeCancel,
		}
	case input.ModeSearch:
		return []input.Action{
			input.ActionSearchNext, input.ActionSearchPrev, input.ActionSearchConfirm,
			input.ActionSearchCancel, input.ActionSearchDelete,
		}
	case input.ModeConfirm:
		return []input.Action{input.ActionConfirmYes, input.ActionConfirmNo}
	default:
		return nil
	}
}
