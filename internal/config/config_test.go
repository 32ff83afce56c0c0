package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/micro-editor/tcell/v2"
	"github.com/openmux/openmux/internal/input"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.PrefixKey != "ctrl+b" {
		t.Fatalf("expected default prefix key, got %q", cfg.UI.PrefixKey)
	}
	if cfg.UI.ScrollbackLimit != 2000 {
		t.Fatalf("expected default scrollback limit, got %d", cfg.UI.ScrollbackLimit)
	}
}

func TestLoadParsesUITableAndFillsOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[ui]
prefix_key = "ctrl+a"
main_pane_ratio = 0.3
`
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.PrefixKey != "ctrl+a" {
		t.Fatalf("expected overridden prefix key, got %q", cfg.UI.PrefixKey)
	}
	if cfg.UI.MainPaneRatio != 0.3 {
		t.Fatalf("expected overridden ratio, got %v", cfg.UI.MainPaneRatio)
	}
	// omitted fields fall back to defaults rather than zeroing out
	if cfg.UI.ScrollbackLimit != 2000 {
		t.Fatalf("expected default scrollback limit to survive, got %d", cfg.UI.ScrollbackLimit)
	}
	if cfg.UI.PrefixTimeoutMs != 2000 {
		t.Fatalf("expected default prefix timeout to survive, got %d", cfg.UI.PrefixTimeoutMs)
	}
}

func TestLoadParsesKeybindingsTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[keybindings.prefix]
"pane.new" = ["n"]
"app.quit" = ["ctrl+q"]
`
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	bindings := cfg.Bindings()
	action, ok := bindings.Resolve(input.ModePrefix, "n")
	if !ok || action != input.ActionPaneNew {
		t.Fatalf("expected 'n' to resolve to pane.new, got %v/%v", action, ok)
	}
	// an action not mentioned in the override table for a mode that was
	// itself configured is simply unbound, not silently defaulted
	if _, ok := bindings.Resolve(input.ModePrefix, "z"); ok {
		t.Fatalf("expected 'z' (pane.zoom's default combo) to be unbound once prefix mode is overridden")
	}

	// a mode the config never mentions keeps its stock bindings
	if action, ok := bindings.Resolve(input.ModeMove, "k"); !ok || action != input.ActionMoveNorth {
		t.Fatalf("expected move mode to keep default bindings, got %v/%v", action, ok)
	}
}

func TestPrefixTimeoutAndAutosaveIntervalConvertMilliseconds(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PrefixTimeout().Milliseconds() != 2000 {
		t.Fatalf("expected 2000ms prefix timeout, got %v", cfg.PrefixTimeout())
	}
	if cfg.AutosaveInterval().Milliseconds() != 30000 {
		t.Fatalf("expected 30000ms autosave interval, got %v", cfg.AutosaveInterval())
	}
}

func TestStyleFallsBackToDefaultForUnknownKey(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Style("nonexistent.key") != tcell.StyleDefault {
		t.Fatalf("expected default style for unknown theme key")
	}
}
