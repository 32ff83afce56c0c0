package config

import "testing"

func TestStringToColorNamedColors(t *testing.T) {
	if _, ok := StringToColor("red"); !ok {
		t.Fatalf("expected red to resolve")
	}
	if _, ok := StringToColor("brightgreen"); !ok {
		t.Fatalf("expected brightgreen to resolve")
	}
	if _, ok := StringToColor("not-a-color"); ok {
		t.Fatalf("expected unrecognized color string to fail")
	}
}

func TestStringToColorHex(t *testing.T) {
	InTmux = false
	c, ok := StringToColor("#ff0000")
	if !ok {
		t.Fatalf("expected hex color to resolve")
	}
	if c.Hex() != 0xff0000 {
		t.Fatalf("expected #ff0000, got %#x", c.Hex())
	}
}

func TestStringToColorHexApproximatesUnder256ColorTerminals(t *testing.T) {
	InTmux = true
	defer func() { InTmux = false }()

	c, ok := StringToColor("#ff8000")
	if !ok {
		t.Fatalf("expected hex color to resolve under tmux")
	}
	if c.Hex() == 0xff8000 {
		t.Fatalf("expected tmux path to approximate rather than pass through truecolor")
	}
}

func TestStringToStyleParsesForegroundAndBackground(t *testing.T) {
	style := StringToStyle("bold red,black")
	fg, bg, _ := style.Decompose()

	red, _ := StringToColor("red")
	black, _ := StringToColor("black")
	if fg != red {
		t.Fatalf("expected red foreground, got %v", fg)
	}
	if bg != black {
		t.Fatalf("expected black background, got %v", bg)
	}
}

func TestStyleResolvesConfiguredThemeKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Theme[ThemeBorderFocused] = "red"

	style := cfg.Style(ThemeBorderFocused)
	fg, _, _ := style.Decompose()
	red, _ := StringToColor("red")
	if fg != red {
		t.Fatalf("expected overridden border.focused color to resolve to red, got %v", fg)
	}
}
