package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/micro-editor/tcell/v2"
)

// InTmux is true when running inside tmux, which needs the 256-color
// palette rather than truecolor for predictable rendering.
var InTmux = os.Getenv("TMUX") != ""

// Theme chrome keys, matched against a config.toml `[theme]` table.
// Unlike the syntax-highlighting colorschemes this is adapted from,
// these name UI chrome elements, not language syntax groups.
const (
	ThemeBorder         = "border"
	ThemeBorderFocused   = "border.focused"
	ThemeStatusBar       = "statusbar"
	ThemeTabActive       = "tab.active"
	ThemeTabInactive     = "tab.inactive"
	ThemeSelection       = "selection"
	ThemeDiffAdd         = "diff.add"
	ThemeDiffDel         = "diff.del"
)

// DefaultTheme returns the stock chrome color strings, in the same
// "fg,bg" + optional attribute-word grammar StringToStyle parses.
func DefaultTheme() map[string]string {
	return map[string]string{
		ThemeBorder:        "white",
		ThemeBorderFocused: "bold cyan",
		ThemeStatusBar:     "reverse white",
		ThemeTabActive:     "bold white",
		ThemeTabInactive:   "white",
		ThemeSelection:     "white,24",
		ThemeDiffAdd:       "green",
		ThemeDiffDel:       "red",
	}
}

// Style resolves a theme key to a tcell.Style, falling back to
// tcell.StyleDefault for a key the theme doesn't define.
func (c *Config) Style(key string) tcell.Style {
	str, ok := c.Theme[key]
	if !ok {
		return tcell.StyleDefault
	}
	return StringToStyle(str)
}

// StringToStyle parses a style string of the form
// "[bold] [italic] [underline] [reverse] fg[,bg]" into a tcell.Style.
// Grounded on elleryfamilia-thicc/internal/config/colorscheme.go's
// StringToStyle, trimmed of the syntax-colorscheme include/link
// machinery it shares that parsing logic with.
func StringToStyle(str string) tcell.Style {
	style := tcell.StyleDefault

	fields := strings.Fields(str)
	if len(fields) == 0 {
		return style
	}
	colorField := fields[len(fields)-1]
	attrs := fields[:len(fields)-1]

	parts := strings.SplitN(colorField, ",", 2)
	if fg, ok := StringToColor(strings.TrimSpace(parts[0])); ok {
		style = style.Foreground(fg)
	}
	if len(parts) == 2 {
		if bg, ok := StringToColor(strings.TrimSpace(parts[1])); ok {
			style = style.Background(bg)
		}
	}

	for _, attr := range attrs {
		switch attr {
		case "bold":
			style = style.Bold(true)
		case "italic":
			style = style.Italic(true)
		case "underline":
			style = style.Underline(true)
		case "reverse":
			style = style.Reverse(true)
		}
	}

	return style
}

// StringToColor resolves a color name, a 0-255 palette index, or a
// "#rrggbb" hex string to a tcell.Color. Named colors use micro's ANSI
// mapping (bright/light prefix selects the high-intensity variant).
func StringToColor(str string) (tcell.Color, bool) {
	switch str {
	case "", "default":
		return tcell.ColorDefault, str == "default"
	case "black":
		return tcell.ColorBlack, true
	case "red":
		return tcell.ColorMaroon, true
	case "green":
		return tcell.ColorGreen, true
	case "yellow":
		return tcell.ColorOlive, true
	case "blue":
		return tcell.ColorNavy, true
	case "magenta":
		return tcell.ColorPurple, true
	case "cyan":
		return tcell.ColorTeal, true
	case "white":
		return tcell.ColorSilver, true
	case "brightblack", "lightblack":
		return tcell.ColorGray, true
	case "brightred", "lightred":
		return tcell.ColorRed, true
	case "brightgreen", "lightgreen":
		return tcell.ColorLime, true
	case "brightyellow", "lightyellow":
		return tcell.ColorYellow, true
	case "brightblue", "lightblue":
		return tcell.ColorBlue, true
	case "brightmagenta", "lightmagenta":
		return tcell.ColorFuchsia, true
	case "brightcyan", "lightcyan":
		return tcell.ColorAqua, true
	case "brightwhite", "lightwhite":
		return tcell.ColorWhite, true
	default:
		if num, err := strconv.Atoi(str); err == nil {
			return paletteColor(num), true
		}
		if len(str) == 7 && str[0] == '#' {
			if InTmux {
				return hexTo256Color(str), true
			}
			return tcell.GetColor(str), true
		}
		return tcell.ColorDefault, false
	}
}

func paletteColor(n int) tcell.Color {
	if n == 0 {
		return tcell.ColorDefault
	}
	return tcell.PaletteColor(n)
}

// hexTo256Color approximates a truecolor hex value with an entry in the
// 216-color cube (palette indices 16-231), scaling each channel to 0-5
// with integer division (rounding down, not to the nearest), for terminals
// (tmux in particular) that can't be trusted with 24-bit color.
func hexTo256Color(hex string) tcell.Color {
	var r, g, b int
	fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)

	ri := (r * 5) / 255
	gi := (g * 5) / 255
	bi := (b * 5) / 255

	return tcell.PaletteColor(16 + 36*ri + 6*gi + bi)
}
