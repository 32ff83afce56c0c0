package input

import (
	"strings"

	"github.com/micro-editor/tcell/v2"
)

// modifierOrder fixes the canonical ordering spec.md §4.G requires: "a
// key event is encoded into a canonical string (modifiers in fixed order
// then key name)".
var modifierOrder = []struct {
	mask tcell.ModMask
	name string
}{
	{tcell.ModCtrl, "ctrl"},
	{tcell.ModAlt, "alt"},
	{tcell.ModShift, "shift"},
	{tcell.ModMeta, "super"},
}

// namedKeys maps tcell key constants to the combo grammar's named-key
// spelling (§6 "Key-combo grammar").
var namedKeys = map[tcell.Key]string{
	tcell.KeyEnter:     "Enter",
	tcell.KeyEscape:    "Escape",
	tcell.KeyTab:       "Tab",
	tcell.KeyBackspace: "Backspace",
	tcell.KeyBackspace2: "Backspace",
	tcell.KeyUp:        "Up",
	tcell.KeyDown:      "Down",
	tcell.KeyLeft:      "Left",
	tcell.KeyRight:     "Right",
	tcell.KeyHome:      "Home",
	tcell.KeyEnd:       "End",
	tcell.KeyPgUp:      "PageUp",
	tcell.KeyPgDn:      "PageDown",
	tcell.KeyInsert:    "Insert",
	tcell.KeyDelete:    "Delete",
	tcell.KeyF1:        "F1",
	tcell.KeyF2:        "F2",
	tcell.KeyF3:        "F3",
	tcell.KeyF4:        "F4",
	tcell.KeyF5:        "F5",
	tcell.KeyF6:        "F6",
	tcell.KeyF7:        "F7",
	tcell.KeyF8:        "F8",
	tcell.KeyF9:        "F9",
	tcell.KeyF10:       "F10",
	tcell.KeyF11:       "F11",
	tcell.KeyF12:       "F12",
}

// EncodeCombo canonicalizes a key event into the binding-table key used
// by Bindings lookups: modifiers in fixed order, joined by "+", then the
// key name: named keys keep their capitalized spelling from the grammar,
// and a printable rune is written as typed (so "Y" and "y" differ).
func EncodeCombo(ev *tcell.EventKey) string {
	var b strings.Builder
	mods := ev.Modifiers()

	// Ctrl+letter arrives pre-collapsed into dedicated tcell.KeyCtrlX
	// constants rather than as KeyRune+ModCtrl; normalize those back to
	// "ctrl+<letter>" so the grammar stays uniform.
	if name, r, ok := ctrlLetterFromKey(ev.Key()); ok {
		b.WriteString("ctrl+")
		b.WriteString(name)
		_ = r
		return b.String()
	}

	for _, m := range modifierOrder {
		if mods&m.mask != 0 {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}

	if name, ok := namedKeys[ev.Key()]; ok {
		b.WriteString(name)
		return b.String()
	}

	if ev.Key() == tcell.KeyRune {
		b.WriteRune(ev.Rune())
		return b.String()
	}

	// Unknown key constant: fall back to its tcell name so it's at least
	// stable and unique, never silently dropped.
	b.WriteString(ev.Name())
	return b.String()
}

// ctrlLetterFromKey recognizes tcell's dedicated KeyCtrlA..KeyCtrlZ (and
// the handful of punctuation Ctrl keys) constants and returns the plain
// lowercase letter they represent, so EncodeCombo can render them as
// "ctrl+<letter>" uniformly with the ModCtrl+KeyRune path.
func ctrlLetterFromKey(k tcell.Key) (string, rune, bool) {
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		r := rune('a' + (k - tcell.KeyCtrlA))
		return string(r), r, true
	}
	switch k {
	case tcell.KeyCtrlBackslash:
		return "\\", '\\', true
	case tcell.KeyCtrlRightSq:
		return "]", ']', true
	case tcell.KeyCtrlCarat:
		return "^", '^', true
	case tcell.KeyCtrlUnderscore:
		return "_", '_', true
	}
	return "", 0, false
}

// ParseCombo validates and re-canonicalizes a combo string read from
// config (whose author may not have respected modifier ordering),
// returning the same form EncodeCombo would produce for an equivalent
// event. Unknown tokens are preserved as-is so a typo in config surfaces
// as "never matches" rather than a parse failure.
func ParseCombo(combo string) string {
	parts := strings.Split(combo, "+")
	if len(parts) == 0 {
		return combo
	}
	key := parts[len(parts)-1]
	tokens := parts[:len(parts)-1]

	present := map[string]bool{}
	for _, t := range tokens {
		present[strings.ToLower(t)] = true
	}

	var b strings.Builder
	for _, m := range modifierOrder {
		if present[m.name] {
			b.WriteString(m.name)
			b.WriteByte('+')
		}
	}
	for _, t := range tokens {
		known := false
		for _, m := range modifierOrder {
			if strings.ToLower(t) == m.name {
				known = true
			}
		}
		if !known {
			b.WriteString(t)
			b.WriteByte('+')
		}
	}
	b.WriteString(key)
	return b.String()
}
