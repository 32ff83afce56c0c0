package input

import (
	"unicode/utf8"

	"github.com/micro-editor/tcell/v2"
)

// EncodeKeyForPTY converts an unbound normal-mode key event into the byte
// sequence written to the focused PTY, adapted from thicc's keyToBytes
// (internal/terminal/input.go) with arrow keys made cursor-key-mode
// aware per spec.md §4.G ("CSI O for application mode, CSI [ otherwise")
// instead of always emitting the normal-mode sequence.
func EncodeKeyForPTY(ev *tcell.EventKey, cursorApplicationMode bool) []byte {
	if b, ok := arrowBytes(ev.Key(), cursorApplicationMode); ok {
		return b
	}

	switch ev.Key() {
	case tcell.KeyEnter:
		return []byte{'\r'}
	case tcell.KeyTab:
		return []byte{'\t'}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return []byte{0x7f}
	case tcell.KeyEscape:
		return []byte{0x1b}
	case tcell.KeyHome:
		return []byte{0x1b, '[', 'H'}
	case tcell.KeyEnd:
		return []byte{0x1b, '[', 'F'}
	case tcell.KeyPgUp:
		return []byte{0x1b, '[', '5', '~'}
	case tcell.KeyPgDn:
		return []byte{0x1b, '[', '6', '~'}
	case tcell.KeyInsert:
		return []byte{0x1b, '[', '2', '~'}
	case tcell.KeyDelete:
		return []byte{0x1b, '[', '3', '~'}
	case tcell.KeyF1:
		return []byte{0x1b, 'O', 'P'}
	case tcell.KeyF2:
		return []byte{0x1b, 'O', 'Q'}
	case tcell.KeyF3:
		return []byte{0x1b, 'O', 'R'}
	case tcell.KeyF4:
		return []byte{0x1b, 'O', 'S'}
	case tcell.KeyF5:
		return []byte{0x1b, '[', '1', '5', '~'}
	case tcell.KeyF6:
		return []byte{0x1b, '[', '1', '7', '~'}
	case tcell.KeyF7:
		return []byte{0x1b, '[', '1', '8', '~'}
	case tcell.KeyF8:
		return []byte{0x1b, '[', '1', '9', '~'}
	case tcell.KeyF9:
		return []byte{0x1b, '[', '2', '0', '~'}
	case tcell.KeyF10:
		return []byte{0x1b, '[', '2', '1', '~'}
	case tcell.KeyF11:
		return []byte{0x1b, '[', '2', '3', '~'}
	case tcell.KeyF12:
		return []byte{0x1b, '[', '2', '4', '~'}

	case tcell.KeyCtrlBackslash:
		return []byte{0x1c}
	case tcell.KeyCtrlRightSq:
		return []byte{0x1d}
	case tcell.KeyCtrlCarat:
		return []byte{0x1e}
	case tcell.KeyCtrlUnderscore:
		return []byte{0x1f}

	case tcell.KeyRune:
		r := ev.Rune()
		if ev.Modifiers()&tcell.ModCtrl != 0 {
			if r >= 'a' && r <= 'z' {
				return []byte{byte(r - 'a' + 1)}
			}
			if r >= 'A' && r <= 'Z' {
				return []byte{byte(r - 'A' + 1)}
			}
		}
		if r < 128 {
			return []byte{byte(r)}
		}
		buf := make([]byte, utf8.UTFMax)
		n := utf8.EncodeRune(buf, r)
		return buf[:n]
	}

	if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
		return []byte{byte(ev.Key() - tcell.KeyCtrlA + 1)}
	}

	return nil
}

func arrowBytes(key tcell.Key, applicationMode bool) ([]byte, bool) {
	lead := byte('[')
	if applicationMode {
		lead = 'O'
	}
	switch key {
	case tcell.KeyUp:
		return []byte{0x1b, lead, 'A'}, true
	case tcell.KeyDown:
		return []byte{0x1b, lead, 'B'}, true
	case tcell.KeyRight:
		return []byte{0x1b, lead, 'C'}, true
	case tcell.KeyLeft:
		return []byte{0x1b, lead, 'D'}, true
	}
	return nil, false
}

// WrapBracketedPaste wraps text in the bracketed-paste envelope (§6
// "Bracketed paste", ESC [ 200 ~ ... ESC [ 201 ~) for writing to a PTY
// that has bracketed paste mode enabled.
func WrapBracketedPaste(text string) []byte {
	out := make([]byte, 0, len(text)+12)
	out = append(out, 0x1b, '[', '2', '0', '0', '~')
	out = append(out, text...)
	out = append(out, 0x1b, '[', '2', '0', '1', '~')
	return out
}
