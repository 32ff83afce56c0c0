package input

import (
	"fmt"

	"github.com/micro-editor/tcell/v2"
)

// MouseMode describes the focused PTY's current mouse-reporting
// preference, read from the emulator's tracked DEC private modes.
type MouseMode struct {
	Tracking bool // any of the X10/VT200/button-event/any-event modes
	SGR      bool // SGR (1006) extended coordinate encoding requested
}

// EncodeMouseX10 encodes a button/coordinate pair in the legacy X10
// protocol: CSI M Cb Cx Cy, each byte 32+value, 1-based coordinates.
func EncodeMouseX10(button byte, x, y int, mods tcell.ModMask) []byte {
	cb := 32 + button
	if mods&tcell.ModShift != 0 {
		cb += 4
	}
	if mods&tcell.ModAlt != 0 {
		cb += 8
	}
	if mods&tcell.ModCtrl != 0 {
		cb += 16
	}
	cx := byte(32 + clampCoord(x+1))
	cy := byte(32 + clampCoord(y+1))
	return []byte{0x1b, '[', 'M', cb, cx, cy}
}

// EncodeMouseSGR encodes in the SGR (1006) extended protocol: CSI < Cb ;
// Cx ; Cy M (press) or m (release), coordinates unbounded and 1-based.
func EncodeMouseSGR(button byte, x, y int, mods tcell.ModMask, release bool) []byte {
	cb := int(button)
	if mods&tcell.ModShift != 0 {
		cb += 4
	}
	if mods&tcell.ModAlt != 0 {
		cb += 8
	}
	if mods&tcell.ModCtrl != 0 {
		cb += 16
	}
	final := byte('M')
	if release {
		final = 'm'
	}
	return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", cb, x+1, y+1, final))
}

func clampCoord(v int) int {
	if v > 223 {
		return 223
	}
	if v < 1 {
		return 1
	}
	return v
}

// mouseButtonCode maps a tcell button mask to the base X10/SGR button
// code (0=left, 1=middle, 2=right, 3=release, 64/65=wheel).
func mouseButtonCode(buttons tcell.ButtonMask) (byte, bool) {
	switch {
	case buttons&tcell.Button1 != 0:
		return 0, true
	case buttons&tcell.Button3 != 0:
		return 1, true
	case buttons&tcell.Button2 != 0:
		return 2, true
	case buttons&tcell.WheelUp != 0:
		return 64, true
	case buttons&tcell.WheelDown != 0:
		return 65, true
	case buttons == tcell.ButtonNone:
		return 3, true
	}
	return 0, false
}

// EncodeMouseEvent produces the byte sequence to forward to a PTY whose
// mouse mode is mode, or (nil, false) if the event shouldn't be
// forwarded as a mouse report at all (e.g. mode.Tracking is false).
func EncodeMouseEvent(ev *tcell.EventMouse, mode MouseMode) ([]byte, bool) {
	if !mode.Tracking {
		return nil, false
	}
	code, ok := mouseButtonCode(ev.Buttons())
	if !ok {
		return nil, false
	}
	x, y := ev.Position()
	if mode.SGR {
		release := ev.Buttons() == tcell.ButtonNone
		return EncodeMouseSGR(code, x, y, ev.Modifiers(), release), true
	}
	return EncodeMouseX10(code, x, y, ev.Modifiers()), true
}
