package emulator

import "strings"

// oscFilter is a streaming OSC (Operating System Command) scanner that
// runs in parallel with, not inside, the VT parser (§4.B: "the VT parser
// must not also emit title events"). It is resilient to split escape
// sequences across writes (§4.B behavioral contract) by carrying partial
// state between Feed calls.
//
// OSC 0/1/2 (title) are reported via onTitle but left in the byte stream
// headlessterm.Terminal sees (its own title provider is wired to a no-op,
// so there is exactly one title event per OSC, and it comes from here).
// OSC 7 (cwd), 10/11/12 (color set) and 22/23 (icon/title stack) are
// stripped from the forwarded stream so the VT library never applies
// them — ignoring CWD tracking it can't act on anyway and would otherwise
// mutate its color palette or title stack underneath the multiplexer.
type oscFilter struct {
	state   oscState
	esc     []byte // buffered partial ESC/OSC introducer
	payload strings.Builder
	onTitle func(string)
}

type oscState int

const (
	oscStateNormal oscState = iota
	oscStateSawESC
	oscStateInOSC
	oscStateOSCSawESC // inside OSC, saw ESC, expecting '\' (ST terminator)
)

func newOSCFilter(onTitle func(string)) *oscFilter {
	return &oscFilter{onTitle: onTitle}
}

// stripNumbers identifies which OSC command numbers never reach the VT
// parser.
var stripNumbers = map[string]bool{
	"7":  true,
	"10": true,
	"11": true,
	"12": true,
	"22": true,
	"23": true,
}

// Feed processes data and returns the bytes that should be forwarded to
// the VT parser (with stripped OSC sequences removed).
func (f *oscFilter) Feed(data []byte) []byte {
	out := make([]byte, 0, len(data))

	for _, b := range data {
		switch f.state {
		case oscStateNormal:
			if b == 0x1b { // ESC
				f.state = oscStateSawESC
				continue
			}
			out = append(out, b)

		case oscStateSawESC:
			if b == ']' { // ESC ] introduces an OSC
				f.state = oscStateInOSC
				f.payload.Reset()
				continue
			}
			// Not an OSC after all; replay the ESC and this byte verbatim.
			out = append(out, 0x1b, b)
			f.state = oscStateNormal

		case oscStateInOSC:
			switch b {
			case 0x07: // BEL terminator
				f.flushOSC(&out)
				f.state = oscStateNormal
			case 0x1b:
				f.state = oscStateOSCSawESC
			default:
				f.payload.WriteByte(b)
			}

		case oscStateOSCSawESC:
			if b == '\\' { // ST terminator (ESC \)
				f.flushOSC(&out)
				f.state = oscStateNormal
			} else {
				// Not a valid ST; keep collecting, the ESC was part of data.
				f.payload.WriteByte(0x1b)
				f.payload.WriteByte(b)
				f.state = oscStateInOSC
			}
		}
	}

	return out
}

func (f *oscFilter) flushOSC(out *[]byte) {
	payload := f.payload.String()
	f.payload.Reset()

	num, body, _ := strings.Cut(payload, ";")

	switch num {
	case "0", "1", "2":
		if f.onTitle != nil {
			f.onTitle(body)
		}
		// Forward unmodified: headlessterm's title provider is a no-op,
		// so there is no duplicate event, and the escape-sequence state
		// machine stays in sync with the real stream.
		*out = append(*out, 0x1b, ']')
		*out = append(*out, payload...)
		*out = append(*out, 0x07)
	default:
		// A color query (OSC 10/11/12 with a "?" body) is forwarded so
		// the VT layer can answer it; only color sets are stripped.
		isColorQuery := (num == "10" || num == "11" || num == "12") && body == "?"
		if stripNumbers[num] && !isColorQuery {
			return
		}
		*out = append(*out, 0x1b, ']')
		*out = append(*out, payload...)
		*out = append(*out, 0x07)
	}
}
