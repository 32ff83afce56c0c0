package render

import "strings"

// SanitizeTitle strips any Kitty graphics APC escape sequence
// (ESC _ G ... ESC \) a pane title might carry before it's drawn into
// a tab header or border — a misbehaving program can OSC-set its title
// to arbitrary bytes, and those shouldn't reach the screen (§1 "Image
// passthrough: explicitly out of scope"). This is a scrub, not a
// decoder: it discards the sequence rather than rendering it.
func SanitizeTitle(title string) string {
	const (
		apcStart = "\x1b_G"
		apcEnd   = "\x1b\\"
	)
	for {
		start := strings.Index(title, apcStart)
		if start < 0 {
			return title
		}
		end := strings.Index(title[start:], apcEnd)
		if end < 0 {
			return title[:start]
		}
		title = title[:start] + title[start+end+len(apcEnd):]
	}
}
