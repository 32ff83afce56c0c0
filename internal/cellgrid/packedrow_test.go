package cellgrid

import "testing"

func TestPackCellsFastPathNoOverlays(t *testing.T) {
	row := make(Row, 80)
	for i := range row {
		row[i] = Cell{Char: ' ', Width: 1}
	}

	pr := PackCells(row, 80)
	if len(pr.Overlays) != 0 {
		t.Fatalf("expected 0 overlays for default ASCII spaces, got %d", len(pr.Overlays))
	}

	decoded := DecodePackedRow(&pr, nil)
	for i, c := range decoded {
		if c.Char != ' ' || c.Width != 1 {
			t.Fatalf("cell %d: got %+v, want default space cell", i, c)
		}
	}
}

func TestRoundTripCellForCell(t *testing.T) {
	row := Row{
		{Char: 'h', Fg: RGB{1, 2, 3}, Bg: RGB{4, 5, 6}, Width: 1},
		{Char: '中', Fg: RGB{200, 150, 10}, Bg: RGB{0, 0, 0}, Attrs: AttrBold, Width: 2, Hyperlink: 7},
		{Char: 0, Bg: RGB{0, 0, 0}, Width: 0}, // wide spacer
		{Char: 'z', Fg: RGB{255, 255, 255}, Bg: RGB{255, 0, 0}, Attrs: AttrUnderline | AttrItalic, Width: 1},
		{Char: ' ', Width: 1},
	}

	pr := PackCells(row, len(row))
	decoded := DecodePackedRow(&pr, nil)

	if len(decoded) != len(row) {
		t.Fatalf("length mismatch: got %d want %d", len(decoded), len(row))
	}

	for i := range row {
		want := row[i]
		got := decoded[i]
		if got.Char != want.Char || got.Fg != want.Fg || got.Bg != want.Bg ||
			got.Attrs != want.Attrs || got.Width != want.Width || got.Hyperlink != want.Hyperlink {
			t.Fatalf("cell %d: got %+v want %+v", i, got, want)
		}
	}
}

func TestDecodeReusesProvidedRow(t *testing.T) {
	row := NewRow(10)
	pr := PackCells(row, 10)

	reuse := NewRow(10)
	decoded := DecodePackedRow(&pr, reuse)

	if &decoded[0] != &reuse[0] {
		t.Fatalf("expected decode to reuse the caller-supplied backing array")
	}
}

func TestColorRoundTripAll8BitValues(t *testing.T) {
	for v := 0; v < 256; v++ {
		row := Row{{Char: 'x', Fg: RGB{uint8(v), uint8(v), uint8(v)}, Bg: RGB{uint8(255 - v), 0, 0}, Width: 1}}
		pr := PackCells(row, 1)
		decoded := DecodePackedRow(&pr, nil)
		if decoded[0].Fg != row[0].Fg || decoded[0].Bg != row[0].Bg {
			t.Fatalf("color round-trip failed at v=%d: got fg=%+v bg=%+v", v, decoded[0].Fg, decoded[0].Bg)
		}
	}
}

func TestOverlayUsedForNonASCIIAndAttributes(t *testing.T) {
	row := Row{
		{Char: 'a', Width: 1},
		{Char: 'b', Attrs: AttrBold, Width: 1},
		{Char: '€', Width: 1},
	}
	pr := PackCells(row, len(row))
	if len(pr.Overlays) != 2 {
		t.Fatalf("expected 2 overlays (bold cell + non-ASCII cell), got %d", len(pr.Overlays))
	}
}
