package cellgrid

import (
	"encoding/binary"
	"math"
)

// wordsPerCell is the packed-row stride: a fixed number of little-endian
// u32 words per column (§3 "12 × u32 per cell"). Only the first few words
// are used by the current field set; the remainder is reserved so the
// wire format can grow without breaking the stride math.
const wordsPerCell = 12
const bytesPerWord = 4
const BytesPerCell = wordsPerCell * bytesPerWord

const (
	wordBgR = iota
	wordBgG
	wordBgB
	wordFgR
	wordFgG
	wordFgB
	wordCodepoint
	wordOverlayFlag
)

// Overlay carries the full fidelity of one cell whose codepoint or
// attributes couldn't take the ASCII fast path. Overlays reference the
// base row by column index (§3).
type Overlay struct {
	Col       int
	Char      rune
	Fg        RGB
	Bg        RGB
	Attrs     Attr
	Width     uint8
	Hyperlink uint32
}

// PackedRow is the wire format that crosses the emulator-worker/main-loop
// boundary: a fixed-stride byte array of per-cell words plus a side table
// of overlay entries for cells that don't fit the fast path.
type PackedRow struct {
	Cols     int
	Data     []byte // BytesPerCell * Cols
	Overlays []Overlay
}

func isFastPath(c Cell) bool {
	return c.Char >= 0x20 && c.Char <= 0x7e && c.Attrs == 0 && c.Hyperlink == 0 && c.Width == 1
}

func putFloat(data []byte, word int, v float32) {
	bits := math.Float32bits(v)
	binary.LittleEndian.PutUint32(data[word*bytesPerWord:], bits)
}

func getFloat(data []byte, word int) float32 {
	bits := binary.LittleEndian.Uint32(data[word*bytesPerWord:])
	return math.Float32frombits(bits)
}

func putU32(data []byte, word int, v uint32) {
	binary.LittleEndian.PutUint32(data[word*bytesPerWord:], v)
}

func getU32(data []byte, word int) uint32 {
	return binary.LittleEndian.Uint32(data[word*bytesPerWord:])
}

func normalize(v uint8) float32 { return float32(v) / 255.0 }

func denormalize(v float32) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255.0 + 0.5)
}

// PackCells encodes row into the wire format. cols bounds the row width;
// extra or missing cells are padded with blanks.
func PackCells(row []Cell, cols int) PackedRow {
	pr := PackedRow{
		Cols: cols,
		Data: make([]byte, BytesPerCell*cols),
	}

	for col := 0; col < cols; col++ {
		var c Cell
		if col < len(row) {
			c = row[col]
		} else {
			c = NewCell()
		}

		base := col * wordsPerCell * bytesPerWord
		data := pr.Data[base : base+wordsPerCell*bytesPerWord]

		putFloat(data, wordBgR, normalize(c.Bg.R))
		putFloat(data, wordBgG, normalize(c.Bg.G))
		putFloat(data, wordBgB, normalize(c.Bg.B))

		switch {
		case c.IsSpacer():
			putU32(data, wordCodepoint, 0)
			putFloat(data, wordFgR, normalize(c.Fg.R))
			putFloat(data, wordFgG, normalize(c.Fg.G))
			putFloat(data, wordFgB, normalize(c.Fg.B))
		case isFastPath(c):
			putU32(data, wordCodepoint, uint32(c.Char))
			putFloat(data, wordFgR, normalize(c.Fg.R))
			putFloat(data, wordFgG, normalize(c.Fg.G))
			putFloat(data, wordFgB, normalize(c.Fg.B))
		default:
			// Overlay cell: inline slot becomes a space over the cell's
			// background so the fast-path blit still paints the right
			// color; full fidelity lives in the overlay side table.
			putU32(data, wordCodepoint, uint32(' '))
			putFloat(data, wordFgR, normalize(c.Fg.R))
			putFloat(data, wordFgG, normalize(c.Fg.G))
			putFloat(data, wordFgB, normalize(c.Fg.B))
			putU32(data, wordOverlayFlag, 1)
			pr.Overlays = append(pr.Overlays, Overlay{
				Col:       col,
				Char:      c.Char,
				Fg:        c.Fg,
				Bg:        c.Bg,
				Attrs:     c.Attrs,
				Width:     c.Width,
				Hyperlink: c.Hyperlink,
			})
		}
	}

	return pr
}

// DecodePackedRow is the inverse of PackCells. If reuse is non-nil and has
// exactly pr.Cols cells, its backing array is reused to avoid allocation.
func DecodePackedRow(pr *PackedRow, reuse Row) Row {
	var row Row
	if reuse != nil && len(reuse) == pr.Cols {
		row = reuse
	} else {
		row = make(Row, pr.Cols)
	}

	overlayByCol := make(map[int]*Overlay, len(pr.Overlays))
	for i := range pr.Overlays {
		overlayByCol[pr.Overlays[i].Col] = &pr.Overlays[i]
	}

	for col := 0; col < pr.Cols; col++ {
		base := col * wordsPerCell * bytesPerWord
		data := pr.Data[base : base+wordsPerCell*bytesPerWord]

		bg := RGB{
			R: denormalize(getFloat(data, wordBgR)),
			G: denormalize(getFloat(data, wordBgG)),
			B: denormalize(getFloat(data, wordBgB)),
		}

		if ov, ok := overlayByCol[col]; ok {
			row[col] = Cell{
				Char:      ov.Char,
				Fg:        ov.Fg,
				Bg:        ov.Bg,
				Attrs:     ov.Attrs,
				Width:     ov.Width,
				Hyperlink: ov.Hyperlink,
			}
			continue
		}

		cp := getU32(data, wordCodepoint)
		if cp == 0 {
			row[col] = Cell{Char: 0, Bg: bg, Width: 0}
			continue
		}

		fg := RGB{
			R: denormalize(getFloat(data, wordFgR)),
			G: denormalize(getFloat(data, wordFgG)),
			B: denormalize(getFloat(data, wordFgB)),
		}
		row[col] = Cell{
			Char:  rune(cp),
			Fg:    fg,
			Bg:    bg,
			Width: 1,
		}
	}

	return row
}
