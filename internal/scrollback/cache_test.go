package scrollback

import (
	"testing"

	"github.com/openmux/openmux/internal/cellgrid"
	"github.com/openmux/openmux/internal/emulator"
)

func rowFromString(s string) cellgrid.Row {
	row := make(cellgrid.Row, len(s))
	for i, r := range s {
		row[i] = cellgrid.Cell{Char: r, Width: 1}
	}
	return row
}

func TestLiveCacheAppliesFullThenIncremental(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	stub.SetLine(0, rowFromString("aaaaa"))
	stub.SetLine(1, rowFromString("bbbbb"))

	c := NewCache(stub)
	defer c.Close()

	full := emulator.DirtyUpdate{
		Full: true,
		Rows: []cellgrid.PackedRow{
			cellgrid.PackCells(rowFromString("aaaaa"), 5),
			cellgrid.PackCells(rowFromString("bbbbb"), 5),
		},
		ScrollbackLen: 0,
	}
	c.onUpdate(full)

	if _, ok := c.GetLiveRow(0); !ok {
		t.Fatalf("expected row 0 to be populated after full update")
	}

	incremental := emulator.DirtyUpdate{
		Full:    false,
		Changed: map[int]cellgrid.PackedRow{1: cellgrid.PackCells(rowFromString("ccccc"), 5)},
	}
	c.onUpdate(incremental)

	row1, ok := c.GetLiveRow(1)
	if !ok {
		t.Fatalf("expected row 1 populated")
	}
	decoded := cellgrid.DecodePackedRow(&row1, nil)
	if string(runesOf(decoded)) != "ccccc" {
		t.Fatalf("expected row 1 updated to ccccc, got %q", string(runesOf(decoded)))
	}
}

func runesOf(row cellgrid.Row) []rune {
	out := make([]rune, len(row))
	for i, c := range row {
		out[i] = c.Char
	}
	return out
}

func TestInvalidationClearsOnShrink(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	c.onUpdate(emulator.DirtyUpdate{Full: true, ScrollbackLen: 50})
	c.packed.Add(3, cellgrid.PackedRow{})
	if c.packed.Len() == 0 {
		t.Fatalf("expected packed cache populated before shrink")
	}

	c.onUpdate(emulator.DirtyUpdate{Full: false, ScrollbackLen: 10})
	if c.packed.Len() != 0 {
		t.Fatalf("expected packed cache cleared on scrollback shrink")
	}
}

func TestInvalidationKeepsCacheWhenGrown(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	c.onUpdate(emulator.DirtyUpdate{Full: true, ScrollbackLen: 10})
	c.packed.Add(3, cellgrid.PackedRow{})

	c.onUpdate(emulator.DirtyUpdate{Full: false, ScrollbackLen: 20})
	if c.packed.Len() == 0 {
		t.Fatalf("expected packed cache to survive when scrollback grew")
	}
}

func TestInvalidationClearsAtCapWithSameLength(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	c.onUpdate(emulator.DirtyUpdate{Full: true, ScrollbackLen: 1000, ScrollbackAtCap: true})
	c.packed.Add(3, cellgrid.PackedRow{})

	c.onUpdate(emulator.DirtyUpdate{Full: false, ScrollbackLen: 1000, ScrollbackAtCap: true})
	if c.packed.Len() != 0 {
		t.Fatalf("expected packed cache cleared when scrollback stayed at cap")
	}
}

func TestInvalidationKeepsCacheWhenSameLengthNotAtCap(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	c.onUpdate(emulator.DirtyUpdate{Full: true, ScrollbackLen: 10, ScrollbackAtCap: false})
	c.packed.Add(3, cellgrid.PackedRow{})

	c.onUpdate(emulator.DirtyUpdate{Full: false, ScrollbackLen: 10, ScrollbackAtCap: false})
	if c.packed.Len() == 0 {
		t.Fatalf("expected packed cache preserved for in-place edits")
	}
}

func TestInvalidationClearsOnAlternateScreenTransition(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	c.onUpdate(emulator.DirtyUpdate{Full: true, ScrollbackLen: 10})
	c.packed.Add(3, cellgrid.PackedRow{})

	c.onUpdate(emulator.DirtyUpdate{Full: false, ScrollbackLen: 10, Modes: emulator.ModeAlternateScreen})
	if c.packed.Len() != 0 {
		t.Fatalf("expected packed cache cleared on alt-screen transition")
	}
}

func TestVersionAdvancesOnEveryUpdate(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	c := NewCache(stub)
	defer c.Close()

	if c.Version() != 0 {
		t.Fatalf("expected version 0 before any update")
	}
	c.onUpdate(emulator.DirtyUpdate{Full: true})
	if c.Version() != 1 {
		t.Fatalf("expected version 1, got %d", c.Version())
	}
	c.onUpdate(emulator.DirtyUpdate{Full: false})
	if c.Version() != 2 {
		t.Fatalf("expected version 2, got %d", c.Version())
	}
}

func TestPrefetchRangePopulatesPackedCache(t *testing.T) {
	stub := emulator.NewStub(5, 2)
	for i := 0; i < 10; i++ {
		stub.PushScrollbackLine(rowFromString("xxxxx"))
	}
	c := NewCache(stub)
	defer c.Close()

	c.PrefetchRange(0, 5)
	if c.packed.Len() != 5 {
		t.Fatalf("expected 5 prefetched entries, got %d", c.packed.Len())
	}
}
