package emulator

import (
	"testing"

	"github.com/openmux/openmux/internal/cellgrid"
)

func rowFromString(s string) cellgrid.Row {
	row := make(cellgrid.Row, len(s))
	for i, r := range s {
		row[i] = cellgrid.Cell{Char: r, Width: 1}
	}
	return row
}

func TestStubSearchScrollbackFirstCaseInsensitive(t *testing.T) {
	s := NewStub(20, 5)
	s.PushScrollbackLine(rowFromString("hello"))
	s.PushScrollbackLine(rowFromString("HELLO WORLD"))
	s.PushScrollbackLine(rowFromString("HELLO there"))

	result := s.Search("hello", 10)

	if len(result.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d: %+v", len(result.Matches), result.Matches)
	}
	for i, m := range result.Matches {
		if m.StartCol != 0 || m.EndCol != 5 {
			t.Errorf("match %d: got start=%d end=%d, want start=0 end=5", i, m.StartCol, m.EndCol)
		}
		if m.Live {
			t.Errorf("match %d: expected scrollback match, got live", i)
		}
		if m.Line != i {
			t.Errorf("match %d: expected line index %d, got %d", i, i, m.Line)
		}
	}
	if result.HasMore {
		t.Errorf("expected HasMore=false under limit")
	}
}

func TestStubSearchRespectsLimit(t *testing.T) {
	s := NewStub(20, 5)
	for i := 0; i < 5; i++ {
		s.PushScrollbackLine(rowFromString("needle here"))
	}

	result := s.Search("needle", 3)

	if len(result.Matches) != 3 {
		t.Fatalf("expected 3 matches under limit, got %d", len(result.Matches))
	}
	if !result.HasMore {
		t.Errorf("expected HasMore=true when limit truncates results")
	}
}

func TestStubSearchFallsThroughToLiveRows(t *testing.T) {
	s := NewStub(20, 2)
	s.SetLine(0, rowFromString("no match on this row"))
	s.SetLine(1, rowFromString("target word here"))

	result := s.Search("target", 10)

	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 live match, got %d", len(result.Matches))
	}
	m := result.Matches[0]
	if !m.Live || m.LiveRow != 1 {
		t.Errorf("expected live match on row 1, got live=%v row=%d", m.Live, m.LiveRow)
	}
}

func TestStubSearchEmptyQueryYieldsNoMatches(t *testing.T) {
	s := NewStub(10, 2)
	s.SetLine(0, rowFromString("anything"))

	result := s.Search("", 10)
	if len(result.Matches) != 0 {
		t.Fatalf("expected no matches for empty query, got %d", len(result.Matches))
	}
}

func TestStubDirtyUpdateFullThenIncremental(t *testing.T) {
	s := NewStub(5, 2)
	s.SetLine(0, rowFromString("aaaaa"))
	s.SetLine(1, rowFromString("bbbbb"))

	first := s.GetDirtyUpdate()
	if !first.Full {
		t.Fatalf("expected first update to be full")
	}
	if len(first.Rows) != 2 {
		t.Fatalf("expected 2 rows in full snapshot, got %d", len(first.Rows))
	}

	second := s.GetDirtyUpdate()
	if second.Full {
		t.Fatalf("expected second update to be incremental")
	}
	if len(second.Changed) != 0 {
		t.Fatalf("expected no changed rows after a drained update, got %d", len(second.Changed))
	}

	s.SetLine(1, rowFromString("ccccc"))
	third := s.GetDirtyUpdate()
	if third.Full {
		t.Fatalf("expected third update to be incremental")
	}
	if _, ok := third.Changed[1]; !ok || len(third.Changed) != 1 {
		t.Fatalf("expected exactly row 1 changed, got %+v", third.Changed)
	}
}

func TestStubModeAndTitleSubscriptions(t *testing.T) {
	s := NewStub(5, 2)

	var gotTitle string
	cancelTitle := s.SubscribeTitle(func(title string) { gotTitle = title })
	s.SetTitle("my-session")
	if gotTitle != "my-session" {
		t.Fatalf("expected title callback to fire, got %q", gotTitle)
	}
	cancelTitle()
	s.SetTitle("ignored")
	if gotTitle != "my-session" {
		t.Fatalf("expected cancelled subscription to stop firing")
	}

	var gotModes Mode
	s.SubscribeModeChange(func(m Mode) { gotModes = m })
	s.SetModes(ModeAlternateScreen | ModeMouseTracking)
	if gotModes != ModeAlternateScreen|ModeMouseTracking {
		t.Fatalf("expected mode callback with both flags, got %v", gotModes)
	}
	if !s.IsAlternateScreen() || !s.IsMouseTracking() {
		t.Fatalf("expected IsAlternateScreen/IsMouseTracking to reflect SetModes")
	}
}

func TestOSCFilterStripsConfiguredNumbersAndReportsTitle(t *testing.T) {
	var title string
	f := newOSCFilter(func(t string) { title = t })

	out := f.Feed([]byte("\x1b]0;new-title\x07plain text"))
	want := "\x1b]0;new-title\x07plain text"
	if string(out) != want {
		t.Fatalf("expected title OSC forwarded unmodified, got %q want %q", out, want)
	}
	if title != "new-title" {
		t.Fatalf("expected onTitle callback with %q, got %q", "new-title", title)
	}

	out = f.Feed([]byte("before\x1b]7;file:///home/x\x07after"))
	if string(out) != "beforeafter" {
		t.Fatalf("expected OSC 7 stripped, got %q", out)
	}
}

func TestOSCFilterHandlesSplitWrites(t *testing.T) {
	var title string
	f := newOSCFilter(func(t string) { title = t })

	out1 := f.Feed([]byte("\x1b]2;hel"))
	out2 := f.Feed([]byte("lo\x07tail"))

	if string(out1) != "" {
		t.Fatalf("expected nothing forwarded mid-sequence, got %q", out1)
	}
	if string(out2) != "\x1b]2;hello\x07tail" {
		t.Fatalf("expected full OSC forwarded once complete, got %q", out2)
	}
	if title != "hello" {
		t.Fatalf("expected title %q, got %q", "hello", title)
	}
}
