// Package render blits the live cell grid of every visible pane onto a
// github.com/micro-editor/tcell/v2 screen, plus pane borders with the
// pane title on the top edge; stacked-mode tab headers are not drawn.
// It is a thin
// consumer of internal/layout's geometry and internal/ptyregistry's
// emulators — no VT parsing or layout decisions happen here.
package render

import (
	"github.com/micro-editor/tcell/v2"
	"github.com/openmux/openmux/internal/cellgrid"
	"github.com/openmux/openmux/internal/config"
	"github.com/openmux/openmux/internal/layout"
	"github.com/openmux/openmux/internal/ptyregistry"
)

// Renderer draws workspaces onto a tcell.Screen using a registry for
// pane content and a config for chrome colors.
type Renderer struct {
	registry *ptyregistry.Registry
	cfg      *config.Config
}

// NewRenderer constructs a Renderer bound to registry and cfg.
func NewRenderer(registry *ptyregistry.Registry, cfg *config.Config) *Renderer {
	return &Renderer{registry: registry, cfg: cfg}
}

// Draw renders every visible pane of ws onto screen, borders included,
// and positions the hardware cursor at the focused pane's cursor when
// it's visible. zoomed panes are drawn at the workspace's full
// viewport rectangle by virtue of layout.Workspace already reporting
// that rectangle from Panes() when zoomed.
func (r *Renderer) Draw(screen tcell.Screen, ws *layout.Workspace) {
	focused := ws.Focused()
	for _, pane := range ws.Panes() {
		r.drawBorder(screen, pane, pane.Id == focused)
		r.drawContent(screen, pane)
	}

	for _, pane := range ws.Panes() {
		if pane.Id != focused || pane.PtyId == "" {
			continue
		}
		emu, ok := r.registry.Emulator(pane.PtyId)
		if !ok {
			continue
		}
		cursor := emu.Cursor()
		if cursor.Visible {
			screen.ShowCursor(pane.Rect.X+1+cursor.Col, pane.Rect.Y+1+cursor.Row)
		} else {
			screen.HideCursor()
		}
	}
}

// drawContent blits pane's live emulator grid into its rectangle,
// inset by one cell on every side for the border.
func (r *Renderer) drawContent(screen tcell.Screen, pane layout.Pane) {
	inner := insetRect(pane.Rect)
	if inner.Hidden() || pane.PtyId == "" {
		return
	}

	emu, ok := r.registry.Emulator(pane.PtyId)
	if !ok {
		return
	}

	for row := 0; row < inner.H; row++ {
		line := emu.GetLine(row)
		for col := 0; col < inner.W; col++ {
			var cell cellgrid.Cell
			if col < len(line) {
				cell = line[col]
			} else {
				cell = cellgrid.NewCell()
			}
			if cell.IsSpacer() {
				continue
			}
			screen.SetContent(inner.X+col, inner.Y+row, cell.Char, nil, cellStyle(cell))
		}
	}
}

// drawBorder draws a one-cell box around pane.Rect using the
// configured border/border.focused theme colors.
func (r *Renderer) drawBorder(screen tcell.Screen, pane layout.Pane, focused bool) {
	rect := pane.Rect
	if rect.Hidden() {
		return
	}

	style := r.cfg.Style(config.ThemeBorder)
	if focused {
		style = r.cfg.Style(config.ThemeBorderFocused)
	}

	for x := rect.X; x < rect.X+rect.W; x++ {
		screen.SetContent(x, rect.Y, tcell.RuneHLine, nil, style)
		screen.SetContent(x, rect.Y+rect.H-1, tcell.RuneHLine, nil, style)
	}
	for y := rect.Y; y < rect.Y+rect.H; y++ {
		screen.SetContent(rect.X, y, tcell.RuneVLine, nil, style)
		screen.SetContent(rect.X+rect.W-1, y, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(rect.X, rect.Y, tcell.RuneULCorner, nil, style)
	screen.SetContent(rect.X+rect.W-1, rect.Y, tcell.RuneURCorner, nil, style)
	screen.SetContent(rect.X, rect.Y+rect.H-1, tcell.RuneLLCorner, nil, style)
	screen.SetContent(rect.X+rect.W-1, rect.Y+rect.H-1, tcell.RuneLRCorner, nil, style)

	title := SanitizeTitle(pane.Title)
	if title != "" && rect.W > 4 {
		maxLen := rect.W - 4
		if len(title) > maxLen {
			title = title[:maxLen]
		}
		for i, ch := range title {
			screen.SetContent(rect.X+2+i, rect.Y, ch, nil, style)
		}
	}
}

func insetRect(r layout.Rect) layout.Rect {
	return layout.Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}
}

// cellStyle converts a cellgrid.Cell's color/attribute bits to a
// tcell.Style.
func cellStyle(c cellgrid.Cell) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(int32(c.Fg.R), int32(c.Fg.G), int32(c.Fg.B))).
		Background(tcell.NewRGBColor(int32(c.Bg.R), int32(c.Bg.G), int32(c.Bg.B)))

	if c.Attrs.Has(cellgrid.AttrBold) {
		style = style.Bold(true)
	}
	if c.Attrs.Has(cellgrid.AttrItalic) {
		style = style.Italic(true)
	}
	if c.Attrs.Has(cellgrid.AttrUnderline) {
		style = style.Underline(true)
	}
	if c.Attrs.Has(cellgrid.AttrStrike) {
		style = style.StrikeThrough(true)
	}
	if c.Attrs.Has(cellgrid.AttrInverse) {
		style = style.Reverse(true)
	}
	if c.Attrs.Has(cellgrid.AttrBlink) {
		style = style.Blink(true)
	}
	if c.Attrs.Has(cellgrid.AttrInvisible) {
		fg, _, _ := style.Decompose()
		style = style.Foreground(fg).Background(fg)
	}

	return style
}
