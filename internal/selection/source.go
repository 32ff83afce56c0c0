package selection

import (
	"github.com/openmux/openmux/internal/cellgrid"
	"github.com/openmux/openmux/internal/scrollback"
)

// cacheSource is the LineSource a live pane's scrollback.Cache provides:
// absolute indices below ScrollbackLen come from scrollback, the rest
// from the live viewport.
type cacheSource struct {
	scrollbackLen func() int
	scrollbackRow func(offset int) (cellgrid.Row, bool)
	liveRow       func(viewportRow int) (cellgrid.Row, bool)
}

// NewCacheSource builds a LineSource from a scrollback length accessor
// and the two row lookups scrollback.Cache exposes (GetRow for
// scrollback offsets, a decoded-row wrapper over GetLiveRow for the live
// viewport). Kept as plain function fields rather than depending on
// *scrollback.Cache directly so tests can supply fakes without spinning
// up a real emulator.
func NewCacheSource(scrollbackLen func() int, scrollbackRow, liveRow func(int) (cellgrid.Row, bool)) LineSource {
	return &cacheSource{scrollbackLen: scrollbackLen, scrollbackRow: scrollbackRow, liveRow: liveRow}
}

func (c *cacheSource) ScrollbackLen() int { return c.scrollbackLen() }

func (c *cacheSource) Line(absoluteIndex int) (cellgrid.Row, bool) {
	n := c.scrollbackLen()
	if absoluteIndex < n {
		return c.scrollbackRow(absoluteIndex)
	}
	return c.liveRow(absoluteIndex - n)
}

// NewCacheSourceFromCache builds the real LineSource a live pane uses:
// scrollback rows come from the cache's decoded-row LRU, live rows are
// decoded on the fly from the packed live viewport.
func NewCacheSourceFromCache(cache *scrollback.Cache) LineSource {
	return NewCacheSource(
		cache.ScrollbackLen,
		cache.GetRow,
		func(viewportRow int) (cellgrid.Row, bool) {
			pr, ok := cache.GetLiveRow(viewportRow)
			if !ok {
				return nil, false
			}
			return cellgrid.DecodePackedRow(&pr, nil), true
		},
	)
}
