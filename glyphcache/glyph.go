package glyphcache

import "github.com/gogpu/gputext/glyph"

// Glyph is the cache's view of a rasterized glyph: its identity, its
// bitmap and the chain of cells holding it, at most one per cache.
//
// The glyph does not own the bitmap. Callers that discard a glyph must
// call RemoveAllCells so its cells can be reused.
type Glyph struct {
	Key    glyph.Key
	Bitmap *glyph.Bitmap

	cells *Cell
}

// NewGlyph returns a glyph that is not resident in any cache.
func NewGlyph(key glyph.Key, bitmap *glyph.Bitmap) *Glyph {
	return &Glyph{Key: key, Bitmap: bitmap}
}

// CellFor returns the cell holding g in cache c, or nil.
func (g *Glyph) CellFor(c *Cache) *Cell {
	for cell := g.cells; cell != nil; cell = cell.nextForGlyph {
		if cell.cache == c {
			return cell
		}
	}
	return nil
}

// Cells returns the cells currently holding g.
func (g *Glyph) Cells() []*Cell {
	var cells []*Cell
	for cell := g.cells; cell != nil; cell = cell.nextForGlyph {
		cells = append(cells, cell)
	}
	return cells
}

// Resident reports whether g occupies any cell.
func (g *Glyph) Resident() bool {
	return g.cells != nil
}

func (g *Glyph) addCell(cell *Cell) {
	cell.nextForGlyph = g.cells
	g.cells = cell
}

// removeCell detaches cell from the chain. Entries for other caches are
// left in place.
func (g *Glyph) removeCell(cell *Cell) bool {
	var prev *Cell
	for cur := g.cells; cur != nil; cur = cur.nextForGlyph {
		if cur == cell {
			if prev == nil {
				g.cells = cur.nextForGlyph
			} else {
				prev.nextForGlyph = cur.nextForGlyph
			}
			cur.nextForGlyph = nil
			return true
		}
		prev = cur
	}
	return false
}

// RemoveAllCells releases every cell holding g, in whichever caches they
// live. Used when the glyph itself is discarded. Queued draws may still
// sample the released cells, so reusing one requires a flush.
func RemoveAllCells(g *Glyph) {
	if g == nil {
		return
	}
	for cell := g.cells; cell != nil; {
		next := cell.nextForGlyph
		if c := cell.cache; c != nil {
			c.unlink(cell)
			c.occupied--
			c.pushFree(cell)
			cell.released = true
		}
		cell = next
	}
	g.cells = nil
}
