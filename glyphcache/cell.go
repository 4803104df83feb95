package glyphcache

import "fmt"

// Cell is one fixed-size region of a cache texture.
//
// The exported geometry fields are valid while the cell is bound to a
// glyph; they are maintained by the cache and must not be modified.
type Cell struct {
	// X and Y are the top-left corner in texture pixels.
	X int
	Y int

	// GlyphWidth and GlyphHeight are the size of the bound glyph bitmap.
	GlyphWidth  int
	GlyphHeight int

	// TX1, TY1, TX2, TY2 are the normalized texture coordinates of the
	// bound glyph's bitmap.
	TX1, TY1 float32
	TX2, TY2 float32

	// LeftOff and RightOff are 1 when the leftmost or rightmost column of
	// an LCD glyph is nearly empty and can be skipped when compositing.
	LeftOff  int
	RightOff int

	// TimesRendered counts draws since the cell was bound.
	TimesRendered uint32

	cache *Cache
	glyph *Glyph
	slot  int

	// released is set when the cell was freed while queued draws may
	// still sample it.
	released bool

	// recency list links (head = newest)
	prev *Cell
	next *Cell

	// next cell of the same glyph in another cache
	nextForGlyph *Cell
}

// Cache returns the cache the cell belongs to.
func (c *Cell) Cache() *Cache { return c.cache }

// Glyph returns the bound glyph, or nil for a free cell.
func (c *Cell) Glyph() *Glyph { return c.glyph }

// Slot returns the grid index of the cell.
func (c *Cell) Slot() int { return c.slot }

// MarkRendered records one draw of the cell.
func (c *Cell) MarkRendered() { c.TimesRendered++ }

// String returns a representation for logs.
func (c *Cell) String() string {
	return fmt.Sprintf("Cell(slot=%d %d,%d %dx%d)", c.slot, c.X, c.Y, c.GlyphWidth, c.GlyphHeight)
}

func (c *Cell) reset() {
	c.glyph = nil
	c.prev = nil
	c.next = nil
	c.nextForGlyph = nil
	c.GlyphWidth = 0
	c.GlyphHeight = 0
	c.TX1, c.TY1, c.TX2, c.TY2 = 0, 0, 0, 0
	c.LeftOff = 0
	c.RightOff = 0
	c.TimesRendered = 0
	c.released = false
}
