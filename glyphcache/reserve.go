package glyphcache

import "fmt"

type reservationKind uint8

const (
	reserveNone reservationKind = iota
	reserveHit
	reserveFree
	reserveSlot
	reserveEvict
)

// Reservation is the first half of adding a glyph. It names the cell the
// glyph will occupy without changing the cache.
type Reservation struct {
	// Cell is the resident cell on a hit, the cell that will be bound
	// otherwise, or nil when the glyph has nothing to cache.
	Cell *Cell

	// Hit reports that the glyph is already resident; Commit is not needed.
	Hit bool

	// MustFlush reports that Cell currently holds another glyph whose
	// texels may be referenced by queued draws.
	MustFlush bool

	kind reservationKind
}

// Reserve picks the cell for g: its resident cell, a free cell, or the
// oldest binding. Reserve updates the hit and miss counters but does not
// change any binding.
func (c *Cache) Reserve(g *Glyph) Reservation {
	if g == nil || g.Bitmap.Empty() || !c.Fits(g.Bitmap) {
		return Reservation{}
	}
	if cell := g.CellFor(c); cell != nil {
		c.stats.Hits++
		return Reservation{Cell: cell, Hit: true, kind: reserveHit}
	}
	c.stats.Misses++

	if c.free != nil {
		return Reservation{Cell: c.free, MustFlush: c.free.released, kind: reserveFree}
	}
	if c.nextSlot < c.Capacity() {
		return Reservation{Cell: &Cell{slot: c.nextSlot}, kind: reserveSlot}
	}
	// Every cell is occupied, so the recency list is not empty.
	return Reservation{Cell: c.tail, MustFlush: true, kind: reserveEvict}
}

// Commit binds the reserved cell to g and uploads its bitmap. On upload
// failure the cell is released, the cache stays consistent and the error
// is returned; a later Commit may retry.
func (c *Cache) Commit(res Reservation, g *Glyph) (*Cell, error) {
	if res.kind == reserveNone || res.Cell == nil {
		return nil, nil
	}
	if res.kind == reserveHit {
		if res.Cell.glyph != g || res.Cell.cache != c {
			return nil, ErrStaleReservation
		}
		return res.Cell, nil
	}
	if c.texture == nil {
		return nil, ErrNoTexture
	}

	cell := res.Cell
	switch res.kind {
	case reserveFree:
		if c.free != cell {
			return nil, ErrStaleReservation
		}
		c.free = cell.next
		cell.next = nil
		cell.released = false
		c.occupied++
	case reserveSlot:
		if cell.slot != c.nextSlot {
			return nil, ErrStaleReservation
		}
		c.nextSlot++
		c.occupied++
	case reserveEvict:
		if c.tail != cell || cell.glyph == nil {
			return nil, ErrStaleReservation
		}
		c.unlink(cell)
		cell.glyph.removeCell(cell)
		cell.reset()
		c.stats.Evictions++
	}

	c.bind(cell, g)

	if err := c.uploader.UploadGlyph(c.texture, cell, g.Bitmap); err != nil {
		c.unlink(cell)
		g.removeCell(cell)
		c.occupied--
		c.pushFree(cell)
		return nil, fmt.Errorf("glyphcache: upload %v: %w", g.Key, err)
	}
	c.stats.Uploads++
	return cell, nil
}
