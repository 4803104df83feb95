package glyphcache

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
)

// Default cache geometry.
const (
	// DefaultWidth and DefaultHeight are the cache texture size.
	DefaultWidth  = 512
	DefaultHeight = 512

	// DefaultCellWidth and DefaultCellHeight are the cell size.
	DefaultCellWidth  = 16
	DefaultCellHeight = 16
)

// Uploader copies a glyph bitmap into a cell of the cache texture.
type Uploader interface {
	UploadGlyph(tex device.Texture, cell *Cell, bitmap *glyph.Bitmap) error
}

// UploaderFunc adapts a function to the Uploader interface.
type UploaderFunc func(tex device.Texture, cell *Cell, bitmap *glyph.Bitmap) error

// UploadGlyph calls f.
func (f UploaderFunc) UploadGlyph(tex device.Texture, cell *Cell, bitmap *glyph.Bitmap) error {
	return f(tex, cell, bitmap)
}

// Flusher draws every queued primitive that may sample the cache texture.
type Flusher interface {
	Flush() error
}

// FlusherFunc adapts a function to the Flusher interface.
type FlusherFunc func() error

// Flush calls f.
func (f FlusherFunc) Flush() error { return f() }

// Config holds the parameters of a cache.
type Config struct {
	// Width and Height are the texture size in pixels.
	Width  int
	Height int

	// CellWidth and CellHeight are the cell size. Cells that would cross
	// the texture edge are not used.
	CellWidth  int
	CellHeight int

	// Texture is the backing texture. It may be nil and set later with
	// SetTexture.
	Texture device.Texture

	// Uploader writes bitmaps into cells. Required.
	Uploader Uploader
}

// DefaultConfig returns the default geometry without texture or uploader.
func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		CellWidth:  DefaultCellWidth,
		CellHeight: DefaultCellHeight,
	}
}

// Stats contains cache counters.
type Stats struct {
	// Hits counts Reserve calls satisfied by a resident cell.
	Hits uint64
	// Misses counts Reserve calls that needed a new binding.
	Misses uint64
	// Evictions counts cells taken from another glyph.
	Evictions uint64
	// Uploads counts successful bitmap uploads.
	Uploads uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("GlyphCache[%d hits, %d misses, %d evictions, %d uploads]",
		s.Hits, s.Misses, s.Evictions, s.Uploads)
}

var nextCacheID atomic.Uint64

// Cache is a cell-grid glyph cache over one texture.
type Cache struct {
	id uint64

	width      int
	height     int
	cellWidth  int
	cellHeight int
	cols       int
	rows       int

	texture  device.Texture
	uploader Uploader

	// nextSlot is the first grid slot never handed out since the last
	// invalidation.
	nextSlot int

	// free holds released cells, linked through next.
	free *Cell

	// recency list: head is the newest binding, tail the next victim.
	head *Cell
	tail *Cell

	occupied int
	stats    Stats
}

// New creates an empty cache.
func New(cfg Config) (*Cache, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.CellWidth <= 0 || cfg.CellHeight <= 0 {
		return nil, fmt.Errorf("%w: texture %dx%d, cell %dx%d",
			ErrInvalidConfig, cfg.Width, cfg.Height, cfg.CellWidth, cfg.CellHeight)
	}
	cols := cfg.Width / cfg.CellWidth
	rows := cfg.Height / cfg.CellHeight
	if cols == 0 || rows == 0 {
		return nil, fmt.Errorf("%w: cell %dx%d larger than texture %dx%d",
			ErrInvalidConfig, cfg.CellWidth, cfg.CellHeight, cfg.Width, cfg.Height)
	}
	if cfg.Uploader == nil {
		return nil, fmt.Errorf("%w: nil uploader", ErrInvalidConfig)
	}

	return &Cache{
		id:         nextCacheID.Add(1),
		width:      cfg.Width,
		height:     cfg.Height,
		cellWidth:  cfg.CellWidth,
		cellHeight: cfg.CellHeight,
		cols:       cols,
		rows:       rows,
		texture:    cfg.Texture,
		uploader:   cfg.Uploader,
	}, nil
}

// ID returns the process-unique cache identifier.
func (c *Cache) ID() uint64 { return c.id }

// Texture returns the backing texture, which may be nil.
func (c *Cache) Texture() device.Texture { return c.texture }

// CellSize returns the cell dimensions.
func (c *Cache) CellSize() (w, h int) { return c.cellWidth, c.cellHeight }

// Capacity returns the number of usable cells.
func (c *Cache) Capacity() int { return c.cols * c.rows }

// Len returns the number of occupied cells.
func (c *Cache) Len() int { return c.occupied }

// Full reports whether the next miss will evict.
func (c *Cache) Full() bool {
	return c.free == nil && c.nextSlot >= c.Capacity()
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats { return c.stats }

// Fits reports whether bitmap fits into one cell.
func (c *Cache) Fits(bitmap *glyph.Bitmap) bool {
	return bitmap != nil && bitmap.Width <= c.cellWidth && bitmap.Height <= c.cellHeight
}

// Lookup returns the cell holding g in this cache, or nil.
func (c *Cache) Lookup(g *Glyph) *Cell {
	if g == nil {
		return nil
	}
	return g.CellFor(c)
}

// Oldest returns the cell that will be evicted next, or nil.
func (c *Cache) Oldest() *Cell { return c.tail }

// SetTexture replaces the backing texture, for example after the old one
// was destroyed by a device reset. Every cell is invalidated.
func (c *Cache) SetTexture(tex device.Texture) {
	c.Invalidate()
	c.texture = tex
}

// Invalidate frees every cell and detaches them from their glyphs. The
// cache stays usable.
func (c *Cache) Invalidate() {
	for cell := c.head; cell != nil; {
		next := cell.next
		if g := cell.glyph; g != nil {
			g.removeCell(cell)
		}
		cell.reset()
		cell.cache = nil
		cell = next
	}
	c.head = nil
	c.tail = nil
	c.free = nil
	c.nextSlot = 0
	c.occupied = 0
}

// AddGlyph returns the cell holding g, binding and uploading one if
// needed. When a cell must be evicted, f is flushed before the cell's
// texels are overwritten. A glyph without pixels returns (nil, nil).
func (c *Cache) AddGlyph(g *Glyph, f Flusher) (*Cell, error) {
	if g == nil || g.Bitmap.Empty() {
		return nil, nil
	}
	if !c.Fits(g.Bitmap) {
		return nil, fmt.Errorf("%w: %dx%d in %dx%d cells",
			ErrGlyphTooLarge, g.Bitmap.Width, g.Bitmap.Height, c.cellWidth, c.cellHeight)
	}

	res := c.Reserve(g)
	if res.Hit {
		return res.Cell, nil
	}
	if res.MustFlush && f != nil {
		if err := f.Flush(); err != nil {
			return nil, fmt.Errorf("glyphcache: flush before eviction: %w", err)
		}
	}
	return c.Commit(res, g)
}

func (c *Cache) slotOrigin(slot int) (x, y int) {
	return (slot % c.cols) * c.cellWidth, (slot / c.cols) * c.cellHeight
}

// bind attaches cell to g and makes it the newest binding.
func (c *Cache) bind(cell *Cell, g *Glyph) {
	cell.cache = c
	cell.glyph = g
	cell.X, cell.Y = c.slotOrigin(cell.slot)
	cell.GlyphWidth = g.Bitmap.Width
	cell.GlyphHeight = g.Bitmap.Height

	w := float32(c.width)
	h := float32(c.height)
	cell.TX1 = float32(cell.X) / w
	cell.TY1 = float32(cell.Y) / h
	cell.TX2 = float32(cell.X+cell.GlyphWidth) / w
	cell.TY2 = float32(cell.Y+cell.GlyphHeight) / h

	c.pushFront(cell)
	g.addCell(cell)
}

func (c *Cache) pushFront(cell *Cell) {
	cell.prev = nil
	cell.next = c.head
	if c.head != nil {
		c.head.prev = cell
	}
	c.head = cell
	if c.tail == nil {
		c.tail = cell
	}
}

// unlink removes cell from the recency list.
func (c *Cache) unlink(cell *Cell) {
	if cell.prev != nil {
		cell.prev.next = cell.next
	} else if c.head == cell {
		c.head = cell.next
	}
	if cell.next != nil {
		cell.next.prev = cell.prev
	} else if c.tail == cell {
		c.tail = cell.prev
	}
	cell.prev = nil
	cell.next = nil
}

// pushFree resets cell and puts it on the free list.
func (c *Cache) pushFree(cell *Cell) {
	cell.reset()
	cell.cache = c
	cell.next = c.free
	c.free = cell
}
