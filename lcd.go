package gputext

import (
	"errors"
	"image"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/batch"
	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/resource"
	"github.com/gogpu/gputext/upload"
)

// Rows of the lookup texture holding the LCD gamma tables.
const (
	lookupRowInvGamma = 0
	lookupRowGamma    = 1
)

// lookupCustom marks lookup texture contents set by SetLookupTable.
const lookupCustom = -1

// destCache tracks the target region copied into the cached destination
// texture.
type destCache struct {
	valid bool
	rect  image.Rectangle

	// prev is the footprint of the last glyph composited from the copy.
	prev image.Rectangle
}

func (c *Context) drawLCDGlyph(g *glyphcache.Glyph, x, y int, contrast int) error {
	bm := g.Bitmap
	if bm.Width <= resource.CachedDestWidth && bm.Height <= resource.CachedDestHeight {
		cache, err := c.glyphCache(true)
		if err != nil && !errors.Is(err, ErrCacheUnavailable) {
			return err
		}
		if cache != nil && cache.Fits(bm) {
			cell, err := cache.AddGlyph(g, glyphcache.FlusherFunc(c.flush))
			switch {
			case err == nil && cell != nil:
				cell.MarkRendered()
				r := image.Rect(x, y, x+cell.GlyphWidth, y+cell.GlyphHeight)
				t := batch.TexRect{U1: cell.TX1, V1: cell.TY1, U2: cell.TX2, V2: cell.TY2}
				return c.compositeLCD(cache.Texture(), r, t, cell.LeftOff, cell.RightOff, contrast)
			case err != nil && device.IsLost(err):
				return err
			case err != nil:
				c.logger().Warn("gputext: cache upload failed, drawing uncached", "glyph", g.Key, "err", err)
			}
		}
	}
	return c.drawLCDUncached(bm, x, y, contrast)
}

// drawLCDUncached draws bm through tiles of the blit texture.
func (c *Context) drawLCDUncached(bm *glyph.Bitmap, x, y int, contrast int) error {
	enc := bm.Encoding
	if c.lcdBGR {
		enc = enc.Swapped()
	}
	for sy := 0; sy < bm.Height; sy += tileSize {
		for sx := 0; sx < bm.Width; sx += tileSize {
			w := min(tileSize, bm.Width-sx)
			h := min(tileSize, bm.Height-sy)

			blit, err := c.res.BlitTexture()
			if err != nil {
				return err
			}
			tx, ty, err := c.blit.take(c.flush, resource.BlitTextureSize/tileSize)
			if err != nil {
				return err
			}
			edges, err := upload.Upload(blit.Texture(), bm.Pix, upload.Region{
				DstX:      tx,
				DstY:      ty,
				SrcX:      sx,
				SrcY:      sy,
				Width:     w,
				Height:    h,
				SrcStride: bm.Stride,
			}, enc)
			if err != nil {
				return err
			}
			left, right := edges.Offsets(h)
			size := float32(resource.BlitTextureSize)
			t := batch.TexRect{
				U1: float32(tx) / size, V1: float32(ty) / size,
				U2: float32(tx+w) / size, V2: float32(ty+h) / size,
			}
			r := image.Rect(x+sx, y+sy, x+sx+w, y+sy+h)
			if err := c.compositeLCD(blit.Texture(), r, t, left, right, contrast); err != nil {
				return err
			}
		}
	}
	return nil
}

// compositeLCD draws the glyph sampled from tex at t into r, blending
// against a copy of the destination pixels.
func (c *Context) compositeLCD(tex device.Texture, r image.Rectangle, t batch.TexRect, leftOff, rightOff int, contrast int) error {
	lookup, err := c.gammaLookup(contrast)
	if err != nil {
		return err
	}
	footprint := image.Rect(r.Min.X+leftOff, r.Min.Y, r.Max.X-rightOff, r.Max.Y)
	dest, ok, err := c.cachedDest(r, footprint)
	if err != nil || !ok {
		return err
	}
	if err := c.setState(device.StateLCD, tex, dest, lookup); err != nil {
		return err
	}

	dw, dh := float32(resource.CachedDestWidth), float32(resource.CachedDestHeight)
	o := c.dest.rect.Min
	d := batch.TexRect{
		U1: float32(r.Min.X-o.X) / dw, V1: float32(r.Min.Y-o.Y) / dh,
		U2: float32(r.Max.X-o.X) / dw, V2: float32(r.Max.Y-o.Y) / dh,
	}
	return c.batcher.DrawTexture2(
		float32(r.Min.X), float32(r.Min.Y), float32(r.Max.X), float32(r.Max.Y), t, d)
}

// cachedDest returns the cached destination texture holding the target
// pixels under area. The copy is refreshed, after drawing pending
// primitives, when area lies outside it or footprint overlaps the
// previous glyph. ok is false when area lies outside the target.
func (c *Context) cachedDest(area, footprint image.Rectangle) (device.Texture, bool, error) {
	target := c.surface.Target()
	if target == nil {
		return nil, false, ErrNoSurface
	}
	bounds := image.Rect(0, 0, target.Width(), target.Height())
	visible := area.Intersect(bounds)
	if visible.Empty() {
		return nil, false, nil
	}
	dest, err := c.res.CachedDestTexture(gputypes.TextureFormatBGRA8Unorm)
	if err != nil {
		return nil, false, err
	}
	if c.dest.valid && visible.In(c.dest.rect) && !footprint.Overlaps(c.dest.prev) {
		c.dest.prev = footprint
		return dest.Texture(), true, nil
	}

	if err := c.flush(); err != nil {
		return nil, false, err
	}
	src := image.Rect(visible.Min.X, visible.Min.Y,
		visible.Min.X+resource.CachedDestWidth, visible.Min.Y+resource.CachedDestHeight).Intersect(bounds)
	if err := c.dev.CopyFromTarget(dest.Texture(), src, image.Point{}); err != nil {
		c.dest.valid = false
		return nil, false, err
	}
	c.dest = destCache{valid: true, rect: src, prev: footprint}
	return dest.Texture(), true, nil
}

// gammaLookup returns the lookup texture with the gamma tables for
// contrast in its first two rows.
func (c *Context) gammaLookup(contrast int) (device.Texture, error) {
	r, err := c.res.LookupTexture()
	if err != nil {
		return nil, err
	}
	if r == c.lookupRes && c.lookup == contrast {
		return r.Texture(), nil
	}
	if err := c.flush(); err != nil {
		return nil, err
	}
	inv, fwd := GammaTables(contrast)
	if err := writeLookupRows(r.Texture(), lookupRowInvGamma, inv[:], fwd[:]); err != nil {
		c.lookupRes = nil
		return nil, err
	}
	c.lookupRes = r
	c.lookup = contrast
	return r.Texture(), nil
}

// GammaTables returns the inverse and forward gamma tables used to blend
// LCD glyphs at the given contrast, in hundredths.
func GammaTables(contrast int) (inv, fwd [resource.LookupWidth]byte) {
	g := float64(min(max(contrast, MinContrast), MaxContrast)) / 100
	for i := range inv {
		v := float64(i) / 255
		inv[i] = byte(math.Round(255 * math.Pow(v, 1/g)))
		fwd[i] = byte(math.Round(255 * math.Pow(v, g)))
	}
	return inv, fwd
}

// writeLookupRows writes consecutive rows of the lookup texture starting
// at row first.
func writeLookupRows(tex device.Texture, first int, rows ...[]byte) error {
	m, err := tex.Lock(image.Rect(0, first, resource.LookupWidth, first+len(rows)))
	if err != nil {
		return err
	}
	for i, row := range rows {
		copy(m.Pix[i*m.Stride:i*m.Stride+resource.LookupWidth], row)
	}
	return tex.Unlock()
}
