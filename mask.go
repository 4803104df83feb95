package gputext

import (
	"fmt"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/resource"
	"github.com/gogpu/gputext/upload"
)

// tileSize is the edge of the tiles uncached glyphs and masks are staged in.
const tileSize = resource.MaskTileSize

// tileRing hands out tiles of a staging texture. Tiles handed out since
// the last wrap may be sampled by pending primitives, so wrapping draws
// them first.
type tileRing struct {
	tiles int
	next  int
}

func (r *tileRing) take(flush func() error, perRow int) (x, y int, err error) {
	if r.next >= r.tiles {
		if err := flush(); err != nil {
			return 0, 0, err
		}
		r.next = 0
	}
	i := r.next
	r.next++
	return (i % perRow) * tileSize, (i / perRow) * tileSize, nil
}

// drawGrayUncached draws bm through tiles of the mask texture.
func (c *Context) drawGrayUncached(bm *glyph.Bitmap, x, y int) error {
	return c.drawMask(bm.Pix, bm.Stride, bm.Encoding, x, y, bm.Width, bm.Height)
}

// MaskFill fills the w by h rectangle at (x, y) with the current color,
// weighted by an 8-bit coverage mask of the given row stride. A nil mask
// fills the rectangle completely.
func (c *Context) MaskFill(x, y, w, h int, mask []byte, stride int) error {
	if err := c.usable(); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return nil
	}
	if err := c.bindTarget(); err != nil {
		return err
	}
	if mask == nil {
		return c.check(c.fillOpaque(x, y, w, h))
	}
	if stride < w || len(mask) < (h-1)*stride+w {
		return fmt.Errorf("%w: %dx%d mask with stride %d in %d bytes",
			upload.ErrRegionOutOfBounds, w, h, stride, len(mask))
	}
	return c.check(c.drawMask(mask, stride, glyph.EncodingAlpha8, x, y, w, h))
}

func (c *Context) drawMask(pix []byte, stride int, enc glyph.Encoding, x, y, w, h int) error {
	for sy := 0; sy < h; sy += tileSize {
		for sx := 0; sx < w; sx += tileSize {
			tw := min(tileSize, w-sx)
			th := min(tileSize, h-sy)

			mask, err := c.res.MaskTexture()
			if err != nil {
				return err
			}
			tx, ty, err := c.mask.take(c.flush, resource.MaskTilesX)
			if err != nil {
				return err
			}
			if _, err := upload.Upload(mask.Texture(), pix, upload.Region{
				DstX:      tx,
				DstY:      ty,
				SrcX:      sx,
				SrcY:      sy,
				Width:     tw,
				Height:    th,
				SrcStride: stride,
			}, enc); err != nil {
				return err
			}
			if err := c.drawMaskTile(mask.Texture(), x+sx, y+sy, tw, th, tx, ty); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillOpaque covers the rectangle with the always-opaque mask tile.
func (c *Context) fillOpaque(x, y, w, h int) error {
	mask, err := c.res.MaskTexture()
	if err != nil {
		return err
	}
	p := resource.OpaqueMaskTile()
	for sy := 0; sy < h; sy += tileSize {
		for sx := 0; sx < w; sx += tileSize {
			tw := min(tileSize, w-sx)
			th := min(tileSize, h-sy)
			if err := c.drawMaskTile(mask.Texture(), x+sx, y+sy, tw, th, p.X, p.Y); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Context) drawMaskTile(tex device.Texture, x, y, w, h, tx, ty int) error {
	if err := c.setState(device.StateMask, tex); err != nil {
		return err
	}
	mw, mh := float32(resource.MaskWidth), float32(resource.MaskHeight)
	return c.batcher.DrawTexture(
		float32(x), float32(y), float32(x+w), float32(y+h),
		float32(tx)/mw, float32(ty)/mh, float32(tx+w)/mw, float32(ty+h)/mh)
}
