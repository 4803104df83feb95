package gputext

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/upload"
)

// Point is a position in target pixels.
type Point struct {
	X, Y float32
}

// GlyphList is a run of glyphs drawn with the current color.
type GlyphList struct {
	// Glyphs are drawn in order. Nil entries and glyphs without pixels
	// only advance the pen.
	Glyphs []*glyphcache.Glyph

	// Positions, when set, holds the pen position of each glyph relative
	// to the origin. Otherwise the pen starts at the origin and moves by
	// each bitmap's advance.
	Positions []Point

	// OriginX and OriginY locate the run in target pixels.
	OriginX, OriginY float32

	// BGR reports that LCD bitmaps are to be shown on a display whose
	// subpixels are ordered blue, green, red.
	BGR bool

	// Contrast selects the LCD gamma, in hundredths. Zero means
	// DefaultContrast; other values are clamped to MinContrast..MaxContrast.
	Contrast int
}

func (gl *GlyphList) contrast() int {
	if gl.Contrast == 0 {
		return DefaultContrast
	}
	return min(max(gl.Contrast, MinContrast), MaxContrast)
}

// DrawGlyphList draws gl into the current surface. Glyphs that fit a
// cache cell are drawn from the glyph caches; larger glyphs, and every
// glyph while a cache is unavailable, are drawn through texture tiles.
func (c *Context) DrawGlyphList(gl GlyphList) error {
	if err := c.usable(); err != nil {
		return err
	}
	if err := c.bindTarget(); err != nil {
		return err
	}
	contrast := gl.contrast()
	if err := c.setSubpixelOrder(gl.BGR); err != nil {
		return c.check(err)
	}

	penX, penY := gl.OriginX, gl.OriginY
	for i, g := range gl.Glyphs {
		x, y := penX, penY
		if gl.Positions != nil {
			if i >= len(gl.Positions) {
				break
			}
			x, y = gl.OriginX+gl.Positions[i].X, gl.OriginY+gl.Positions[i].Y
		}
		if g == nil || g.Bitmap == nil {
			continue
		}
		bm := g.Bitmap
		penX, penY = x+bm.AdvanceX, y+bm.AdvanceY
		if bm.Empty() {
			continue
		}

		gx := int(math.Floor(float64(x + bm.OriginX)))
		gy := int(math.Floor(float64(y + bm.OriginY)))
		var err error
		if bm.Encoding.IsLCD() {
			err = c.drawLCDGlyph(g, gx, gy, contrast)
		} else {
			err = c.drawGrayGlyph(g, gx, gy)
		}
		if err != nil {
			return c.check(err)
		}
	}
	return nil
}

func (c *Context) drawGrayGlyph(g *glyphcache.Glyph, x, y int) error {
	cache, err := c.glyphCache(false)
	if err != nil && !errors.Is(err, ErrCacheUnavailable) {
		return err
	}
	if cache != nil && cache.Fits(g.Bitmap) {
		cell, err := cache.AddGlyph(g, glyphcache.FlusherFunc(c.flush))
		switch {
		case err == nil && cell != nil:
			if err := c.setState(device.StateGlyph, cache.Texture()); err != nil {
				return err
			}
			cell.MarkRendered()
			return c.batcher.DrawTexture(
				float32(x), float32(y),
				float32(x+cell.GlyphWidth), float32(y+cell.GlyphHeight),
				cell.TX1, cell.TY1, cell.TX2, cell.TY2)
		case err != nil && device.IsLost(err):
			return err
		case err != nil:
			c.logger().Warn("gputext: cache upload failed, drawing uncached", "glyph", g.Key, "err", err)
		}
	}
	return c.drawGrayUncached(g.Bitmap, x, y)
}

// glyphCache returns the grayscale or LCD cache, creating its texture on
// first use. ErrCacheUnavailable means glyphs must be drawn uncached.
func (c *Context) glyphCache(lcd bool) (*glyphcache.Cache, error) {
	if !c.opts.glyphCaching {
		return nil, ErrCacheUnavailable
	}
	slot := &c.gray
	format := gputypes.TextureFormatR8Unorm
	cw, ch := c.opts.cellWidth, c.opts.cellHeight
	var uploader glyphcache.Uploader = upload.Uploader{}
	if lcd {
		slot = &c.lcd
		format = gputypes.TextureFormatBGRA8Unorm
		cw, ch = c.opts.lcdCellWidth, c.opts.lcdCellHeight
		uploader = glyphcache.UploaderFunc(c.uploadLCDGlyph)
	}
	if slot.unavailable {
		return nil, ErrCacheUnavailable
	}
	if slot.res != nil {
		return slot.cache, nil
	}

	r, err := c.res.CreateTexture(device.TextureDescriptor{
		Label:  "glyph-cache",
		Width:  c.opts.cacheWidth,
		Height: c.opts.cacheHeight,
		Format: format,
		Usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		if device.IsLost(err) {
			return nil, err
		}
		slot.unavailable = true
		c.logger().Warn("gputext: glyph cache unavailable, drawing uncached", "lcd", lcd, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	if slot.cache == nil {
		cache, err := glyphcache.New(glyphcache.Config{
			Width:      c.opts.cacheWidth,
			Height:     c.opts.cacheHeight,
			CellWidth:  cw,
			CellHeight: ch,
			Texture:    r.Texture(),
			Uploader:   uploader,
		})
		if err != nil {
			c.res.Release(r)
			slot.unavailable = true
			c.logger().Warn("gputext: glyph cache unavailable, drawing uncached", "lcd", lcd, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
		}
		slot.cache = cache
	} else {
		slot.cache.SetTexture(r.Texture())
	}
	slot.res = r
	c.logger().Debug("gputext: glyph cache created", "lcd", lcd,
		"width", c.opts.cacheWidth, "height", c.opts.cacheHeight, "cells", slot.cache.Capacity())
	return slot.cache, nil
}

// uploadLCDGlyph uploads an LCD bitmap in the subpixel order of the
// cache contents.
func (c *Context) uploadLCDGlyph(tex device.Texture, cell *glyphcache.Cell, bm *glyph.Bitmap) error {
	if c.lcdBGR {
		swapped := *bm
		swapped.Encoding = bm.Encoding.Swapped()
		bm = &swapped
	}
	return upload.Uploader{}.UploadGlyph(tex, cell, bm)
}

// setSubpixelOrder switches the LCD subpixel order. Cached LCD glyphs
// were uploaded in the old order and are dropped.
func (c *Context) setSubpixelOrder(bgr bool) error {
	if bgr == c.lcdBGR {
		return nil
	}
	if err := c.flush(); err != nil {
		return err
	}
	c.lcdBGR = bgr
	if c.lcd.cache != nil {
		c.lcd.cache.Invalidate()
	}
	return nil
}
