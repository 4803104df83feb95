// Package gputext draws text and masks on a GPU device through a cache of
// rasterized glyphs.
//
// # Overview
//
// A Context owns everything one device needs to draw glyphs: a grayscale
// and an LCD glyph cache (cell grids in a texture, see package
// glyphcache), a vertex batcher (package batch), the helper textures of
// package resource and a lost-device tracker (package lifecycle).
//
// # Quick Start
//
//	dev := software.New()
//	c, err := gputext.NewContext(dev, lifecycle.NewMonitor())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	surface, _ := c.NewSurface(640, 120)
//	_ = c.SetSurface(surface)
//
//	store := gputext.NewGlyphStore(xfont.MustGoRegular(), 0)
//	glyphs, _ := store.Glyphs(xfont.Keys("Hello", xfont.GoRegularID, 16, false))
//	c.SetColor(0xff000000)
//	_ = c.DrawGlyphList(gputext.GlyphList{Glyphs: glyphs, OriginX: 8, OriginY: 40})
//	_ = c.Flush()
//
// # Glyph paths
//
// Each glyph of a GlyphList takes one of four paths. Grayscale glyphs
// that fit a cell are drawn from the grayscale cache; larger ones are
// staged through tiles of the mask texture. LCD glyphs are composited
// against a copy of the destination using gamma tables derived from the
// list's contrast, sampling either the LCD cache or tiles of the blit
// texture. When a cache texture cannot be allocated its glyphs silently
// take the uncached path.
//
// # Device loss
//
// Errors reporting device loss move the tracker to the lost state. The
// context then drops pending primitives and releases every device
// resource. Call Restore periodically; once it reports
// lifecycle.Restored, surfaces are recreated on their next SetSurface.
//
// # Concurrency
//
// A Context is owned by one goroutine. RenderQueue funnels work from
// other goroutines to it.
package gputext
