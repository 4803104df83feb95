// Package glyphcache keeps rasterized glyphs resident in GPU textures.
//
// A [Cache] partitions one texture into a grid of equally sized cells and
// hands them out to glyphs. When every cell is occupied the oldest binding
// (the tail of the insertion-ordered recency list) is evicted. Eviction is
// FIFO by insertion, not LRU by access: re-adding a resident glyph does not
// refresh it, and callers must tolerate a useful glyph being evicted early.
//
// A [Glyph] can be resident in several caches at once (a grayscale and an
// LCD cache, or one cache per GPU adapter). Each glyph keeps a short chain
// of the cells it occupies, one per cache.
//
// # Two-phase eviction
//
// Reusing a cell overwrites texels that queued draw calls may still sample.
// Adding a glyph is therefore split in two:
//
//	res := cache.Reserve(g)
//	if res.MustFlush {
//	    batcher.Render(batch.RenderAppend) // draw everything queued so far
//	}
//	cell, err := cache.Commit(res, g)
//
// [Cache.AddGlyph] runs the same sequence with a [Flusher].
//
// Caches are not safe for concurrent use; they belong to the goroutine
// that owns the device.
package glyphcache
