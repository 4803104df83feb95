package gputext

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
)

// DefaultGlyphStoreSize is the number of glyphs a GlyphStore keeps when
// created with a non-positive capacity.
const DefaultGlyphStoreSize = 1024

// GlyphStore rasterizes glyphs on demand and keeps the most recently used
// ones. A glyph dropped from the store is removed from every glyph cache.
//
// The store touches glyph caches when it drops glyphs, so it must be used
// on the goroutine that draws with the Context.
type GlyphStore struct {
	rasterizer glyph.Rasterizer
	glyphs     *lru.Cache[glyph.Key, *glyphcache.Glyph]
	capacity   int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// GlyphStoreStats contains GlyphStore counters.
type GlyphStoreStats struct {
	// Len is the number of stored glyphs and Capacity the limit.
	Len      int
	Capacity int
	// Hits and Misses count Glyph lookups.
	Hits   uint64
	Misses uint64
	// Evictions counts glyphs dropped to make room.
	Evictions uint64
}

// NewGlyphStore returns a store rasterizing with r and keeping at most
// capacity glyphs.
func NewGlyphStore(r glyph.Rasterizer, capacity int) *GlyphStore {
	if capacity <= 0 {
		capacity = DefaultGlyphStoreSize
	}
	glyphs, err := lru.NewWithEvict(capacity, func(_ glyph.Key, g *glyphcache.Glyph) {
		glyphcache.RemoveAllCells(g)
	})
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &GlyphStore{
		rasterizer: r,
		glyphs:     glyphs,
		capacity:   capacity,
	}
}

// Glyph returns the glyph for key, rasterizing it on first use.
func (s *GlyphStore) Glyph(key glyph.Key) (*glyphcache.Glyph, error) {
	if g, ok := s.glyphs.Get(key); ok {
		s.hits.Add(1)
		return g, nil
	}
	s.misses.Add(1)
	bm, err := s.rasterizer.Rasterize(key)
	if err != nil {
		return nil, fmt.Errorf("gputext: rasterize %v: %w", key, err)
	}
	g := glyphcache.NewGlyph(key, bm)
	if s.glyphs.Add(key, g) {
		s.evictions.Add(1)
	}
	return g, nil
}

// Glyphs returns the glyphs for keys in order, ready for a GlyphList.
func (s *GlyphStore) Glyphs(keys []glyph.Key) ([]*glyphcache.Glyph, error) {
	out := make([]*glyphcache.Glyph, len(keys))
	for i, k := range keys {
		g, err := s.Glyph(k)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// Dispose drops the glyph for key.
func (s *GlyphStore) Dispose(key glyph.Key) bool {
	return s.glyphs.Remove(key)
}

// Clear drops every glyph.
func (s *GlyphStore) Clear() { s.glyphs.Purge() }

// Len returns the number of stored glyphs.
func (s *GlyphStore) Len() int { return s.glyphs.Len() }

// Stats returns the store's lookup and eviction counters.
func (s *GlyphStore) Stats() GlyphStoreStats {
	return GlyphStoreStats{
		Len:       s.glyphs.Len(),
		Capacity:  s.capacity,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
