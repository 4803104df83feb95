package gputext

import (
	"errors"
	"testing"

	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/internal/devicetest"
)

// countingRasterizer returns a 4x4 opaque bitmap for every key except
// runes listed in fail.
type countingRasterizer struct {
	calls int
	fail  map[rune]bool
}

var errRasterize = errors.New("rasterize failed")

func (r *countingRasterizer) Rasterize(key glyph.Key) (*glyph.Bitmap, error) {
	r.calls++
	if r.fail[key.Rune] {
		return nil, errRasterize
	}
	return grayGlyph(key.Rune, 4, 4).Bitmap, nil
}

func TestGlyphStore_RasterizesOnce(t *testing.T) {
	r := &countingRasterizer{}
	s := NewGlyphStore(r, 8)

	k := glyph.Key{Font: 1, Rune: 'a'}
	g1, err := s.Glyph(k)
	if err != nil {
		t.Fatal(err)
	}
	g2, err := s.Glyph(k)
	if err != nil {
		t.Fatal(err)
	}
	if g1 != g2 {
		t.Error("Glyph() should return the stored glyph")
	}
	if r.calls != 1 {
		t.Errorf("rasterizer calls = %d, want 1", r.calls)
	}
	if g1.Key != k {
		t.Errorf("Key = %v, want %v", g1.Key, k)
	}
	if st := s.Stats(); st.Hits != 1 || st.Misses != 1 || st.Len != 1 || st.Capacity != 8 {
		t.Errorf("Stats() = %+v, want 1 hit 1 miss 1 of 8", st)
	}
}

func TestGlyphStore_Error(t *testing.T) {
	s := NewGlyphStore(&countingRasterizer{fail: map[rune]bool{'x': true}}, 8)
	_, err := s.Glyphs([]glyph.Key{{Rune: 'a'}, {Rune: 'x'}})
	if !errors.Is(err, errRasterize) {
		t.Errorf("Glyphs() error = %v, want rasterizer error", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestGlyphStore_EvictionReleasesCells(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)
	s := NewGlyphStore(&countingRasterizer{}, 2)
	c.SetGlyphStore(s)

	glyphs, err := s.Glyphs([]glyph.Key{{Rune: 'a'}, {Rune: 'b'}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DrawGlyphList(GlyphList{Glyphs: glyphs}); err != nil {
		t.Fatal(err)
	}
	if c.GrayscaleCache().Len() != 2 {
		t.Fatalf("cached glyphs = %d, want 2", c.GrayscaleCache().Len())
	}

	if _, err := s.Glyph(glyph.Key{Rune: 'c'}); err != nil {
		t.Fatal(err)
	}
	if glyphs[0].Resident() {
		t.Error("glyph dropped from the store should leave the cache")
	}
	if st := s.Stats(); st.Evictions != 1 || st.Len != 2 {
		t.Errorf("Stats() = %+v, want 1 eviction and 2 glyphs", st)
	}
	if c.GrayscaleCache().Len() != 1 {
		t.Errorf("cached glyphs = %d, want 1", c.GrayscaleCache().Len())
	}

	// Reusing the released cell draws the pending glyphs first.
	c3, _ := s.Glyph(glyph.Key{Rune: 'c'})
	if err := c.DrawGlyphList(GlyphList{Glyphs: []*glyphcache.Glyph{c3}}); err != nil {
		t.Fatal(err)
	}
	if len(dev.Draws) != 1 {
		t.Errorf("draws = %d, want pending glyphs drawn before cell reuse", len(dev.Draws))
	}

	if !s.Dispose(glyph.Key{Rune: 'c'}) {
		t.Error("Dispose() = false, want true")
	}
	if c3.Resident() {
		t.Error("disposed glyph should leave the cache")
	}
}

func TestGlyphStore_ClearedOnClose(t *testing.T) {
	c := newTestContext(t, devicetest.New())
	s := NewGlyphStore(&countingRasterizer{}, 0)
	c.SetGlyphStore(s)
	if _, err := s.Glyph(glyph.Key{Rune: 'a'}); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", s.Len())
	}
}

func TestGlyphStore_ClearReleasesCells(t *testing.T) {
	c := newTestContext(t, devicetest.New())
	s := NewGlyphStore(&countingRasterizer{}, 4)
	c.SetGlyphStore(s)

	glyphs, err := s.Glyphs([]glyph.Key{{Rune: 'a'}, {Rune: 'b'}})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DrawGlyphList(GlyphList{Glyphs: glyphs}); err != nil {
		t.Fatal(err)
	}
	s.Clear()
	for _, g := range glyphs {
		if g.Resident() {
			t.Errorf("glyph %v resident after Clear", g.Key)
		}
	}
	if st := s.Stats(); st.Len != 0 || st.Evictions != 0 {
		t.Errorf("Stats() after Clear = %+v, want empty with no evictions", st)
	}
}
