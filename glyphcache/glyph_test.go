package glyphcache

import "testing"

func TestGlyph_MultipleCaches(t *testing.T) {
	gray, _ := newTestCache(t, 32, 32, 16, 16)
	lcd, _ := newTestCache(t, 32, 32, 16, 16)
	g := newTestGlyph('a', 8, 8)

	gc, err := gray.AddGlyph(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	lc, err := lcd.AddGlyph(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if g.CellFor(gray) != gc || g.CellFor(lcd) != lc {
		t.Error("CellFor returned the wrong cell")
	}
	if n := len(g.Cells()); n != 2 {
		t.Errorf("len(Cells()) = %d, want 2", n)
	}

	// Evicting from one cache leaves the other binding alone.
	for i := 0; i < 4; i++ {
		if _, err := gray.AddGlyph(newTestGlyph(rune('b'+i), 4, 4), nil); err != nil {
			t.Fatal(err)
		}
	}
	if g.CellFor(gray) != nil {
		t.Error("glyph still in gray cache after eviction")
	}
	if g.CellFor(lcd) != lc {
		t.Error("eviction from gray cache detached lcd cell")
	}
}

func TestRemoveAllCells(t *testing.T) {
	a, _ := newTestCache(t, 32, 16, 16, 16)
	b, _ := newTestCache(t, 32, 16, 16, 16)
	g := newTestGlyph('x', 8, 8)
	other := newTestGlyph('y', 8, 8)

	for _, c := range []*Cache{a, b} {
		if _, err := c.AddGlyph(g, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := c.AddGlyph(other, nil); err != nil {
			t.Fatal(err)
		}
	}

	RemoveAllCells(g)

	if g.Resident() {
		t.Error("glyph still resident")
	}
	for _, c := range []*Cache{a, b} {
		if c.Len() != 1 {
			t.Errorf("cache %d Len() = %d, want 1", c.ID(), c.Len())
		}
		if c.Full() {
			t.Errorf("cache %d Full() after RemoveAllCells", c.ID())
		}
		if c.Oldest().Glyph() != other {
			t.Errorf("cache %d recency list lost the other glyph", c.ID())
		}
		// The freed cell is reused without eviction, but queued draws may
		// still reference it.
		var f countingFlusher
		cell, err := c.AddGlyph(newTestGlyph('z', 4, 4), &f)
		if err != nil {
			t.Fatal(err)
		}
		if f != 1 {
			t.Errorf("cache %d flushes = %d, want 1", c.ID(), f)
		}
		if s := c.Stats(); s.Evictions != 0 {
			t.Errorf("cache %d evicted while a free cell existed", c.ID())
		}
		if cell.Slot() != 0 {
			t.Errorf("cache %d reused slot %d, want 0", c.ID(), cell.Slot())
		}
	}

	RemoveAllCells(nil)
}

func TestCell_MarkRendered(t *testing.T) {
	c, _ := newTestCache(t, 16, 16, 16, 16)
	cell, err := c.AddGlyph(newTestGlyph('a', 4, 4), nil)
	if err != nil {
		t.Fatal(err)
	}
	cell.MarkRendered()
	cell.MarkRendered()
	if cell.TimesRendered != 2 {
		t.Errorf("TimesRendered = %d, want 2", cell.TimesRendered)
	}
	if cell.Cache() != c {
		t.Error("Cache() mismatch")
	}
}
