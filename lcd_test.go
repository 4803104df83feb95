package gputext

import (
	"image"
	"testing"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/internal/devicetest"
)

// lcdGlyph returns a w by h RGB24 glyph with an empty left column, a full
// right column and 0x10,0x20,0x30 elsewhere.
func lcdGlyph(r rune, w, h int) *glyphcache.Glyph {
	pix := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 1; x < w; x++ {
			p := pix[(y*w+x)*3 : (y*w+x)*3+3]
			if x == w-1 {
				p[0], p[1], p[2] = 0xff, 0xff, 0xff
			} else {
				p[0], p[1], p[2] = 0x10, 0x20, 0x30
			}
		}
	}
	return glyphcache.NewGlyph(glyph.Key{Font: 1, Rune: r, LCD: true}, &glyph.Bitmap{
		Width:    w,
		Height:   h,
		Stride:   w * 3,
		Encoding: glyph.EncodingRGB24,
		AdvanceX: float32(w),
		Pix:      pix,
	})
}

func TestDrawGlyphList_LCDCached(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)
	g := lcdGlyph('a', 6, 9)

	if err := c.DrawGlyphList(GlyphList{Glyphs: []*glyphcache.Glyph{g}, OriginX: 10, OriginY: 20}); err != nil {
		t.Fatalf("DrawGlyphList() error = %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}

	cache := c.LCDCache()
	if cache == nil {
		t.Fatal("LCD cache not created")
	}
	cell := cache.Lookup(g)
	if cell == nil {
		t.Fatal("LCD glyph not cached")
	}
	if cell.LeftOff != 1 || cell.RightOff != 0 {
		t.Errorf("edge offsets = %d,%d, want 1,0", cell.LeftOff, cell.RightOff)
	}

	if len(dev.Copies) != 1 {
		t.Fatalf("destination copies = %d, want 1", len(dev.Copies))
	}
	cp := dev.Copies[0]
	if want := image.Rect(10, 20, testSurfaceWidth, 52); cp.Src != want {
		t.Errorf("copied region = %v, want %v", cp.Src, want)
	}
	if cp.Dst.Desc.Label != "cached-dest" {
		t.Errorf("copy destination = %q, want cached-dest", cp.Dst.Desc.Label)
	}

	d := dev.Draws[0]
	if d.State != device.StateLCD {
		t.Errorf("draw state = %v, want %v", d.State, device.StateLCD)
	}
	if d.Bound[0] != cache.Texture() || d.Bound[1] != cp.Dst || d.Bound[2] == nil || d.Bound[2].Desc.Label != "lookup" {
		t.Error("LCD draw should bind the cache, cached destination and lookup textures")
	}

	v := vertexAt(d, 2)
	if v.X != 16 || v.Y != 29 {
		t.Errorf("glyph corner = (%v,%v), want (16,29)", v.X, v.Y)
	}
	if v.U2 != 6.0/512 || v.V2 != 9.0/32 {
		t.Errorf("destination texcoords = (%v,%v), want (%v,%v)", v.U2, v.V2, 6.0/512, 9.0/32)
	}

	tex := cache.Texture().(*devicetest.Texture)
	if px := tex.At(cell.X+1, cell.Y); px[0] != 0x30 || px[1] != 0x20 || px[2] != 0x10 || px[3] != 0xff {
		t.Errorf("cached texel = %x, want 302010ff", px)
	}
}

func TestDrawGlyphList_LCDLookupContents(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)

	gl := GlyphList{Glyphs: []*glyphcache.Glyph{lcdGlyph('a', 6, 9)}, Contrast: 180}
	if err := c.DrawGlyphList(gl); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	lookup := dev.Draws[0].Bound[2]
	inv, fwd := GammaTables(180)
	for i := 0; i < 256; i++ {
		if got := lookup.At(i, 0)[0]; got != inv[i] {
			t.Fatalf("inverse gamma[%d] = %d, want %d", i, got, inv[i])
		}
		if got := lookup.At(i, 1)[0]; got != fwd[i] {
			t.Fatalf("gamma[%d] = %d, want %d", i, got, fwd[i])
		}
	}

	// The same contrast does not rewrite the table.
	locks := lookup.Locks
	if err := c.DrawGlyphList(gl); err != nil {
		t.Fatal(err)
	}
	if lookup.Locks != locks {
		t.Errorf("lookup locks = %d, want %d", lookup.Locks, locks)
	}
	gl.Contrast = 120
	if err := c.DrawGlyphList(gl); err != nil {
		t.Fatal(err)
	}
	if lookup.Locks != locks+1 {
		t.Errorf("lookup locks after contrast change = %d, want %d", lookup.Locks, locks+1)
	}
}

func TestDrawGlyphList_CachedDestReuse(t *testing.T) {
	tests := []struct {
		name   string
		second Point
		copies int
	}{
		{"adjacent", Point{X: 6, Y: 10}, 1},
		{"overlapping", Point{X: 3, Y: 10}, 2},
		{"outside copied rows", Point{X: 6, Y: 40}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := devicetest.New()
			c := newTestContext(t, dev)

			gl := GlyphList{
				Glyphs:    []*glyphcache.Glyph{lcdGlyph('a', 6, 9), lcdGlyph('b', 6, 9)},
				Positions: []Point{{X: 0, Y: 10}, tt.second},
			}
			if err := c.DrawGlyphList(gl); err != nil {
				t.Fatal(err)
			}
			if len(dev.Copies) != tt.copies {
				t.Errorf("destination copies = %d, want %d", len(dev.Copies), tt.copies)
			}
			if tt.copies > 1 && len(dev.Draws) != 1 {
				t.Errorf("draws = %d, want the first glyph drawn before the new copy", len(dev.Draws))
			}
		})
	}
}

func TestDrawGlyphList_SubpixelOrderChange(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)
	g := lcdGlyph('a', 6, 9)

	if err := c.DrawGlyphList(GlyphList{Glyphs: []*glyphcache.Glyph{g}}); err != nil {
		t.Fatal(err)
	}
	if err := c.DrawGlyphList(GlyphList{Glyphs: []*glyphcache.Glyph{g}, BGR: true}); err != nil {
		t.Fatal(err)
	}
	cache := c.LCDCache()
	if got := cache.Stats().Uploads; got != 2 {
		t.Errorf("uploads = %d, want 2 after subpixel order change", got)
	}
	cell := cache.Lookup(g)
	tex := cache.Texture().(*devicetest.Texture)
	if px := tex.At(cell.X+1, cell.Y); px[0] != 0x10 || px[1] != 0x20 || px[2] != 0x30 {
		t.Errorf("BGR texel = %x, want 102030ff", px)
	}
}

func TestDrawGlyphList_LCDUncached(t *testing.T) {
	dev := devicetest.New()
	c := newTestContext(t, dev)
	g := lcdGlyph('W', 20, 9)

	if err := c.DrawGlyphList(GlyphList{Glyphs: []*glyphcache.Glyph{g}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Flush(); err != nil {
		t.Fatal(err)
	}
	if g.Resident() {
		t.Error("glyph wider than an LCD cell should not be cached")
	}
	d := dev.Draws[0]
	if d.State != device.StateLCD || d.Bound[0].Desc.Label != "blit" {
		t.Errorf("draw = %v sampling %q, want LCD sampling the blit texture", d.State, d.Bound[0].Desc.Label)
	}
	if px := d.Bound[0].At(19, 8); px[0] != 0xff || px[3] != 0xff {
		t.Errorf("blit texel = %x, want opaque white", px)
	}
}

func TestGammaTables(t *testing.T) {
	inv, fwd := GammaTables(100)
	for i := range inv {
		if inv[i] != byte(i) || fwd[i] != byte(i) {
			t.Fatalf("contrast 100 entry %d = %d,%d, want identity", i, inv[i], fwd[i])
		}
	}

	inv, fwd = GammaTables(MaxContrast + 50)
	clamped, _ := GammaTables(MaxContrast)
	if inv != clamped {
		t.Error("contrast above the maximum should be clamped")
	}
	if inv[0] != 0 || inv[255] != 255 || fwd[0] != 0 || fwd[255] != 255 {
		t.Error("gamma tables must keep the end points")
	}
	if fwd[128] >= 128 || inv[128] <= 128 {
		t.Errorf("gamma 2.5 midpoints = %d,%d, want forward darker and inverse lighter", fwd[128], inv[128])
	}
}

func TestGlyphList_Contrast(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultContrast},
		{50, MinContrast},
		{180, 180},
		{400, MaxContrast},
	}
	for _, tt := range tests {
		gl := GlyphList{Contrast: tt.in}
		if got := gl.contrast(); got != tt.want {
			t.Errorf("contrast(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
