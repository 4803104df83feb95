package glyphcache

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/internal/devicetest"
)

type recordingUploader struct {
	uploads []*Cell
	fail    error
}

func (u *recordingUploader) UploadGlyph(_ device.Texture, cell *Cell, _ *glyph.Bitmap) error {
	if u.fail != nil {
		return u.fail
	}
	u.uploads = append(u.uploads, cell)
	return nil
}

type countingFlusher int

func (f *countingFlusher) Flush() error {
	*f++
	return nil
}

func newTestCache(t *testing.T, w, h, cw, ch int) (*Cache, *recordingUploader) {
	t.Helper()
	dev := devicetest.New()
	tex, err := dev.CreateTexture(device.TextureDescriptor{
		Width: w, Height: h, Format: gputypes.TextureFormatR8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	up := &recordingUploader{}
	c, err := New(Config{
		Width: w, Height: h, CellWidth: cw, CellHeight: ch,
		Texture: tex, Uploader: up,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, up
}

func newTestGlyph(r rune, w, h int) *Glyph {
	return NewGlyph(glyph.Key{Rune: r}, &glyph.Bitmap{
		Width: w, Height: h, Stride: w,
		Encoding: glyph.EncodingAlpha8,
		Pix:      make([]byte, w*h),
	})
}

func TestNew_InvalidConfig(t *testing.T) {
	up := UploaderFunc(func(device.Texture, *Cell, *glyph.Bitmap) error { return nil })
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero width", Config{Width: 0, Height: 16, CellWidth: 16, CellHeight: 16, Uploader: up}},
		{"negative cell", Config{Width: 16, Height: 16, CellWidth: -1, CellHeight: 16, Uploader: up}},
		{"cell larger than texture", Config{Width: 16, Height: 16, CellWidth: 32, CellHeight: 16, Uploader: up}},
		{"no uploader", Config{Width: 16, Height: 16, CellWidth: 16, CellHeight: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_CapacityIgnoresPartialCells(t *testing.T) {
	c, _ := newTestCache(t, 100, 50, 32, 16)
	if got := c.Capacity(); got != 3*3 {
		t.Errorf("Capacity() = %d, want 9", got)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a, _ := newTestCache(t, 64, 64, 16, 16)
	b, _ := newTestCache(t, 64, 64, 16, 16)
	if a.ID() == b.ID() {
		t.Errorf("caches share ID %d", a.ID())
	}
}

func TestAddGlyph_Idempotent(t *testing.T) {
	c, up := newTestCache(t, 64, 64, 16, 16)
	g := newTestGlyph('a', 10, 12)

	first, err := c.AddGlyph(g, nil)
	if err != nil {
		t.Fatalf("AddGlyph: %v", err)
	}
	second, err := c.AddGlyph(g, nil)
	if err != nil {
		t.Fatalf("AddGlyph again: %v", err)
	}
	if first != second {
		t.Errorf("second AddGlyph returned a different cell")
	}
	if len(up.uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(up.uploads))
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit 1 miss", s)
	}
}

func TestAddGlyph_CellGeometry(t *testing.T) {
	c, _ := newTestCache(t, 64, 32, 16, 16)
	var cells []*Cell
	for i := 0; i < 6; i++ {
		cell, err := c.AddGlyph(newTestGlyph(rune('a'+i), 8, 4), nil)
		if err != nil {
			t.Fatalf("AddGlyph(%d): %v", i, err)
		}
		cells = append(cells, cell)
	}

	// slot 5 is the second cell of the second row
	cell := cells[5]
	if cell.X != 16 || cell.Y != 16 {
		t.Errorf("cell 5 at (%d,%d), want (16,16)", cell.X, cell.Y)
	}
	if cell.TX1 != 0.25 || cell.TY1 != 0.5 {
		t.Errorf("TX1,TY1 = %v,%v, want 0.25,0.5", cell.TX1, cell.TY1)
	}
	if cell.TX2 != 24.0/64 || cell.TY2 != 20.0/32 {
		t.Errorf("TX2,TY2 = %v,%v, want %v,%v", cell.TX2, cell.TY2, 24.0/64, 20.0/32)
	}
	if cell.GlyphWidth != 8 || cell.GlyphHeight != 4 {
		t.Errorf("glyph size %dx%d, want 8x4", cell.GlyphWidth, cell.GlyphHeight)
	}
}

func TestAddGlyph_EmptyBitmap(t *testing.T) {
	c, up := newTestCache(t, 64, 64, 16, 16)
	for _, g := range []*Glyph{
		nil,
		NewGlyph(glyph.Key{Rune: ' '}, nil),
		NewGlyph(glyph.Key{Rune: ' '}, &glyph.Bitmap{}),
	} {
		cell, err := c.AddGlyph(g, nil)
		if cell != nil || err != nil {
			t.Errorf("AddGlyph(empty) = %v, %v, want nil, nil", cell, err)
		}
	}
	if len(up.uploads) != 0 || c.Len() != 0 {
		t.Errorf("empty glyphs touched the cache: uploads=%d len=%d", len(up.uploads), c.Len())
	}
}

func TestAddGlyph_TooLarge(t *testing.T) {
	c, _ := newTestCache(t, 64, 64, 16, 16)
	_, err := c.AddGlyph(newTestGlyph('W', 17, 10), nil)
	if !errors.Is(err, ErrGlyphTooLarge) {
		t.Errorf("AddGlyph error = %v, want ErrGlyphTooLarge", err)
	}
}

func TestAddGlyph_NoTexture(t *testing.T) {
	c, err := New(Config{
		Width: 32, Height: 32, CellWidth: 16, CellHeight: 16,
		Uploader: &recordingUploader{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.AddGlyph(newTestGlyph('a', 4, 4), nil); !errors.Is(err, ErrNoTexture) {
		t.Errorf("AddGlyph error = %v, want ErrNoTexture", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestAddGlyph_OccupancyNeverExceedsCapacity(t *testing.T) {
	c, _ := newTestCache(t, 64, 64, 16, 16)
	var f countingFlusher
	for i := 0; i < 100; i++ {
		if _, err := c.AddGlyph(newTestGlyph(rune(i), 8, 8), &f); err != nil {
			t.Fatalf("AddGlyph(%d): %v", i, err)
		}
		if c.Len() > c.Capacity() {
			t.Fatalf("Len() = %d exceeds Capacity() = %d", c.Len(), c.Capacity())
		}
	}
	if !c.Full() {
		t.Error("Full() = false after overfilling")
	}
	if want := countingFlusher(100 - 16); f != want {
		t.Errorf("flushes = %d, want %d", f, want)
	}
	if s := c.Stats(); s.Evictions != 84 {
		t.Errorf("Evictions = %d, want 84", s.Evictions)
	}
}

func TestAddGlyph_EvictsOldestInsertion(t *testing.T) {
	c, _ := newTestCache(t, 32, 32, 16, 16)
	glyphs := make([]*Glyph, 5)
	for i := range glyphs {
		glyphs[i] = newTestGlyph(rune('a'+i), 8, 8)
	}
	for _, g := range glyphs[:4] {
		if _, err := c.AddGlyph(g, nil); err != nil {
			t.Fatal(err)
		}
	}
	// Hits do not refresh recency.
	if _, err := c.AddGlyph(glyphs[0], nil); err != nil {
		t.Fatal(err)
	}
	victimSlot := glyphs[0].CellFor(c).Slot()

	var f countingFlusher
	cell, err := c.AddGlyph(glyphs[4], &f)
	if err != nil {
		t.Fatal(err)
	}
	if f != 1 {
		t.Errorf("flushes = %d, want 1", f)
	}
	if glyphs[0].Resident() {
		t.Error("oldest glyph is still resident")
	}
	if cell.Slot() != victimSlot {
		t.Errorf("new glyph in slot %d, want evicted slot %d", cell.Slot(), victimSlot)
	}
	if cell.Glyph() != glyphs[4] {
		t.Error("cell not bound to new glyph")
	}
	for _, g := range glyphs[1:] {
		if g.CellFor(c) == nil {
			t.Errorf("glyph %q lost its cell", g.Key.Rune)
		}
	}
	if c.Oldest().Glyph() != glyphs[1] {
		t.Errorf("Oldest() = %v, want glyph b", c.Oldest().Glyph().Key)
	}
}

func TestAddGlyph_FlusherError(t *testing.T) {
	c, _ := newTestCache(t, 16, 16, 16, 16)
	a := newTestGlyph('a', 4, 4)
	if _, err := c.AddGlyph(a, nil); err != nil {
		t.Fatal(err)
	}
	flushErr := errors.New("flush failed")
	_, err := c.AddGlyph(newTestGlyph('b', 4, 4), FlusherFunc(func() error { return flushErr }))
	if !errors.Is(err, flushErr) {
		t.Fatalf("AddGlyph error = %v, want %v", err, flushErr)
	}
	if a.CellFor(c) == nil {
		t.Error("victim evicted although flush failed")
	}
}

// A 512x512 texture with 32x32 cells holds 256 glyphs; the 257th evicts
// the first one inserted and reuses its cell. Adding the first glyph again
// misses, uploads it again and evicts the second.
func TestAddGlyph_FullCacheScenario(t *testing.T) {
	c, up := newTestCache(t, 512, 512, 32, 32)
	if c.Capacity() != 256 {
		t.Fatalf("Capacity() = %d, want 256", c.Capacity())
	}
	glyphs := make([]*Glyph, 257)
	var first, second *Cell
	var f countingFlusher
	for i := range glyphs {
		glyphs[i] = newTestGlyph(rune(0x4e00+i), 30, 30)
		cell, err := c.AddGlyph(glyphs[i], &f)
		if err != nil {
			t.Fatalf("AddGlyph(%d): %v", i, err)
		}
		switch i {
		case 0:
			first = cell
		case 1:
			second = cell
		}
		if i == 256 && cell != first {
			t.Errorf("257th glyph did not reuse the first cell")
		}
	}
	if f != 1 {
		t.Errorf("flushes = %d, want 1", f)
	}
	if glyphs[0].Resident() {
		t.Error("first glyph still resident")
	}
	if c.Len() != 256 {
		t.Errorf("Len() = %d, want 256", c.Len())
	}
	if len(up.uploads) != 257 {
		t.Errorf("uploads = %d, want 257", len(up.uploads))
	}

	readded, err := c.AddGlyph(glyphs[0], &f)
	if err != nil {
		t.Fatalf("re-adding first glyph: %v", err)
	}
	if readded == first {
		t.Error("re-added first glyph got the cell now owned by the 257th glyph")
	}
	if readded != second {
		t.Error("re-added first glyph should take the second glyph's cell")
	}
	if glyphs[0].CellFor(c) != readded {
		t.Error("re-added first glyph is not bound to its new cell")
	}
	if glyphs[1].Resident() {
		t.Error("second glyph still resident")
	}
	if !glyphs[256].Resident() {
		t.Error("257th glyph evicted")
	}
	if len(up.uploads) != 258 {
		t.Errorf("uploads = %d, want 258", len(up.uploads))
	}
	if f != 2 {
		t.Errorf("flushes = %d, want 2", f)
	}
	if c.Len() != 256 {
		t.Errorf("Len() = %d, want 256", c.Len())
	}
	if s := c.Stats(); s.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", s.Evictions)
	}
}

func TestAddGlyph_UploadFailure(t *testing.T) {
	c, up := newTestCache(t, 32, 16, 16, 16)
	g := newTestGlyph('a', 4, 4)
	up.fail = device.ErrLockFailed

	if _, err := c.AddGlyph(g, nil); !errors.Is(err, device.ErrLockFailed) {
		t.Fatalf("AddGlyph error = %v, want ErrLockFailed", err)
	}
	if g.Resident() {
		t.Error("glyph resident after failed upload")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}

	up.fail = nil
	cell, err := c.AddGlyph(g, nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cell.Slot() != 0 {
		t.Errorf("retry used slot %d, want the released slot 0", cell.Slot())
	}
	if _, err := c.AddGlyph(newTestGlyph('b', 4, 4), nil); err != nil {
		t.Fatal(err)
	}
	if !c.Full() {
		t.Error("failed upload leaked a cell")
	}
}

func TestAddGlyph_UploadFailureOnEviction(t *testing.T) {
	c, up := newTestCache(t, 16, 16, 16, 16)
	a := newTestGlyph('a', 4, 4)
	b := newTestGlyph('b', 4, 4)
	if _, err := c.AddGlyph(a, nil); err != nil {
		t.Fatal(err)
	}
	up.fail = errors.New("boom")
	if _, err := c.AddGlyph(b, nil); err == nil {
		t.Fatal("expected upload error")
	}
	if a.Resident() || b.Resident() {
		t.Error("glyph resident after failed eviction upload")
	}
	if c.Len() != 0 || c.Full() {
		t.Errorf("Len() = %d Full() = %v, want empty cache with a free cell", c.Len(), c.Full())
	}
}

func TestCommit_StaleReservation(t *testing.T) {
	c, _ := newTestCache(t, 32, 16, 16, 16)
	a := newTestGlyph('a', 4, 4)
	b := newTestGlyph('b', 4, 4)

	resA := c.Reserve(a)
	resB := c.Reserve(b)
	if resA.Cell.Slot() != resB.Cell.Slot() {
		t.Fatalf("reservations disagree on the next slot")
	}
	if _, err := c.Commit(resA, a); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Commit(resB, b); !errors.Is(err, ErrStaleReservation) {
		t.Errorf("Commit(stale) error = %v, want ErrStaleReservation", err)
	}
}

func TestReserve_DoesNotBind(t *testing.T) {
	c, up := newTestCache(t, 16, 16, 16, 16)
	a := newTestGlyph('a', 4, 4)
	if _, err := c.AddGlyph(a, nil); err != nil {
		t.Fatal(err)
	}
	res := c.Reserve(newTestGlyph('b', 4, 4))
	if !res.MustFlush || res.Hit {
		t.Errorf("Reserve on full cache = %+v, want MustFlush", res)
	}
	if res.Cell.Glyph() != a || !a.Resident() {
		t.Error("Reserve detached the victim")
	}
	if len(up.uploads) != 1 {
		t.Errorf("uploads = %d, want 1", len(up.uploads))
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t, 32, 32, 16, 16)
	glyphs := []*Glyph{newTestGlyph('a', 4, 4), newTestGlyph('b', 4, 4)}
	for _, g := range glyphs {
		if _, err := c.AddGlyph(g, nil); err != nil {
			t.Fatal(err)
		}
	}
	c.Invalidate()
	if c.Len() != 0 || c.Oldest() != nil {
		t.Errorf("Len() = %d after Invalidate, want 0", c.Len())
	}
	for _, g := range glyphs {
		if g.Resident() {
			t.Errorf("glyph %q still resident", g.Key.Rune)
		}
	}
	cell, err := c.AddGlyph(glyphs[1], nil)
	if err != nil {
		t.Fatal(err)
	}
	if cell.Slot() != 0 {
		t.Errorf("first glyph after Invalidate in slot %d, want 0", cell.Slot())
	}
}

func TestSetTexture(t *testing.T) {
	c, _ := newTestCache(t, 32, 32, 16, 16)
	g := newTestGlyph('a', 4, 4)
	if _, err := c.AddGlyph(g, nil); err != nil {
		t.Fatal(err)
	}
	c.SetTexture(nil)
	if g.Resident() {
		t.Error("glyph resident after texture change")
	}
	if c.Texture() != nil {
		t.Error("Texture() not replaced")
	}
}
