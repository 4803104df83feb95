// Package xfont rasterizes glyphs from OpenType fonts with
// golang.org/x/image.
//
// Grayscale glyphs are drawn through opentype faces with full hinting.
// LCD glyphs are rasterized from the glyph outline at three times the
// horizontal resolution and filtered into RGB subpixel coverage.
package xfont

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/gputext/glyph"
)

// GoRegularID is the font identifier GoRegular registers the Go Regular
// font under.
const GoRegularID uint64 = 1

// ErrUnknownFont is returned for keys naming an unregistered font.
var ErrUnknownFont = errors.New("xfont: unknown font")

// lcdFilter spreads subpixel coverage over five neighbours to reduce
// color fringes. The weights sum to 9.
var lcdFilter = [5]int{1, 2, 3, 2, 1}

type faceKey struct {
	font uint64
	size fixed.Int26_6
}

// Rasterizer implements glyph.Rasterizer for registered fonts.
//
// Rasterizer is safe for concurrent use.
type Rasterizer struct {
	mu    sync.Mutex
	fonts map[uint64]*opentype.Font
	faces map[faceKey]font.Face
	buf   sfnt.Buffer
}

var _ glyph.Rasterizer = (*Rasterizer)(nil)

// New returns a rasterizer without fonts.
func New() *Rasterizer {
	return &Rasterizer{
		fonts: make(map[uint64]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

// GoRegular returns a rasterizer with the Go Regular font registered as
// GoRegularID.
func GoRegular() (*Rasterizer, error) {
	r := New()
	if err := r.Register(GoRegularID, goregular.TTF); err != nil {
		return nil, err
	}
	return r, nil
}

// MustGoRegular is like GoRegular but panics on error.
func MustGoRegular() *Rasterizer {
	r, err := GoRegular()
	if err != nil {
		panic(err)
	}
	return r
}

// Register parses an OpenType or TrueType font and stores it under id,
// replacing any font registered before.
func (r *Rasterizer) Register(id uint64, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("xfont: parse font %d: %w", id, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fonts[id] = f
	for k, face := range r.faces {
		if k.font == id {
			_ = face.Close()
			delete(r.faces, k)
		}
	}
	return nil
}

// Rasterize implements glyph.Rasterizer.
func (r *Rasterizer) Rasterize(key glyph.Key) (*glyph.Bitmap, error) {
	if key.Size <= 0 {
		return nil, fmt.Errorf("xfont: invalid size %v", key.Size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fonts[key.Font]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFont, key.Font)
	}
	if key.LCD {
		return r.rasterizeLCD(f, key)
	}
	return r.rasterizeGray(f, key)
}

func (r *Rasterizer) face(f *opentype.Font, key glyph.Key) (font.Face, error) {
	k := faceKey{font: key.Font, size: key.Size}
	if face, ok := r.faces[k]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(key.Size) / 64,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("xfont: face %d at %v: %w", key.Font, key.Size, err)
	}
	r.faces[k] = face
	return face, nil
}

// phase returns the subpixel pen offset of key.
func phase(key glyph.Key) fixed.Int26_6 {
	return fixed.Int26_6(key.Phase%4) * 16
}

func (r *Rasterizer) rasterizeGray(f *opentype.Font, key glyph.Key) (*glyph.Bitmap, error) {
	face, err := r.face(f, key)
	if err != nil {
		return nil, err
	}
	dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{X: phase(key)}, key.Rune)
	if !ok {
		return nil, fmt.Errorf("xfont: no glyph for %q", key.Rune)
	}
	bm := &glyph.Bitmap{
		Encoding: glyph.EncodingAlpha8,
		AdvanceX: float32(advance) / 64,
	}
	if dr.Empty() {
		return bm, nil
	}

	dst := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(dst, dst.Bounds(), mask, maskp, draw.Src)
	bm.Width, bm.Height, bm.Stride = dr.Dx(), dr.Dy(), dst.Stride
	bm.OriginX, bm.OriginY = float32(dr.Min.X), float32(dr.Min.Y)
	bm.Pix = dst.Pix
	return bm, nil
}

func (r *Rasterizer) rasterizeLCD(f *opentype.Font, key glyph.Key) (*glyph.Bitmap, error) {
	idx, err := f.GlyphIndex(&r.buf, key.Rune)
	if err != nil {
		return nil, fmt.Errorf("xfont: glyph index %q: %w", key.Rune, err)
	}
	advance, err := f.GlyphAdvance(&r.buf, idx, key.Size, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("xfont: advance %q: %w", key.Rune, err)
	}
	segs, err := f.LoadGlyph(&r.buf, idx, key.Size, nil)
	if err != nil {
		return nil, fmt.Errorf("xfont: outline %q: %w", key.Rune, err)
	}
	bm := &glyph.Bitmap{
		Encoding: glyph.EncodingRGB24,
		AdvanceX: float32(advance) / 64,
	}
	if len(segs) == 0 {
		return bm, nil
	}

	px := float32(phase(key)) / 64
	b := segs.Bounds()
	// One extra pixel on each side holds the filter spill.
	minX := int(math.Floor(float64(float32(b.Min.X)/64+px))) - 1
	maxX := int(math.Ceil(float64(float32(b.Max.X)/64+px))) + 1
	minY := int(math.Floor(float64(b.Min.Y) / 64))
	maxY := int(math.Ceil(float64(b.Max.Y) / 64))
	w, h := maxX-minX, maxY-minY
	if w <= 2 || h <= 0 {
		return bm, nil
	}

	tx := func(p fixed.Point26_6) (float32, float32) {
		return (float32(p.X)/64 + px - float32(minX)) * 3, float32(p.Y)/64 - float32(minY)
	}
	ras := vector.NewRasterizer(w*3, h)
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			ras.MoveTo(tx(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			ras.LineTo(tx(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			x1, y1 := tx(s.Args[0])
			x2, y2 := tx(s.Args[1])
			ras.QuadTo(x1, y1, x2, y2)
		case sfnt.SegmentOpCubeTo:
			x1, y1 := tx(s.Args[0])
			x2, y2 := tx(s.Args[1])
			x3, y3 := tx(s.Args[2])
			ras.CubeTo(x1, y1, x2, y2, x3, y3)
		}
	}
	sub := image.NewAlpha(image.Rect(0, 0, w*3, h))
	ras.Draw(sub, sub.Bounds(), image.Opaque, image.Point{})

	bm.Width, bm.Height, bm.Stride = w, h, w*3
	bm.OriginX, bm.OriginY = float32(minX), float32(minY)
	bm.Pix = FilterLCD(sub.Pix, sub.Stride, w*3, h)
	return bm, nil
}

// FilterLCD applies the five-tap LCD filter to h rows of n subpixel
// coverages and returns the tightly packed result.
func FilterLCD(src []byte, stride, n, h int) []byte {
	out := make([]byte, n*h)
	for y := 0; y < h; y++ {
		row := src[y*stride : y*stride+n]
		dst := out[y*n : y*n+n]
		for i := range dst {
			sum := 0
			for k, wt := range lcdFilter {
				if j := i + k - 2; j >= 0 && j < n {
					sum += wt * int(row[j])
				}
			}
			dst[i] = byte((sum + 4) / 9)
		}
	}
	return out
}

// Close releases the cached faces.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for k, face := range r.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(r.faces, k)
	}
	return errors.Join(errs...)
}

// Keys returns glyph keys for the runes of text after NFC normalization,
// so precomposed and decomposed input share cache entries.
func Keys(text string, fontID uint64, size float64, lcd bool) []glyph.Key {
	text = norm.NFC.String(text)
	sz := fixed.Int26_6(math.Round(size * 64))
	keys := make([]glyph.Key, 0, len(text))
	for _, r := range text {
		keys = append(keys, glyph.Key{Font: fontID, Rune: r, Size: sz, LCD: lcd})
	}
	return keys
}
