// Package glyph describes rasterized glyphs as the glyph cache sees them.
//
// Glyph identities and bitmaps are produced by a font subsystem outside
// this module. The cache only keeps non-owning references to them.
package glyph

import (
	"fmt"

	"golang.org/x/image/math/fixed"
)

// Key identifies a glyph rasterized at a specific size, style and
// subpixel phase. Keys are comparable and immutable.
type Key struct {
	// Font identifies the font face (family, style, transform).
	Font uint64

	// Rune is the character, or the glyph index for pre-shaped text.
	Rune rune

	// Size is the em size in 26.6 fixed point pixels.
	Size fixed.Int26_6

	// Phase is the horizontal subpixel phase in quarter pixels (0..3).
	Phase uint8

	// LCD selects subpixel (RGB/BGR) rasterization.
	LCD bool
}

// String returns a compact representation for logs.
func (k Key) String() string {
	mode := "gray"
	if k.LCD {
		mode = "lcd"
	}
	return fmt.Sprintf("glyph(font=%d %q %v %s phase=%d)", k.Font, k.Rune, k.Size, mode, k.Phase)
}

// Encoding is the pixel layout of a glyph bitmap.
type Encoding uint8

const (
	// EncodingAlpha8 is one coverage byte per pixel.
	EncodingAlpha8 Encoding = iota

	// EncodingRGB24 is three subpixel coverage bytes per pixel in R, G, B order.
	EncodingRGB24

	// EncodingBGR24 is three subpixel coverage bytes per pixel in B, G, R order.
	EncodingBGR24

	// EncodingARGB32 is premultiplied color stored as A, R, G, B bytes.
	EncodingARGB32
)

// BytesPerPixel returns the size of one pixel, or 0 for unknown encodings.
func (e Encoding) BytesPerPixel() int {
	switch e {
	case EncodingAlpha8:
		return 1
	case EncodingRGB24, EncodingBGR24:
		return 3
	case EncodingARGB32:
		return 4
	default:
		return 0
	}
}

// IsLCD reports whether the encoding carries subpixel coverage.
func (e Encoding) IsLCD() bool {
	return e == EncodingRGB24 || e == EncodingBGR24
}

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingAlpha8:
		return "A8"
	case EncodingRGB24:
		return "RGB24"
	case EncodingBGR24:
		return "BGR24"
	case EncodingARGB32:
		return "ARGB32"
	default:
		return fmt.Sprintf("Encoding(%d)", e)
	}
}

// Swapped returns the encoding with red and blue exchanged.
// Non-LCD encodings are returned unchanged.
func (e Encoding) Swapped() Encoding {
	switch e {
	case EncodingRGB24:
		return EncodingBGR24
	case EncodingBGR24:
		return EncodingRGB24
	default:
		return e
	}
}

// Bitmap is a rasterized glyph.
type Bitmap struct {
	// Width and Height are the bitmap size in pixels.
	Width  int
	Height int

	// Stride is the number of bytes between rows.
	Stride int

	// Encoding is the pixel layout of Pix.
	Encoding Encoding

	// AdvanceX and AdvanceY move the pen after the glyph.
	AdvanceX float32
	AdvanceY float32

	// OriginX and OriginY locate the top-left pixel relative to the pen.
	OriginX float32
	OriginY float32

	// Pix holds Height rows of Stride bytes. A nil Pix marks a glyph with
	// nothing to draw, such as a space.
	Pix []byte
}

// Empty reports whether the bitmap has no pixels to draw.
func (b *Bitmap) Empty() bool {
	return b == nil || b.Pix == nil || b.Width <= 0 || b.Height <= 0
}

// Rasterizer produces glyph bitmaps.
type Rasterizer interface {
	// Rasterize renders the glyph identified by key. A glyph without
	// visible pixels returns a Bitmap with nil Pix and a valid advance.
	Rasterize(key Key) (*Bitmap, error)
}
