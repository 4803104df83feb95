// Package upload copies glyph bitmaps into locked texture regions,
// converting between bitmap encodings and texture formats.
package upload

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"golang.org/x/exp/constraints"

	"github.com/gogpu/gputext/device"
	"github.com/gogpu/gputext/glyph"
	"github.com/gogpu/gputext/glyphcache"
)

var (
	// ErrRegionOutOfBounds is returned when the source or destination
	// rectangle does not fit its buffer.
	ErrRegionOutOfBounds = errors.New("upload: region out of bounds")

	// ErrUnsupportedEncoding is returned for encoding and texture format
	// combinations without a conversion.
	ErrUnsupportedEncoding = errors.New("upload: unsupported encoding for texture format")
)

// Region describes a copy from a source bitmap into a texture.
type Region struct {
	// DstX and DstY are the destination corner in texture pixels.
	DstX, DstY int
	// SrcX and SrcY are the source corner in bitmap pixels.
	SrcX, SrcY int
	// Width and Height are the copied size.
	Width, Height int
	// SrcStride is the byte distance between source rows.
	SrcStride int
}

// EdgeCounts holds the number of non-zero pixels in the first and last
// destination columns of an LCD upload.
type EdgeCounts struct {
	Left  int
	Right int
}

// Offsets returns 1 for each edge column with at most height/3 touched
// pixels, which compositing may skip.
func (e EdgeCounts) Offsets(height int) (left, right int) {
	threshold := height / 3
	if e.Left <= threshold {
		left = 1
	}
	if e.Right <= threshold {
		right = 1
	}
	return left, right
}

func inRange[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// Upload copies r from src into tex. The destination rectangle is locked
// for the duration of the copy. A zero-size region is a no-op.
func Upload(tex device.Texture, src []byte, r Region, enc glyph.Encoding) (EdgeCounts, error) {
	var edges EdgeCounts
	if r.Width <= 0 || r.Height <= 0 {
		return edges, nil
	}
	if tex == nil {
		return edges, fmt.Errorf("upload: %w", device.ErrReleased)
	}

	convert, err := converter(tex.Format(), enc)
	if err != nil {
		return edges, err
	}

	sbpp := enc.BytesPerPixel()
	if r.SrcStride < r.Width*sbpp {
		return edges, fmt.Errorf("%w: stride %d for %d pixels of %d bytes",
			ErrRegionOutOfBounds, r.SrcStride, r.Width, sbpp)
	}
	if r.SrcX < 0 || r.SrcY < 0 {
		return edges, fmt.Errorf("%w: source origin (%d,%d)", ErrRegionOutOfBounds, r.SrcX, r.SrcY)
	}
	last := (r.SrcY+r.Height-1)*r.SrcStride + (r.SrcX+r.Width)*sbpp
	if !inRange(last, 0, len(src)) {
		return edges, fmt.Errorf("%w: source needs %d bytes, has %d", ErrRegionOutOfBounds, last, len(src))
	}
	dst := image.Rect(r.DstX, r.DstY, r.DstX+r.Width, r.DstY+r.Height)
	if !dst.In(image.Rect(0, 0, tex.Width(), tex.Height())) {
		return edges, fmt.Errorf("%w: destination %v in %dx%d texture",
			ErrRegionOutOfBounds, dst, tex.Width(), tex.Height())
	}

	m, err := tex.Lock(dst)
	if err != nil {
		return edges, fmt.Errorf("upload: lock %v: %w", dst, err)
	}

	lcd := enc.IsLCD()
	dbpp := device.BytesPerPixel(tex.Format())
	for y := 0; y < r.Height; y++ {
		so := (r.SrcY+y)*r.SrcStride + r.SrcX*sbpp
		row := src[so : so+r.Width*sbpp]
		drow := m.Pix[y*m.Stride : y*m.Stride+r.Width*dbpp]
		convert(drow, row)

		if lcd {
			if touched(row[:sbpp]) {
				edges.Left++
			}
			if touched(row[len(row)-sbpp:]) {
				edges.Right++
			}
		}
	}

	if err := tex.Unlock(); err != nil {
		return edges, fmt.Errorf("upload: unlock: %w", err)
	}
	return edges, nil
}

func touched(px []byte) bool {
	for _, b := range px {
		if b != 0 {
			return true
		}
	}
	return false
}

// Uploader uploads glyph bitmaps into glyph cache cells and records the
// LCD edge offsets on the cell.
type Uploader struct{}

var _ glyphcache.Uploader = Uploader{}

// UploadGlyph implements glyphcache.Uploader.
func (Uploader) UploadGlyph(tex device.Texture, cell *glyphcache.Cell, bm *glyph.Bitmap) error {
	edges, err := Upload(tex, bm.Pix, Region{
		DstX:      cell.X,
		DstY:      cell.Y,
		Width:     bm.Width,
		Height:    bm.Height,
		SrcStride: bm.Stride,
	}, bm.Encoding)
	if err != nil {
		return err
	}
	if bm.Encoding.IsLCD() {
		cell.LeftOff, cell.RightOff = edges.Offsets(bm.Height)
	} else {
		cell.LeftOff, cell.RightOff = 0, 0
	}
	return nil
}

// IsSupported reports whether bitmaps of enc can be uploaded into
// textures of format f.
func IsSupported(f gputypes.TextureFormat, enc glyph.Encoding) bool {
	_, err := converter(f, enc)
	return err == nil
}
