package upload

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gputext/glyph"
)

// rowFunc converts one source row into one destination row.
type rowFunc func(dst, src []byte)

func converter(f gputypes.TextureFormat, enc glyph.Encoding) (rowFunc, error) {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		switch enc {
		case glyph.EncodingAlpha8:
			return func(dst, src []byte) { copy(dst, src) }, nil
		case glyph.EncodingARGB32:
			return argbToAlpha, nil
		}
	case gputypes.TextureFormatRGBA8Unorm:
		switch enc {
		case glyph.EncodingAlpha8:
			return alphaToQuad, nil
		case glyph.EncodingRGB24:
			return tripleToQuad(0, 1, 2), nil
		case glyph.EncodingBGR24:
			return tripleToQuad(2, 1, 0), nil
		case glyph.EncodingARGB32:
			return argbToQuad(1, 2, 3), nil
		}
	case gputypes.TextureFormatBGRA8Unorm:
		switch enc {
		case glyph.EncodingAlpha8:
			return alphaToQuad, nil
		case glyph.EncodingRGB24:
			return tripleToQuad(2, 1, 0), nil
		case glyph.EncodingBGR24:
			return tripleToQuad(0, 1, 2), nil
		case glyph.EncodingARGB32:
			return argbToQuad(3, 2, 1), nil
		}
	}
	return nil, fmt.Errorf("%w: %v into %v", ErrUnsupportedEncoding, enc, f)
}

// alphaToQuad replicates coverage into all four channels, which is the
// premultiplied form of white.
func alphaToQuad(dst, src []byte) {
	for i, a := range src {
		d := dst[i*4 : i*4+4 : i*4+4]
		d[0], d[1], d[2], d[3] = a, a, a, a
	}
}

// tripleToQuad reorders three subpixel coverages and sets alpha opaque.
func tripleToQuad(c0, c1, c2 int) rowFunc {
	return func(dst, src []byte) {
		for i := 0; i < len(src)/3; i++ {
			s := src[i*3 : i*3+3 : i*3+3]
			d := dst[i*4 : i*4+4 : i*4+4]
			d[0], d[1], d[2], d[3] = s[c0], s[c1], s[c2], 0xff
		}
	}
}

// argbToQuad reorders A,R,G,B pixels; c0..c2 pick the source bytes of the
// first three destination channels and alpha goes last.
func argbToQuad(c0, c1, c2 int) rowFunc {
	return func(dst, src []byte) {
		for i := 0; i < len(src)/4; i++ {
			s := src[i*4 : i*4+4 : i*4+4]
			d := dst[i*4 : i*4+4 : i*4+4]
			d[0], d[1], d[2], d[3] = s[c0], s[c1], s[c2], s[0]
		}
	}
}

func argbToAlpha(dst, src []byte) {
	for i := range dst {
		dst[i] = src[i*4]
	}
}
