package glyphcache

import "errors"

// Sentinel errors for the glyphcache package.
var (
	// ErrInvalidConfig is returned by New for unusable dimensions.
	ErrInvalidConfig = errors.New("glyphcache: invalid cache configuration")

	// ErrNoTexture is returned when the cache has no backing texture.
	ErrNoTexture = errors.New("glyphcache: cache has no backing texture")

	// ErrGlyphTooLarge is returned for bitmaps larger than a cell.
	ErrGlyphTooLarge = errors.New("glyphcache: glyph does not fit in a cell")

	// ErrStaleReservation is returned by Commit when the cache changed
	// after Reserve.
	ErrStaleReservation = errors.New("glyphcache: reservation is stale")
)
