package gputext

import "errors"

var (
	// ErrCacheUnavailable reports that a glyph cache texture could not be
	// allocated. DrawGlyphList falls back to uncached drawing and never
	// returns it.
	ErrCacheUnavailable = errors.New("gputext: glyph cache unavailable")

	// ErrNoSurface is returned by drawing operations before SetSurface.
	ErrNoSurface = errors.New("gputext: no destination surface")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gputext: context closed")

	// ErrInvalidPaint is returned for malformed gradient stops or lookup
	// tables.
	ErrInvalidPaint = errors.New("gputext: invalid paint")
)
