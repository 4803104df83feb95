package gputext

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputext/glyphcache"
	"github.com/gogpu/gputext/lifecycle"
)

// Defaults for Context options.
const (
	// DefaultContrast is the LCD text contrast used when a glyph list
	// does not set one.
	DefaultContrast = 140

	// MinContrast and MaxContrast bound the LCD text contrast.
	MinContrast = 100
	MaxContrast = 250
)

// Option configures a Context during creation.
//
// Example:
//
//	c, err := gputext.NewContext(dev, monitor,
//	    gputext.WithCacheSize(1024, 1024),
//	    gputext.WithRetryInterval(250*time.Millisecond),
//	)
type Option func(*options)

type options struct {
	cacheWidth, cacheHeight     int
	cellWidth, cellHeight       int
	lcdCellWidth, lcdCellHeight int
	glyphCaching                bool
	logger                      *slog.Logger
	retryInterval               time.Duration
	windowState                 func() lifecycle.WindowState
	clock                       func() time.Time
}

func defaultOptions() options {
	return options{
		cacheWidth:    glyphcache.DefaultWidth,
		cacheHeight:   glyphcache.DefaultHeight,
		cellWidth:     glyphcache.DefaultCellWidth,
		cellHeight:    glyphcache.DefaultCellHeight,
		lcdCellWidth:  glyphcache.DefaultCellWidth,
		lcdCellHeight: glyphcache.DefaultCellHeight,
		glyphCaching:  true,
		retryInterval: lifecycle.DefaultRetryInterval,
	}
}

// WithCacheSize sets the size of both glyph cache textures.
func WithCacheSize(w, h int) Option {
	return func(o *options) {
		if w > 0 && h > 0 {
			o.cacheWidth, o.cacheHeight = w, h
		}
	}
}

// WithCellSize sets the cell size of the grayscale glyph cache. Larger
// glyphs are drawn uncached.
func WithCellSize(w, h int) Option {
	return func(o *options) {
		if w > 0 && h > 0 {
			o.cellWidth, o.cellHeight = w, h
		}
	}
}

// WithLCDCellSize sets the cell size of the LCD glyph cache.
func WithLCDCellSize(w, h int) Option {
	return func(o *options) {
		if w > 0 && h > 0 {
			o.lcdCellWidth, o.lcdCellHeight = w, h
		}
	}
}

// WithGlyphCaching enables or disables the glyph caches. With caching
// disabled every glyph takes the uncached path.
func WithGlyphCaching(enabled bool) Option {
	return func(o *options) {
		o.glyphCaching = enabled
	}
}

// WithLogger sets a logger for this context only. Without it the context
// logs through Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRetryInterval sets the minimum time between device restore attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryInterval = d
		}
	}
}

// WithWindowState sets the function reporting whether the owning window
// is full-screen and minimized. Restore is deferred in that state.
func WithWindowState(fn func() lifecycle.WindowState) Option {
	return func(o *options) {
		o.windowState = fn
	}
}

// WithClock replaces time.Now for restore throttling.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

func (o *options) trackerOptions() []lifecycle.Option {
	opts := []lifecycle.Option{lifecycle.WithRetryInterval(o.retryInterval)}
	if o.windowState != nil {
		opts = append(opts, lifecycle.WithWindowState(o.windowState))
	}
	if o.clock != nil {
		opts = append(opts, lifecycle.WithClock(o.clock))
	}
	return opts
}
