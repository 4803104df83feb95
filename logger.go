package gputext

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputext/lifecycle"
	"github.com/gogpu/gputext/resource"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

// devices holds the devices of open contexts that accept a logger.
var (
	devicesMu sync.Mutex
	devices   = make(map[loggerSetter]int)
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for gputext and its sub-packages.
// By default, gputext produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior.
//
// Log levels used by gputext:
//   - [slog.LevelDebug]: cache evictions, flushes, resource releases
//   - [slog.LevelInfo]: device lost and restored
//   - [slog.LevelWarn]: glyph cache unavailable, uncached fallback
//
// Example:
//
//	gputext.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	resource.SetLogger(l)
	lifecycle.SetLogger(l)

	devicesMu.Lock()
	for d := range devices {
		d.SetLogger(l)
	}
	devicesMu.Unlock()
}

// Logger returns the current logger used by gputext.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// registerDevice passes the current logger to dev if it accepts one and
// keeps it updated until unregisterDevice.
func registerDevice(dev any) {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	devicesMu.Lock()
	devices[ls]++
	devicesMu.Unlock()
}

func unregisterDevice(dev any) {
	ls, ok := dev.(loggerSetter)
	if !ok {
		return
	}
	devicesMu.Lock()
	if devices[ls]--; devices[ls] <= 0 {
		delete(devices, ls)
	}
	devicesMu.Unlock()
}
