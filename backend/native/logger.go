package native

import (
	"context"
	"log/slog"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func nopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// SetLogger sets the device logger. Nil restores silence.
// gputext.NewContext passes its logger here.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = nopLogger()
	}
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

func (d *Device) logger() *slog.Logger {
	return d.log
}
