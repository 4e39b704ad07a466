package wgpu

import (
	"log/slog"
	"sync/atomic"
)

var pkgLogger atomic.Pointer[slog.Logger]

func init() { pkgLogger.Store(slog.New(slog.DiscardHandler)) }

// slogger returns the logger for HAL diagnostics. It is whatever vecadd
// last handed to Platform.SetLogger, or a discarding logger.
func slogger() *slog.Logger { return pkgLogger.Load() }

func setLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	pkgLogger.Store(l)
}
