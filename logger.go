package vecadd

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/vecadd/backend"
)

// silent discards every record; Enabled is false at all levels so
// attribute formatting is skipped.
var silent = slog.New(slog.DiscardHandler)

var pkgLogger atomic.Pointer[slog.Logger]

func init() { pkgLogger.Store(silent) }

// SetLogger sets the logger used by pipelines created without WithLogger
// and by the backends they drive. vecadd is silent until it is called;
// nil restores silence. Safe for concurrent use.
//
// Levels:
//   - [slog.LevelDebug]: buffer sizes, launch geometry, releases
//   - [slog.LevelInfo]: selected platform and device, timings
//   - [slog.LevelWarn]: release failures, backends that failed discovery
//   - [slog.LevelError]: the stage that aborted a run
//
// Example:
//
//	vecadd.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	pkgLogger.Store(l)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return pkgLogger.Load()
}

// loggerSetter is implemented by platforms that log on their own.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger hands l to p before p is used for a run.
func propagateLogger(p backend.Platform, l *slog.Logger) {
	if ls, ok := p.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
