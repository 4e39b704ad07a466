package vecadd

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TimerKind categorizes timing events.
type TimerKind uint8

const (
	// TimeGeneric covers host-side work such as importing data.
	TimeGeneric TimerKind = iota
	// TimeGPU covers device memory management.
	TimeGPU
	// TimeCompute covers kernel execution.
	TimeCompute
	// TimeCopy covers device-to-host transfers.
	TimeCopy
)

// String returns the category name.
func (k TimerKind) String() string {
	switch k {
	case TimeGeneric:
		return "Generic"
	case TimeGPU:
		return "GPU"
	case TimeCompute:
		return "Compute"
	case TimeCopy:
		return "Copy"
	default:
		return fmt.Sprintf("TimerKind(%d)", k)
	}
}

// Timer receives timing events from the pipeline. Every Start is
// followed by a Stop with the same kind and message, also on failure.
type Timer interface {
	Start(kind TimerKind, msg string)
	Stop(kind TimerKind, msg string)
}

// NewTimer returns a Timer that logs elapsed times at info level through
// the package logger.
func NewTimer() Timer {
	return newLogTimer(Logger)
}

// newLogTimer returns a log timer that resolves its logger at each Stop.
func newLogTimer(log func() *slog.Logger) *logTimer {
	return &logTimer{log: log, started: make(map[timerKey]time.Time)}
}

type timerKey struct {
	kind TimerKind
	msg  string
}

type logTimer struct {
	log     func() *slog.Logger
	mu      sync.Mutex
	started map[timerKey]time.Time
}

func (t *logTimer) Start(kind TimerKind, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[timerKey{kind, msg}] = time.Now()
}

func (t *logTimer) Stop(kind TimerKind, msg string) {
	t.mu.Lock()
	start, ok := t.started[timerKey{kind, msg}]
	delete(t.started, timerKey{kind, msg})
	t.mu.Unlock()
	if !ok {
		return
	}
	t.log().Info("vecadd: timing", "kind", kind.String(), "msg", msg, "elapsed", time.Since(start))
}

// timed runs fn between Start and Stop.
func timed(t Timer, kind TimerKind, msg string, fn func() error) error {
	t.Start(kind, msg)
	defer t.Stop(kind, msg)
	return fn()
}
