package vecadd

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/vecadd/backend"
)

// Kernel argument positions.
const (
	argInput1 = iota
	argInput2
	argOutput
	argCount
)

// bindArguments binds the kernel's positional arguments: the two input
// buffers, the output buffer and the element count.
func bindArguments(k backend.Kernel, in1, in2, out backend.Buffer, n int32) error {
	bufs := [...]backend.Buffer{argInput1: in1, argInput2: in2, argOutput: out}
	for i, b := range bufs {
		if err := k.SetArgBuffer(i, b); err != nil {
			return fmt.Errorf("%w: argument %d: %w", ErrArgumentBindFailed, i, err)
		}
	}
	if err := k.SetArgInt32(argCount, n); err != nil {
		return fmt.Errorf("%w: argument %d: %w", ErrArgumentBindFailed, argCount, err)
	}
	return nil
}

// launchAndWait enqueues k over g and blocks until it completes.
// The completion event is pushed on rel before waiting.
func launchAndWait(ec *executionContext, k backend.Kernel, g backend.Geometry, rel *cleanup, log *slog.Logger) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrLaunchFailed, err)
	}
	log.Debug("vecadd: launching kernel",
		"kernel", k.Name(),
		"global", g.Global,
		"local", g.Local,
		"groups", g.Groups())

	ev, err := ec.queue.EnqueueKernel(k, g)
	if err != nil {
		return fmt.Errorf("%w: geometry %s: %w", ErrLaunchFailed, g, err)
	}
	rel.push("event", ev.Release)

	if err := ev.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitFailed, err)
	}
	return nil
}
