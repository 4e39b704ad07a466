package vecadd

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/vecadd/backend"
)

// executionContext groups the platform, context, primary device and
// command queue of one pipeline run. Every other device entity is
// created against it and released before it.
type executionContext struct {
	platform backend.Platform
	ctx      backend.Context
	devices  []backend.Device
	device   backend.Device
	queue    backend.Queue
}

// newExecutionContext creates the context, selects the queue device and
// creates the command queue. Each created handle is pushed on rel, so a
// failed sub-step leaves nothing behind once rel runs.
func newExecutionContext(p backend.Platform, deviceIndex int, rel *cleanup, log *slog.Logger) (*executionContext, error) {
	ec := &executionContext{platform: p}

	ctx, err := p.CreateContext()
	if err != nil {
		return nil, fmt.Errorf("%w: platform %q: %w", ErrContextCreationFailed, p.Name(), err)
	}
	rel.push("context", ctx.Release)
	ec.ctx = ctx

	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceQueryFailed, err)
	}
	if deviceIndex >= len(devices) {
		return nil, fmt.Errorf("%w: device index %d out of range (%d devices)",
			ErrDeviceQueryFailed, deviceIndex, len(devices))
	}
	ec.devices = devices
	ec.device = devices[deviceIndex]

	queue, err := ctx.CreateQueue(ec.device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %q: %w", ErrQueueCreationFailed, ec.device.Name(), err)
	}
	rel.push("queue", queue.Release)
	ec.queue = queue

	log.Info("vecadd: execution context ready",
		"platform", p.Name(),
		"device", ec.device.Name(),
		"devices", len(devices))
	return ec, nil
}
