package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vecadd/backend"
)

// Context owns a HAL instance and, once a queue exists, the logical
// device opened for it.
type Context struct {
	instance hal.Instance
	devices  []*Device
	queue    *Queue
	released bool
}

var _ backend.Context = (*Context)(nil)

// Device is one adapter of a context.
type Device struct {
	ctx     *Context
	index   int
	adapter hal.ExposedAdapter
}

// Name returns the adapter name.
func (d *Device) Name() string {
	if d.adapter.Info.Name == "" {
		return fmt.Sprintf("adapter %d", d.index)
	}
	return d.adapter.Info.Name
}

// Devices returns the context's adapters in enumeration order.
func (c *Context) Devices() ([]backend.Device, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	out := make([]backend.Device, len(c.devices))
	for i, d := range c.devices {
		out[i] = d
	}
	return out, nil
}

// CreateQueue opens dev and returns its queue. A context has at most one
// queue; every program and buffer lives on its device.
func (c *Context) CreateQueue(dev backend.Device) (backend.Queue, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	d, ok := dev.(*Device)
	if !ok || d.ctx != c {
		return nil, backend.ErrForeignHandle
	}
	if c.queue != nil {
		return nil, ErrQueueExists
	}
	openDev, err := d.adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("wgpu: open device %q: %w", d.Name(), err)
	}
	c.queue = &Queue{ctx: c, device: openDev.Device, queue: openDev.Queue}
	slogger().Info("wgpu: device opened", "adapter", d.Name(), "type", d.adapter.Info.DeviceType)
	return c.queue, nil
}

// CreateProgram stores WGSL source for a later Build.
func (c *Context) CreateProgram(source string) (backend.Program, error) {
	q, err := c.live()
	if err != nil {
		return nil, err
	}
	return &Program{q: q, source: source}, nil
}

// Release destroys the device if its queue was not released, then the instance.
func (c *Context) Release() error {
	if c.released {
		return backend.ErrReleased
	}
	c.released = true
	if c.queue != nil && !c.queue.released {
		c.queue.destroy()
	}
	c.instance.Destroy()
	return nil
}

// live returns the open queue, or an error if the context cannot create
// device objects.
func (c *Context) live() (*Queue, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	if c.queue == nil || c.queue.released {
		return nil, backend.ErrNoQueue
	}
	return c.queue, nil
}
