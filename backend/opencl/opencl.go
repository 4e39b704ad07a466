//go:build opencl

package opencl

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jgillich/go-opencl/cl"

	"github.com/gogpu/vecadd/backend"
)

// ErrNoDevices is returned for a platform without devices.
var ErrNoDevices = errors.New("opencl: platform has no devices")

func init() {
	backend.Register(backend.BackendOpenCL, Platforms)
}

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// Platforms is the registry factory: one Platform per OpenCL platform.
func Platforms() ([]backend.Platform, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("opencl: get platforms: %w", err)
	}
	out := make([]backend.Platform, len(platforms))
	for i, p := range platforms {
		out[i] = &Platform{p: p}
	}
	return out, nil
}

// Platform is one OpenCL platform.
type Platform struct {
	p *cl.Platform
}

var _ backend.Platform = (*Platform)(nil)

func (p *Platform) Name() string             { return p.p.Name() }
func (p *Platform) Dialect() backend.Dialect { return backend.DialectOpenCLC }

// SetLogger sets the logger for the opencl backend.
func (p *Platform) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}

// CreateContext creates a context over every device of the platform.
func (p *Platform) CreateContext() (backend.Context, error) {
	devices, err := p.p.GetDevices(cl.DeviceTypeAll)
	if err != nil && !errors.Is(err, cl.ErrDeviceNotFound) {
		return nil, fmt.Errorf("opencl: get devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	ctx, err := cl.CreateContext(devices)
	if err != nil {
		return nil, fmt.Errorf("opencl: create context: %w", err)
	}
	slogger().Debug("opencl: context created", "platform", p.p.Name(), "devices", len(devices))
	return &Context{ctx: ctx, devices: devices}, nil
}

// Context wraps a cl.Context and, once created, its command queue.
type Context struct {
	ctx      *cl.Context
	devices  []*cl.Device
	queue    *Queue
	released bool
}

var _ backend.Context = (*Context)(nil)

// Device is one OpenCL device.
type Device struct {
	d *cl.Device
}

func (d Device) Name() string { return d.d.Name() }

// Devices returns the context's devices.
func (c *Context) Devices() ([]backend.Device, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	out := make([]backend.Device, len(c.devices))
	for i, d := range c.devices {
		out[i] = Device{d: d}
	}
	return out, nil
}

// CreateQueue creates an in-order command queue on dev.
func (c *Context) CreateQueue(dev backend.Device) (backend.Queue, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	d, ok := dev.(Device)
	if !ok {
		return nil, backend.ErrForeignHandle
	}
	q, err := c.ctx.CreateCommandQueue(d.d, 0)
	if err != nil {
		return nil, fmt.Errorf("opencl: create command queue: %w", err)
	}
	c.queue = &Queue{q: q}
	return c.queue, nil
}

// CreateProgram creates a program from OpenCL C source.
func (c *Context) CreateProgram(source string) (backend.Program, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	p, err := c.ctx.CreateProgramWithSource([]string{source})
	if err != nil {
		return nil, fmt.Errorf("opencl: create program: %w", err)
	}
	return &Program{p: p, devices: c.devices}, nil
}

// CreateBuffer allocates device memory. Read-only buffers are written with
// a blocking transfer on the context's queue before CreateBuffer returns.
func (c *Context) CreateBuffer(access backend.Access, length int, data []float32) (backend.Buffer, error) {
	if c.released {
		return nil, backend.ErrReleased
	}
	if c.queue == nil || c.queue.released {
		return nil, backend.ErrNoQueue
	}
	if length <= 0 {
		return nil, fmt.Errorf("opencl: invalid buffer length %d", length)
	}
	flags := cl.MemWriteOnly
	if access == backend.ReadOnly {
		if len(data) != length {
			return nil, fmt.Errorf("opencl: host data has %d elements, want %d", len(data), length)
		}
		flags = cl.MemReadOnly
	}
	mem, err := c.ctx.CreateEmptyBuffer(flags, length*4)
	if err != nil {
		return nil, fmt.Errorf("opencl: create buffer: %w", err)
	}
	if access == backend.ReadOnly {
		if _, err := c.queue.q.EnqueueWriteBufferFloat32(mem, true, 0, data, nil); err != nil {
			mem.Release()
			return nil, fmt.Errorf("opencl: write buffer: %w", err)
		}
	}
	return &Buffer{mem: mem, access: access, length: length}, nil
}

// Release releases the context.
func (c *Context) Release() error {
	if c.released {
		return backend.ErrReleased
	}
	c.released = true
	c.ctx.Release()
	return nil
}

// Queue wraps a cl.CommandQueue.
type Queue struct {
	q        *cl.CommandQueue
	released bool
}

var _ backend.Queue = (*Queue)(nil)

// EnqueueKernel enqueues k over a 1-D NDRange.
func (q *Queue) EnqueueKernel(k backend.Kernel, g backend.Geometry) (backend.Event, error) {
	if q.released {
		return nil, backend.ErrReleased
	}
	kern, ok := k.(*Kernel)
	if !ok {
		return nil, backend.ErrForeignHandle
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	ev, err := q.q.EnqueueNDRangeKernel(kern.k, nil, []int{g.Global}, []int{g.Local}, nil)
	if err != nil {
		return nil, fmt.Errorf("opencl: enqueue kernel: %w", err)
	}
	slogger().Debug("opencl: kernel enqueued", "kernel", kern.name, "global", g.Global, "local", g.Local)
	return &Event{e: ev}, nil
}

// ReadBuffer performs a blocking read of b into dst.
func (q *Queue) ReadBuffer(b backend.Buffer, dst []float32) error {
	if q.released {
		return backend.ErrReleased
	}
	buf, ok := b.(*Buffer)
	if !ok {
		return backend.ErrForeignHandle
	}
	if buf.released {
		return backend.ErrReleased
	}
	if len(dst) != buf.length {
		return fmt.Errorf("opencl: read of %d elements from buffer of %d", len(dst), buf.length)
	}
	if _, err := q.q.EnqueueReadBufferFloat32(buf.mem, true, 0, dst, nil); err != nil {
		return fmt.Errorf("opencl: read buffer: %w", err)
	}
	return nil
}

// Release releases the command queue.
func (q *Queue) Release() error {
	if q.released {
		return backend.ErrReleased
	}
	q.released = true
	q.q.Release()
	return nil
}

// Program wraps a cl.Program.
type Program struct {
	p        *cl.Program
	devices  []*cl.Device
	built    bool
	released bool
}

var _ backend.Program = (*Program)(nil)

// Build builds the program for every device of the context. A compiler
// failure is a *backend.BuildError carrying the build log.
func (p *Program) Build(opts backend.BuildOptions) error {
	if p.released {
		return backend.ErrReleased
	}
	if err := p.p.BuildProgram(p.devices, opts.String()); err != nil {
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return &backend.BuildError{Log: string(buildErr), Err: errors.New("opencl: build program failed")}
		}
		return fmt.Errorf("opencl: build program: %w", err)
	}
	p.built = true
	return nil
}

// CreateKernel extracts the named kernel.
func (p *Program) CreateKernel(entryPoint string) (backend.Kernel, error) {
	if p.released {
		return nil, backend.ErrReleased
	}
	k, err := p.p.CreateKernel(entryPoint)
	if err != nil {
		return nil, fmt.Errorf("opencl: create kernel %q: %w", entryPoint, err)
	}
	return &Kernel{k: k, name: entryPoint}, nil
}

// Release releases the program.
func (p *Program) Release() error {
	if p.released {
		return backend.ErrReleased
	}
	p.released = true
	p.p.Release()
	return nil
}

// Kernel wraps a cl.Kernel.
type Kernel struct {
	k        *cl.Kernel
	name     string
	released bool
}

var _ backend.Kernel = (*Kernel)(nil)

func (k *Kernel) Name() string { return k.name }

// SetArgBuffer binds a buffer argument.
func (k *Kernel) SetArgBuffer(index int, b backend.Buffer) error {
	buf, ok := b.(*Buffer)
	if !ok {
		return backend.ErrForeignHandle
	}
	return k.k.SetArgBuffer(index, buf.mem)
}

// SetArgInt32 binds an int argument.
func (k *Kernel) SetArgInt32(index int, v int32) error {
	return k.k.SetArgInt32(index, v)
}

// Release releases the kernel.
func (k *Kernel) Release() error {
	if k.released {
		return backend.ErrReleased
	}
	k.released = true
	k.k.Release()
	return nil
}

// Buffer wraps a cl.MemObject of float32 elements.
type Buffer struct {
	mem      *cl.MemObject
	access   backend.Access
	length   int
	released bool
}

var _ backend.Buffer = (*Buffer)(nil)

func (b *Buffer) Access() backend.Access { return b.access }
func (b *Buffer) Len() int               { return b.length }

// Release releases the memory object.
func (b *Buffer) Release() error {
	if b.released {
		return backend.ErrReleased
	}
	b.released = true
	b.mem.Release()
	return nil
}

// Event wraps a cl.Event.
type Event struct {
	e        *cl.Event
	released bool
}

var _ backend.Event = (*Event)(nil)

// Wait blocks until the event completes.
func (e *Event) Wait() error {
	if e.released {
		return backend.ErrReleased
	}
	return cl.WaitForEvents([]*cl.Event{e.e})
}

// Release releases the event.
func (e *Event) Release() error {
	if e.released {
		return backend.ErrReleased
	}
	e.released = true
	e.e.Release()
	return nil
}
