// Package backendtest provides an in-memory compute platform for tests.
//
// The fake platform executes the vadd kernel on the host, records every
// handle it creates and releases, and can be told to fail any operation.
// It is the backend of choice for testing pipeline sequencing and cleanup
// without a GPU.
package backendtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/vecadd/backend"
)

// Op names a fallible platform operation.
type Op string

// Fallible operations.
const (
	OpCreateContext Op = "create-context"
	OpDevices       Op = "devices"
	OpCreateQueue   Op = "create-queue"
	OpCreateProgram Op = "create-program"
	OpBuild         Op = "build"
	OpCreateKernel  Op = "create-kernel"
	OpCreateBuffer  Op = "create-buffer"
	OpSetArg        Op = "set-arg"
	OpEnqueue       Op = "enqueue"
	OpWait          Op = "wait"
	OpReadBuffer    Op = "read-buffer"
	// OpRelease fails a release; the handle stays live.
	OpRelease Op = "release"
)

// ErrInjected is the cause of every injected failure.
var ErrInjected = errors.New("backendtest: injected failure")

// BuildLog is the compiler diagnostic returned by an injected build failure.
const BuildLog = "<kernel>:1:1: error: injected build failure"

// Platform is an in-memory backend.Platform.
type Platform struct {
	mu        sync.Mutex
	name      string
	devices   []string
	failOn    map[Op]int
	calls     map[Op]int
	next      map[string]int
	created   []string
	released  []string
	live      map[string]bool
	doubles   int
	launches  []backend.Geometry
	buildOpts []backend.BuildOptions
	padding   int
}

// Option configures a Platform.
type Option func(*Platform)

// WithDevices sets the device names exposed by the platform.
// An empty list makes CreateContext fail like a platform without devices.
func WithDevices(names ...string) Option {
	return func(p *Platform) {
		p.devices = names
	}
}

// FailOn makes the nth call (1-based) of op fail with ErrInjected.
func FailOn(op Op, nth int) Option {
	return func(p *Platform) {
		p.failOn[op] = nth
	}
}

// NewPlatform creates a fake platform with one device.
func NewPlatform(name string, opts ...Option) *Platform {
	p := &Platform{
		name:    name,
		devices: []string{name + "-device0"},
		failOn:  make(map[Op]int),
		calls:   make(map[Op]int),
		next:    make(map[string]int),
		live:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Factory returns a backend.PlatformFactory exposing the given platforms.
func Factory(platforms ...*Platform) backend.PlatformFactory {
	return func() ([]backend.Platform, error) {
		out := make([]backend.Platform, len(platforms))
		for i, p := range platforms {
			out[i] = p
		}
		return out, nil
	}
}

func (p *Platform) Name() string             { return p.name }
func (p *Platform) Dialect() backend.Dialect { return backend.DialectOpenCLC }

// CreateContext implements backend.Platform.
func (p *Platform) CreateContext() (backend.Context, error) {
	if err := p.check(OpCreateContext); err != nil {
		return nil, err
	}
	if len(p.devices) == 0 {
		return nil, errors.New("backendtest: platform has no devices")
	}
	c := &fakeContext{p: p, id: p.acquire("context")}
	for _, name := range p.devices {
		c.devices = append(c.devices, fakeDevice(name))
	}
	return c, nil
}

// Created returns the ids of all created handles in creation order.
func (p *Platform) Created() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.created...)
}

// Released returns the ids of all released handles in release order.
func (p *Platform) Released() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.released...)
}

// Live returns the number of handles created but not released.
func (p *Platform) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// DoubleReleases returns how many times a handle was released twice.
func (p *Platform) DoubleReleases() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doubles
}

// Calls returns how many times op was attempted.
func (p *Platform) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// Launches returns the geometry of every kernel launch.
func (p *Platform) Launches() []backend.Geometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]backend.Geometry(nil), p.launches...)
}

// Builds returns the options of every successful program build.
func (p *Platform) Builds() []backend.BuildOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]backend.BuildOptions(nil), p.buildOpts...)
}

// PaddingAccesses returns how many work-items passed the kernel's index
// guard while lying past the end of a bound buffer. It stays zero as long as
// the element count argument matches the buffers.
func (p *Platform) PaddingAccesses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.padding
}

func (p *Platform) check(op Op) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[op]++
	if nth, ok := p.failOn[op]; ok && nth == p.calls[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (p *Platform) acquire(kind string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("%s#%d", kind, p.next[kind])
	p.next[kind]++
	p.created = append(p.created, id)
	p.live[id] = true
	return id
}

func (p *Platform) release(id string) error {
	if err := p.check(OpRelease); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live[id] {
		p.doubles++
		return fmt.Errorf("%s: %w", id, backend.ErrReleased)
	}
	delete(p.live, id)
	p.released = append(p.released, id)
	return nil
}

func (p *Platform) alive(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live[id] {
		return fmt.Errorf("%s: %w", id, backend.ErrReleased)
	}
	return nil
}

type fakeDevice string

func (d fakeDevice) Name() string { return string(d) }

type fakeContext struct {
	p       *Platform
	id      string
	devices []backend.Device
}

func (c *fakeContext) Devices() ([]backend.Device, error) {
	if err := c.p.check(OpDevices); err != nil {
		return nil, err
	}
	if err := c.p.alive(c.id); err != nil {
		return nil, err
	}
	return append([]backend.Device(nil), c.devices...), nil
}

func (c *fakeContext) CreateQueue(dev backend.Device) (backend.Queue, error) {
	if err := c.p.check(OpCreateQueue); err != nil {
		return nil, err
	}
	if _, ok := dev.(fakeDevice); !ok {
		return nil, backend.ErrForeignHandle
	}
	return &fakeQueue{p: c.p, id: c.p.acquire("queue")}, nil
}

func (c *fakeContext) CreateProgram(source string) (backend.Program, error) {
	if err := c.p.check(OpCreateProgram); err != nil {
		return nil, err
	}
	return &fakeProgram{p: c.p, id: c.p.acquire("program"), source: source}, nil
}

func (c *fakeContext) CreateBuffer(access backend.Access, length int, data []float32) (backend.Buffer, error) {
	if err := c.p.check(OpCreateBuffer); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("backendtest: invalid buffer length %d", length)
	}
	switch access {
	case backend.ReadOnly:
		if len(data) != length {
			return nil, fmt.Errorf("backendtest: host data has %d elements, want %d", len(data), length)
		}
	case backend.WriteOnly:
		if data != nil {
			return nil, errors.New("backendtest: write-only buffer with host data")
		}
	}
	b := &fakeBuffer{p: c.p, id: c.p.acquire("buffer"), access: access, data: make([]float32, length)}
	copy(b.data, data)
	return b, nil
}

func (c *fakeContext) Release() error { return c.p.release(c.id) }

type fakeProgram struct {
	p      *Platform
	id     string
	source string
	built  bool
}

func (pr *fakeProgram) Build(opts backend.BuildOptions) error {
	if err := pr.p.check(OpBuild); err != nil {
		return &backend.BuildError{Log: BuildLog, Err: err}
	}
	pr.built = true
	pr.p.mu.Lock()
	pr.p.buildOpts = append(pr.p.buildOpts, opts)
	pr.p.mu.Unlock()
	return nil
}

func (pr *fakeProgram) CreateKernel(entryPoint string) (backend.Kernel, error) {
	if err := pr.p.check(OpCreateKernel); err != nil {
		return nil, err
	}
	if !pr.built {
		return nil, errors.New("backendtest: program not built")
	}
	if !strings.Contains(pr.source, entryPoint) {
		return nil, fmt.Errorf("backendtest: no entry point %q in program", entryPoint)
	}
	return &fakeKernel{p: pr.p, id: pr.p.acquire("kernel"), name: entryPoint}, nil
}

func (pr *fakeProgram) Release() error { return pr.p.release(pr.id) }

type fakeKernel struct {
	p    *Platform
	id   string
	name string
	bufs [3]*fakeBuffer
	n    int32
	nSet bool
}

func (k *fakeKernel) Name() string { return k.name }

func (k *fakeKernel) SetArgBuffer(index int, b backend.Buffer) error {
	if err := k.p.check(OpSetArg); err != nil {
		return err
	}
	fb, ok := b.(*fakeBuffer)
	if !ok {
		return backend.ErrForeignHandle
	}
	if index < 0 || index >= len(k.bufs) {
		return fmt.Errorf("backendtest: argument %d is not a buffer", index)
	}
	k.bufs[index] = fb
	return nil
}

func (k *fakeKernel) SetArgInt32(index int, v int32) error {
	if err := k.p.check(OpSetArg); err != nil {
		return err
	}
	if index != 3 {
		return fmt.Errorf("backendtest: argument %d is not an int", index)
	}
	k.n = v
	k.nSet = true
	return nil
}

func (k *fakeKernel) Release() error { return k.p.release(k.id) }

type fakeBuffer struct {
	p      *Platform
	id     string
	access backend.Access
	data   []float32
}

func (b *fakeBuffer) Access() backend.Access { return b.access }
func (b *fakeBuffer) Len() int               { return len(b.data) }
func (b *fakeBuffer) Release() error         { return b.p.release(b.id) }

type fakeQueue struct {
	p  *Platform
	id string
}

func (q *fakeQueue) EnqueueKernel(k backend.Kernel, g backend.Geometry) (backend.Event, error) {
	if err := q.p.check(OpEnqueue); err != nil {
		return nil, err
	}
	fk, ok := k.(*fakeKernel)
	if !ok {
		return nil, backend.ErrForeignHandle
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for i, b := range fk.bufs {
		if b == nil {
			return nil, fmt.Errorf("backendtest: argument %d not set", i)
		}
		if err := q.p.alive(b.id); err != nil {
			return nil, err
		}
	}
	if !fk.nSet {
		return nil, errors.New("backendtest: argument 3 not set")
	}

	q.p.mu.Lock()
	q.p.launches = append(q.p.launches, g)
	q.p.mu.Unlock()

	a, b, out := fk.bufs[0].data, fk.bufs[1].data, fk.bufs[2].data
	n := int(fk.n)
	for id := 0; id < g.Global; id++ {
		if id >= n {
			continue
		}
		if id >= len(out) || id >= len(a) || id >= len(b) {
			q.p.mu.Lock()
			q.p.padding++
			q.p.mu.Unlock()
			continue
		}
		out[id] = a[id] + b[id]
	}
	return &fakeEvent{p: q.p, id: q.p.acquire("event")}, nil
}

func (q *fakeQueue) ReadBuffer(b backend.Buffer, dst []float32) error {
	if err := q.p.check(OpReadBuffer); err != nil {
		return err
	}
	fb, ok := b.(*fakeBuffer)
	if !ok {
		return backend.ErrForeignHandle
	}
	if err := q.p.alive(fb.id); err != nil {
		return err
	}
	if len(dst) != len(fb.data) {
		return fmt.Errorf("backendtest: read of %d elements from buffer of %d", len(dst), len(fb.data))
	}
	copy(dst, fb.data)
	return nil
}

func (q *fakeQueue) Release() error { return q.p.release(q.id) }

type fakeEvent struct {
	p  *Platform
	id string
}

func (e *fakeEvent) Wait() error    { return e.p.check(OpWait) }
func (e *fakeEvent) Release() error { return e.p.release(e.id) }
