package wgpu

import (
	"errors"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/vecadd/backend"
)

// Errors returned by the wgpu backend.
var (
	// ErrNoGPU is returned when no HAL backend is available on this host.
	ErrNoGPU = errors.New("wgpu: no GPU backend available")

	// ErrNoAdapters is returned when an instance exposes no adapters.
	ErrNoAdapters = errors.New("wgpu: no GPU adapters found")

	// ErrQueueExists is returned when a second queue is requested from a context.
	ErrQueueExists = errors.New("wgpu: context already has a queue")

	// ErrNotBuilt is returned when a kernel is requested from an unbuilt program.
	ErrNotBuilt = errors.New("wgpu: program not built")

	// ErrArgNotSet is returned when a kernel is launched with unbound arguments.
	ErrArgNotSet = errors.New("wgpu: kernel argument not set")

	// ErrBadArgument is returned for an argument index or value the kernel
	// contract does not accept.
	ErrBadArgument = errors.New("wgpu: invalid kernel argument")

	// ErrGeometry is returned when a launch geometry cannot be dispatched.
	ErrGeometry = errors.New("wgpu: unsupported launch geometry")

	// ErrTimeout is returned when the device drains without completing a submission.
	ErrTimeout = errors.New("wgpu: GPU did not signal completion")
)

// API creates HAL instances. hal.Backend values and noop.API satisfy it.
type API interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Platform is a backend.Platform over one HAL API.
type Platform struct {
	name string
	api  API
}

var _ backend.Platform = (*Platform)(nil)

// NewPlatform returns a platform creating its contexts from api.
func NewPlatform(name string, api API) *Platform {
	return &Platform{name: name, api: api}
}

func init() {
	backend.Register(backend.BackendWGPU, Platforms)
}

// Platforms is the registry factory: it returns the Vulkan platform if
// the HAL provides one.
func Platforms() ([]backend.Platform, error) {
	b, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoGPU
	}
	return []backend.Platform{NewPlatform("wgpu/vulkan", b)}, nil
}

// Name returns the platform name.
func (p *Platform) Name() string { return p.name }

// Dialect returns backend.DialectWGSL.
func (p *Platform) Dialect() backend.Dialect { return backend.DialectWGSL }

// SetLogger sets the logger for the wgpu backend.
func (p *Platform) SetLogger(l *slog.Logger) { setLogger(l) }

// CreateContext creates a HAL instance and enumerates its adapters.
// It fails with ErrNoAdapters if there are none.
func (p *Platform) CreateContext() (backend.Context, error) {
	instance, err := p.api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapters
	}
	c := &Context{instance: instance}
	for i := range adapters {
		c.devices = append(c.devices, &Device{ctx: c, index: i, adapter: adapters[i]})
	}
	slogger().Debug("wgpu: context created", "platform", p.name, "adapters", len(adapters))
	return c, nil
}
