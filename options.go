package vecadd

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/vecadd/backend"
)

// Config holds the policy choices of a pipeline run.
// The zero value is not valid; start from DefaultConfig.
type Config struct {
	// PlatformIndex selects the platform among the enumerated ones.
	// Default 0: the first available platform is authoritative.
	PlatformIndex int

	// DeviceIndex selects the queue device among the context's devices.
	// Default 0.
	DeviceIndex int

	// WorkGroupSize is the local extent of the launch. Default 256.
	WorkGroupSize int

	// EntryPoint is the kernel function to extract. Default "vadd".
	EntryPoint string

	// FastMath builds the kernel with fused multiply-add enabled.
	// Default true.
	FastMath bool

	// Sources overrides the built-in kernel source per dialect.
	Sources map[backend.Dialect]string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PlatformIndex: 0,
		DeviceIndex:   0,
		WorkGroupSize: backend.DefaultWorkGroupSize,
		EntryPoint:    DefaultEntryPoint,
		FastMath:      true,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch {
	case c.WorkGroupSize <= 0:
		return fmt.Errorf("%w: work-group size %d", ErrInvalidConfig, c.WorkGroupSize)
	case c.PlatformIndex < 0:
		return fmt.Errorf("%w: platform index %d", ErrInvalidConfig, c.PlatformIndex)
	case c.DeviceIndex < 0:
		return fmt.Errorf("%w: device index %d", ErrInvalidConfig, c.DeviceIndex)
	case c.EntryPoint == "":
		return fmt.Errorf("%w: empty entry point", ErrInvalidConfig)
	}
	return nil
}

// buildOptions returns the compiler options for this configuration.
func (c Config) buildOptions() backend.BuildOptions {
	return backend.BuildOptions{
		FastMath:      c.FastMath,
		WorkGroupSize: c.WorkGroupSize,
	}
}

// Option configures a Pipeline during creation.
// Use functional options to customize Pipeline behavior.
//
// Example:
//
//	// Defaults: platform 0, device 0, work-groups of 256
//	p, err := vecadd.New()
//
//	// Smaller work-groups on the second platform
//	p, err := vecadd.New(vecadd.WithPlatformIndex(1), vecadd.WithWorkGroupSize(64))
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	config    Config
	platforms []backend.Platform
	timer     Timer
	logger    *slog.Logger

	// injected is set by WithPlatforms, also when it names no platform.
	injected bool
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{
		config:    DefaultConfig(),
		platforms: nil, // Enumerated from the backend registry unless injected
		timer:     nil, // Will be set to a logging timer if nil
	}
}

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithPlatforms sets the platforms to enumerate instead of the backend
// registry. Use this for dependency injection of test platforms.
// Calling it with no platforms makes every Run fail with
// ErrNoPlatformAvailable; the registry is not consulted.
func WithPlatforms(platforms ...backend.Platform) Option {
	return func(o *options) {
		o.platforms = platforms
		o.injected = true
	}
}

// WithPlatformIndex selects the platform by index.
func WithPlatformIndex(i int) Option {
	return func(o *options) {
		o.config.PlatformIndex = i
	}
}

// WithDeviceIndex selects the queue device by index.
func WithDeviceIndex(i int) Option {
	return func(o *options) {
		o.config.DeviceIndex = i
	}
}

// WithWorkGroupSize sets the local extent of the launch.
func WithWorkGroupSize(n int) Option {
	return func(o *options) {
		o.config.WorkGroupSize = n
	}
}

// WithEntryPoint sets the kernel entry point name.
func WithEntryPoint(name string) Option {
	return func(o *options) {
		o.config.EntryPoint = name
	}
}

// WithFastMath enables or disables fused multiply-add in the kernel build.
func WithFastMath(enabled bool) Option {
	return func(o *options) {
		o.config.FastMath = enabled
	}
}

// WithKernelSource overrides the kernel source compiled for one dialect.
func WithKernelSource(d backend.Dialect, source string) Option {
	return func(o *options) {
		sources := make(map[backend.Dialect]string, len(o.config.Sources)+1)
		for k, v := range o.config.Sources {
			sources[k] = v
		}
		sources[d] = source
		o.config.Sources = sources
	}
}

// WithTimer sets the collaborator receiving timing events.
func WithTimer(t Timer) Option {
	return func(o *options) {
		o.timer = t
	}
}

// WithLogger sets a logger for this pipeline only, overriding Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithBuildOptions sets the kernel build options. A positive
// WorkGroupSize in o also sets the launch work-group size, since the two
// must agree.
func WithBuildOptions(o backend.BuildOptions) Option {
	return func(opts *options) {
		opts.config.FastMath = o.FastMath
		if o.WorkGroupSize > 0 {
			opts.config.WorkGroupSize = o.WorkGroupSize
		}
	}
}
