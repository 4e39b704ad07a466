package vecadd

import (
	"errors"
	"testing"

	"github.com/gogpu/vecadd/backend"
	"github.com/gogpu/vecadd/backend/backendtest"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.PlatformIndex != 0 {
		t.Errorf("PlatformIndex = %d, want 0", c.PlatformIndex)
	}
	if c.DeviceIndex != 0 {
		t.Errorf("DeviceIndex = %d, want 0", c.DeviceIndex)
	}
	if c.WorkGroupSize != 256 {
		t.Errorf("WorkGroupSize = %d, want 256", c.WorkGroupSize)
	}
	if c.EntryPoint != "vadd" {
		t.Errorf("EntryPoint = %q, want %q", c.EntryPoint, "vadd")
	}
	if !c.FastMath {
		t.Error("FastMath = false, want true")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero work-group", func(c *Config) { c.WorkGroupSize = 0 }},
		{"negative work-group", func(c *Config) { c.WorkGroupSize = -1 }},
		{"negative platform", func(c *Config) { c.PlatformIndex = -1 }},
		{"negative device", func(c *Config) { c.DeviceIndex = -2 }},
		{"empty entry point", func(c *Config) { c.EntryPoint = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	p, err := New(WithWorkGroupSize(0))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
	if p != nil {
		t.Error("New() returned a pipeline for an invalid config")
	}
}

func TestOptionsApply(t *testing.T) {
	fake := backendtest.NewPlatform("fake")
	timer := nopTimer{}

	p, err := New(
		WithPlatforms(fake),
		WithPlatformIndex(0),
		WithDeviceIndex(1),
		WithWorkGroupSize(64),
		WithEntryPoint("add"),
		WithFastMath(false),
		WithTimer(timer),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	c := p.Config()
	if c.DeviceIndex != 1 || c.WorkGroupSize != 64 || c.EntryPoint != "add" || c.FastMath {
		t.Errorf("Config() = %+v, want device 1, work-group 64, entry add, no fast math", c)
	}
	if len(p.opts.platforms) != 1 || p.opts.platforms[0] != fake {
		t.Error("WithPlatforms did not inject the platform")
	}
	if p.timer != timer {
		t.Error("WithTimer did not set the timer")
	}
}

func TestNewDefaultsTimer(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if p.timer == nil {
		t.Error("New() left the timer nil")
	}
	if p.State() != StateInit {
		t.Errorf("State() = %v, want %v", p.State(), StateInit)
	}
}

func TestWithBuildOptions(t *testing.T) {
	p, err := New(WithBuildOptions(backend.BuildOptions{FastMath: false, WorkGroupSize: 128}))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if got := p.Config().buildOptions(); got.FastMath || got.WorkGroupSize != 128 {
		t.Errorf("buildOptions() = %+v, want {FastMath:false WorkGroupSize:128}", got)
	}

	p, err = New(WithWorkGroupSize(32), WithBuildOptions(backend.BuildOptions{FastMath: true}))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if got := p.Config().WorkGroupSize; got != 32 {
		t.Errorf("WorkGroupSize = %d, want 32 (zero in BuildOptions keeps it)", got)
	}
}

func TestWithKernelSourceDoesNotAlias(t *testing.T) {
	base := DefaultConfig()
	base.Sources = map[backend.Dialect]string{backend.DialectWGSL: "wgsl"}

	p, err := New(WithConfig(base), WithKernelSource(backend.DialectOpenCLC, "cl"))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if _, ok := base.Sources[backend.DialectOpenCLC]; ok {
		t.Error("WithKernelSource mutated the caller's map")
	}
	c := p.Config()
	if c.sourceFor(backend.DialectOpenCLC) != "cl" || c.sourceFor(backend.DialectWGSL) != "wgsl" {
		t.Errorf("Sources = %v, want both overrides", c.Sources)
	}
}

func TestKernelSource(t *testing.T) {
	for _, d := range []backend.Dialect{backend.DialectOpenCLC, backend.DialectWGSL} {
		src := KernelSource(d)
		if src == "" {
			t.Errorf("KernelSource(%v) is empty", d)
			continue
		}
		if !containsAll(src, DefaultEntryPoint, "a[i] + b[i]") {
			t.Errorf("KernelSource(%v) does not define the %s kernel", d, DefaultEntryPoint)
		}
	}
	if src := KernelSource(backend.Dialect(99)); src != "" {
		t.Errorf("KernelSource(unknown) = %q, want empty", src)
	}
}
