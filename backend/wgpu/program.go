package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vecadd/backend"
)

// workGroupSizeToken is replaced with the configured work-group size.
const workGroupSizeToken = "WORKGROUP_SIZE"

// Binding slots of the kernel contract.
const (
	bindingInput1 = iota
	bindingInput2
	bindingOutput
	bindingCount
)

// Program is a WGSL module compiled for the context's device.
type Program struct {
	q        *Queue
	source   string
	wgSize   int
	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	plLayout hal.PipelineLayout
	released bool
}

var _ backend.Program = (*Program)(nil)

// Build compiles the source to SPIR-V and creates the shader module and
// layouts. A naga failure is a *backend.BuildError whose Log is the
// compiler message.
func (p *Program) Build(opts backend.BuildOptions) error {
	if p.released {
		return backend.ErrReleased
	}
	if p.module != nil {
		return errors.New("wgpu: program already built")
	}
	wg := opts.WorkGroupSize
	if wg <= 0 {
		wg = backend.DefaultWorkGroupSize
	}

	src := strings.ReplaceAll(p.source, workGroupSizeToken, strconv.Itoa(wg))
	spirv, err := compileWGSL(src)
	if err != nil {
		return &backend.BuildError{Log: err.Error(), Err: errors.New("wgpu: WGSL compilation failed")}
	}

	dev := p.q.device
	module, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "vecadd_kernel",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module: %w", err)
	}

	bgLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "vecadd_bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		dev.DestroyShaderModule(module)
		return fmt.Errorf("wgpu: create bind group layout: %w", err)
	}

	plLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "vecadd_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		dev.DestroyBindGroupLayout(bgLayout)
		dev.DestroyShaderModule(module)
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	p.module, p.bgLayout, p.plLayout, p.wgSize = module, bgLayout, plLayout, wg
	if opts.FastMath {
		slogger().Debug("wgpu: fast-math has no WGSL equivalent, ignored")
	}
	slogger().Debug("wgpu: program built", "spirv_words", len(spirv), "work_group_size", wg)
	return nil
}

// CreateKernel creates the compute pipeline for entryPoint.
func (p *Program) CreateKernel(entryPoint string) (backend.Kernel, error) {
	if p.released {
		return nil, backend.ErrReleased
	}
	if p.module == nil {
		return nil, ErrNotBuilt
	}
	pipeline, err := p.q.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "vecadd_" + entryPoint,
		Layout: p.plLayout,
		Compute: hal.ComputeState{
			Module:     p.module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create compute pipeline %q: %w", entryPoint, err)
	}
	return &Kernel{program: p, name: entryPoint, pipeline: pipeline}, nil
}

// Release destroys the layouts and the shader module.
func (p *Program) Release() error {
	if p.released {
		return backend.ErrReleased
	}
	p.released = true
	if p.module == nil {
		return nil
	}
	dev := p.q.device
	dev.DestroyPipelineLayout(p.plLayout)
	dev.DestroyBindGroupLayout(p.bgLayout)
	dev.DestroyShaderModule(p.module)
	return nil
}

func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	layout := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	return []gputypes.BindGroupLayoutEntry{
		layout(bindingInput1, gputypes.BufferBindingTypeReadOnlyStorage),
		layout(bindingInput2, gputypes.BufferBindingTypeReadOnlyStorage),
		layout(bindingOutput, gputypes.BufferBindingTypeStorage),
		layout(bindingCount, gputypes.BufferBindingTypeUniform),
	}
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
