package wgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vecadd/backend"
)

// maxWorkgroupsPerDimension is the WebGPU default limit on dispatch size.
const maxWorkgroupsPerDimension = 65535

// uniformSize is the size of the count uniform, padded to 16 bytes.
const uniformSize = 16

// Queue is the opened device and its queue.
type Queue struct {
	ctx      *Context
	device   hal.Device
	queue    hal.Queue
	released bool
}

var _ backend.Queue = (*Queue)(nil)

// Release destroys the device.
func (q *Queue) Release() error {
	if q.released {
		return backend.ErrReleased
	}
	q.destroy()
	return nil
}

func (q *Queue) destroy() {
	q.released = true
	q.device.Destroy()
}

// Kernel is a compute pipeline with its bound arguments.
type Kernel struct {
	program  *Program
	name     string
	pipeline hal.ComputePipeline
	bufs     [bindingCount]*Buffer
	count    hal.Buffer
	released bool
}

var _ backend.Kernel = (*Kernel)(nil)

// Name returns the entry point name.
func (k *Kernel) Name() string { return k.name }

// SetArgBuffer binds b at index 0, 1 or 2.
func (k *Kernel) SetArgBuffer(index int, b backend.Buffer) error {
	if k.released {
		return backend.ErrReleased
	}
	buf, ok := b.(*Buffer)
	if !ok || buf.q != k.program.q {
		return backend.ErrForeignHandle
	}
	if index < 0 || index >= len(k.bufs) {
		return fmt.Errorf("%w: index %d is not a buffer binding", ErrBadArgument, index)
	}
	k.bufs[index] = buf
	return nil
}

// SetArgInt32 binds the element count at index 3. It is uploaded as a
// u32 uniform.
func (k *Kernel) SetArgInt32(index int, v int32) error {
	if k.released {
		return backend.ErrReleased
	}
	if index != bindingCount {
		return fmt.Errorf("%w: index %d is not a scalar binding", ErrBadArgument, index)
	}
	if v < 0 {
		return fmt.Errorf("%w: negative count %d", ErrBadArgument, v)
	}
	dev := k.program.q.device
	count, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "vecadd_count",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create count uniform: %w", err)
	}
	var data [uniformSize]byte
	binary.LittleEndian.PutUint32(data[:], uint32(v))
	if err := k.program.q.queue.WriteBuffer(count, 0, data[:]); err != nil {
		dev.DestroyBuffer(count)
		return fmt.Errorf("wgpu: write count uniform: %w", err)
	}

	if k.count != nil {
		dev.DestroyBuffer(k.count)
	}
	k.count = count
	return nil
}

// Release destroys the pipeline and the count uniform.
func (k *Kernel) Release() error {
	if k.released {
		return backend.ErrReleased
	}
	k.released = true
	dev := k.program.q.device
	if k.count != nil {
		dev.DestroyBuffer(k.count)
	}
	dev.DestroyComputePipeline(k.pipeline)
	return nil
}

// Event is a submitted dispatch.
type Event struct {
	q         *Queue
	index     uint64
	cmdBuf    hal.CommandBuffer
	bindGroup hal.BindGroup
	released  bool
}

var _ backend.Event = (*Event)(nil)

// Wait blocks until the dispatch's submission has completed.
func (e *Event) Wait() error {
	if e.released {
		return backend.ErrReleased
	}
	return e.q.wait(e.index)
}

// Release frees the command buffer and the bind group.
func (e *Event) Release() error {
	if e.released {
		return backend.ErrReleased
	}
	e.released = true
	dev := e.q.device
	dev.FreeCommandBuffer(e.cmdBuf)
	dev.DestroyBindGroup(e.bindGroup)
	return nil
}

// EnqueueKernel records one compute pass dispatching g.Groups()
// work-groups and submits it. g.Local must equal the work-group size the
// program was built with.
func (q *Queue) EnqueueKernel(k backend.Kernel, g backend.Geometry) (backend.Event, error) {
	if q.released {
		return nil, backend.ErrReleased
	}
	kern, ok := k.(*Kernel)
	if !ok || kern.program.q != q {
		return nil, backend.ErrForeignHandle
	}
	if kern.released {
		return nil, backend.ErrReleased
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometry, err)
	}
	if g.Local != kern.program.wgSize {
		return nil, fmt.Errorf("%w: local extent %d, kernel built for %d", ErrGeometry, g.Local, kern.program.wgSize)
	}
	groups := g.Groups()
	gx, gy, err := dispatchSize(groups)
	if err != nil {
		return nil, err
	}
	for i, b := range kern.bufs {
		if b == nil {
			return nil, fmt.Errorf("%w: %d", ErrArgNotSet, i)
		}
		if b.released {
			return nil, fmt.Errorf("argument %d: %w", i, backend.ErrReleased)
		}
	}
	if kern.count == nil {
		return nil, fmt.Errorf("%w: %d", ErrArgNotSet, bindingCount)
	}

	bindGroup, err := q.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "vecadd_bg",
		Layout:  kern.program.bgLayout,
		Entries: bindGroupEntries(kern),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group: %w", err)
	}

	cmdBuf, err := q.encodeDispatch(kern, bindGroup, gx, gy)
	if err != nil {
		q.device.DestroyBindGroup(bindGroup)
		return nil, err
	}

	idx, err := q.submit(cmdBuf)
	if err != nil {
		q.device.FreeCommandBuffer(cmdBuf)
		q.device.DestroyBindGroup(bindGroup)
		return nil, err
	}

	slogger().Debug("wgpu: dispatched",
		"kernel", kern.name,
		"workgroups", groups,
		"grid", fmt.Sprintf("%dx%d", gx, gy),
		"work_group_size", g.Local)
	return &Event{q: q, index: idx, cmdBuf: cmdBuf, bindGroup: bindGroup}, nil
}

// dispatchSize folds groups into a grid of at most
// maxWorkgroupsPerDimension columns. Kernels linearize the invocation
// index over the grid; the surplus groups of the last row fall under the
// count guard.
func dispatchSize(groups int) (x, y uint32, err error) {
	if groups <= maxWorkgroupsPerDimension {
		return uint32(groups), 1, nil
	}
	rows := (groups + maxWorkgroupsPerDimension - 1) / maxWorkgroupsPerDimension
	if rows > maxWorkgroupsPerDimension {
		return 0, 0, fmt.Errorf("%w: %d work-groups exceeds %d", ErrGeometry,
			groups, maxWorkgroupsPerDimension*maxWorkgroupsPerDimension)
	}
	return maxWorkgroupsPerDimension, uint32(rows), nil
}

func (q *Queue) encodeDispatch(k *Kernel, bg hal.BindGroup, x, y uint32) (hal.CommandBuffer, error) {
	encoder, err := q.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "vecadd_dispatch"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vecadd_dispatch"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "vecadd_" + k.name})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return cmdBuf, nil
}

// submit submits cmdBuf and returns its submission index.
func (q *Queue) submit(cmdBuf hal.CommandBuffer) (uint64, error) {
	idx, err := q.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return 0, fmt.Errorf("wgpu: submit: %w", err)
	}
	return idx, nil
}

// wait blocks until submission idx has completed. The device is drained,
// so the wait has no timeout.
func (q *Queue) wait(idx uint64) error {
	if err := q.device.WaitIdle(); err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if done := q.queue.PollCompleted(); done < idx {
		return fmt.Errorf("%w: submission %d, completed %d", ErrTimeout, idx, done)
	}
	return nil
}

func bindGroupEntries(k *Kernel) []gputypes.BindGroupEntry {
	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}
	return []gputypes.BindGroupEntry{
		entry(bindingInput1, k.bufs[bindingInput1].buf),
		entry(bindingInput2, k.bufs[bindingInput2].buf),
		entry(bindingOutput, k.bufs[bindingOutput].buf),
		entry(bindingCount, k.count),
	}
}
