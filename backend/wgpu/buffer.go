package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vecadd/backend"
)

// Buffer is a storage buffer of float32 elements.
type Buffer struct {
	q        *Queue
	buf      hal.Buffer
	access   backend.Access
	length   int
	released bool
}

var _ backend.Buffer = (*Buffer)(nil)

// CreateBuffer allocates a storage buffer. Read-only buffers are filled
// with data through the queue before CreateBuffer returns.
func (c *Context) CreateBuffer(access backend.Access, length int, data []float32) (backend.Buffer, error) {
	q, err := c.live()
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("wgpu: invalid buffer length %d", length)
	}

	var usage gputypes.BufferUsage
	switch access {
	case backend.ReadOnly:
		if len(data) != length {
			return nil, fmt.Errorf("wgpu: host data has %d elements, want %d", len(data), length)
		}
		usage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	case backend.WriteOnly:
		if data != nil {
			return nil, fmt.Errorf("wgpu: write-only buffer created with host data")
		}
		usage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc
	default:
		return nil, fmt.Errorf("wgpu: unknown access mode %v", access)
	}

	buf, err := q.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vecadd_" + access.String(),
		Size:  uint64(length) * 4,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer: %w", err)
	}
	if access == backend.ReadOnly {
		if err := q.queue.WriteBuffer(buf, 0, encodeFloats(data)); err != nil {
			q.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("wgpu: upload: %w", err)
		}
	}
	return &Buffer{q: q, buf: buf, access: access, length: length}, nil
}

// Access returns the buffer's access mode.
func (b *Buffer) Access() backend.Access { return b.access }

// Len returns the number of float32 elements.
func (b *Buffer) Len() int { return b.length }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return uint64(b.length) * 4 }

// Release destroys the buffer.
func (b *Buffer) Release() error {
	if b.released {
		return backend.ErrReleased
	}
	b.released = true
	b.q.device.DestroyBuffer(b.buf)
	return nil
}

// ReadBuffer copies b into dst through a staging buffer and blocks until
// the copy has completed.
func (q *Queue) ReadBuffer(b backend.Buffer, dst []float32) error {
	if q.released {
		return backend.ErrReleased
	}
	buf, ok := b.(*Buffer)
	if !ok || buf.q != q {
		return backend.ErrForeignHandle
	}
	if buf.released {
		return backend.ErrReleased
	}
	if len(dst) != buf.length {
		return fmt.Errorf("wgpu: read of %d elements from buffer of %d", len(dst), buf.length)
	}

	staging, err := q.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "vecadd_staging",
		Size:  buf.Size(),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer q.device.DestroyBuffer(staging)

	encoder, err := q.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "vecadd_readback"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("vecadd_readback"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(buf.buf, staging, []hal.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      buf.Size(),
	}})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer q.device.FreeCommandBuffer(cmdBuf)

	idx, err := q.submit(cmdBuf)
	if err != nil {
		return err
	}
	if err := q.wait(idx); err != nil {
		return err
	}

	mapping, err := q.device.MapBuffer(staging, 0, buf.Size())
	if err != nil {
		return fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), buf.Size())
	decodeFloats(raw, dst)
	if err := q.device.UnmapBuffer(staging); err != nil {
		return fmt.Errorf("wgpu: unmap staging buffer: %w", err)
	}
	return nil
}

// encodeFloats returns v as little-endian bytes.
func encodeFloats(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// decodeFloats fills dst from little-endian bytes.
func decodeFloats(raw []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
}
