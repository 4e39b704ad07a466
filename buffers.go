package vecadd

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/gogpu/vecadd/backend"
)

const float32Size = 4

// uploadReadOnly allocates a read-only device buffer sized to host and
// fills it in the same call.
func uploadReadOnly(ec *executionContext, name string, host []float32, rel *cleanup, log *slog.Logger) (backend.Buffer, error) {
	buf, err := ec.ctx.CreateBuffer(backend.ReadOnly, len(host), host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d elements): %w", ErrBufferAllocationFailed, name, len(host), err)
	}
	rel.push(name, buf.Release)
	log.Debug("vecadd: uploaded buffer",
		"buffer", name,
		"elements", len(host),
		"size", humanize.IBytes(uint64(len(host))*float32Size))
	return buf, nil
}

// allocateWriteOnly allocates an uninitialized write-only device buffer.
func allocateWriteOnly(ec *executionContext, name string, length int, rel *cleanup, log *slog.Logger) (backend.Buffer, error) {
	buf, err := ec.ctx.CreateBuffer(backend.WriteOnly, length, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%d elements): %w", ErrBufferAllocationFailed, name, length, err)
	}
	rel.push(name, buf.Release)
	log.Debug("vecadd: allocated buffer",
		"buffer", name,
		"elements", length,
		"size", humanize.IBytes(uint64(length)*float32Size))
	return buf, nil
}

// download copies buf into dst, blocking until the transfer completes.
func download(ec *executionContext, buf backend.Buffer, dst []float32) error {
	if err := ec.queue.ReadBuffer(buf, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrReadbackFailed, err)
	}
	return nil
}
