package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the Pure Go WebGPU backend (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
	// BackendOpenCL is the name of the OpenCL backend (cgo, build tag opencl).
	BackendOpenCL = "opencl"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrReleased is returned when a handle is used after Release.
	ErrReleased = errors.New("backend: handle already released")

	// ErrNoQueue is returned when device memory or programs are requested
	// from a context that has no command queue yet.
	ErrNoQueue = errors.New("backend: context has no command queue")

	// ErrForeignHandle is returned when a handle created by one backend
	// is passed to another.
	ErrForeignHandle = errors.New("backend: handle belongs to a different backend")
)

// Dialect identifies the kernel source language a platform compiles.
type Dialect uint8

const (
	// DialectWGSL is the WebGPU Shading Language.
	DialectWGSL Dialect = iota
	// DialectOpenCLC is OpenCL C.
	DialectOpenCLC
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectWGSL:
		return "wgsl"
	case DialectOpenCLC:
		return "opencl-c"
	default:
		return fmt.Sprintf("dialect(%d)", d)
	}
}

// Access is the device-side access mode of a buffer.
type Access uint8

const (
	// ReadOnly buffers are only read by kernels.
	ReadOnly Access = iota
	// WriteOnly buffers are only written by kernels.
	WriteOnly
)

// String returns the access mode name.
func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	default:
		return fmt.Sprintf("access(%d)", a)
	}
}

// BuildOptions control program compilation.
type BuildOptions struct {
	// FastMath permits fused multiply-add contraction.
	FastMath bool

	// WorkGroupSize is the local extent the kernel is launched with.
	// Backends whose kernels fix the work-group size at compile time
	// (WGSL) bake it into the module.
	WorkGroupSize int
}

// String renders the options as an OpenCL compiler flag string.
func (o BuildOptions) String() string {
	var flags []string
	if o.FastMath {
		flags = append(flags, "-cl-mad-enable")
	}
	return strings.Join(flags, " ")
}

// BuildError reports a program that failed to compile.
// Log holds the compiler diagnostics.
type BuildError struct {
	Log string
	Err error
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return fmt.Sprintf("backend: build failed: %v", e.Err)
	}
	return fmt.Sprintf("backend: build failed: %v\n%s", e.Err, e.Log)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Platform is a compute platform: one driver stack that can create contexts.
//
// Platforms are discovered through the registry (see Register and
// Platforms) and selected by index.
type Platform interface {
	// Name returns a human-readable platform name.
	Name() string

	// Dialect returns the kernel source language this platform compiles.
	Dialect() Dialect

	// CreateContext creates a context spanning every device the platform
	// exposes. It fails when the platform has no devices.
	CreateContext() (Context, error)
}

// Context owns all device-side entities of one pipeline run.
// Every Program, Buffer, Queue and Event created through it is invalid
// once Release has been called.
type Context interface {
	// Devices returns the devices bound to the context.
	Devices() ([]Device, error)

	// CreateQueue creates an in-order command queue on dev.
	CreateQueue(dev Device) (Queue, error)

	// CreateProgram creates an unbuilt program from kernel source text.
	CreateProgram(source string) (Program, error)

	// CreateBuffer allocates length float32 elements of device memory.
	// For ReadOnly buffers data is copied in the same call and must have
	// exactly length elements; for WriteOnly buffers data must be nil.
	CreateBuffer(access Access, length int, data []float32) (Buffer, error)

	// Release destroys the context.
	Release() error
}

// Device is one compute device bound to a context.
type Device interface {
	Name() string
}

// Queue is an in-order command queue.
type Queue interface {
	// EnqueueKernel launches k over a 1-D range and returns its
	// completion event. It does not wait.
	EnqueueKernel(k Kernel, g Geometry) (Event, error)

	// ReadBuffer copies the whole buffer into dst, blocking until the
	// transfer completes. len(dst) must equal the buffer length.
	ReadBuffer(b Buffer, dst []float32) error

	Release() error
}

// Program is compiled kernel source.
type Program interface {
	// Build compiles the program. A compilation failure is a *BuildError.
	Build(opts BuildOptions) error

	// CreateKernel extracts the named entry point of a built program.
	CreateKernel(entryPoint string) (Kernel, error)

	Release() error
}

// Kernel is an entry point with positional arguments.
type Kernel interface {
	Name() string
	SetArgBuffer(index int, b Buffer) error
	SetArgInt32(index int, v int32) error
	Release() error
}

// Buffer is a device-resident float32 array.
type Buffer interface {
	Access() Access
	// Len returns the number of float32 elements.
	Len() int
	Release() error
}

// Event signals completion of an enqueued command.
type Event interface {
	// Wait blocks until the command has finished executing.
	Wait() error
	Release() error
}
