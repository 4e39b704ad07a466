package vecadd

import (
	"errors"
	"fmt"
)

// Pipeline errors. Every failure returned by Run wraps exactly one of these,
// together with the backend error that caused it.
var (
	// ErrNoPlatformAvailable is returned when no compute platform is
	// registered or the configured platform index does not exist.
	ErrNoPlatformAvailable = errors.New("vecadd: no compute platform available")

	// ErrContextCreationFailed is returned when the platform rejects
	// context creation or exposes no devices.
	ErrContextCreationFailed = errors.New("vecadd: context creation failed")

	// ErrDeviceQueryFailed is returned when the context's device list
	// cannot be retrieved or the configured device does not exist.
	ErrDeviceQueryFailed = errors.New("vecadd: device query failed")

	// ErrQueueCreationFailed is returned when the command queue cannot be created.
	ErrQueueCreationFailed = errors.New("vecadd: command queue creation failed")

	// ErrCompilationFailed is returned when the kernel does not build or
	// its entry point cannot be extracted. See CompileError.
	ErrCompilationFailed = errors.New("vecadd: kernel compilation failed")

	// ErrBufferAllocationFailed is returned when device memory cannot be
	// allocated or filled.
	ErrBufferAllocationFailed = errors.New("vecadd: buffer allocation failed")

	// ErrArgumentBindFailed is returned when a kernel argument cannot be set.
	ErrArgumentBindFailed = errors.New("vecadd: kernel argument bind failed")

	// ErrLaunchFailed is returned when the device rejects the kernel launch.
	ErrLaunchFailed = errors.New("vecadd: kernel launch failed")

	// ErrWaitFailed is returned when the device reports a fault while the
	// host waits for kernel completion.
	ErrWaitFailed = errors.New("vecadd: waiting for kernel completion failed")

	// ErrReadbackFailed is returned when results cannot be copied back to the host.
	ErrReadbackFailed = errors.New("vecadd: result readback failed")
)

// Precondition errors, reported before any device interaction.
var (
	// ErrEmptyInput is returned for zero-length inputs.
	ErrEmptyInput = errors.New("vecadd: input arrays are empty")

	// ErrLengthMismatch is returned when the two inputs differ in length.
	ErrLengthMismatch = errors.New("vecadd: input arrays differ in length")

	// ErrInputTooLarge is returned when the element count does not fit the
	// kernel's int argument.
	ErrInputTooLarge = errors.New("vecadd: input arrays are too large")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("vecadd: invalid configuration")
)

// CompileError reports a kernel that failed to build.
// It matches ErrCompilationFailed with errors.Is.
type CompileError struct {
	// EntryPoint is the kernel entry point that was requested.
	EntryPoint string
	// Log is the compiler diagnostic output, if the backend provided one.
	Log string
	// Err is the backend error.
	Err error
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%v (entry point %q): %v", ErrCompilationFailed, e.EntryPoint, e.Err)
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

// Unwrap returns both the error kind and the backend cause.
func (e *CompileError) Unwrap() []error {
	return []error{ErrCompilationFailed, e.Err}
}
