// Package vecadd adds float32 vectors on a compute accelerator.
//
// # Overview
//
// vecadd is a host-orchestrated data-parallel pipeline. One run discovers
// a compute platform, creates a private execution context, compiles the
// vector-addition kernel at runtime, uploads two input arrays, launches
// the kernel over a 1-D index space, reads the result back and releases
// every device resource.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/vecadd"
//	    _ "github.com/gogpu/vecadd/backend/wgpu" // register the WebGPU backend
//	)
//
//	out, err := vecadd.Run([]float32{1, 2, 3}, []float32{10, 20, 30})
//	// out == [11 22 33]
//
// # Pipeline
//
// A run moves through the states of State:
//
//	Init -> ContextReady -> ProgramReady -> BuffersUploaded -> Dispatched -> ResultsReady -> Torndown
//
// The first failing operation aborts the run. Every resource created up to
// that point is released in reverse creation order, the run ends in
// StateFailed and the returned error wraps one of ErrNoPlatformAvailable,
// ErrContextCreationFailed, ErrDeviceQueryFailed, ErrQueueCreationFailed,
// ErrCompilationFailed, ErrBufferAllocationFailed, ErrArgumentBindFailed,
// ErrLaunchFailed, ErrWaitFailed or ErrReadbackFailed.
//
// There is no retry, no CPU fallback and no timeout. The host blocks
// while the kernel runs and while results are copied back.
//
// # Backends
//
// Platforms come from the backend registry (package backend). The wgpu
// backend is Pure Go and compiles WGSL; the opencl backend needs cgo and
// the opencl build tag. Platform 0 and device 0 are used unless
// configured otherwise.
//
// # Logging
//
// vecadd is silent by default. See SetLogger.
package vecadd
