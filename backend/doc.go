// Package backend provides a pluggable compute device abstraction.
//
// The backend package lets the vecadd pipeline drive different accelerator
// APIs through one set of small interfaces: Platform, Context, Device,
// Queue, Program, Kernel, Buffer and Event. Their shape follows the OpenCL
// object model (platform -> context -> queue, program -> kernel), which the
// WebGPU backend maps onto HAL instances, devices and compute pipelines.
//
// # Backend Registration
//
// Backends are registered via init() functions and discovered at runtime:
//
//	import _ "github.com/gogpu/vecadd/backend/wgpu"
//
// The OpenCL backend needs cgo and an ICD loader and is only compiled with
// the opencl build tag:
//
//	go build -tags opencl ./cmd/vecadd
//
// # Platform Enumeration
//
// Platforms returns every platform of every registered backend. The wgpu
// backend comes first, then opencl, then any other backend in name order.
// Callers select a platform by index; index 0 is the default.
//
//	platforms, _ := backend.Platforms()
//	if len(platforms) == 0 {
//	    log.Fatal("no compute platform")
//	}
//	ctx, err := platforms[0].CreateContext()
//
// # Ownership
//
// A Context owns everything created through it. Callers release handles in
// reverse creation order and release the Context last.
package backend
