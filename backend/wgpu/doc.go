// Package wgpu provides a compute backend using gogpu/wgpu.
//
// The backend drives the gogpu/wgpu hardware abstraction layer directly:
// one HAL instance per context, one adapter per device, and compute
// pipelines built from WGSL compiled to SPIR-V with gogpu/naga. It is
// Pure Go and needs no cgo.
//
// Importing the package registers it with the backend registry under
// backend.BackendWGPU:
//
//	import _ "github.com/gogpu/vecadd/backend/wgpu"
//
// # Mapping
//
//	backend.Context  -> hal.Instance + enumerated adapters
//	backend.Device   -> one hal.ExposedAdapter
//	backend.Queue    -> hal.Device + hal.Queue opened on the adapter
//	backend.Program  -> shader module + bind group and pipeline layouts
//	backend.Kernel   -> compute pipeline + bound arguments
//	backend.Buffer   -> storage buffer
//	backend.Event    -> submission index + command buffer of one dispatch
//
// # Kernel contract
//
// Kernels declare four bindings in group 0: read-only storage at 0 and 1,
// read-write storage at 2 and a uniform holding a u32 element count at 3.
// The token WORKGROUP_SIZE in the source is replaced with the configured
// work-group size before compilation, so launches must use that size as
// their local extent. WGSL has no fast-math switch; BuildOptions.FastMath
// is ignored.
//
// Launches of more than 65535 work-groups are dispatched as a 2-D grid
// of 65535 columns. Kernels must linearize the invocation index as
// id.y * num_workgroups.x * WORKGROUP_SIZE + id.x and guard it against
// the element count.
package wgpu
