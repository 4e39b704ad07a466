// Package opencl provides a compute backend over OpenCL.
//
// The backend needs cgo and an OpenCL ICD loader, so it is only compiled
// with the opencl build tag:
//
//	go build -tags opencl ./...
//
// Importing the package then registers it under backend.BackendOpenCL:
//
//	import _ "github.com/gogpu/vecadd/backend/opencl"
//
// Every OpenCL platform becomes one backend.Platform. Contexts span all
// devices of the platform (CL_DEVICE_TYPE_ALL). Kernels are OpenCL C and
// built with "-cl-mad-enable" when fast math is requested.
package opencl
