package vecadd

import (
	_ "embed"

	"github.com/gogpu/vecadd/backend"
)

// DefaultEntryPoint is the name of the element-wise addition kernel.
const DefaultEntryPoint = "vadd"

// Kernel sources, one per source dialect. Both declare the same
// four-argument contract: read-only a, read-only b, write-only result,
// element count. Invocations whose id is not below the count do nothing.

//go:embed kernels/vadd.cl
var kernelOpenCLC string

//go:embed kernels/vadd.wgsl
var kernelWGSL string

// KernelSource returns the built-in vector-addition kernel for a dialect,
// or "" if there is none.
func KernelSource(d backend.Dialect) string {
	switch d {
	case backend.DialectOpenCLC:
		return kernelOpenCLC
	case backend.DialectWGSL:
		return kernelWGSL
	default:
		return ""
	}
}

// sourceFor resolves the kernel source for a dialect, preferring the
// configured override.
func (c Config) sourceFor(d backend.Dialect) string {
	if src, ok := c.Sources[d]; ok {
		return src
	}
	return KernelSource(d)
}
