package backend

import "fmt"

// DefaultWorkGroupSize is the local extent used when none is configured.
const DefaultWorkGroupSize = 256

// Geometry is the launch geometry of a 1-D kernel.
type Geometry struct {
	// Global is the total number of work-items.
	Global int
	// Local is the number of work-items per work-group.
	Local int
}

// ComputeGeometry returns the geometry covering n elements with work-groups
// of size workGroupSize. Global is the smallest multiple of workGroupSize
// that is >= n, so kernels must guard indices >= n.
func ComputeGeometry(n, workGroupSize int) Geometry {
	if workGroupSize <= 0 {
		return Geometry{}
	}
	groups := (n + workGroupSize - 1) / workGroupSize
	return Geometry{
		Global: groups * workGroupSize,
		Local:  workGroupSize,
	}
}

// Groups returns the number of work-groups.
func (g Geometry) Groups() int {
	if g.Local == 0 {
		return 0
	}
	return g.Global / g.Local
}

// Validate reports whether the geometry can be launched.
func (g Geometry) Validate() error {
	if g.Local <= 0 || g.Global <= 0 {
		return fmt.Errorf("backend: invalid geometry %v", g)
	}
	if g.Global%g.Local != 0 {
		return fmt.Errorf("backend: global extent %d is not a multiple of local extent %d", g.Global, g.Local)
	}
	return nil
}

// String returns the geometry as "global/local".
func (g Geometry) String() string {
	return fmt.Sprintf("%d/%d", g.Global, g.Local)
}
