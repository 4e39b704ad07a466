package vecadd

import (
	"fmt"

	"github.com/gogpu/vecadd/backend"
)

// Platforms returns the compute platforms available on this host, in
// backend priority order. Factories that fail are logged and skipped.
func Platforms() []backend.Platform {
	platforms, errs := backend.Platforms()
	for name, err := range errs {
		Logger().Warn("vecadd: backend enumeration failed", "backend", name, "error", err)
	}
	return platforms
}

// selectPlatform picks the platform at index from the candidates.
// The first platform is authoritative when index is 0; no capability
// ranking is performed.
func selectPlatform(candidates []backend.Platform, index int) (backend.Platform, error) {
	if len(candidates) == 0 {
		return nil, ErrNoPlatformAvailable
	}
	if index >= len(candidates) {
		return nil, fmt.Errorf("%w: platform index %d out of range (%d available)",
			ErrNoPlatformAvailable, index, len(candidates))
	}
	return candidates[index], nil
}
