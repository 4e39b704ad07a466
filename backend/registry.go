package backend

import (
	"sort"
	"sync"
)

// PlatformFactory discovers the platforms of one backend.
// A backend may expose several platforms (one per installed OpenCL ICD)
// or none at all when its driver stack is missing.
type PlatformFactory func() ([]Platform, error)

var (
	registryMu sync.RWMutex
	backends   = make(map[string]PlatformFactory)
	// Priority order for platform enumeration (earlier backends get lower
	// platform indices). Unlisted backends follow in name order.
	backendPriority = []string{BackendWGPU, BackendOpenCL}
)

// Register makes a backend's platforms discoverable under name. Backend
// packages call it from init; a later call with the same name wins.
func Register(name string, factory PlatformFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister forgets name. Tests use it to drop fake backends.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in enumeration order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return orderedNames()
}

// IsRegistered reports whether name has a factory.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns the platforms of a single backend.
func Get(name string) ([]Platform, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrBackendNotAvailable
	}
	return factory()
}

// Platforms enumerates the platforms of every registered backend in
// priority order. Backends whose discovery fails contribute no platforms;
// their errors are returned alongside the platforms that were found.
func Platforms() ([]Platform, map[string]error) {
	registryMu.RLock()
	names := orderedNames()
	factories := make([]PlatformFactory, len(names))
	for i, name := range names {
		factories[i] = backends[name]
	}
	registryMu.RUnlock()

	var (
		platforms []Platform
		errs      map[string]error
	)
	for i, factory := range factories {
		found, err := factory()
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[names[i]] = err
			continue
		}
		platforms = append(platforms, found...)
	}
	return platforms, errs
}

// orderedNames returns registered names, priority backends first.
// Must be called with registryMu held.
func orderedNames() []string {
	names := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backendPriority))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}
