// Package backend is a registry of device implementations.
//
// Device packages register a Factory under a name from an init function.
// Importing a backend for its side effect makes it selectable:
//
//	import _ "github.com/gogpu/gputext/backend/software"
//
//	dev, err := backend.Default()
//
// The native backend needs a HAL device from the host and does not
// register itself. Hosts that own one register it under Native:
//
//	backend.Register(backend.Native, func() (device.Device, error) {
//		return native.NewFromProvider(provider, pipelines)
//	})
package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputext/device"
)

// Backend names.
const (
	Native   = "native"
	Software = "software"
)

// ErrNotAvailable is returned when no backend with the requested name
// is registered.
var ErrNotAvailable = errors.New("backend: not available")

// Factory creates a device.
type Factory func() (device.Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// priority is the order Default tries registered backends in.
	priority = []string{Native, Software}
)

// Register registers factory under name, replacing any previous one.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes the backend registered under name.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get creates a device from the backend registered under name.
func Get(name string) (device.Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// Default creates a device from the first backend in priority order
// whose factory succeeds, then from any other registered backend.
// The native backend is preferred over the software one.
func Default() (device.Device, error) {
	registryMu.RLock()
	names := make([]string, 0, len(factories))
	for _, name := range priority {
		if _, ok := factories[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range factories {
		if !slices.Contains(priority, name) {
			rest = append(rest, name)
		}
	}
	registryMu.RUnlock()
	slices.Sort(rest)

	var errs []error
	for _, name := range append(names, rest...) {
		dev, err := Get(name)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNotAvailable
	}
	return nil, errors.Join(append([]error{ErrNotAvailable}, errs...)...)
}

// MustDefault is like Default but panics on error.
func MustDefault() device.Device {
	dev, err := Default()
	if err != nil {
		panic(err)
	}
	return dev
}
