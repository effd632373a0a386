// Package device defines how the benchmark core observes compute devices.
//
// The core needs exactly two things from a device: how much memory is free,
// and a way to force the device to reclaim memory it still holds. Both are
// best effort and may block on device I/O. Backends:
//
//   - Host: every worker is a CPU worker sharing host RAM.
//   - Simulated: in-memory devices with leak, settle-lag and failure
//     injection, used by tests and dry runs.
package device

import (
	"context"
	"errors"
)

// MiB is one mebibyte in bytes.
const MiB int64 = 1024 * 1024

// Errors reported by probes.
var (
	// ErrQuery means a device's state could not be read.
	ErrQuery = errors.New("device query failed")

	// ErrNoDevice means the device index is outside the probe's range.
	ErrNoDevice = errors.New("no such device")

	// ErrOutOfMemory means an allocation does not fit in free device memory.
	ErrOutOfMemory = errors.New("device out of memory")
)

// Probe reads and reclaims device memory. Implementations must be safe for
// concurrent use by different workers.
type Probe interface {
	// FreeMemory returns the free memory of dev in MiB. The value may be
	// stale right after a compute context was torn down.
	FreeMemory(ctx context.Context, dev int) (int, error)

	// ForceReclaim synchronously resets dev's compute context. Afterwards
	// FreeMemory is expected, not guaranteed, to reflect reclaimed memory.
	ForceReclaim(ctx context.Context, dev int) error
}

// Allocator is implemented by probes that track allocations themselves,
// such as the simulated backend. Tags group allocations per algorithm.
type Allocator interface {
	Allocate(dev int, tag string, bytes int64) error
	Release(dev int, tag string)
}

// Info describes one device bound to a worker.
type Info struct {
	// Index is the worker index the device is bound to.
	Index int `json:"index" yaml:"index"`

	// Name is a human-readable device name.
	Name string `json:"name" yaml:"name"`

	// TotalMB is the device memory size in MiB, zero if unknown.
	TotalMB int `json:"total_mb" yaml:"total_mb"`
}

// Lister is implemented by probes that can describe their devices.
type Lister interface {
	Devices() []Info
}

// Describe returns device info for n workers. Probes that do not implement
// Lister get generic names.
func Describe(p Probe, n int) []Info {
	if l, ok := p.(Lister); ok {
		infos := l.Devices()
		if len(infos) >= n {
			return infos[:n]
		}
	}

	infos := make([]Info, n)
	for i := range infos {
		infos[i] = Info{Index: i, Name: "device"}
	}
	return infos
}
