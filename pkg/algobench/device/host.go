package device

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/klauspost/cpuid/v2"

	"github.com/jamesainslie/algobench/pkg/algobench/tuner"
)

// Host is a probe for CPU workers. All workers share host RAM, so free
// memory is the same figure for every device index.
type Host struct {
	threads int
	detect  func() (tuner.SystemResources, error)
}

// NewHost returns a host probe for threads workers.
func NewHost(threads int) *Host {
	return &Host{
		threads: threads,
		detect:  tuner.Detect,
	}
}

// FreeMemory returns available host RAM in MiB.
func (h *Host) FreeMemory(ctx context.Context, dev int) (int, error) {
	if err := h.check(ctx, dev); err != nil {
		return 0, err
	}

	resources, err := h.detect()
	if err != nil {
		return 0, fmt.Errorf("%w: cpu %d: %w", ErrQuery, dev, err)
	}
	return resources.AvailableMB(), nil
}

// ForceReclaim returns freed heap to the operating system.
func (h *Host) ForceReclaim(ctx context.Context, dev int) error {
	if err := h.check(ctx, dev); err != nil {
		return err
	}

	runtime.GC()
	debug.FreeOSMemory()
	return nil
}

// Devices describes one CPU worker per thread.
func (h *Host) Devices() []Info {
	total := 0
	if resources, err := h.detect(); err == nil {
		total = resources.TotalMB()
	}

	brand := strings.TrimSpace(cpuid.CPU.BrandName)
	if brand == "" {
		brand = runtime.GOARCH
	}

	infos := make([]Info, h.threads)
	for i := range infos {
		infos[i] = Info{
			Index:   i,
			Name:    fmt.Sprintf("%s (cpu %d)", brand, i),
			TotalMB: total,
		}
	}
	return infos
}

func (h *Host) check(ctx context.Context, dev int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dev < 0 || dev >= h.threads {
		return fmt.Errorf("%w: %w: cpu %d", ErrQuery, ErrNoDevice, dev)
	}
	return nil
}

var (
	_ Probe  = (*Host)(nil)
	_ Lister = (*Host)(nil)
)
