package device

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// SimConfig configures a simulated device pool.
type SimConfig struct {
	// Devices is the number of devices.
	Devices int

	// TotalMB is each device's memory size.
	TotalMB int

	// ReservedMB is memory held by the driver from the start.
	ReservedMB int

	// Leaks maps an allocation tag to the MiB left behind when it is released.
	Leaks map[string]int

	// SettleReads is how many FreeMemory reads a release stays invisible for.
	// Zero makes releases visible immediately.
	SettleReads int

	// Names overrides device names by index.
	Names []string
}

// DefaultSimConfig returns a two-device pool with 4 GiB each.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Devices:    2,
		TotalMB:    4096,
		ReservedMB: 64,
	}
}

type pendingRelease struct {
	bytes     int64
	readsLeft int
}

type simDevice struct {
	used      map[string]int64
	leaked    int64
	pending   []pendingRelease
	queries   int
	resets    int
	failAfter int // -1 disables failure injection
}

// Simulated is an in-memory device pool. It is safe for concurrent use.
type Simulated struct {
	mu   sync.Mutex
	cfg  SimConfig
	devs []*simDevice
}

// NewSimulated creates a simulated pool.
func NewSimulated(cfg SimConfig) *Simulated {
	if cfg.Devices < 1 {
		cfg.Devices = 1
	}
	if cfg.TotalMB <= 0 {
		cfg.TotalMB = DefaultSimConfig().TotalMB
	}

	devs := make([]*simDevice, cfg.Devices)
	for i := range devs {
		devs[i] = &simDevice{
			used:      make(map[string]int64),
			failAfter: -1,
		}
	}

	return &Simulated{cfg: cfg, devs: devs}
}

// FreeMemory returns the device's free memory in MiB, rounded to nearest.
func (s *Simulated) FreeMemory(ctx context.Context, dev int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.device(dev)
	if err != nil {
		return 0, err
	}

	if d.failAfter == 0 {
		return 0, fmt.Errorf("%w: sim %d unreachable", ErrQuery, dev)
	}
	if d.failAfter > 0 {
		d.failAfter--
	}
	d.queries++

	free := s.freeBytes(d)

	// Releases become visible after SettleReads reads.
	kept := d.pending[:0]
	for _, p := range d.pending {
		p.readsLeft--
		if p.readsLeft > 0 {
			kept = append(kept, p)
		}
	}
	d.pending = kept

	return int(math.Round(float64(free) / float64(MiB))), nil
}

// ForceReclaim resets the device: every allocation, leak and pending
// release on it is dropped.
func (s *Simulated) ForceReclaim(ctx context.Context, dev int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.device(dev)
	if err != nil {
		return err
	}
	if d.failAfter == 0 {
		return fmt.Errorf("%w: sim %d reset failed", ErrQuery, dev)
	}

	d.used = make(map[string]int64)
	d.leaked = 0
	d.pending = nil
	d.resets++
	return nil
}

// Allocate reserves bytes on dev under tag.
func (s *Simulated) Allocate(dev int, tag string, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.device(dev)
	if err != nil {
		return err
	}
	if bytes > s.freeBytes(d) {
		return fmt.Errorf("%w: sim %d: %d bytes for %s", ErrOutOfMemory, dev, bytes, tag)
	}

	d.used[tag] += bytes
	return nil
}

// Release frees every allocation under tag, minus the configured leak.
func (s *Simulated) Release(dev int, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.device(dev)
	if err != nil {
		return
	}

	bytes, ok := d.used[tag]
	if !ok {
		return
	}
	delete(d.used, tag)

	leak := min(int64(s.cfg.Leaks[tag])*MiB, bytes)
	d.leaked += leak

	freed := bytes - leak
	if freed > 0 && s.cfg.SettleReads > 0 {
		d.pending = append(d.pending, pendingRelease{bytes: freed, readsLeft: s.cfg.SettleReads})
	}
}

// SetLeak changes the MiB leaked when tag is released.
func (s *Simulated) SetLeak(tag string, mb int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Leaks == nil {
		s.cfg.Leaks = make(map[string]int)
	}
	s.cfg.Leaks[tag] = mb
}

// FailAfter makes dev fail every query after n more successful reads.
// A negative n disables failure injection.
func (s *Simulated) FailAfter(dev, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, err := s.device(dev); err == nil {
		d.failAfter = max(n, -1)
	}
}

// Resets returns how many times dev has been reset.
func (s *Simulated) Resets(dev int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, err := s.device(dev); err == nil {
		return d.resets
	}
	return 0
}

// Queries returns how many successful FreeMemory reads dev has served.
func (s *Simulated) Queries(dev int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, err := s.device(dev); err == nil {
		return d.queries
	}
	return 0
}

// UsedMB returns memory held by live allocations on dev, in MiB.
func (s *Simulated) UsedMB(dev int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.device(dev)
	if err != nil {
		return 0
	}

	var used int64
	for _, b := range d.used {
		used += b
	}
	return int(used / MiB)
}

// Devices describes the simulated pool.
func (s *Simulated) Devices() []Info {
	infos := make([]Info, len(s.devs))
	for i := range infos {
		name := fmt.Sprintf("Simulated Device %d", i)
		if i < len(s.cfg.Names) && s.cfg.Names[i] != "" {
			name = s.cfg.Names[i]
		}
		infos[i] = Info{Index: i, Name: name, TotalMB: s.cfg.TotalMB}
	}
	return infos
}

// freeBytes must be called with s.mu held.
func (s *Simulated) freeBytes(d *simDevice) int64 {
	free := int64(s.cfg.TotalMB-s.cfg.ReservedMB)*MiB - d.leaked
	for _, b := range d.used {
		free -= b
	}
	for _, p := range d.pending {
		free -= p.bytes
	}
	return max(free, 0)
}

// device must be called with s.mu held.
func (s *Simulated) device(dev int) (*simDevice, error) {
	if dev < 0 || dev >= len(s.devs) {
		return nil, fmt.Errorf("%w: %w: sim %d", ErrQuery, ErrNoDevice, dev)
	}
	return s.devs[dev], nil
}

var (
	_ Probe     = (*Simulated)(nil)
	_ Allocator = (*Simulated)(nil)
	_ Lister    = (*Simulated)(nil)
)
